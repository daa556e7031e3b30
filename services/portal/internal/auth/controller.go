package auth

import (
	"context"
	"strings"

	pkgAuth "github.com/portalback/pkg/auth"
	"github.com/portalback/pkg/dal"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/middleware"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/router"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/user"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	*pkgAuth.TokenInfo
	User *model.User `json:"user"`
}

// Controller 认证控制器
type Controller struct {
	users   user.Repository
	jwt     *pkgAuth.JWTManager
	jwtAuth fiber.Handler
	log     *zap.Logger
}

// NewController 创建认证控制器
func NewController(users user.Repository, jwt *pkgAuth.JWTManager, log *zap.Logger) *Controller {
	log = log.Named("auth")
	return &Controller{
		users:   users,
		jwt:     jwt,
		jwtAuth: middleware.JWTAuth(jwt, log),
		log:     log,
	}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/auth" }

// Module 认证接口不做模块权限校验
func (c *Controller) Module() string { return "" }

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodPost, Path: "/login", Handler: c.Login},
		{Method: fiber.MethodGet, Path: "/me", Handler: c.Me, Middlewares: []fiber.Handler{c.jwtAuth}},
	}
}

// Login 登录
func (c *Controller) Login(ctx *fiber.Ctx) error {
	var req LoginRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	resp, err := c.login(ctx.UserContext(), &req)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, resp)
}

// login 校验凭据并签发令牌，用户不存在与密码错误返回同一错误
func (c *Controller) login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	u, err := c.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, err
	}
	if u == nil || !pkgAuth.CheckPassword(u.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredential
	}
	if !u.Active {
		return nil, apperrors.Forbidden("user is disabled")
	}

	info, err := c.jwt.CreateTokenInfo(u.ID, u.Email)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &LoginResponse{TokenInfo: info, User: u}, nil
}

// Me 当前用户
func (c *Controller) Me(ctx *fiber.Ctx) error {
	u, err := c.users.FindByID(ctx.UserContext(), middleware.GetUserID(ctx),
		dal.WithPreload("Company"), dal.WithPreload("UserRoles.Role"))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if u == nil {
		return response.Fail(ctx, c.log, apperrors.ErrUnauthorized)
	}
	return response.Success(ctx, u)
}
