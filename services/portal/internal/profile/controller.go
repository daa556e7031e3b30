// Package profile 当前登录用户的个人资料
package profile

import (
	"context"
	"unicode"

	"github.com/portalback/pkg/auth"
	"github.com/portalback/pkg/dal"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/middleware"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/router"
	"github.com/portalback/services/portal/internal/access"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/user"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Controller 个人资料控制器
type Controller struct {
	users    user.Repository
	resolver *access.Resolver
	authn    []fiber.Handler
	log      *zap.Logger
}

// NewController 创建个人资料控制器，authn 为登录校验中间件
func NewController(users user.Repository, resolver *access.Resolver, authn []fiber.Handler, log *zap.Logger) *Controller {
	return &Controller{users: users, resolver: resolver, authn: authn, log: log.Named("profile")}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/profile" }

// Module 个人资料只要求登录
func (c *Controller) Module() string { return "" }

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "/permissions/map", Handler: c.PermissionMap, Middlewares: c.authn},
		{Method: fiber.MethodPut, Path: "/update", Handler: c.Update, Middlewares: c.authn},
		{Method: fiber.MethodPut, Path: "/update/password", Handler: c.UpdatePassword, Middlewares: c.authn},
	}
}

// PermissionMap 当前用户在各模块下的权限
func (c *Controller) PermissionMap(ctx *fiber.Ctx) error {
	perms, err := c.permissionMap(ctx.UserContext(), middleware.GetUserID(ctx))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, perms)
}

func (c *Controller) permissionMap(ctx context.Context, userID int64) (map[string]map[string]bool, error) {
	roleIDs, err := c.resolver.PrincipalRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(roleIDs) == 0 {
		return nil, apperrors.Forbidden("user has no roles")
	}
	return c.resolver.PrincipalPermissionMap(ctx, roleIDs)
}

// Update 更新姓名与电话
func (c *Controller) Update(ctx *fiber.Ctx) error {
	var req UpdateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	u, err := c.update(ctx.UserContext(), middleware.GetUserID(ctx), &req)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, u)
}

func (c *Controller) update(ctx context.Context, userID int64, req *UpdateRequest) (*model.User, error) {
	u, err := c.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Phone != "" {
		u.Phone = req.Phone
	}
	if err := c.users.UpdateFields(ctx, u.ID, map[string]any{"name": u.Name, "phone": u.Phone}); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdatePassword 修改密码，需要提供当前密码
func (c *Controller) UpdatePassword(ctx *fiber.Ctx) error {
	var req PasswordRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if err := c.updatePassword(ctx.UserContext(), middleware.GetUserID(ctx), &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.SuccessWithMessage(ctx, "password updated", nil)
}

func (c *Controller) updatePassword(ctx context.Context, userID int64, req *PasswordRequest) error {
	if err := checkStrength(req.NewPassword); err != nil {
		return err
	}
	u, err := c.current(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.Password, req.Password) {
		return apperrors.Unauthorized("current password is incorrect")
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := c.users.UpdateFields(ctx, u.ID, map[string]any{"password": hash}); err != nil {
		return err
	}
	c.log.Info("password changed", zap.Int64("user_id", u.ID))
	return nil
}

// current 当前用户，令牌中的用户已删除时返回 Unauthorized
func (c *Controller) current(ctx context.Context, userID int64) (*model.User, error) {
	u, err := c.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return u, nil
}

// checkStrength 新密码须同时包含小写、大写、数字和特殊字符
func checkStrength(password string) error {
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return apperrors.Validation("new_password must contain lowercase, uppercase, digit and special characters")
	}
	return nil
}
