package client

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/database"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/middleware"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/router"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/user"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Controller 客户控制器
type Controller struct {
	repo  Repository
	users user.Repository
	log   *zap.Logger
}

// NewController 创建客户控制器
func NewController(repo Repository, users user.Repository, log *zap.Logger) *Controller {
	return &Controller{repo: repo, users: users, log: log.Named("client")}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/clients" }

// Module 模块键
func (c *Controller) Module() string { return model.ModuleClients }

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "/", Permission: model.PermList, Handler: c.List},
		{Method: fiber.MethodPost, Path: "/", Permission: model.PermCreate, Handler: c.Create},
		{Method: fiber.MethodGet, Path: "/unassigned", Permission: model.PermList, Handler: c.Unassigned},
		{Method: fiber.MethodGet, Path: "/user/:userId", Permission: model.PermRead, Handler: c.OfUser},
		{Method: fiber.MethodDelete, Path: "/users/:userId", Permission: model.PermDelete, Handler: c.UnassignUser},
		{Method: fiber.MethodPost, Path: "/:id/users", Permission: model.PermCreate, Handler: c.AssignUser},
		{Method: fiber.MethodGet, Path: "/:id", Permission: model.PermRead, Handler: c.Get},
		{Method: fiber.MethodPut, Path: "/:id", Permission: model.PermUpdate, Handler: c.Update},
		{Method: fiber.MethodDelete, Path: "/:id", Permission: model.PermDelete, Handler: c.Delete},
	}
}

func scopeOf(ctx *fiber.Ctx) dal.Scope {
	return dal.Scope{Tenant: middleware.GetTenantScope(ctx)}
}

// List 客户列表
func (c *Controller) List(ctx *fiber.Ctx) error {
	q, err := dal.BindListQuery(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	res, err := c.repo.Collection().List(ctx.UserContext(), q, scopeOf(ctx))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.List(ctx, res.Meta.Total, res.Results)
}

// Get 客户详情
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	cl, err := c.find(ctx.UserContext(), id, scopeOf(ctx), "users")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, cl)
}

func (c *Controller) find(ctx context.Context, id int64, scope dal.Scope, relations ...string) (*model.Client, error) {
	cl, err := c.repo.Collection().Get(ctx, id, scope, relations...)
	if err != nil {
		return nil, err
	}
	if cl == nil {
		return nil, apperrors.NotFound("client")
	}
	return cl, nil
}

// OfUser 用户所属客户
func (c *Controller) OfUser(ctx *fiber.Ctx) error {
	userID, err := dal.GetIDParam[int64](ctx, "userId")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	cl, err := c.ofUser(ctx.UserContext(), userID, scopeOf(ctx))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, cl)
}

// ofUser 所属客户不在当前租户范围内时同样返回 NotFound
func (c *Controller) ofUser(ctx context.Context, userID int64, scope dal.Scope) (*model.Client, error) {
	owned, err := c.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if owned == nil {
		return nil, apperrors.NotFound("client")
	}
	return c.find(ctx, owned.ID, scope, "users")
}

// Create 创建客户
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	cl := &model.Client{
		CompanyID: middleware.GetCompanyID(ctx),
		Name:      req.Name,
		Address:   req.Address,
		Email:     req.Email,
		Phone:     req.Phone,
		ErpID:     req.ErpID,
		Data:      req.Data,
	}
	if err := c.repo.Create(ctx.UserContext(), cl); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Created(ctx, cl)
}

// Update 更新客户
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	var req UpdateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	cl, err := c.find(ctx.UserContext(), id, scopeOf(ctx))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}

	if req.Name != "" {
		cl.Name = req.Name
	}
	if req.Address != nil {
		cl.Address = *req.Address
	}
	if req.Email != nil {
		cl.Email = *req.Email
	}
	if req.Phone != nil {
		cl.Phone = *req.Phone
	}
	if req.ErpID != nil {
		cl.ErpID = req.ErpID
	}
	if req.Data != nil {
		cl.Data = req.Data
	}
	if err := c.repo.Update(ctx.UserContext(), cl); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, cl)
}

// Delete 删除客户
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if _, err := c.find(ctx.UserContext(), id, scopeOf(ctx)); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if err := c.repo.DeleteCascade(ctx.UserContext(), id); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.SuccessWithMessage(ctx, "client deleted", nil)
}

// Unassigned 未关联客户的用户
func (c *Controller) Unassigned(ctx *fiber.Ctx) error {
	users, err := c.repo.UnassignedUsers(ctx.UserContext(), middleware.GetTenantScope(ctx))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.List(ctx, int64(len(users)), users)
}

// AssignUser 为客户关联用户
func (c *Controller) AssignUser(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	var req AssignUserRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	link, err := c.assignUser(ctx.UserContext(), id, scopeOf(ctx), req.UserID)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Created(ctx, link)
}

// assignUser 一个用户至多属于一个客户
func (c *Controller) assignUser(ctx context.Context, clientID int64, scope dal.Scope, userID int64) (*model.ClientUser, error) {
	if _, err := c.find(ctx, clientID, scope); err != nil {
		return nil, err
	}
	u, err := c.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.NotFound("user")
	}
	current, err := c.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, apperrors.Conflict("user already belongs to a client")
	}

	link, err := c.repo.AssignUser(ctx, clientID, userID)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperrors.Conflict("user already belongs to a client")
		}
		return nil, err
	}
	return link, nil
}

// UnassignUser 解除用户与客户的关联
func (c *Controller) UnassignUser(ctx *fiber.Ctx) error {
	userID, err := dal.GetIDParam[int64](ctx, "userId")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	removed, err := c.repo.UnassignUser(ctx.UserContext(), userID)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if !removed {
		return response.Fail(ctx, c.log, apperrors.NotFound("client user"))
	}
	return response.SuccessWithMessage(ctx, "user unassigned", nil)
}
