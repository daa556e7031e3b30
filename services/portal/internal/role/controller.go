package role

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/database"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/router"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/user"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Controller 角色控制器
type Controller struct {
	repo      Repository
	userRoles UserRoleRepository
	users     user.Repository
	log       *zap.Logger
}

// NewController 创建角色控制器
func NewController(repo Repository, userRoles UserRoleRepository, users user.Repository, log *zap.Logger) *Controller {
	return &Controller{repo: repo, userRoles: userRoles, users: users, log: log.Named("role")}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/roles" }

// Module 模块键
func (c *Controller) Module() string { return model.ModuleRoles }

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "/", Permission: model.PermList, Handler: c.List},
		{Method: fiber.MethodPost, Path: "/", Permission: model.PermCreate, Handler: c.Create},
		{Method: fiber.MethodGet, Path: "/user/:userId", Permission: model.PermRead, Handler: c.UserRoles},
		{Method: fiber.MethodPost, Path: "/assign", Permission: model.PermCreate, Handler: c.Assign},
		{Method: fiber.MethodDelete, Path: "/:roleId/user/:userId", Permission: model.PermDelete, Handler: c.Unassign},
		{Method: fiber.MethodGet, Path: "/:id", Permission: model.PermRead, Handler: c.Get},
		{Method: fiber.MethodPut, Path: "/:id", Permission: model.PermUpdate, Handler: c.Update},
		{Method: fiber.MethodDelete, Path: "/:id", Permission: model.PermDelete, Handler: c.Delete},
	}
}

// List 角色列表
func (c *Controller) List(ctx *fiber.Ctx) error {
	q, err := dal.BindListQuery(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	res, err := c.repo.Collection().List(ctx.UserContext(), q, dal.Scope{})
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.List(ctx, res.Meta.Total, res.Results)
}

// Get 角色详情
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	r, err := c.find(ctx.UserContext(), id)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, r)
}

func (c *Controller) find(ctx context.Context, id int64) (*model.Role, error) {
	r, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperrors.NotFound("role")
	}
	return r, nil
}

// Create 创建角色
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	r, err := c.create(ctx.UserContext(), &req)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Created(ctx, r)
}

// create 创建角色业务逻辑
func (c *Controller) create(ctx context.Context, req *CreateRequest) (*model.Role, error) {
	existing, err := c.repo.FindByKey(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Duplicate("role key")
	}

	r := &model.Role{Key: req.Key, Name: req.Name, IsDefault: req.IsDefault}
	if err := c.repo.Create(ctx, r); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperrors.Duplicate("role key")
		}
		return nil, err
	}
	return r, nil
}

// Update 更新角色
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	var req UpdateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	r, err := c.find(ctx.UserContext(), id)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if req.Name != "" {
		r.Name = req.Name
	}
	if req.IsDefault != nil {
		r.IsDefault = *req.IsDefault
	}
	if err := c.repo.Update(ctx.UserContext(), r); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, r)
}

// Delete 删除角色
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if _, err := c.find(ctx.UserContext(), id); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if err := c.repo.DeleteCascade(ctx.UserContext(), id); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.SuccessWithMessage(ctx, "role deleted", nil)
}

// UserRoles 用户的角色
func (c *Controller) UserRoles(ctx *fiber.Ctx) error {
	userID, err := dal.GetIDParam[int64](ctx, "userId")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	roles, err := c.userRoles.RolesOf(ctx.UserContext(), userID)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, roles)
}

// Assign 为用户分配角色
func (c *Controller) Assign(ctx *fiber.Ctx) error {
	var req AssignRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	link, err := c.assign(ctx.UserContext(), &req)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Created(ctx, link)
}

func (c *Controller) assign(ctx context.Context, req *AssignRequest) (*model.UserRole, error) {
	u, err := c.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.NotFound("user")
	}
	if _, err := c.find(ctx, req.RoleID); err != nil {
		return nil, err
	}

	exists, err := c.userRoles.Exists(ctx, map[string]any{"user_id": req.UserID, "role_id": req.RoleID})
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Conflict("role already assigned")
	}

	link := &model.UserRole{UserID: req.UserID, RoleID: req.RoleID}
	if err := c.userRoles.Create(ctx, link); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperrors.Conflict("role already assigned")
		}
		return nil, err
	}
	return link, nil
}

// Unassign 移除用户角色
func (c *Controller) Unassign(ctx *fiber.Ctx) error {
	roleID, err := dal.GetIDParam[int64](ctx, "roleId")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	userID, err := dal.GetIDParam[int64](ctx, "userId")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	removed, err := c.userRoles.Remove(ctx.UserContext(), userID, roleID)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if !removed {
		return response.Fail(ctx, c.log, apperrors.NotFound("user role"))
	}
	return response.SuccessWithMessage(ctx, "role removed", nil)
}
