package permission

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/database"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/middleware"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/router"
	"github.com/portalback/services/portal/internal/model"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Controller 权限控制器
type Controller struct {
	repo   Repository
	grants Grants
	log    *zap.Logger
}

// NewController 创建权限控制器
func NewController(repo Repository, grants Grants, log *zap.Logger) *Controller {
	return &Controller{repo: repo, grants: grants, log: log.Named("permission")}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/permissions" }

// Module 模块键
func (c *Controller) Module() string { return model.ModulePermissions }

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "/", Permission: model.PermList, Handler: c.List},
		{Method: fiber.MethodPost, Path: "/", Permission: model.PermCreate, Handler: c.Create},
		{Method: fiber.MethodGet, Path: "/permissions-map/roles/:roleId", Permission: model.PermRead, Handler: c.RoleMatrix},
		{Method: fiber.MethodGet, Path: "/permissions-map/roles/:roleId/modules/:moduleId/:permission", Permission: model.PermRead, Handler: c.Check},
		{Method: fiber.MethodPost, Path: "/roles/register", Permission: model.PermCreate, Handler: c.Register},
		{Method: fiber.MethodPost, Path: "/roles/revoke", Permission: model.PermDelete, Handler: c.Revoke},
		{Method: fiber.MethodGet, Path: "/:id", Permission: model.PermRead, Handler: c.Get},
		{Method: fiber.MethodPut, Path: "/:id", Permission: model.PermUpdate, Handler: c.Update},
		{Method: fiber.MethodDelete, Path: "/:id", Permission: model.PermDelete, Handler: c.Delete},
	}
}

// List 权限列表
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

// Get 权限详情
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	p, err := c.find(ctx.UserContext(), id)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, p)
}

func (c *Controller) find(ctx context.Context, id int64) (*model.Permission, error) {
	p, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NotFound("permission")
	}
	return p, nil
}

// Create 创建权限
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	existing, err := c.repo.FindByKey(ctx.UserContext(), req.Key)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if existing != nil {
		return response.Fail(ctx, c.log, apperrors.Duplicate("permission key"))
	}
	p := &model.Permission{Key: req.Key, Name: req.Name, Active: true}
	if err := c.repo.Create(ctx.UserContext(), p); err != nil {
		if database.IsDuplicateKey(err) {
			err = apperrors.Duplicate("permission key")
		}
		return response.Fail(ctx, c.log, err)
	}
	return response.Created(ctx, p)
}

// Update 更新权限
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	var req UpdateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	p, err := c.find(ctx.UserContext(), id)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := c.repo.Update(ctx.UserContext(), p); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, p)
}

// Delete 归档权限
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if _, err := c.find(ctx.UserContext(), id); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if err := c.repo.UpdateFields(ctx.UserContext(), id, map[string]any{"active": false}); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.SuccessWithMessage(ctx, "permission archived", nil)
}

// RoleMatrix 角色在各模块下的权限
func (c *Controller) RoleMatrix(ctx *fiber.Ctx) error {
	roleID, err := dal.GetIDParam[int64](ctx, "roleId")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	matrix, err := c.grants.RolePermissionMatrix(ctx.UserContext(), roleID)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, matrix)
}

// Check 角色是否在模块下持有权限键
func (c *Controller) Check(ctx *fiber.Ctx) error {
	roleID, err := dal.GetIDParam[int64](ctx, "roleId")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	moduleID, err := dal.GetIDParam[int64](ctx, "moduleId")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	key, err := dal.GetIDParam[string](ctx, "permission")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}

	has, err := c.grants.HasPermissionKey(ctx.UserContext(), roleID, moduleID, key)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, CheckResponse{RoleID: roleID, ModuleID: moduleID, Permission: key, HasPermission: has})
}

// Register 授予权限
func (c *Controller) Register(ctx *fiber.Ctx) error {
	var req GrantRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	grant, err := c.grants.RegisterGrant(ctx.UserContext(), req.RoleID, req.ModuleID, req.PermissionID)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	c.log.Info("permission granted",
		zap.Int64("role_id", req.RoleID),
		zap.Int64("module_id", req.ModuleID),
		zap.Int64("permission_id", req.PermissionID),
		zap.Int64("by", middleware.GetUserID(ctx)),
	)
	return response.Created(ctx, grant)
}

// Revoke 撤销权限
func (c *Controller) Revoke(ctx *fiber.Ctx) error {
	var req GrantRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if err := c.grants.RevokeGrant(ctx.UserContext(), req.RoleID, req.ModuleID, req.PermissionID); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	c.log.Info("permission revoked",
		zap.Int64("role_id", req.RoleID),
		zap.Int64("module_id", req.ModuleID),
		zap.Int64("permission_id", req.PermissionID),
		zap.Int64("by", middleware.GetUserID(ctx)),
	)
	return response.SuccessWithMessage(ctx, "permission revoked", nil)
}
