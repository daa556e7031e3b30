package module

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/database"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/router"
	"github.com/portalback/services/portal/internal/model"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Controller 模块控制器
type Controller struct {
	repo Repository
	log  *zap.Logger
}

// NewController 创建模块控制器
func NewController(repo Repository, log *zap.Logger) *Controller {
	return &Controller{repo: repo, log: log.Named("module")}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/modules" }

// Module 模块键
func (c *Controller) Module() string { return model.ModuleModules }

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "/", Permission: model.PermList, Handler: c.List},
		{Method: fiber.MethodPost, Path: "/", Permission: model.PermCreate, Handler: c.Create},
		{Method: fiber.MethodGet, Path: "/:id", Permission: model.PermRead, Handler: c.Get},
		{Method: fiber.MethodPut, Path: "/:id", Permission: model.PermUpdate, Handler: c.Update},
		{Method: fiber.MethodDelete, Path: "/:id", Permission: model.PermDelete, Handler: c.Delete},
	}
}

// List 模块列表
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

// Get 模块详情
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	m, err := c.find(ctx.UserContext(), id)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, m)
}

func (c *Controller) find(ctx context.Context, id int64) (*model.Module, error) {
	m, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperrors.NotFound("module")
	}
	return m, nil
}

// Create 创建模块
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	m, err := c.create(ctx.UserContext(), &req)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Created(ctx, m)
}

func (c *Controller) create(ctx context.Context, req *CreateRequest) (*model.Module, error) {
	existing, err := c.repo.FindByKey(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Duplicate("module key")
	}
	m := &model.Module{Key: req.Key, Name: req.Name, Active: true}
	if err := c.repo.Create(ctx, m); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperrors.Duplicate("module key")
		}
		return nil, err
	}
	return m, nil
}

// Update 更新模块
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	var req UpdateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	m, err := c.find(ctx.UserContext(), id)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if req.Name != "" {
		m.Name = req.Name
	}
	if req.Active != nil {
		m.Active = *req.Active
	}
	if err := c.repo.Update(ctx.UserContext(), m); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, m)
}

// Delete 归档模块
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
	return response.SuccessWithMessage(ctx, "module archived", nil)
}
