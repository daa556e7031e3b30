package category

import (
	"context"

	"github.com/portalback/pkg/dal"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/middleware"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/router"
	"github.com/portalback/services/portal/internal/model"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Controller 分类控制器
type Controller struct {
	repo Repository
	log  *zap.Logger
}

// NewController 创建分类控制器
func NewController(repo Repository, log *zap.Logger) *Controller {
	return &Controller{repo: repo, log: log.Named("category")}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/categories" }

// Module 模块键
func (c *Controller) Module() string { return model.ModuleCategories }

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "/", Permission: model.PermList, Handler: c.List},
		{Method: fiber.MethodPost, Path: "/", Permission: model.PermCreate, Handler: c.Create},
		{Method: fiber.MethodGet, Path: "/:id", Permission: model.PermRead, Handler: c.Get},
		{Method: fiber.MethodPut, Path: "/:id", Permission: model.PermUpdate, Handler: c.Update},
	}
}

func scopeOf(ctx *fiber.Ctx) dal.Scope {
	return dal.Scope{Tenant: middleware.GetTenantScope(ctx)}
}

// List 分类列表
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

// Get 分类详情
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	cat, err := c.find(ctx.UserContext(), id, scopeOf(ctx))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, cat)
}

func (c *Controller) find(ctx context.Context, id int64, scope dal.Scope) (*model.Category, error) {
	cat, err := c.repo.Collection().Get(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperrors.NotFound("category")
	}
	return cat, nil
}

// Create 创建分类
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	cat := &model.Category{
		CompanyID:      middleware.GetCompanyID(ctx),
		Name:           req.Name,
		ErpID:          req.ErpID,
		HiddenOnPortal: req.HiddenOnPortal,
	}
	if err := c.repo.Create(ctx.UserContext(), cat); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Created(ctx, cat)
}

// Update 更新分类
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	var req UpdateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	cat, err := c.find(ctx.UserContext(), id, scopeOf(ctx))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}

	if req.Name != "" {
		cat.Name = req.Name
	}
	if req.ErpID != nil {
		cat.ErpID = req.ErpID
	}
	if req.HiddenOnPortal != nil {
		cat.HiddenOnPortal = *req.HiddenOnPortal
	}
	if err := c.repo.Update(ctx.UserContext(), cat); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, cat)
}
