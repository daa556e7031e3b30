package product

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/database"
	"github.com/portalback/pkg/erp"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/middleware"
	"github.com/portalback/pkg/predicate"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/router"
	"github.com/portalback/services/portal/internal/client"
	"github.com/portalback/services/portal/internal/model"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Controller 产品控制器
type Controller struct {
	repo    Repository
	clients client.Repository
	erp     erp.Client
	log     *zap.Logger
}

// NewController 创建产品控制器，erpClient 为 nil 表示未接入ERP
func NewController(repo Repository, clients client.Repository, erpClient erp.Client, log *zap.Logger) *Controller {
	return &Controller{repo: repo, clients: clients, erp: erpClient, log: log.Named("product")}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/products" }

// Module 模块键
func (c *Controller) Module() string { return model.ModuleProducts }

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "/", Permission: model.PermList, Handler: c.List},
		{Method: fiber.MethodPost, Path: "/", Permission: model.PermCreate, Handler: c.Create},
		{Method: fiber.MethodGet, Path: "/ordered", Permission: model.PermList, Handler: c.Ordered},
		{Method: fiber.MethodGet, Path: "/:id/special-price", Permission: model.PermRead, Handler: c.SpecialPrice},
		{Method: fiber.MethodGet, Path: "/:id", Permission: model.PermRead, Handler: c.Get},
		{Method: fiber.MethodPut, Path: "/:id", Permission: model.PermUpdate, Handler: c.Update},
		{Method: fiber.MethodDelete, Path: "/:id", Permission: model.PermDelete, Handler: c.Delete},
	}
}

func scopeOf(ctx *fiber.Ctx) dal.Scope {
	return dal.Scope{Tenant: middleware.GetTenantScope(ctx)}
}

// List 产品列表，categoryId 参数按分类过滤
func (c *Controller) List(ctx *fiber.Ctx) error {
	q, err := dal.BindListQuery(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	scope := scopeOf(ctx)
	if raw := ctx.Query("categoryId"); raw != "" {
		categoryID, err := dal.ParseID[int64](raw)
		if err != nil {
			return response.Fail(ctx, c.log, apperrors.BadRequest("invalid categoryId"))
		}
		scope.Where = append(scope.Where, predicate.Eq("category_id", categoryID))
	}
	res, err := c.repo.Collection().List(ctx.UserContext(), q, scope)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.List(ctx, res.Meta.Total, res.Results)
}

// Ordered 下过单的在售产品
func (c *Controller) Ordered(ctx *fiber.Ctx) error {
	q, err := dal.BindListQuery(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	scope := scopeOf(ctx)
	scope.Scopes = append(scope.Scopes, c.repo.Ordered(scope.Tenant))
	res, err := c.repo.Collection().List(ctx.UserContext(), q, scope)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.List(ctx, res.Meta.Total, res.Results)
}

// Get 产品详情
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	p, err := c.find(ctx.UserContext(), id, scopeOf(ctx), "category")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, p)
}

func (c *Controller) find(ctx context.Context, id int64, scope dal.Scope, relations ...string) (*model.Product, error) {
	p, err := c.repo.Collection().Get(ctx, id, scope, relations...)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NotFound("product")
	}
	return p, nil
}

// Create 创建产品
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	p := &model.Product{
		CompanyID:     middleware.GetCompanyID(ctx),
		CategoryID:    req.CategoryID,
		SKU:           req.SKU,
		Brand:         req.Brand,
		Title:         req.Title,
		Description:   req.Description,
		CustomerPrice: req.CustomerPrice,
		Quantity:      req.Quantity,
		ErpID:         req.ErpID,
		ErpTemplateID: req.ErpTemplateID,
		Active:        true,
		Data:          req.Data,
	}
	if err := c.save(ctx.UserContext(), p, c.repo.Create); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Created(ctx, p)
}

// save SKU 全局唯一
func (c *Controller) save(ctx context.Context, p *model.Product, fn func(context.Context, *model.Product) error) error {
	existing, err := c.repo.FindBySKU(ctx, p.SKU)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != p.ID {
		return apperrors.Duplicate("sku")
	}
	if err := fn(ctx, p); err != nil {
		if database.IsDuplicateKey(err) {
			return apperrors.Duplicate("sku")
		}
		return err
	}
	return nil
}

// Update 更新产品
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	var req UpdateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	p, err := c.find(ctx.UserContext(), id, scopeOf(ctx))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}

	if req.CategoryID != nil {
		p.CategoryID = req.CategoryID
	}
	if req.SKU != "" {
		p.SKU = req.SKU
	}
	if req.Brand != nil {
		p.Brand = *req.Brand
	}
	if req.Title != "" {
		p.Title = req.Title
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.CustomerPrice != nil {
		p.CustomerPrice = *req.CustomerPrice
	}
	if req.Quantity != nil {
		p.Quantity = *req.Quantity
	}
	if req.ErpID != nil {
		p.ErpID = req.ErpID
	}
	if req.ErpTemplateID != nil {
		p.ErpTemplateID = req.ErpTemplateID
	}
	if req.Data != nil {
		p.Data = req.Data
	}
	if err := c.save(ctx.UserContext(), p, c.repo.Update); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, p)
}

// Delete 归档产品
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if _, err := c.find(ctx.UserContext(), id, scopeOf(ctx)); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if err := c.repo.UpdateFields(ctx.UserContext(), id, map[string]any{"active": false}); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.SuccessWithMessage(ctx, "product archived", nil)
}

// SpecialPrice 当前用户所属客户的专属价格，refresh=true 时跳过缓存
func (c *Controller) SpecialPrice(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	price, err := c.specialPrice(ctx.UserContext(), id, scopeOf(ctx), middleware.GetUserID(ctx), ctx.QueryBool("refresh"))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, SpecialPriceResponse{ProductID: id, SpecialPrice: price})
}

func (c *Controller) specialPrice(ctx context.Context, productID int64, scope dal.Scope, userID int64, refresh bool) (float64, error) {
	if c.erp == nil {
		return 0, apperrors.Unavailable("erp is not configured", nil)
	}
	p, err := c.find(ctx, productID, scope)
	if err != nil {
		return 0, err
	}
	if p.ErpTemplateID == nil {
		return 0, apperrors.BadRequest("product is not linked to erp")
	}
	cl, err := c.clients.FindByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if cl == nil || cl.ErpID == nil {
		return 0, apperrors.BadRequest("user has no erp customer")
	}
	if refresher, ok := c.erp.(erp.PriceRefresher); ok && refresh {
		if err := refresher.Invalidate(ctx, *p.ErpTemplateID, *cl.ErpID); err != nil {
			c.log.Warn("price cache invalidate failed", zap.Int64("product_id", p.ID), zap.Error(err))
		}
	}
	return c.erp.CustomerPrice(ctx, *p.ErpTemplateID, *cl.ErpID)
}
