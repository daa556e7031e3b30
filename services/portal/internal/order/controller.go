package order

import (
	"context"
	"fmt"
	"time"

	"github.com/portalback/pkg/auth"
	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/erp"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/filter"
	"github.com/portalback/pkg/middleware"
	"github.com/portalback/pkg/predicate"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/router"
	"github.com/portalback/services/portal/internal/client"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/product"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Controller 订单控制器
type Controller struct {
	repo     Repository
	products product.Repository
	clients  client.Repository
	erp      erp.Client
	log      *zap.Logger
}

// NewController 创建订单控制器，erpClient 为 nil 表示未接入ERP
func NewController(repo Repository, products product.Repository, clients client.Repository, erpClient erp.Client, log *zap.Logger) *Controller {
	return &Controller{
		repo:     repo,
		products: products,
		clients:  clients,
		erp:      erpClient,
		log:      log.Named("order"),
	}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/orders" }

// Module 模块键
func (c *Controller) Module() string { return model.ModuleOrders }

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "/", Permission: model.PermList, Handler: c.List},
		{Method: fiber.MethodPost, Path: "/", Permission: model.PermCreate, Handler: c.Create},
		{Method: fiber.MethodGet, Path: "/draft", Permission: model.PermList, Handler: c.Drafts},
		{Method: fiber.MethodGet, Path: "/:id/product", Permission: model.PermRead, Handler: c.ProductHistory},
		{Method: fiber.MethodPost, Path: "/:id/sync", Permission: model.PermUpdate, Handler: c.Sync},
		{Method: fiber.MethodGet, Path: "/:id", Permission: model.PermRead, Handler: c.Get},
		{Method: fiber.MethodPut, Path: "/:id", Permission: model.PermUpdate, Handler: c.Update},
		{Method: fiber.MethodDelete, Path: "/:id", Permission: model.PermDelete, Handler: c.Delete},
	}
}

// scopeOf 租户范围，持有 own 权限时进一步限定为调用者所属客户
func (c *Controller) scopeOf(ctx *fiber.Ctx) (dal.Scope, error) {
	scope := dal.Scope{Tenant: middleware.GetTenantScope(ctx)}
	perms := middleware.GetPermissions(ctx)
	if !perms[auth.OwnPermission] {
		return scope, nil
	}
	var clientID int64
	cl, err := c.clients.FindByUserID(ctx.UserContext(), middleware.GetUserID(ctx))
	if err != nil {
		return scope, err
	}
	if cl != nil {
		clientID = cl.ID
	}
	scope.Where = append(scope.Where, auth.ResolveDataScope(perms, "client_id", clientID).Expression())
	return scope, nil
}

// List 订单列表
func (c *Controller) List(ctx *fiber.Ctx) error {
	q, err := dal.BindListQuery(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	scope, err := c.scopeOf(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	res, err := c.repo.Collection().List(ctx.UserContext(), q, scope)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.List(ctx, res.Meta.Total, res.Results)
}

// Drafts 草稿订单列表
func (c *Controller) Drafts(ctx *fiber.Ctx) error {
	q, err := dal.BindListQuery(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	scope, err := c.scopeOf(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	scope.Where = append(scope.Where, predicate.Eq("state", model.OrderStateDraft))
	res, err := c.repo.Collection().List(ctx.UserContext(), q, scope)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.List(ctx, res.Meta.Total, res.Results)
}

// ProductHistory 产品出现过的订单行，:id 为产品ID
func (c *Controller) ProductHistory(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	scope, err := c.scopeOf(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	lines, err := c.productHistory(ctx.UserContext(), id, scope)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, lines)
}

// productHistory 只包含调用者可见的未归档订单
func (c *Controller) productHistory(ctx context.Context, productID int64, scope dal.Scope) ([]model.OrderLine, error) {
	p, err := c.products.Collection().Get(ctx, productID, dal.Scope{Tenant: scope.Tenant})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NotFound("product")
	}
	return c.repo.ProductLines(ctx, p.ID, c.repo.Collection().Predicate(dal.ListQuery{}, scope))
}

// Get 订单详情
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	scope, err := c.scopeOf(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	o, err := c.find(ctx.UserContext(), id, scope, "client", "lines")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, o)
}

func (c *Controller) find(ctx context.Context, id int64, scope dal.Scope, relations ...string) (*model.Order, error) {
	o, err := c.repo.Collection().Get(ctx, id, scope, relations...)
	if err != nil {
		return nil, err
	}
	if o == nil || !o.Active {
		return nil, apperrors.NotFound("order")
	}
	return o, nil
}

// Create 创建订单
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	o, err := c.create(ctx.UserContext(), &req, middleware.GetTenantScope(ctx), middleware.GetCompanyID(ctx), middleware.GetUserID(ctx))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Created(ctx, o)
}

func (c *Controller) create(ctx context.Context, req *CreateRequest, tenant *filter.TenantScope, companyID *int64, userID int64) (*model.Order, error) {
	clientID, err := c.orderClient(ctx, req.ClientID, tenant, userID)
	if err != nil {
		return nil, err
	}
	lines, total, err := c.buildLines(ctx, req.Lines, tenant)
	if err != nil {
		return nil, err
	}
	o := &model.Order{
		CompanyID: companyID,
		ClientID:  clientID,
		Status:    model.OrderStatusPending,
		State:     req.State,
		Total:     total,
		Tax:       req.Tax,
		Active:    true,
		Data:      req.Data,
		Lines:     lines,
	}
	if err := c.repo.CreateWithLines(ctx, o); err != nil {
		return nil, err
	}
	c.log.Info("order created", zap.Int64("id", o.ID), zap.Int64("order_number", o.OrderNumber))
	return o, nil
}

// orderClient 调用者所属客户优先，否则使用请求中的客户
func (c *Controller) orderClient(ctx context.Context, requested *int64, tenant *filter.TenantScope, userID int64) (*int64, error) {
	own, err := c.clients.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if own != nil {
		return &own.ID, nil
	}
	if requested == nil {
		return nil, nil
	}
	cl, err := c.clients.Collection().Get(ctx, *requested, dal.Scope{Tenant: tenant})
	if err != nil {
		return nil, err
	}
	if cl == nil {
		return nil, apperrors.NotFound("client")
	}
	return &cl.ID, nil
}

// buildLines 校验产品并计算行金额与订单总额
func (c *Controller) buildLines(ctx context.Context, reqs []LineRequest, tenant *filter.TenantScope) ([]model.OrderLine, float64, error) {
	lines := make([]model.OrderLine, 0, len(reqs))
	var total float64
	for _, l := range reqs {
		p, err := c.products.Collection().Get(ctx, l.ProductID, dal.Scope{Tenant: tenant})
		if err != nil {
			return nil, 0, err
		}
		if p == nil || !p.Active {
			return nil, 0, apperrors.Validation(fmt.Sprintf("product %d is not available", l.ProductID))
		}
		price := p.CustomerPrice
		if l.Price != nil {
			price = *l.Price
		}
		line := model.OrderLine{
			ProductID: p.ID,
			Product:   p,
			Quantity:  l.Quantity,
			Price:     price,
			Total:     l.Quantity * price,
		}
		total += line.Total
		lines = append(lines, line)
	}
	return lines, total, nil
}

// Update 更新订单，已同步的订单不可修改订单行
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	var req UpdateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	scope, err := c.scopeOf(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	o, err := c.update(ctx.UserContext(), id, scope, &req)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, o)
}

func (c *Controller) update(ctx context.Context, id int64, scope dal.Scope, req *UpdateRequest) (*model.Order, error) {
	o, err := c.find(ctx, id, scope, "lines")
	if err != nil {
		return nil, err
	}
	if req.State != nil {
		o.State = *req.State
	}
	if req.Tax != nil {
		o.Tax = *req.Tax
	}
	if req.Data != nil {
		o.Data = req.Data
	}
	if len(req.Lines) == 0 {
		fields := map[string]any{"state": o.State, "tax": o.Tax, "data": o.Data}
		if err := c.repo.UpdateFields(ctx, o.ID, fields); err != nil {
			return nil, err
		}
		return o, nil
	}

	if o.Status == model.OrderStatusSynced {
		return nil, apperrors.Conflict("order already synced")
	}
	lines, total, err := c.buildLines(ctx, req.Lines, scope.Tenant)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	o.Total = total
	if err := c.repo.ReplaceLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Delete 归档订单
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	scope, err := c.scopeOf(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if _, err := c.find(ctx.UserContext(), id, scope); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if err := c.repo.UpdateFields(ctx.UserContext(), id, map[string]any{"active": false}); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.SuccessWithMessage(ctx, "order archived", nil)
}

// Sync 将订单推送到ERP
func (c *Controller) Sync(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	scope, err := c.scopeOf(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	o, err := c.sync(ctx.UserContext(), id, scope)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, o)
}

func (c *Controller) sync(ctx context.Context, id int64, scope dal.Scope) (*model.Order, error) {
	if c.erp == nil {
		return nil, apperrors.Unavailable("erp is not configured", nil)
	}
	o, err := c.find(ctx, id, scope, "company", "client", "lines")
	if err != nil {
		return nil, err
	}
	if o.Status == model.OrderStatusSynced {
		return nil, apperrors.Conflict("order already synced")
	}
	so, err := saleOrder(o)
	if err != nil {
		return nil, err
	}

	erpID, err := c.erp.CreateOrder(ctx, so)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{"erp_id": erpID, "status": model.OrderStatusSynced}
	if err := c.repo.UpdateFields(ctx, o.ID, fields); err != nil {
		return nil, err
	}
	o.ErpID = &erpID
	o.Status = model.OrderStatusSynced
	c.log.Info("order synced", zap.Int64("id", o.ID), zap.Int64("erp_id", erpID))
	return o, nil
}

// saleOrder 订单转换为ERP销售订单，客户和产品都必须已关联ERP
func saleOrder(o *model.Order) (erp.SaleOrder, error) {
	if o.Client == nil || o.Client.ErpID == nil {
		return erp.SaleOrder{}, apperrors.BadRequest("order client is not linked to erp")
	}
	if len(o.Lines) == 0 {
		return erp.SaleOrder{}, apperrors.BadRequest("order has no lines")
	}
	so := erp.SaleOrder{
		Name:      fmt.Sprintf("ORDER-%d", o.OrderNumber),
		DateOrder: o.CreatedAt,
		PartnerID: *o.Client.ErpID,
		AmountTax: o.Tax,
		Lines:     make([]erp.SaleOrderLine, 0, len(o.Lines)),
	}
	if o.Company != nil && o.Company.ErpID != nil {
		so.CompanyID = *o.Company.ErpID
	}
	if so.DateOrder.IsZero() {
		so.DateOrder = time.Now()
	}
	for _, l := range o.Lines {
		if l.Product == nil || l.Product.ErpID == nil {
			return erp.SaleOrder{}, apperrors.BadRequest(fmt.Sprintf("product %d is not linked to erp", l.ProductID))
		}
		so.Lines = append(so.Lines, erp.SaleOrderLine{
			ProductID: *l.Product.ErpID,
			Name:      l.Product.Title,
			Quantity:  l.Quantity,
			PriceUnit: l.Price,
		})
	}
	return so, nil
}
