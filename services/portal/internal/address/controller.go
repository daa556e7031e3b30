// Package address 客户收货地址，归属调用者所属客户
package address

import (
	"context"

	"github.com/portalback/pkg/dal"
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

// Controller 地址控制器
type Controller struct {
	repo    Repository
	clients client.Repository
	log     *zap.Logger
}

// NewController 创建地址控制器
func NewController(repo Repository, clients client.Repository, log *zap.Logger) *Controller {
	return &Controller{repo: repo, clients: clients, log: log.Named("address")}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/addresses" }

// Module 地址随订单模块授权
func (c *Controller) Module() string { return model.ModuleOrders }

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "/", Permission: model.PermList, Handler: c.List},
		{Method: fiber.MethodPost, Path: "/", Permission: model.PermCreate, Handler: c.Create},
	}
}

// ownClient 调用者所属客户
func (c *Controller) ownClient(ctx context.Context, userID int64) (*model.Client, error) {
	cl, err := c.clients.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cl == nil {
		return nil, apperrors.NotFound("client")
	}
	return cl, nil
}

// List 所属客户的地址列表
func (c *Controller) List(ctx *fiber.Ctx) error {
	q, err := dal.BindListQuery(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	res, err := c.list(ctx.UserContext(), q, middleware.GetUserID(ctx))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.List(ctx, res.Meta.Total, res.Results)
}

func (c *Controller) list(ctx context.Context, q dal.ListQuery, userID int64) (*dal.ListResult[model.Address], error) {
	cl, err := c.ownClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	scope := dal.Scope{Where: []predicate.Expression{predicate.Eq("client_id", cl.ID)}}
	return c.repo.Collection().List(ctx, q, scope)
}

// Create 为所属客户新增地址
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	a, err := c.create(ctx.UserContext(), &req, middleware.GetUserID(ctx))
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Created(ctx, a)
}

func (c *Controller) create(ctx context.Context, req *CreateRequest, userID int64) (*model.Address, error) {
	cl, err := c.ownClient(ctx, userID)
	if err != nil {
		return nil, err
	}
	a := &model.Address{
		ClientID:  cl.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address1:  req.Address1,
		Address2:  req.Address2,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
		Country:   req.Country,
	}
	if err := c.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
