package user

import (
	"context"
	"strings"

	"github.com/portalback/pkg/auth"
	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/database"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/middleware"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/router"
	"github.com/portalback/pkg/utils"
	"github.com/portalback/services/portal/internal/model"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Controller 用户控制器
type Controller struct {
	repo Repository
	log  *zap.Logger
}

// NewController 创建用户控制器
func NewController(repo Repository, log *zap.Logger) *Controller {
	return &Controller{repo: repo, log: log.Named("user")}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string { return "/users" }

// Module 模块键
func (c *Controller) Module() string { return model.ModuleUsers }

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

// List 用户列表
func (c *Controller) List(ctx *fiber.Ctx) error {
	q, err := dal.BindListQuery(ctx)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	res, err := c.repo.Collection().List(ctx.UserContext(), q, dal.Scope{Tenant: middleware.GetTenantScope(ctx)})
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.List(ctx, res.Meta.Total, res.Results)
}

// Get 用户详情
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	u, err := c.repo.Collection().Get(ctx.UserContext(), id, dal.Scope{Tenant: middleware.GetTenantScope(ctx)}, "roles")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if u == nil {
		return response.Fail(ctx, c.log, apperrors.NotFound("user"))
	}
	return response.Success(ctx, u)
}

// Create 创建用户
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	u, err := c.create(ctx.UserContext(), middleware.GetCompanyID(ctx), &req)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Created(ctx, u)
}

// create 创建用户并关联默认角色与指定角色
func (c *Controller) create(ctx context.Context, companyID *int64, req *CreateRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := c.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Duplicate("email")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	u := &model.User{
		Name:      req.Name,
		Email:     email,
		Password:  hash,
		Phone:     req.Phone,
		Active:    true,
		CompanyID: companyID,
	}
	err = c.repo.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		var defaults []int64
		if err := tx.Model(&model.Role{}).Where("is_default = ?", true).Pluck("id", &defaults).Error; err != nil {
			return err
		}
		roleIDs := utils.Unique(append(defaults, req.RoleIDs...))
		if len(roleIDs) == 0 {
			return nil
		}
		var found int64
		if err := tx.Model(&model.Role{}).Where("id IN ?", roleIDs).Count(&found).Error; err != nil {
			return err
		}
		if found != int64(len(roleIDs)) {
			return apperrors.NotFound("role")
		}
		links := utils.Map(roleIDs, func(id int64) model.UserRole {
			return model.UserRole{UserID: u.ID, RoleID: id}
		})
		return tx.Create(&links).Error
	})
	if err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperrors.Duplicate("email")
		}
		return nil, err
	}
	return u, nil
}

// Update 更新用户
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	var req UpdateRequest
	if err := dal.BindBody(ctx, &req); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	u, err := c.update(ctx.UserContext(), id, dal.Scope{Tenant: middleware.GetTenantScope(ctx)}, &req)
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.Success(ctx, u)
}

// update 更新用户业务逻辑
func (c *Controller) update(ctx context.Context, id int64, scope dal.Scope, req *UpdateRequest) (*model.User, error) {
	u, err := c.repo.Collection().Get(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.NotFound("user")
	}

	if req.Email != "" {
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email != u.Email {
			existing, err := c.repo.FindByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, apperrors.Duplicate("email")
			}
			u.Email = email
		}
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Phone != "" {
		u.Phone = req.Phone
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		u.Password = hash
	}

	if err := c.repo.Update(ctx, u); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperrors.Duplicate("email")
		}
		return nil, err
	}
	return u, nil
}

// Delete 删除用户，同时删除角色与客户关联
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := dal.GetIDParam[int64](ctx, "id")
	if err != nil {
		return response.Fail(ctx, c.log, err)
	}
	if err := c.delete(ctx.UserContext(), id, dal.Scope{Tenant: middleware.GetTenantScope(ctx)}); err != nil {
		return response.Fail(ctx, c.log, err)
	}
	return response.SuccessWithMessage(ctx, "user deleted", nil)
}

func (c *Controller) delete(ctx context.Context, id int64, scope dal.Scope) error {
	u, err := c.repo.Collection().Get(ctx, id, scope)
	if err != nil {
		return err
	}
	if u == nil {
		return apperrors.NotFound("user")
	}
	return c.repo.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&model.ClientUser{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, id).Error
	})
}
