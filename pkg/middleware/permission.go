package middleware

import (
	"context"

	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/metrics"
	"github.com/portalback/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PermissionResolver 权限解析
type PermissionResolver interface {
	PrincipalRoles(ctx context.Context, userID int64) ([]int64, error)
	ResolveModulePermissions(ctx context.Context, roleIDs []int64, moduleKey string) (map[string]bool, error)
}

// Guard 模块权限守卫
type Guard struct {
	resolver PermissionResolver
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewGuard 创建权限守卫，metrics 可为空
func NewGuard(resolver PermissionResolver, m *metrics.Metrics, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{resolver: resolver, metrics: m, log: log.Named("guard")}
}

// Module 解析当前用户在模块下的权限集合并写入上下文
// 模块不存在或不可用时拒绝访问
func (g *Guard) Module(moduleKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == 0 {
			return response.Fail(c, g.log, apperrors.ErrUnauthorized)
		}

		ctx := c.UserContext()
		roleIDs, err := g.resolver.PrincipalRoles(ctx, userID)
		if err != nil {
			return response.Fail(c, g.log, err)
		}
		perms, err := g.resolver.ResolveModulePermissions(ctx, roleIDs, moduleKey)
		if err != nil {
			return response.Fail(c, g.log, err)
		}
		if perms == nil {
			g.metrics.Denied(moduleKey, "")
			return response.Fail(c, g.log, apperrors.ErrUnknownModule)
		}

		c.Locals(LocalModule, moduleKey)
		c.Locals(LocalPermissions, perms)
		c.Locals(LocalRoleIDs, roleIDs)
		return c.Next()
	}
}

// Require 要求持有指定权限键，需在 Module 之后使用
func (g *Guard) Require(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if HasPermission(c, permission) {
			return c.Next()
		}
		module, _ := c.Locals(LocalModule).(string)
		g.metrics.Denied(module, permission)
		g.log.Debug("permission denied",
			zap.String("module", module),
			zap.String("permission", permission),
			zap.Int64("user_id", GetUserID(c)),
		)
		return response.Fail(c, g.log, apperrors.Forbidden("missing permission "+permission))
	}
}

// GetPermissions 从上下文获取权限集合
func GetPermissions(c *fiber.Ctx) map[string]bool {
	perms, _ := c.Locals(LocalPermissions).(map[string]bool)
	return perms
}

// HasPermission 当前请求是否持有权限键
func HasPermission(c *fiber.Ctx, permission string) bool {
	return GetPermissions(c)[permission]
}

// GetRoleIDs 从上下文获取角色ID
func GetRoleIDs(c *fiber.Ctx) []int64 {
	ids, _ := c.Locals(LocalRoleIDs).([]int64)
	return ids
}
