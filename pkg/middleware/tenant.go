package middleware

import (
	"context"
	"strings"

	"github.com/portalback/pkg/filter"
	"github.com/portalback/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TenantResolver 根据请求来源确定租户
type TenantResolver interface {
	ResolveTenant(ctx context.Context, origin string) (filter.TenantScope, error)
}

// Tenant 租户中间件
// 来源取 Origin 头，缺省时使用 Host
func Tenant(resolver TenantResolver, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			origin = c.Hostname()
		}
		scope, err := resolver.ResolveTenant(c.UserContext(), strings.Clone(origin))
		if err != nil {
			return response.Fail(c, log, err)
		}
		c.Locals(LocalTenant, scope)
		return c.Next()
	}
}

// GetTenant 从上下文获取租户范围
func GetTenant(c *fiber.Ctx) (filter.TenantScope, bool) {
	scope, ok := c.Locals(LocalTenant).(filter.TenantScope)
	return scope, ok
}

// GetTenantScope 租户范围指针，未解析租户时为 nil
func GetTenantScope(c *fiber.Ctx) *filter.TenantScope {
	if scope, ok := GetTenant(c); ok {
		return &scope
	}
	return nil
}

// GetCompanyID 当前租户ID，未解析租户时为 nil
func GetCompanyID(c *fiber.Ctx) *int64 {
	if scope, ok := GetTenant(c); ok {
		id := scope.CompanyID
		return &id
	}
	return nil
}
