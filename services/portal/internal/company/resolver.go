package company

import (
	"context"
	"net/url"
	"strings"

	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/filter"

	"go.uber.org/zap"
)

// TenantResolver 根据请求来源解析租户，未登记的来源使用默认租户
type TenantResolver struct {
	repo       Repository
	defaultKey string
	log        *zap.Logger
}

// NewTenantResolver 创建租户解析器
func NewTenantResolver(repo Repository, defaultKey string, log *zap.Logger) *TenantResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &TenantResolver{repo: repo, defaultKey: defaultKey, log: log.Named("tenant")}
}

// normalizeOrigin 去掉协议和端口
func normalizeOrigin(origin string) string {
	origin = strings.TrimSpace(strings.ToLower(origin))
	if origin == "" {
		return ""
	}
	if strings.Contains(origin, "://") {
		if u, err := url.Parse(origin); err == nil {
			return u.Hostname()
		}
	}
	host, _, _ := strings.Cut(origin, ":")
	return host
}

// ResolveTenant 解析租户范围
func (r *TenantResolver) ResolveTenant(ctx context.Context, origin string) (filter.TenantScope, error) {
	if host := normalizeOrigin(origin); host != "" {
		c, err := r.repo.FindByOrigin(ctx, host)
		if err != nil {
			return filter.TenantScope{}, err
		}
		if c != nil {
			return c.Scope(), nil
		}
	}

	c, err := r.repo.FindByKey(ctx, r.defaultKey)
	if err != nil {
		return filter.TenantScope{}, err
	}
	if c == nil {
		r.log.Warn("default company missing", zap.String("key", r.defaultKey))
		return filter.TenantScope{}, apperrors.Forbidden("unknown tenant")
	}
	return c.Scope(), nil
}
