package erp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/portalback/pkg/database"

	"go.uber.org/zap"
)

// PriceRefresher 可清除价格缓存的客户端
type PriceRefresher interface {
	Invalidate(ctx context.Context, productTmplID, customerID int64) error
}

// CachedPricing 带缓存的价格查询
type CachedPricing struct {
	Client
	cache *database.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedPricing 创建带缓存的客户端，ttl 为 0 时不缓存
func NewCachedPricing(client Client, cache *database.Cache, ttl time.Duration, log *zap.Logger) *CachedPricing {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedPricing{Client: client, cache: cache, ttl: ttl, log: log.Named("pricing")}
}

func priceKey(productTmplID, customerID int64) string {
	return fmt.Sprintf("%d:%d", productTmplID, customerID)
}

// CustomerPrice 先查缓存，未命中时请求ERP并写回
// 缓存读写失败只记录日志
func (p *CachedPricing) CustomerPrice(ctx context.Context, productTmplID, customerID int64) (float64, error) {
	if p.ttl <= 0 || p.cache == nil {
		return p.Client.CustomerPrice(ctx, productTmplID, customerID)
	}
	key := priceKey(productTmplID, customerID)

	raw, hit, err := p.cache.Get(ctx, key)
	if err != nil {
		p.log.Warn("price cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		if price, err := strconv.ParseFloat(raw, 64); err == nil {
			return price, nil
		}
	}

	price, err := p.Client.CustomerPrice(ctx, productTmplID, customerID)
	if err != nil {
		return 0, err
	}
	if err := p.cache.Set(ctx, key, strconv.FormatFloat(price, 'f', -1, 64), p.ttl); err != nil {
		p.log.Warn("price cache write failed", zap.String("key", key), zap.Error(err))
	}
	return price, nil
}

// Invalidate 清除客户价格缓存
func (p *CachedPricing) Invalidate(ctx context.Context, productTmplID, customerID int64) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Del(ctx, priceKey(productTmplID, customerID))
}
