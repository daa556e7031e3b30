package product

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/filter"
	"github.com/portalback/pkg/predicate"
	"github.com/portalback/services/portal/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository 产品仓储接口
type Repository interface {
	dal.Repository[model.Product]
	Collection() *dal.Collection[model.Product]
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	// Ordered 限定为出现在租户未归档订单中的产品
	Ordered(tenant *filter.TenantScope) func(*gorm.DB) *gorm.DB
}

type repository struct {
	*dal.BaseRepository[model.Product]
	collection *dal.Collection[model.Product]
}

// NewRepository 创建产品仓储，列表只含在售产品
func NewRepository(db *gorm.DB, log *zap.Logger) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Product](db),
		collection: dal.NewCollection[model.Product](db, log).
			WithGlobalFields("title", "sku", "brand", "description").
			WithNumericFields("customer_price", "quantity", "category_id", "erp_id").
			WithBase(predicate.Eq("active", true)).
			WithRelations(dal.Relation{Name: "category", Field: "Category", Kind: dal.BelongsTo}),
	}
}

// Collection 列表查询器
func (r *repository) Collection() *dal.Collection[model.Product] {
	return r.collection
}

// FindBySKU 根据SKU查找
func (r *repository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	return r.FindOne(ctx, map[string]any{"sku": sku})
}

// Ordered 下过单的产品
func (r *repository) Ordered(tenant *filter.TenantScope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		orders := r.DB().Model(&model.Order{}).Select("id").Where("active = ?", true)
		if tenant != nil {
			sql, args := tenant.Expression().ToSQL(predicate.GetDialect(r.DB().Dialector.Name()))
			orders = orders.Where(sql, args...)
		}
		lines := r.DB().Model(&model.OrderLine{}).Select("product_id").Where("order_id IN (?)", orders)
		return db.Where("id IN (?)", lines)
	}
}
