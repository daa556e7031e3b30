package order

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/predicate"
	"github.com/portalback/services/portal/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 订单仓储接口
type Repository interface {
	dal.Repository[model.Order]
	Collection() *dal.Collection[model.Order]
	// CreateWithLines 创建订单及订单行，订单号由主键派生
	CreateWithLines(ctx context.Context, o *model.Order) error
	// ReplaceLines 替换订单行并更新订单
	ReplaceLines(ctx context.Context, o *model.Order) error
	// ProductLines 产品在满足 orders 条件的订单中的订单行，附带所属订单
	ProductLines(ctx context.Context, productID int64, orders predicate.Expression) ([]model.OrderLine, error)
}

type repository struct {
	*dal.BaseRepository[model.Order]
	collection *dal.Collection[model.Order]
}

// NewRepository 创建订单仓储，列表只含未归档订单
func NewRepository(db *gorm.DB, log *zap.Logger) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Order](db),
		collection: dal.NewCollection[model.Order](db, log).
			WithGlobalFields("status", "state").
			WithNumericFields("order_number", "total", "client_id", "erp_id").
			WithBase(predicate.Eq("active", true)).
			WithRelations(
				dal.Relation{Name: "company", Field: "Company", Kind: dal.BelongsTo},
				dal.Relation{Name: "client", Field: "Client", Kind: dal.BelongsTo},
				dal.Relation{Name: "lines", Field: "Lines.Product", Kind: dal.HasMany},
			),
	}
}

// Collection 列表查询器
func (r *repository) Collection() *dal.Collection[model.Order] {
	return r.collection
}

// CreateWithLines 创建订单及订单行
func (r *repository) CreateWithLines(ctx context.Context, o *model.Order) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		lines := o.Lines
		if err := tx.Omit(clause.Associations).Create(o).Error; err != nil {
			return err
		}
		o.OrderNumber = o.ID + model.OrderNumberOffset
		if err := tx.Model(o).Update("order_number", o.OrderNumber).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = o.ID
		}
		if len(lines) > 0 {
			if err := tx.Omit(clause.Associations).Create(&lines).Error; err != nil {
				return err
			}
		}
		o.Lines = lines
		return nil
	})
}

// ReplaceLines 替换订单行
func (r *repository) ReplaceLines(ctx context.Context, o *model.Order) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		lines := o.Lines
		if err := tx.Where("order_id = ?", o.ID).Delete(&model.OrderLine{}).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].ID = 0
			lines[i].OrderID = o.ID
		}
		if len(lines) > 0 {
			if err := tx.Omit(clause.Associations).Create(&lines).Error; err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Save(o).Error; err != nil {
			return err
		}
		o.Lines = lines
		return nil
	})
}

// ProductLines 产品的历史订单行，按订单行ID排序
func (r *repository) ProductLines(ctx context.Context, productID int64, orders predicate.Expression) ([]model.OrderLine, error) {
	ids := r.DB().Model(&model.Order{}).Select("id")
	if sql, args := orders.ToSQL(predicate.GetDialect(r.DB().Dialector.Name())); sql != "" {
		ids = ids.Where(sql, args...)
	}
	lines := make([]model.OrderLine, 0)
	err := r.DB().WithContext(ctx).
		Preload("Order").
		Where("product_id = ? AND order_id IN (?)", productID, ids).
		Order("id").
		Find(&lines).Error
	return lines, err
}
