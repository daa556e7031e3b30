package category

import (
	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/predicate"
	"github.com/portalback/services/portal/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository 分类仓储接口
type Repository interface {
	dal.Repository[model.Category]
	Collection() *dal.Collection[model.Category]
}

type repository struct {
	*dal.BaseRepository[model.Category]
	collection *dal.Collection[model.Category]
}

// NewRepository 创建分类仓储，门户隐藏的分类不出现在列表中
func NewRepository(db *gorm.DB, log *zap.Logger) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Category](db),
		collection: dal.NewCollection[model.Category](db, log).
			WithGlobalFields("name").
			WithNumericFields("erp_id").
			WithBase(predicate.Eq("hidden_on_portal", false)),
	}
}

// Collection 列表查询器
func (r *repository) Collection() *dal.Collection[model.Category] {
	return r.collection
}
