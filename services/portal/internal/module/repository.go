package module

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/predicate"
	"github.com/portalback/services/portal/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository 模块仓储接口
type Repository interface {
	dal.Repository[model.Module]
	FindByKey(ctx context.Context, key string) (*model.Module, error)
	Collection() *dal.Collection[model.Module]
}

type repository struct {
	*dal.BaseRepository[model.Module]
	collection *dal.Collection[model.Module]
}

// NewRepository 创建模块仓储
func NewRepository(db *gorm.DB, log *zap.Logger) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Module](db),
		collection: dal.NewCollection[model.Module](db, log).
			WithGlobalFields("key", "name").
			WithBase(predicate.Eq("active", true)),
	}
}

// FindByKey 根据键查找
func (r *repository) FindByKey(ctx context.Context, key string) (*model.Module, error) {
	return r.FindOne(ctx, map[string]any{"key": key})
}

// Collection 列表查询器
func (r *repository) Collection() *dal.Collection[model.Module] {
	return r.collection
}
