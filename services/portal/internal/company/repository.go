package company

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/services/portal/internal/model"

	"gorm.io/gorm"
)

// Repository 租户仓储接口
type Repository interface {
	dal.Repository[model.Company]
	FindByKey(ctx context.Context, key string) (*model.Company, error)
	FindByOrigin(ctx context.Context, origin string) (*model.Company, error)
}

// repository 租户仓储实现
type repository struct {
	*dal.BaseRepository[model.Company]
}

// NewRepository 创建租户仓储
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Company](db),
	}
}

// FindByKey 根据键查找
func (r *repository) FindByKey(ctx context.Context, key string) (*model.Company, error) {
	return r.FindOne(ctx, map[string]any{"key": key})
}

// FindByOrigin 根据来源查找
func (r *repository) FindByOrigin(ctx context.Context, origin string) (*model.Company, error) {
	return r.FindOne(ctx, map[string]any{"origin": origin})
}
