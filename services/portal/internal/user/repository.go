package user

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/services/portal/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository 用户仓储接口
type Repository interface {
	dal.Repository[model.User]
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Collection() *dal.Collection[model.User]
}

// repository 用户仓储实现
type repository struct {
	*dal.BaseRepository[model.User]
	collection *dal.Collection[model.User]
}

// NewRepository 创建用户仓储
func NewRepository(db *gorm.DB, log *zap.Logger) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.User](db),
		collection: dal.NewCollection[model.User](db, log).
			WithGlobalFields("name", "email", "phone").
			WithHiddenColumns("password").
			WithRelations(
				dal.Relation{Name: "company", Field: "Company", Kind: dal.BelongsTo},
				dal.Relation{Name: "roles", Field: "UserRoles.Role", Kind: dal.HasMany},
			),
	}
}

// FindByEmail 根据邮箱查找
func (r *repository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.FindOne(ctx, map[string]any{"email": email})
}

// Collection 列表查询器
func (r *repository) Collection() *dal.Collection[model.User] {
	return r.collection
}
