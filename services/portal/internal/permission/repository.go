package permission

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/predicate"
	"github.com/portalback/services/portal/internal/access"
	"github.com/portalback/services/portal/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository 权限仓储接口
type Repository interface {
	dal.Repository[model.Permission]
	FindByKey(ctx context.Context, key string) (*model.Permission, error)
	Collection() *dal.Collection[model.Permission]
}

type repository struct {
	*dal.BaseRepository[model.Permission]
	collection *dal.Collection[model.Permission]
}

// NewRepository 创建权限仓储
func NewRepository(db *gorm.DB, log *zap.Logger) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Permission](db),
		collection: dal.NewCollection[model.Permission](db, log).
			WithGlobalFields("key", "name").
			WithBase(predicate.Eq("active", true)),
	}
}

// FindByKey 根据键查找
func (r *repository) FindByKey(ctx context.Context, key string) (*model.Permission, error) {
	return r.FindOne(ctx, map[string]any{"key": key})
}

// Collection 列表查询器
func (r *repository) Collection() *dal.Collection[model.Permission] {
	return r.collection
}

// Grants 角色授权操作
type Grants interface {
	RegisterGrant(ctx context.Context, roleID, moduleID, permissionID int64) (*model.RoleGrant, error)
	RevokeGrant(ctx context.Context, roleID, moduleID, permissionID int64) error
	RolePermissionMatrix(ctx context.Context, roleID int64) ([]access.ModulePermissions, error)
	HasPermissionKey(ctx context.Context, roleID, moduleID int64, permissionKey string) (bool, error)
}
