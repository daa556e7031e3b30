package role

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/services/portal/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository 角色仓储接口
type Repository interface {
	dal.Repository[model.Role]
	FindByKey(ctx context.Context, key string) (*model.Role, error)
	Collection() *dal.Collection[model.Role]
	// DeleteCascade 删除角色及其授权和用户关联
	DeleteCascade(ctx context.Context, id int64) error
}

type repository struct {
	*dal.BaseRepository[model.Role]
	collection *dal.Collection[model.Role]
}

// NewRepository 创建角色仓储
func NewRepository(db *gorm.DB, log *zap.Logger) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Role](db),
		collection: dal.NewCollection[model.Role](db, log).
			WithGlobalFields("key", "name"),
	}
}

// FindByKey 根据键查找
func (r *repository) FindByKey(ctx context.Context, key string) (*model.Role, error) {
	return r.FindOne(ctx, map[string]any{"key": key})
}

// Collection 列表查询器
func (r *repository) Collection() *dal.Collection[model.Role] {
	return r.collection
}

// DeleteCascade 删除角色及其授权和用户关联
func (r *repository) DeleteCascade(ctx context.Context, id int64) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&model.RoleGrant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Role{}, id).Error
	})
}

// UserRoleRepository 用户角色仓储接口
type UserRoleRepository interface {
	dal.Repository[model.UserRole]
	RolesOf(ctx context.Context, userID int64) ([]model.Role, error)
	Remove(ctx context.Context, userID, roleID int64) (bool, error)
}

type userRoleRepository struct {
	*dal.BaseRepository[model.UserRole]
}

// NewUserRoleRepository 创建用户角色仓储
func NewUserRoleRepository(db *gorm.DB) UserRoleRepository {
	return &userRoleRepository{BaseRepository: dal.NewBaseRepository[model.UserRole](db)}
}

// RolesOf 用户的角色
func (r *userRoleRepository) RolesOf(ctx context.Context, userID int64) ([]model.Role, error) {
	roles := make([]model.Role, 0)
	err := r.DB().WithContext(ctx).
		Where("id IN (?)", r.DB().Model(&model.UserRole{}).Select("role_id").Where("user_id = ?", userID)).
		Order("id").
		Find(&roles).Error
	return roles, err
}

// Remove 移除用户角色，返回是否存在
func (r *userRoleRepository) Remove(ctx context.Context, userID, roleID int64) (bool, error) {
	res := r.DB().WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&model.UserRole{})
	return res.RowsAffected > 0, res.Error
}
