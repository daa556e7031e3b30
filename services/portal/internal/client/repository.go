package client

import (
	"context"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/filter"
	"github.com/portalback/pkg/predicate"
	"github.com/portalback/services/portal/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository 客户仓储接口
type Repository interface {
	dal.Repository[model.Client]
	Collection() *dal.Collection[model.Client]
	// FindByUserID 用户所属客户，不存在时返回 nil, nil
	FindByUserID(ctx context.Context, userID int64) (*model.Client, error)
	UnassignedUsers(ctx context.Context, tenant *filter.TenantScope) ([]model.User, error)
	AssignUser(ctx context.Context, clientID, userID int64) (*model.ClientUser, error)
	UnassignUser(ctx context.Context, userID int64) (bool, error)
	DeleteCascade(ctx context.Context, id int64) error
}

type repository struct {
	*dal.BaseRepository[model.Client]
	collection *dal.Collection[model.Client]
}

// NewRepository 创建客户仓储
func NewRepository(db *gorm.DB, log *zap.Logger) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Client](db),
		collection: dal.NewCollection[model.Client](db, log).
			WithGlobalFields("name", "email", "phone", "address").
			WithNumericFields("erp_id").
			WithRelations(dal.Relation{Name: "users", Field: "Users.User", Kind: dal.HasMany}),
	}
}

// Collection 列表查询器
func (r *repository) Collection() *dal.Collection[model.Client] {
	return r.collection
}

// FindByUserID 用户所属客户
func (r *repository) FindByUserID(ctx context.Context, userID int64) (*model.Client, error) {
	sub := r.DB().Model(&model.ClientUser{}).Select("client_id").Where("user_id = ?", userID)
	return r.FindOne(ctx, map[string]any{}, dal.WithWhere("id IN (?)", sub))
}

// UnassignedUsers 租户内尚未关联客户的用户
func (r *repository) UnassignedUsers(ctx context.Context, tenant *filter.TenantScope) ([]model.User, error) {
	db := r.DB().WithContext(ctx).
		Where("id NOT IN (?)", r.DB().Model(&model.ClientUser{}).Select("user_id"))
	if tenant != nil {
		sql, args := tenant.Expression().ToSQL(predicate.GetDialect(r.DB().Dialector.Name()))
		db = db.Where(sql, args...)
	}
	users := make([]model.User, 0)
	if err := db.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// AssignUser 关联用户
func (r *repository) AssignUser(ctx context.Context, clientID, userID int64) (*model.ClientUser, error) {
	link := &model.ClientUser{ClientID: clientID, UserID: userID}
	if err := r.DB().WithContext(ctx).Create(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

// UnassignUser 解除用户关联，返回是否存在
func (r *repository) UnassignUser(ctx context.Context, userID int64) (bool, error) {
	res := r.DB().WithContext(ctx).Where("user_id = ?", userID).Delete(&model.ClientUser{})
	return res.RowsAffected > 0, res.Error
}

// DeleteCascade 删除客户及其用户关联
func (r *repository) DeleteCascade(ctx context.Context, id int64) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id).Delete(&model.ClientUser{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Client{}, id).Error
	})
}
