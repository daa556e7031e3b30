package address

import (
	"github.com/portalback/pkg/dal"
	"github.com/portalback/services/portal/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository 地址仓储接口
type Repository interface {
	dal.Repository[model.Address]
	Collection() *dal.Collection[model.Address]
}

type repository struct {
	*dal.BaseRepository[model.Address]
	collection *dal.Collection[model.Address]
}

// NewRepository 创建地址仓储
func NewRepository(db *gorm.DB, log *zap.Logger) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Address](db),
		collection: dal.NewCollection[model.Address](db, log).
			WithGlobalFields("first_name", "last_name", "address_1", "city", "zip", "country").
			WithNumericFields("client_id"),
	}
}

// Collection 列表查询器
func (r *repository) Collection() *dal.Collection[model.Address] {
	return r.collection
}
