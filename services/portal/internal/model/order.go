package model

import "github.com/portalback/pkg/dal"

// OrderNumberOffset 订单号相对主键的偏移
const OrderNumberOffset = 10000

// 订单状态
const (
	OrderStatusPending = "pending"
	OrderStatusSynced  = "synced"
)

// OrderStateDraft 草稿状态
const OrderStateDraft = "draft"

// Order 订单，停用即归档
type Order struct {
	dal.Model
	CompanyID   *int64      `gorm:"index" json:"company_id"`
	Company     *Company    `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	ClientID    *int64      `gorm:"index" json:"client_id"`
	Client      *Client     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	OrderNumber int64       `gorm:"index" json:"order_number"`
	Status      string      `gorm:"size:32;not null;default:pending" json:"status"`
	State       string      `gorm:"size:32" json:"state"`
	Total       float64     `gorm:"not null;default:0" json:"total"`
	Tax         float64     `gorm:"not null;default:0" json:"tax"`
	ErpID       *int64      `json:"erp_id"`
	Active      bool        `gorm:"not null;default:true" json:"active"`
	Data        dal.JSON    `json:"data"`
	Lines       []OrderLine `gorm:"foreignKey:OrderID" json:"lines,omitempty"`
}

// OrderLine 订单行
type OrderLine struct {
	ID        int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64    `gorm:"not null;index" json:"order_id"`
	Order     *Order   `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	ProductID int64    `gorm:"not null;index" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  float64  `gorm:"not null" json:"quantity"`
	Price     float64  `gorm:"not null" json:"price"`
	Total     float64  `gorm:"not null" json:"total"`
}

// All 需要迁移的模型
func All() []any {
	return []any{
		&Company{}, &User{}, &Role{}, &UserRole{}, &Module{}, &Permission{}, &RoleGrant{},
		&Client{}, &ClientUser{}, &Address{}, &Category{}, &Product{}, &Order{}, &OrderLine{},
	}
}
