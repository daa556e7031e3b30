package product

import "github.com/portalback/pkg/dal"

// CreateRequest 创建产品请求
type CreateRequest struct {
	CategoryID    *int64   `json:"category_id" validate:"omitempty,gt=0"`
	SKU           string   `json:"sku" validate:"required,max=64"`
	Brand         string   `json:"brand" validate:"max=128"`
	Title         string   `json:"title" validate:"required,max=255"`
	Description   string   `json:"description"`
	CustomerPrice float64  `json:"customer_price" validate:"gte=0"`
	Quantity      int64    `json:"quantity" validate:"gte=0"`
	ErpID         *int64   `json:"erp_id" validate:"omitempty,gt=0"`
	ErpTemplateID *int64   `json:"erp_template_id" validate:"omitempty,gt=0"`
	Data          dal.JSON `json:"data"`
}

// UpdateRequest 更新产品请求
type UpdateRequest struct {
	CategoryID    *int64   `json:"category_id" validate:"omitempty,gt=0"`
	SKU           string   `json:"sku" validate:"omitempty,max=64"`
	Brand         *string  `json:"brand" validate:"omitempty,max=128"`
	Title         string   `json:"title" validate:"omitempty,max=255"`
	Description   *string  `json:"description"`
	CustomerPrice *float64 `json:"customer_price" validate:"omitempty,gte=0"`
	Quantity      *int64   `json:"quantity" validate:"omitempty,gte=0"`
	ErpID         *int64   `json:"erp_id" validate:"omitempty,gt=0"`
	ErpTemplateID *int64   `json:"erp_template_id" validate:"omitempty,gt=0"`
	Data          dal.JSON `json:"data"`
}

// SpecialPriceResponse 客户专属价格
type SpecialPriceResponse struct {
	ProductID    int64   `json:"product_id"`
	SpecialPrice float64 `json:"special_price"`
}
