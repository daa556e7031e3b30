package model

import "github.com/portalback/pkg/dal"

// Category 产品分类
type Category struct {
	dal.Model
	CompanyID      *int64 `gorm:"index" json:"company_id"`
	Name           string `gorm:"size:191;not null" json:"name"`
	ErpID          *int64 `json:"erp_id"`
	HiddenOnPortal bool   `gorm:"not null;default:false" json:"hidden_on_portal"`
}

// Product 产品，停用即归档
type Product struct {
	dal.Model
	CompanyID     *int64    `gorm:"index" json:"company_id"`
	CategoryID    *int64    `gorm:"index" json:"category_id"`
	Category      *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	SKU           string    `gorm:"column:sku;size:64;uniqueIndex;not null" json:"sku"`
	Brand         string    `gorm:"size:128" json:"brand"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	CustomerPrice float64   `gorm:"not null;default:0" json:"customer_price"`
	Quantity      int64     `gorm:"not null;default:0" json:"quantity"`
	ErpID         *int64    `json:"erp_id"`
	ErpTemplateID *int64    `json:"erp_template_id"`
	Active        bool      `gorm:"not null;default:true" json:"active"`
	Data          dal.JSON  `json:"data"`
}
