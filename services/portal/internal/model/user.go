package model

import "github.com/portalback/pkg/dal"

// User 用户
type User struct {
	dal.Model
	Name      string     `gorm:"size:128;not null" json:"name"`
	Email     string     `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:255;not null" json:"-"`
	Phone     string     `gorm:"size:32" json:"phone"`
	Active    bool       `gorm:"not null;default:true" json:"active"`
	CompanyID *int64     `gorm:"index" json:"company_id"`
	Company   *Company   `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	UserRoles []UserRole `gorm:"foreignKey:UserID" json:"user_roles,omitempty"`
}
