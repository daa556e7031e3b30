package model

import (
	"time"

	"github.com/portalback/pkg/dal"
)

// Client 客户
type Client struct {
	dal.Model
	CompanyID *int64       `gorm:"index" json:"company_id"`
	Name      string       `gorm:"size:191;not null" json:"name"`
	Address   string       `gorm:"size:255" json:"address"`
	Email     string       `gorm:"size:191" json:"email"`
	Phone     string       `gorm:"size:32" json:"phone"`
	ErpID     *int64       `json:"erp_id"`
	Data      dal.JSON     `json:"data"`
	Users     []ClientUser `gorm:"foreignKey:ClientID" json:"users,omitempty"`
}

// ClientUser 客户与用户关联，一个用户至多属于一个客户
type ClientUser struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID  int64     `gorm:"not null;index" json:"client_id"`
	UserID    int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Address 客户收货地址
type Address struct {
	dal.Model
	ClientID  int64  `gorm:"not null;index" json:"client_id"`
	FirstName string `gorm:"size:128;not null" json:"first_name"`
	LastName  string `gorm:"size:128" json:"last_name"`
	Address1  string `gorm:"size:255;not null" json:"address_1"`
	Address2  string `gorm:"size:255" json:"address_2"`
	City      string `gorm:"size:128;not null" json:"city"`
	State     string `gorm:"size:128" json:"state"`
	Zip       string `gorm:"size:32" json:"zip"`
	Country   string `gorm:"size:64;not null" json:"country"`
}
