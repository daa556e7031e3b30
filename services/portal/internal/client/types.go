package client

import "github.com/portalback/pkg/dal"

// CreateRequest 创建客户请求
type CreateRequest struct {
	Name    string   `json:"name" validate:"required,max=191"`
	Address string   `json:"address" validate:"omitempty,max=255"`
	Email   string   `json:"email" validate:"omitempty,email,max=191"`
	Phone   string   `json:"phone" validate:"omitempty,max=32"`
	ErpID   *int64   `json:"erp_id" validate:"omitempty,gt=0"`
	Data    dal.JSON `json:"data"`
}

// UpdateRequest 更新客户请求
type UpdateRequest struct {
	Name    string   `json:"name" validate:"omitempty,max=191"`
	Address *string  `json:"address" validate:"omitempty,max=255"`
	Email   *string  `json:"email" validate:"omitempty,email,max=191"`
	Phone   *string  `json:"phone" validate:"omitempty,max=32"`
	ErpID   *int64   `json:"erp_id" validate:"omitempty,gt=0"`
	Data    dal.JSON `json:"data"`
}

// AssignUserRequest 关联用户请求
type AssignUserRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}
