package category

// CreateRequest 创建分类请求
type CreateRequest struct {
	Name           string `json:"name" validate:"required,max=191"`
	ErpID          *int64 `json:"erp_id" validate:"omitempty,gt=0"`
	HiddenOnPortal bool   `json:"hidden_on_portal"`
}

// UpdateRequest 更新分类请求
type UpdateRequest struct {
	Name           string `json:"name" validate:"omitempty,max=191"`
	ErpID          *int64 `json:"erp_id" validate:"omitempty,gt=0"`
	HiddenOnPortal *bool  `json:"hidden_on_portal"`
}
