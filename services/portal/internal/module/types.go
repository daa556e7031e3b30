package module

// CreateRequest 创建模块请求
type CreateRequest struct {
	Key  string `json:"key" validate:"required,max=64"`
	Name string `json:"name" validate:"required,max=128"`
}

// UpdateRequest 更新模块请求
type UpdateRequest struct {
	Name   string `json:"name" validate:"omitempty,max=128"`
	Active *bool  `json:"active"`
}
