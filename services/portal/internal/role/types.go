package role

// CreateRequest 创建角色请求
type CreateRequest struct {
	Key       string `json:"key" validate:"required,max=64"`
	Name      string `json:"name" validate:"required,max=128"`
	IsDefault bool   `json:"is_default"`
}

// UpdateRequest 更新角色请求
type UpdateRequest struct {
	Name      string `json:"name" validate:"omitempty,max=128"`
	IsDefault *bool  `json:"is_default"`
}

// AssignRequest 分配角色请求
type AssignRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}
