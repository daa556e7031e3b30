package user

// CreateRequest 创建用户请求
type CreateRequest struct {
	Name     string  `json:"name" validate:"required,max=128"`
	Email    string  `json:"email" validate:"required,email,max=191"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Phone    string  `json:"phone" validate:"omitempty,max=32"`
	RoleIDs  []int64 `json:"role_ids" validate:"omitempty,dive,gt=0"`
}

// UpdateRequest 更新用户请求
type UpdateRequest struct {
	Name     string `json:"name" validate:"omitempty,max=128"`
	Email    string `json:"email" validate:"omitempty,email,max=191"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Active   *bool  `json:"active"`
}
