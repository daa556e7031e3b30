package profile

// UpdateRequest 更新个人资料请求
type UpdateRequest struct {
	Name  string `json:"name" validate:"omitempty,max=128"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// PasswordRequest 修改密码请求
type PasswordRequest struct {
	Password           string `json:"password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required,min=8,max=72"`
	ConfirmNewPassword string `json:"confirm_new_password" validate:"required,eqfield=NewPassword"`
}
