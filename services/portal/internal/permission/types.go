package permission

// CreateRequest 创建权限请求
type CreateRequest struct {
	Key  string `json:"key" validate:"required,max=64"`
	Name string `json:"name" validate:"required,max=128"`
}

// UpdateRequest 更新权限请求
type UpdateRequest struct {
	Name   string `json:"name" validate:"omitempty,max=128"`
	Active *bool  `json:"active"`
}

// GrantRequest 授权请求
type GrantRequest struct {
	RoleID       int64 `json:"role_id" validate:"required,gt=0"`
	ModuleID     int64 `json:"module_id" validate:"required,gt=0"`
	PermissionID int64 `json:"permission_id" validate:"required,gt=0"`
}

// CheckResponse 权限检查结果
type CheckResponse struct {
	RoleID        int64  `json:"role_id"`
	ModuleID      int64  `json:"module_id"`
	Permission    string `json:"permission"`
	HasPermission bool   `json:"has_permission"`
}
