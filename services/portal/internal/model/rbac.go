package model

import (
	"time"

	"github.com/portalback/pkg/dal"
)

// 权限键
const (
	PermList   = "list"
	PermCreate = "create"
	PermRead   = "read"
	PermUpdate = "update"
	PermDelete = "del"
	PermOwn    = "own"
)

// PermissionKeys 内置权限键
var PermissionKeys = []string{PermList, PermCreate, PermRead, PermUpdate, PermDelete, PermOwn}

// 模块键
const (
	ModuleModules     = "modules"
	ModuleRoles       = "roles"
	ModulePermissions = "permissions"
	ModuleUsers       = "users"
	ModuleClients     = "clients"
	ModuleCategories  = "categories"
	ModuleProducts    = "products"
	ModuleOrders      = "orders"
)

// ModuleKeys 内置模块键
var ModuleKeys = []string{
	ModuleModules, ModuleRoles, ModulePermissions, ModuleUsers,
	ModuleClients, ModuleCategories, ModuleProducts, ModuleOrders,
}

// Role 角色
type Role struct {
	dal.Model
	Key       string `gorm:"size:64;uniqueIndex;not null" json:"key"`
	Name      string `gorm:"size:128;not null" json:"name"`
	IsDefault bool   `gorm:"not null;default:false" json:"is_default"`
}

// UserRole 用户角色关联
type UserRole struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:uniq_user_role" json:"user_id"`
	RoleID    int64     `gorm:"not null;uniqueIndex:uniq_user_role;index" json:"role_id"`
	Role      *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Module 功能模块，停用即归档
type Module struct {
	dal.Model
	Key    string `gorm:"size:64;uniqueIndex;not null" json:"key"`
	Name   string `gorm:"size:128;not null" json:"name"`
	Active bool   `gorm:"not null;default:true" json:"active"`
}

// Permission 权限键，停用即归档
type Permission struct {
	dal.Model
	Key    string `gorm:"size:64;uniqueIndex;not null" json:"key"`
	Name   string `gorm:"size:128;not null" json:"name"`
	Active bool   `gorm:"not null;default:true" json:"active"`
}

// RoleGrant 角色在模块下被授予的权限
type RoleGrant struct {
	ID           int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleID       int64       `gorm:"not null;uniqueIndex:uniq_role_module_perm" json:"role_id"`
	ModuleID     int64       `gorm:"not null;uniqueIndex:uniq_role_module_perm;index" json:"module_id"`
	PermissionID int64       `gorm:"not null;uniqueIndex:uniq_role_module_perm" json:"permission_id"`
	Role         *Role       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Module       *Module     `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
	Permission   *Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
