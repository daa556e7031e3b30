// Package portaltest 测试用的数据库与数据构造
package portaltest

import (
	"testing"

	"github.com/portalback/pkg/config"
	"github.com/portalback/pkg/database"
	"github.com/portalback/services/portal/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB 创建已迁移的内存数据库
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", LogLevel: "silent"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// Create 写入任意记录
func Create[T any](t testing.TB, db *gorm.DB, entity *T) *T {
	t.Helper()
	require.NoError(t, db.Create(entity).Error)
	return entity
}

// Role 创建角色
func Role(t testing.TB, db *gorm.DB, key string) *model.Role {
	return Create(t, db, &model.Role{Key: key, Name: key})
}

// Module 创建模块
func Module(t testing.TB, db *gorm.DB, key string) *model.Module {
	return Create(t, db, &model.Module{Key: key, Name: key, Active: true})
}

// Permission 创建权限
func Permission(t testing.TB, db *gorm.DB, key string) *model.Permission {
	return Create(t, db, &model.Permission{Key: key, Name: key, Active: true})
}

// Grant 授予权限
func Grant(t testing.TB, db *gorm.DB, role *model.Role, module *model.Module, perm *model.Permission) {
	Create(t, db, &model.RoleGrant{RoleID: role.ID, ModuleID: module.ID, PermissionID: perm.ID})
}

// Company 创建租户
func Company(t testing.TB, db *gorm.DB, key, policy string) *model.Company {
	return Create(t, db, &model.Company{Key: key, Name: key, ScopePolicy: policy})
}
