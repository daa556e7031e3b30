package access

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/portaltest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db       *gorm.DB
	resolver *Resolver
	roles    map[int64]*model.Role
	orders   *model.Module
	perms    map[string]*model.Permission
}

// newFixture 角色2持有 list，角色3持有 create，均在 orders 模块下
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := portaltest.NewDB(t)
	f := &fixture{
		db:       db,
		resolver: NewResolver(db),
		roles:    map[int64]*model.Role{},
		perms:    map[string]*model.Permission{},
	}
	for _, key := range []string{"admin", "viewer", "editor"} {
		r := portaltest.Role(t, db, key)
		f.roles[r.ID] = r
	}
	require.Len(t, f.roles, 3)
	f.orders = portaltest.Module(t, db, "orders")
	for _, key := range model.PermissionKeys {
		f.perms[key] = portaltest.Permission(t, db, key)
	}

	portaltest.Grant(t, db, f.roles[2], f.orders, f.perms["list"])
	portaltest.Grant(t, db, f.roles[3], f.orders, f.perms["create"])
	return f
}

func TestResolveUnionAcrossRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	perms, err := f.resolver.ResolveModulePermissions(ctx, []int64{2, 3}, "orders")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"list": true, "create": true}, perms)
	assert.NotContains(t, perms, "del")

	reversed, err := f.resolver.ResolveModulePermissions(ctx, []int64{3, 2}, "orders")
	require.NoError(t, err)
	assert.Equal(t, perms, reversed)

	single, err := f.resolver.ResolveModulePermissions(ctx, []int64{2}, "orders")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"list": true}, single)
}

func TestResolveUnknownOrInactiveModule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	perms, err := f.resolver.ResolveModulePermissions(ctx, []int64{2}, "ghost")
	require.NoError(t, err)
	assert.Nil(t, perms)

	perms, err = f.resolver.ResolveModulePermissions(ctx, []int64{2}, "Orders")
	require.NoError(t, err)
	assert.Nil(t, perms, "module keys are case sensitive")

	require.NoError(t, f.db.Model(f.orders).Update("active", false).Error)
	perms, err = f.resolver.ResolveModulePermissions(ctx, []int64{2}, "orders")
	require.NoError(t, err)
	assert.Nil(t, perms)
}

func TestResolveWithoutRolesFailsClosed(t *testing.T) {
	f := newFixture(t)

	perms, err := f.resolver.ResolveModulePermissions(context.Background(), nil, "orders")
	require.NoError(t, err)
	require.NotNil(t, perms)
	assert.Empty(t, perms)
}

func TestInactivePermissionDoesNotGrant(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(f.perms["list"]).Update("active", false).Error)

	perms, err := f.resolver.ResolveModulePermissions(context.Background(), []int64{2, 3}, "orders")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"create": true}, perms)
}

func TestPrincipalPermissionMap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	products := portaltest.Module(t, f.db, "products")
	portaltest.Grant(t, f.db, f.roles[3], products, f.perms["read"])
	portaltest.Grant(t, f.db, f.roles[3], products, f.perms["own"])
	require.NoError(t, f.db.Model(f.perms["own"]).Update("active", false).Error)

	got, err := f.resolver.PrincipalPermissionMap(ctx, []int64{2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]bool{
		"orders":   {"list": true, "create": true},
		"products": {"read": true},
	}, got)

	require.NoError(t, f.db.Model(products).Update("active", false).Error)
	got, err = f.resolver.PrincipalPermissionMap(ctx, []int64{3})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]bool{"orders": {"create": true}}, got)

	got, err = f.resolver.PrincipalPermissionMap(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRegisterAndRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	del := f.perms["del"]

	grant, err := f.resolver.RegisterGrant(ctx, 2, f.orders.ID, del.ID)
	require.NoError(t, err)
	assert.NotZero(t, grant.ID)

	has, err := f.resolver.HasPermission(ctx, 2, f.orders.ID, del.ID)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = f.resolver.RegisterGrant(ctx, 2, f.orders.ID, del.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	require.NoError(t, f.resolver.RevokeGrant(ctx, 2, f.orders.ID, del.ID))
	has, err = f.resolver.HasPermission(ctx, 2, f.orders.ID, del.ID)
	require.NoError(t, err)
	assert.False(t, has)

	// 同一角色同一模块下的其他授权不受影响
	has, err = f.resolver.HasPermission(ctx, 2, f.orders.ID, f.perms["list"].ID)
	require.NoError(t, err)
	assert.True(t, has)

	err = f.resolver.RevokeGrant(ctx, 2, f.orders.ID, del.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestRegisterMissingEntities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := f.perms["list"].ID

	cases := []struct {
		name               string
		role, module, perm int64
	}{
		{"role", 99, f.orders.ID, list},
		{"module", 1, 99, list},
		{"permission", 1, f.orders.ID, 99},
	}
	for _, tc := range cases {
		_, err := f.resolver.RegisterGrant(ctx, tc.role, tc.module, tc.perm)
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound), tc.name)
		assert.Equal(t, tc.name+" not found", apperrors.GetMessage(err))

		err = f.resolver.RevokeGrant(ctx, tc.role, tc.module, tc.perm)
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound), tc.name)
	}
}

func TestConcurrentRegisterYieldsOneGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	read := f.perms["read"].ID

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		conflicts int
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.resolver.RegisterGrant(ctx, 1, f.orders.ID, read)
			if apperrors.IsKind(err, apperrors.KindConflict) {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, f.db.Model(&model.RoleGrant{}).
		Where("role_id = ? AND module_id = ? AND permission_id = ?", 1, f.orders.ID, read).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 4, conflicts)
}

func TestRolePermissionMatrix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	products := portaltest.Module(t, f.db, "products")
	portaltest.Grant(t, f.db, f.roles[2], products, f.perms["read"])
	portaltest.Grant(t, f.db, f.roles[2], products, f.perms["update"])

	matrix, err := f.resolver.RolePermissionMatrix(ctx, 2)
	require.NoError(t, err)
	require.Len(t, matrix, 2)
	assert.Equal(t, "orders", matrix[0].ModuleKey)
	assert.Equal(t, map[string]bool{"list": true}, matrix[0].Permissions)
	assert.Equal(t, "products", matrix[1].ModuleKey)
	assert.Equal(t, map[string]bool{"read": true, "update": true}, matrix[1].Permissions)
	assert.Equal(t, "viewer", matrix[1].RoleKey)

	_, err = f.resolver.RolePermissionMatrix(ctx, 1)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound), "role without grants")

	_, err = f.resolver.RolePermissionMatrix(ctx, 42)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestHasPermissionKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.resolver.HasPermissionKey(ctx, 2, f.orders.ID, "list")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.HasPermissionKey(ctx, 2, f.orders.ID, "del")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.resolver.HasPermissionKey(ctx, 2, f.orders.ID, "approve")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestPrincipalRoles(t *testing.T) {
	f := newFixture(t)
	user := portaltest.Create(t, f.db, &model.User{Name: "u", Email: "u@example.com", Password: "x", Active: true})
	portaltest.Create(t, f.db, &model.UserRole{UserID: user.ID, RoleID: 3})
	portaltest.Create(t, f.db, &model.UserRole{UserID: user.ID, RoleID: 2})

	ids, err := f.resolver.PrincipalRoles(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)

	ids, err = f.resolver.PrincipalRoles(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStorageFailurePropagates(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	resolver := NewResolver(db)
	cause := errors.New("connection refused")

	mock.ExpectQuery("SELECT").WillReturnError(cause)
	_, err = resolver.ResolveModulePermissions(context.Background(), []int64{1}, "orders")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", apperrors.GetMessage(err))

	mock.ExpectQuery("SELECT").WillReturnError(cause)
	_, err = resolver.PrincipalRoles(context.Background(), 1)
	assert.ErrorIs(t, err, cause)

	assert.NoError(t, mock.ExpectationsWereMet())
}
