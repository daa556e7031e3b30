package user

import (
	"context"
	"testing"

	"github.com/portalback/pkg/auth"
	"github.com/portalback/pkg/dal"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/portaltest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *Controller, *model.Company) {
	t.Helper()
	db := portaltest.NewDB(t)
	company := portaltest.Company(t, db, "acme-portal", model.ScopeExclusive)
	return db, NewController(NewRepository(db, zap.NewNop()), zap.NewNop()), company
}

func tenantOf(company *model.Company) dal.Scope {
	tenant := company.Scope()
	return dal.Scope{Tenant: &tenant}
}

func roleIDsOf(t *testing.T, db *gorm.DB, userID int64) []int64 {
	t.Helper()
	var ids []int64
	require.NoError(t, db.Model(&model.UserRole{}).Where("user_id = ?", userID).Order("role_id").Pluck("role_id", &ids).Error)
	return ids
}

func TestCreateAttachesDefaultRoles(t *testing.T) {
	db, ctrl, company := setup(t)
	customer := portaltest.Create(t, db, &model.Role{Key: "customer", Name: "Customer", IsDefault: true})
	manager := portaltest.Role(t, db, "manager")

	u, err := ctrl.create(context.Background(), &company.ID, &CreateRequest{
		Name:     "Ana",
		Email:    "  Ana@Example.com ",
		Password: "secret-pass",
		RoleIDs:  []int64{manager.ID, customer.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.True(t, auth.CheckPassword(u.Password, "secret-pass"))
	require.NotNil(t, u.CompanyID)
	assert.Equal(t, company.ID, *u.CompanyID)
	assert.Equal(t, []int64{customer.ID, manager.ID}, roleIDsOf(t, db, u.ID))
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	_, ctrl, company := setup(t)
	req := &CreateRequest{Name: "Ana", Email: "ana@example.com", Password: "secret-pass"}
	_, err := ctrl.create(context.Background(), &company.ID, req)
	require.NoError(t, err)

	_, err = ctrl.create(context.Background(), &company.ID, &CreateRequest{Name: "Other", Email: "ANA@example.com", Password: "secret-pass"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestCreateUnknownRoleRollsBack(t *testing.T) {
	db, ctrl, company := setup(t)
	_, err := ctrl.create(context.Background(), &company.ID, &CreateRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret-pass", RoleIDs: []int64{99},
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateWithinTenant(t *testing.T) {
	db, ctrl, company := setup(t)
	other := portaltest.Company(t, db, "other-portal", model.ScopeExclusive)
	own := portaltest.Create(t, db, &model.User{Name: "Ana", Email: "ana@example.com", Password: "x", Active: true, CompanyID: &company.ID})
	foreign := portaltest.Create(t, db, &model.User{Name: "Bo", Email: "bo@example.com", Password: "x", Active: true, CompanyID: &other.ID})
	scope := tenantOf(company)

	inactive := false
	u, err := ctrl.update(context.Background(), own.ID, scope, &UpdateRequest{Name: "Ana Maria", Active: &inactive, Password: "new-secret"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", u.Name)
	assert.False(t, u.Active)
	assert.True(t, auth.CheckPassword(u.Password, "new-secret"))

	_, err = ctrl.update(context.Background(), own.ID, scope, &UpdateRequest{Email: "bo@example.com"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	_, err = ctrl.update(context.Background(), foreign.ID, scope, &UpdateRequest{Name: "x"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDeleteRemovesLinks(t *testing.T) {
	db, ctrl, company := setup(t)
	role := portaltest.Role(t, db, "manager")
	client := portaltest.Create(t, db, &model.Client{Name: "Shop", CompanyID: &company.ID})
	u := portaltest.Create(t, db, &model.User{Name: "Ana", Email: "ana@example.com", Password: "x", Active: true, CompanyID: &company.ID})
	portaltest.Create(t, db, &model.UserRole{UserID: u.ID, RoleID: role.ID})
	portaltest.Create(t, db, &model.ClientUser{UserID: u.ID, ClientID: client.ID})

	require.NoError(t, ctrl.delete(context.Background(), u.ID, tenantOf(company)))

	var links int64
	require.NoError(t, db.Model(&model.UserRole{}).Where("user_id = ?", u.ID).Count(&links).Error)
	assert.Zero(t, links)
	require.NoError(t, db.Model(&model.ClientUser{}).Where("user_id = ?", u.ID).Count(&links).Error)
	assert.Zero(t, links)

	err := ctrl.delete(context.Background(), u.ID, tenantOf(company))
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
