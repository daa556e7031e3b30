package company

import (
	"context"
	"testing"

	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/filter"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/portaltest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTenant(t *testing.T) {
	db := portaltest.NewDB(t)
	main := portaltest.Company(t, db, "main", model.ScopeShared)
	partner := portaltest.Create(t, db, &model.Company{Key: "partner", Name: "Partner", Origin: "partner.example.com", ScopePolicy: model.ScopeExclusive})

	resolver := NewTenantResolver(NewRepository(db), "main", nil)
	ctx := context.Background()

	scope, err := resolver.ResolveTenant(ctx, "https://Partner.example.com:8443")
	require.NoError(t, err)
	assert.Equal(t, filter.TenantScope{CompanyID: partner.ID}, scope)

	scope, err = resolver.ResolveTenant(ctx, "unknown.example.com")
	require.NoError(t, err)
	assert.Equal(t, filter.TenantScope{CompanyID: main.ID, IncludeShared: true}, scope)

	scope, err = resolver.ResolveTenant(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, main.ID, scope.CompanyID)

	missing := NewTenantResolver(NewRepository(db), "nope", nil)
	_, err = missing.ResolveTenant(ctx, "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestNormalizeOrigin(t *testing.T) {
	assert.Equal(t, "portal.example.com", normalizeOrigin("https://portal.example.com"))
	assert.Equal(t, "localhost", normalizeOrigin("localhost:3000"))
	assert.Equal(t, "", normalizeOrigin("  "))
}
