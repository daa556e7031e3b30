package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/portalback/pkg/auth"
	"github.com/portalback/pkg/config"
	"github.com/portalback/pkg/dal"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/portaltest"
	"github.com/portalback/services/portal/internal/seed"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@portal.test"
	adminPassword = "s3cret!"
)

type harness struct {
	t    *testing.T
	srv  *Server
	db   *gorm.DB
	seed *seed.Result
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		App:    config.AppConfig{Name: "portal", Version: "test"},
		JWT:    config.JWTConfig{Secret: "test-secret", Issuer: "portal", Expire: 3600},
		Tenant: config.TenantConfig{DefaultKey: "portal"},
	}
	db := portaltest.NewDB(t)
	res, err := seed.Run(context.Background(), db, cfg.Tenant,
		config.SeedConfig{AdminEmail: adminEmail, AdminPassword: adminPassword}, nil)
	require.NoError(t, err)
	srv, err := New(Deps{Config: cfg, DB: db})
	require.NoError(t, err)
	return &harness{t: t, srv: srv, db: db, seed: res}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *harness) do(method, path, token, body string, headers ...string) (int, envelope) {
	h.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := h.srv.App.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env
}

func (h *harness) login(email, password string) string {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/auth/login", "",
		`{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(h.t, http.StatusOK, status, env.Message)
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(h.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(h.t, data.AccessToken)
	return data.AccessToken
}

func (h *harness) total(env envelope) int64 {
	h.t.Helper()
	var data struct {
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(h.t, json.Unmarshal(env.Data, &data))
	return data.Meta.Total
}

func TestHealthAndNotFound(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)

	status, env := h.do(http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "route not found", env.Message)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(http.MethodPost, "/auth/login", "", `{"email":"admin@portal.test","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid email or password", env.Message)

	token := h.login(adminEmail, adminPassword)
	status, env = h.do(http.MethodGet, "/auth/me", token, "")
	require.Equal(t, http.StatusOK, status)
	var me model.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, adminEmail, me.Email)
}

func TestModulePermissionsGate(t *testing.T) {
	h := newHarness(t)
	admin := h.login(adminEmail, adminPassword)

	status, _ := h.do(http.MethodGet, "/products", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.do(http.MethodGet, "/products", admin, "")
	assert.Equal(t, http.StatusOK, status)

	hash, err := auth.HashPassword("buyer-pass")
	require.NoError(t, err)
	buyer := portaltest.Create(t, h.db, &model.User{
		Name: "buyer", Email: "buyer@portal.test", Password: hash, Active: true, CompanyID: &h.seed.Company.ID,
	})
	var customer model.Role
	require.NoError(t, h.db.Where(map[string]any{"key": seed.RoleCustomer}).First(&customer).Error)
	portaltest.Create(t, h.db, &model.UserRole{UserID: buyer.ID, RoleID: customer.ID})
	buyerToken := h.login("buyer@portal.test", "buyer-pass")

	status, _ = h.do(http.MethodGet, "/products", buyerToken, "")
	assert.Equal(t, http.StatusOK, status)
	status, env := h.do(http.MethodPost, "/products", buyerToken, `{"sku":"X","title":"x"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "missing permission create", env.Message)
	status, _ = h.do(http.MethodGet, "/users", buyerToken, "")
	assert.Equal(t, http.StatusForbidden, status)

	require.NoError(t, h.db.Model(&model.Module{}).
		Where(map[string]any{"key": model.ModuleProducts}).Update("active", false).Error)
	status, env = h.do(http.MethodGet, "/products", admin, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "module is not accessible", env.Message)

	status, env = h.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestTenantScoping(t *testing.T) {
	h := newHarness(t)
	admin := h.login(adminEmail, adminPassword)

	other := portaltest.Create(t, h.db, &model.Company{
		Key: "beta", Name: "Beta", Origin: "b.example.com", ScopePolicy: model.ScopeExclusive,
	})
	portaltest.Create(t, h.db, &model.Product{CompanyID: &h.seed.Company.ID, SKU: "HOME", Title: "home", Active: true})
	portaltest.Create(t, h.db, &model.Product{SKU: "SHARED", Title: "shared", Active: true})
	portaltest.Create(t, h.db, &model.Product{CompanyID: &other.ID, SKU: "BETA", Title: "beta", Active: true})

	status, env := h.do(http.MethodGet, "/products", admin, "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, h.total(env))

	status, env = h.do(http.MethodGet, "/products", admin, "", fiber.HeaderOrigin, "https://b.example.com:8443")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, h.total(env))

	status, env = h.do(http.MethodPost, "/products", admin, `{"sku":"NEW","title":"new"}`, fiber.HeaderOrigin, "https://b.example.com")
	require.Equal(t, http.StatusCreated, status)
	var created model.Product
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotNil(t, created.CompanyID)
	assert.Equal(t, other.ID, *created.CompanyID)
}

func TestListQueryFilters(t *testing.T) {
	h := newHarness(t)
	admin := h.login(adminEmail, adminPassword)
	for _, name := range []string{"Acme Corp", "acme labs", "Globex"} {
		portaltest.Create(t, h.db, &model.Client{CompanyID: &h.seed.Company.ID, Name: name})
	}

	filters := `{"name":{"operator":"and","constraints":[{"value":"ACME","matchMode":"startsWith"}]}}`
	status, env := h.do(http.MethodGet, "/clients?filters="+url.QueryEscape(filters), admin, "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, h.total(env))

	status, _ = h.do(http.MethodGet, "/clients?relations=ghost", admin, "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestProfileAndAddressRoutes(t *testing.T) {
	h := newHarness(t)
	admin := h.login(adminEmail, adminPassword)

	status, _ := h.do(http.MethodGet, "/profile/permissions/map", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := h.do(http.MethodGet, "/profile/permissions/map", admin, "")
	require.Equal(t, http.StatusOK, status)
	var perms map[string]map[string]bool
	require.NoError(t, json.Unmarshal(env.Data, &perms))
	assert.Len(t, perms, len(model.ModuleKeys))
	assert.True(t, perms[model.ModuleOrders][model.PermCreate])

	status, _ = h.do(http.MethodPut, "/profile/update", admin, `{"name":"Root"}`)
	assert.Equal(t, http.StatusOK, status)
	status, env = h.do(http.MethodGet, "/auth/me", admin, "")
	require.Equal(t, http.StatusOK, status)
	var me model.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "Root", me.Name)

	status, env = h.do(http.MethodGet, "/addresses", admin, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "client not found", env.Message)
}

func TestCollectionCheckRejectsBadRelations(t *testing.T) {
	db := portaltest.NewDB(t)
	ok := dal.NewCollection[model.Client](db, nil).
		WithRelations(dal.Relation{Name: "users", Field: "Users.User", Kind: dal.HasMany})
	wrongKind := dal.NewCollection[model.Order](db, nil).
		WithRelations(dal.Relation{Name: "client", Field: "Client", Kind: dal.HasMany})
	missing := dal.NewCollection[model.Product](db, nil).
		WithRelations(dal.Relation{Name: "ghost", Field: "Ghost", Kind: dal.BelongsTo})

	assert.NoError(t, checkCollections(ok))
	assert.Error(t, checkCollections(ok, wrongKind))
	assert.ErrorContains(t, checkCollections(missing), "Ghost")
}
