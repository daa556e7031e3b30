package category

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/portalback/pkg/middleware"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/portaltest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newApp(t *testing.T) (*fiber.App, *model.Company, *Controller) {
	t.Helper()
	db := portaltest.NewDB(t)
	company := portaltest.Company(t, db, "acme-portal", model.ScopeShared)
	other := portaltest.Company(t, db, "other-portal", model.ScopeExclusive)

	portaltest.Create(t, db, &model.Category{CompanyID: &company.ID, Name: "Tools"})
	portaltest.Create(t, db, &model.Category{Name: "Shared"})
	portaltest.Create(t, db, &model.Category{CompanyID: &company.ID, Name: "Internal", HiddenOnPortal: true})
	portaltest.Create(t, db, &model.Category{CompanyID: &other.ID, Name: "Foreign"})

	ctrl := NewController(NewRepository(db, zap.NewNop()), zap.NewNop())
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalTenant, company.Scope())
		return c.Next()
	})
	group := app.Group(ctrl.Prefix())
	for _, r := range ctrl.Routes() {
		group.Add(r.Method, r.Path, r.Handler)
	}
	return app, company, ctrl
}

type listBody struct {
	Data struct {
		Meta    struct{ Total int64 } `json:"meta"`
		Results []model.Category      `json:"results"`
	} `json:"data"`
}

func TestListHidesPortalHiddenAndForeign(t *testing.T) {
	app, _, _ := newApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/categories?sortField=name&sortOrder=1", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body listBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	names := make([]string, 0, len(body.Data.Results))
	for _, c := range body.Data.Results {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Shared", "Tools"}, names)
	assert.EqualValues(t, 2, body.Data.Meta.Total)
}

func TestCreateAndUpdate(t *testing.T) {
	app, company, _ := newApp(t)

	req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"Paint","erp_id":12}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data model.Category `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotNil(t, created.Data.CompanyID)
	assert.Equal(t, company.ID, *created.Data.CompanyID)

	req = httptest.NewRequest(http.MethodPut, "/categories/"+strconv.FormatInt(created.Data.ID, 10),
		strings.NewReader(`{"hidden_on_portal":true}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated struct {
		Data model.Category `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.True(t, updated.Data.HiddenOnPortal)
	assert.Equal(t, "Paint", updated.Data.Name)
}

func TestGetForeignIsNotFound(t *testing.T) {
	app, _, _ := newApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/categories/4", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
