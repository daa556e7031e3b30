package address

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/portalback/pkg/dal"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/middleware"
	"github.com/portalback/services/portal/internal/client"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/portaltest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	ctrl  *Controller
	shop  *model.Client
	buyer *model.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := portaltest.NewDB(t)
	log := zap.NewNop()
	shop := portaltest.Create(t, db, &model.Client{Name: "Shop"})
	depot := portaltest.Create(t, db, &model.Client{Name: "Depot"})
	buyer := portaltest.Create(t, db, &model.User{Name: "buyer", Email: "buyer@shop.test", Password: "x", Active: true})
	portaltest.Create(t, db, &model.ClientUser{ClientID: shop.ID, UserID: buyer.ID})
	portaltest.Create(t, db, &model.Address{ClientID: depot.ID, FirstName: "Dee", Address1: "1 Dock", City: "Porto", Country: "PT"})

	ctrl := NewController(NewRepository(db, log), client.NewRepository(db, log), log)
	return &fixture{db: db, ctrl: ctrl, shop: shop, buyer: buyer}
}

func (f *fixture) app(userID int64) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, userID)
		return c.Next()
	})
	group := app.Group(f.ctrl.Prefix())
	for _, r := range f.ctrl.Routes() {
		group.Add(r.Method, r.Path, r.Handler)
	}
	return app
}

func TestCreateAndListOwnAddresses(t *testing.T) {
	f := setup(t)
	app := f.app(f.buyer.ID)

	req := httptest.NewRequest(http.MethodPost, "/addresses",
		strings.NewReader(`{"first_name":"Ana","address_1":"2 Main St","city":"Lisbon","country":"PT","zip":"1000"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/addresses", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data struct {
			Meta    struct{ Total int64 } `json:"meta"`
			Results []model.Address       `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(1), body.Data.Meta.Total)
	require.Len(t, body.Data.Results, 1)
	assert.Equal(t, f.shop.ID, body.Data.Results[0].ClientID)
	assert.Equal(t, "Lisbon", body.Data.Results[0].City)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	req := httptest.NewRequest(http.MethodPost, "/addresses", strings.NewReader(`{"first_name":"Ana"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := f.app(f.buyer.ID).Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUserWithoutClient(t *testing.T) {
	f := setup(t)
	loner := portaltest.Create(t, f.db, &model.User{Name: "loner", Email: "loner@shop.test", Password: "x", Active: true})
	ctx := context.Background()

	_, err := f.ctrl.list(ctx, dal.ListQuery{}, loner.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = f.ctrl.create(ctx, &CreateRequest{FirstName: "L", Address1: "x", City: "y", Country: "PT"}, loner.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	var count int64
	require.NoError(t, f.db.Model(&model.Address{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
