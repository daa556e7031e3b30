package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/portalback/pkg/dal"
	"github.com/portalback/pkg/erp"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/filter"
	"github.com/portalback/pkg/middleware"
	"github.com/portalback/pkg/utils"
	"github.com/portalback/services/portal/internal/client"
	"github.com/portalback/services/portal/internal/model"
	"github.com/portalback/services/portal/internal/portaltest"
	"github.com/portalback/services/portal/internal/product"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeERP struct {
	mu     sync.Mutex
	orders []erp.SaleOrder
}

func (f *fakeERP) CustomerPrice(context.Context, int64, int64) (float64, error) { return 0, nil }

func (f *fakeERP) CreateOrder(_ context.Context, o erp.SaleOrder) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, o)
	return 900 + int64(len(f.orders)), nil
}

type fixture struct {
	db      *gorm.DB
	ctrl    *Controller
	erp     *fakeERP
	company *model.Company
	other   *model.Company
	acme    *model.Client
	globex  *model.Client
	buyer   *model.User
	widget  *model.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := portaltest.NewDB(t)
	log := zap.NewNop()
	f := &fixture{db: db, erp: &fakeERP{}}
	f.company = portaltest.Company(t, db, "acme-portal", model.ScopeExclusive)
	f.other = portaltest.Company(t, db, "other-portal", model.ScopeExclusive)

	f.acme = portaltest.Create(t, db, &model.Client{CompanyID: &f.company.ID, Name: "Acme", ErpID: utils.Ptr[int64](77)})
	f.globex = portaltest.Create(t, db, &model.Client{CompanyID: &f.company.ID, Name: "Globex"})
	f.buyer = portaltest.Create(t, db, &model.User{Name: "buyer", Email: "buyer@acme.test", Password: "x", Active: true, CompanyID: &f.company.ID})
	portaltest.Create(t, db, &model.ClientUser{ClientID: f.acme.ID, UserID: f.buyer.ID})

	f.widget = portaltest.Create(t, db, &model.Product{
		CompanyID: &f.company.ID, SKU: "W-1", Title: "Widget", CustomerPrice: 2.5, ErpID: utils.Ptr[int64](501), Active: true,
	})

	clients := client.NewRepository(db, log)
	f.ctrl = NewController(NewRepository(db, log), product.NewRepository(db, log), clients, f.erp, log)
	return f
}

func (f *fixture) tenant() *filter.TenantScope {
	scope := f.company.Scope()
	return &scope
}

// app 以固定身份挂载订单路由
func (f *fixture) app(userID int64, perms map[string]bool) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, userID)
		c.Locals(middleware.LocalPermissions, perms)
		c.Locals(middleware.LocalTenant, f.company.Scope())
		return c.Next()
	})
	group := app.Group(f.ctrl.Prefix())
	for _, r := range f.ctrl.Routes() {
		group.Add(r.Method, r.Path, r.Handler)
	}
	return app
}

type listBody struct {
	Code int `json:"code"`
	Data struct {
		Meta    struct{ Total int64 } `json:"meta"`
		Results []model.Order         `json:"results"`
	} `json:"data"`
}

func TestCreateDerivesNumberAndTotal(t *testing.T) {
	f := newFixture(t)
	price := 4.0
	o, err := f.ctrl.create(context.Background(), &CreateRequest{
		Lines: []LineRequest{
			{ProductID: f.widget.ID, Quantity: 2},
			{ProductID: f.widget.ID, Quantity: 1, Price: &price},
		},
	}, f.tenant(), &f.company.ID, f.buyer.ID)
	require.NoError(t, err)

	assert.Equal(t, o.ID+model.OrderNumberOffset, o.OrderNumber)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.InDelta(t, 9.0, o.Total, 1e-9)
	require.NotNil(t, o.ClientID)
	assert.Equal(t, f.acme.ID, *o.ClientID)

	var stored model.Order
	require.NoError(t, f.db.Preload("Lines").First(&stored, o.ID).Error)
	assert.Equal(t, o.OrderNumber, stored.OrderNumber)
	assert.Len(t, stored.Lines, 2)
}

func TestCreateRejectsForeignProduct(t *testing.T) {
	f := newFixture(t)
	foreign := portaltest.Create(t, f.db, &model.Product{CompanyID: &f.other.ID, SKU: "F-1", Title: "Foreign", Active: true})

	_, err := f.ctrl.create(context.Background(), &CreateRequest{
		Lines: []LineRequest{{ProductID: foreign.ID, Quantity: 1}},
	}, f.tenant(), &f.company.ID, f.buyer.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestListOwnRestrictsToCallerClient(t *testing.T) {
	f := newFixture(t)
	portaltest.Create(t, f.db, &model.Order{CompanyID: &f.company.ID, ClientID: &f.acme.ID, Status: model.OrderStatusPending, Active: true})
	portaltest.Create(t, f.db, &model.Order{CompanyID: &f.company.ID, ClientID: &f.globex.ID, Status: model.OrderStatusPending, Active: true})
	portaltest.Create(t, f.db, &model.Order{CompanyID: &f.other.ID, Status: model.OrderStatusPending, Active: true})

	list := func(perms map[string]bool, userID int64) listBody {
		resp, err := f.app(userID, perms).Test(httptest.NewRequest(http.MethodGet, "/orders", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body listBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	all := list(map[string]bool{"list": true}, f.buyer.ID)
	assert.EqualValues(t, 2, all.Data.Meta.Total)

	own := list(map[string]bool{"list": true, "own": true}, f.buyer.ID)
	require.Len(t, own.Data.Results, 1)
	assert.Equal(t, f.acme.ID, *own.Data.Results[0].ClientID)

	orphan := list(map[string]bool{"list": true, "own": true}, 9999)
	assert.EqualValues(t, 0, orphan.Data.Meta.Total)
}

func TestDraftsListsDraftStateOnly(t *testing.T) {
	f := newFixture(t)
	portaltest.Create(t, f.db, &model.Order{CompanyID: &f.company.ID, ClientID: &f.acme.ID, State: model.OrderStateDraft, Status: model.OrderStatusPending, Active: true})
	portaltest.Create(t, f.db, &model.Order{CompanyID: &f.company.ID, ClientID: &f.globex.ID, State: model.OrderStateDraft, Status: model.OrderStatusPending, Active: true})
	portaltest.Create(t, f.db, &model.Order{CompanyID: &f.company.ID, ClientID: &f.acme.ID, State: "sale", Status: model.OrderStatusPending, Active: true})
	archived := portaltest.Create(t, f.db, &model.Order{CompanyID: &f.company.ID, ClientID: &f.acme.ID, State: model.OrderStateDraft, Status: model.OrderStatusPending, Active: true})
	require.NoError(t, f.db.Model(archived).Update("active", false).Error)

	drafts := func(perms map[string]bool) listBody {
		resp, err := f.app(f.buyer.ID, perms).Test(httptest.NewRequest(http.MethodGet, "/orders/draft?sortOrder=1", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body listBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	all := drafts(map[string]bool{"list": true})
	assert.EqualValues(t, 2, all.Data.Meta.Total)
	for _, o := range all.Data.Results {
		assert.Equal(t, model.OrderStateDraft, o.State)
	}

	own := drafts(map[string]bool{"list": true, "own": true})
	require.Len(t, own.Data.Results, 1)
	assert.Equal(t, f.acme.ID, *own.Data.Results[0].ClientID)
}

func TestProductHistory(t *testing.T) {
	f := newFixture(t)
	line := func(qty float64) []model.OrderLine {
		return []model.OrderLine{{ProductID: f.widget.ID, Quantity: qty, Price: 1, Total: qty}}
	}
	mine := portaltest.Create(t, f.db, &model.Order{CompanyID: &f.company.ID, ClientID: &f.acme.ID, Status: model.OrderStatusPending, Active: true, Lines: line(1)})
	portaltest.Create(t, f.db, &model.Order{CompanyID: &f.company.ID, ClientID: &f.globex.ID, Status: model.OrderStatusPending, Active: true, Lines: line(2)})
	archived := portaltest.Create(t, f.db, &model.Order{CompanyID: &f.company.ID, ClientID: &f.acme.ID, Status: model.OrderStatusPending, Active: true, Lines: line(3)})
	require.NoError(t, f.db.Model(archived).Update("active", false).Error)

	history := func(perms map[string]bool, productID int64) []model.OrderLine {
		resp, err := f.app(f.buyer.ID, perms).Test(httptest.NewRequest(http.MethodGet, "/orders/"+itoa(productID)+"/product", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Data []model.OrderLine `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body.Data
	}

	all := history(map[string]bool{"read": true}, f.widget.ID)
	require.Len(t, all, 2)
	assert.InDelta(t, 1.0, all[0].Quantity, 1e-9)
	assert.InDelta(t, 2.0, all[1].Quantity, 1e-9)
	require.NotNil(t, all[0].Order)
	assert.Equal(t, mine.ID, all[0].Order.ID)

	own := history(map[string]bool{"read": true, "own": true}, f.widget.ID)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].OrderID)

	foreign := portaltest.Create(t, f.db, &model.Product{CompanyID: &f.other.ID, SKU: "F-1", Title: "Foreign", Active: true})
	_, err := f.ctrl.productHistory(context.Background(), foreign.ID, scopeFor(f))
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestSyncPushesSaleOrder(t *testing.T) {
	f := newFixture(t)
	o, err := f.ctrl.create(context.Background(), &CreateRequest{
		Tax:   1.5,
		Lines: []LineRequest{{ProductID: f.widget.ID, Quantity: 3}},
	}, f.tenant(), &f.company.ID, f.buyer.ID)
	require.NoError(t, err)

	resp, err := f.app(f.buyer.ID, map[string]bool{"update": true}).
		Test(httptest.NewRequest(http.MethodPost, "/orders/"+itoa(o.ID)+"/sync", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, f.erp.orders, 1)
	sent := f.erp.orders[0]
	assert.Equal(t, "ORDER-"+itoa(o.OrderNumber), sent.Name)
	assert.EqualValues(t, 77, sent.PartnerID)
	assert.InDelta(t, 1.5, sent.AmountTax, 1e-9)
	require.Len(t, sent.Lines, 1)
	assert.EqualValues(t, 501, sent.Lines[0].ProductID)
	assert.InDelta(t, 7.5, sent.Untaxed(), 1e-9)

	var stored model.Order
	require.NoError(t, f.db.First(&stored, o.ID).Error)
	assert.Equal(t, model.OrderStatusSynced, stored.Status)
	require.NotNil(t, stored.ErpID)
	assert.EqualValues(t, 901, *stored.ErpID)

	_, err = f.ctrl.sync(context.Background(), o.ID, scopeFor(f))
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestSyncRequiresLinkedClient(t *testing.T) {
	f := newFixture(t)
	o := portaltest.Create(t, f.db, &model.Order{
		CompanyID: &f.company.ID, ClientID: &f.globex.ID, Status: model.OrderStatusPending, Active: true,
		Lines: []model.OrderLine{{ProductID: f.widget.ID, Quantity: 1, Price: 1, Total: 1}},
	})
	_, err := f.ctrl.sync(context.Background(), o.ID, scopeFor(f))
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
	assert.Empty(t, f.erp.orders)
}

func TestSyncWithoutERP(t *testing.T) {
	f := newFixture(t)
	f.ctrl.erp = nil
	_, err := f.ctrl.sync(context.Background(), 1, scopeFor(f))
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnavailable))
}

func TestDeleteArchives(t *testing.T) {
	f := newFixture(t)
	o := portaltest.Create(t, f.db, &model.Order{CompanyID: &f.company.ID, Status: model.OrderStatusPending, Active: true})
	app := f.app(f.buyer.ID, map[string]bool{"del": true, "read": true})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/orders/"+itoa(o.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stored model.Order
	require.NoError(t, f.db.First(&stored, o.ID).Error)
	assert.False(t, stored.Active)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/orders/"+itoa(o.ID), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateValidatesBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"lines":[]}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := f.app(f.buyer.ID, map[string]bool{"create": true}).Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func scopeFor(f *fixture) dal.Scope {
	return dal.Scope{Tenant: f.tenant()}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
