package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/portalback/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func call(t *testing.T, handler fiber.Handler) (int, map[string]any) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestListEnvelope(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return List[string](c, 0, nil)
	})

	assert.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, map[string]any{"total": float64(0)}, data["meta"])
	assert.Equal(t, []any{}, data["results"])
}

func TestFailHidesStorageDetail(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cause := errors.New(`UNIQUE constraint failed: role_grants.role_id`)

	status, body := call(t, func(c *fiber.Ctx) error {
		return Fail(c, zap.New(core), apperrors.Internal(cause))
	})

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["message"])
	assert.NotContains(t, body["message"], "role_grants")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestFailMapsKinds(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return Fail(c, nil, apperrors.Duplicate("grant"))
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, float64(http.StatusConflict), body["code"])
	assert.Equal(t, "grant already exists", body["message"])

	status, _ = call(t, func(c *fiber.Ctx) error {
		return Fail(c, nil, apperrors.NotFound("role"))
	})
	assert.Equal(t, http.StatusNotFound, status)
}
