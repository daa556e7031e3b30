package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := map[*AppError]int{
		NotFound("role"):          http.StatusNotFound,
		Conflict("grant exists"):  http.StatusConflict,
		Duplicate("email"):        http.StatusConflict,
		Forbidden(""):             http.StatusForbidden,
		Unauthorized(""):          http.StatusUnauthorized,
		Validation("bad page"):    http.StatusUnprocessableEntity,
		BadRequest("bad body"):    http.StatusBadRequest,
		Unavailable("", nil):      http.StatusServiceUnavailable,
		Internal(errors.New("x")): http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, err.Code, err.Message)
		assert.Equal(t, status, GetCode(err))
	}
}

func TestWrappedLookup(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("load roles: %w", Unavailable("erp unavailable", cause))

	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.True(t, IsKind(err, KindUnavailable))
	assert.Equal(t, "erp unavailable", GetMessage(err))
	assert.ErrorIs(t, err, cause)
}

func TestPlainErrorsStayOpaque(t *testing.T) {
	err := errors.New(`pq: relation "role_grants" does not exist`)

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, GetCode(err))
	assert.Equal(t, "internal server error", GetMessage(err))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("middleware: %w", ErrUnknownModule)
	assert.True(t, Is(err, ErrUnknownModule))
	assert.False(t, Is(err, ErrForbidden))
	assert.Equal(t, NotFound("role"), NotFound("role"))
	assert.True(t, Is(NotFound("role"), NotFound("role")))
}
