package filter

import (
	"testing"

	"github.com/portalback/pkg/predicate"
	"github.com/stretchr/testify/assert"
)

func TestTenantScopeExpression(t *testing.T) {
	sql, args := TenantScope{CompanyID: 1, IncludeShared: true}.Expression().ToSQL(sqlite)
	assert.Equal(t, `("company_id" = ? OR "company_id" IS NULL)`, sql)
	assert.Equal(t, []any{int64(1)}, args)

	sql, args = TenantScope{CompanyID: 2}.Expression().ToSQL(sqlite)
	assert.Equal(t, `"company_id" = ?`, sql)
	assert.Equal(t, []any{int64(2)}, args)

	sql, _ = TenantScope{CompanyID: 2, Column: "clients.company_id"}.Expression().ToSQL(sqlite)
	assert.Equal(t, `"clients"."company_id" = ?`, sql)
}

func TestWithTenantScopeAlwaysConjoins(t *testing.T) {
	pred := predicate.Or(predicate.Eq("status", "open"), predicate.Eq("status", "closed"))

	sql, args := WithTenantScope(pred, TenantScope{CompanyID: 3}).ToSQL(sqlite)
	assert.Equal(t, `("company_id" = ? AND ("status" = ? OR "status" = ?))`, sql)
	assert.Equal(t, []any{int64(3), "open", "closed"}, args)

	sql, args = WithTenantScope(predicate.True(), TenantScope{CompanyID: 3}).ToSQL(sqlite)
	assert.Equal(t, `"company_id" = ?`, sql)
	assert.Equal(t, []any{int64(3)}, args)
}

func TestPaginate(t *testing.T) {
	intp := func(v int) *int { return &v }

	p := Paginate(nil, nil)
	assert.Equal(t, Page{Number: 1}, p)

	p = Paginate(intp(3), intp(20))
	assert.Equal(t, Page{Number: 3, Skip: 40, Take: 20, Limited: true}, p)

	p = Paginate(nil, intp(10))
	assert.Equal(t, 0, p.Skip)
	assert.True(t, p.Limited)

	p = Paginate(intp(4), nil)
	assert.False(t, p.Limited)
	assert.Equal(t, 4, p.Number)
}

func TestSort(t *testing.T) {
	assert.Equal(t, Order{Field: "created_at", Desc: true}, Sort("", 0, ""))
	assert.Equal(t, Order{Field: "name", Desc: false}, Sort("name", 1, ""))
	assert.Equal(t, Order{Field: "name", Desc: true}, Sort("name", -1, ""))
	assert.Equal(t, Order{Field: "id", Desc: true}, Sort("", 5, "id"))
	assert.Equal(t, "ASC", Order{}.Direction())
	assert.Equal(t, "DESC", Order{Desc: true}.Direction())
}
