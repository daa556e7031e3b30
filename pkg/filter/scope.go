package filter

import "github.com/portalback/pkg/predicate"

// TenantColumn 默认租户列
const TenantColumn = "company_id"

// DefaultSortField 默认排序字段
const DefaultSortField = "created_at"

// TenantScope 租户数据范围
// IncludeShared 为真时额外可见未归属任何租户的记录
type TenantScope struct {
	CompanyID     int64
	IncludeShared bool
	Column        string
}

// Expression 租户范围条件
func (s TenantScope) Expression() predicate.Expression {
	column := s.Column
	if column == "" {
		column = TenantColumn
	}
	own := predicate.Eq(column, s.CompanyID)
	if !s.IncludeShared {
		return own
	}
	return predicate.Or(own, predicate.IsNull(column))
}

// WithTenantScope 附加租户范围，始终以 AND 组合
func WithTenantScope(pred predicate.Expression, scope TenantScope) predicate.Expression {
	return predicate.And(scope.Expression(), pred)
}

// Page 分页结果，Limited 为假表示不分页
type Page struct {
	Number  int
	Skip    int
	Take    int
	Limited bool
}

// Paginate 计算分页
func Paginate(page, limit *int) Page {
	p := Page{Number: 1}
	if page != nil && *page > 0 {
		p.Number = *page
	}
	if limit == nil {
		return p
	}
	p.Limited = true
	p.Take = *limit
	p.Skip = (p.Number - 1) * p.Take
	return p
}

// Order 排序
type Order struct {
	Field string
	Desc  bool
}

// Direction 排序方向
func (o Order) Direction() string {
	if o.Desc {
		return "DESC"
	}
	return "ASC"
}

// Sort 计算排序，order 为 1 时升序，其余均为降序
func Sort(field string, order int, defaultField string) Order {
	if defaultField == "" {
		defaultField = DefaultSortField
	}
	if field == "" {
		field = defaultField
	}
	return Order{Field: field, Desc: order != 1}
}
