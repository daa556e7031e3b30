package dal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/filter"
	"github.com/portalback/pkg/predicate"
	"github.com/portalback/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// RelationKind 关联类型
type RelationKind int

const (
	BelongsTo RelationKind = iota
	HasMany
)

// Relation 关联描述，Name 为客户端使用的名称，Field 为模型字段
// Field 可以是嵌套路径，Kind 描述第一段
type Relation struct {
	Name  string
	Field string
	Kind  RelationKind
}

// ListQuery 列表查询参数
type ListQuery struct {
	Page      *int `validate:"omitempty,min=1"`
	Limit     *int `validate:"omitempty,min=1,max=1000"`
	Filters   filter.Spec
	SortField string
	SortOrder int
	Relations []string

	// FilterErr 过滤参数中被忽略部分的解析错误
	FilterErr error
}

// Scope 服务端附加的数据范围
// Scopes 用于谓词树无法表达的条件，如子查询
type Scope struct {
	Tenant *filter.TenantScope
	Where  []predicate.Expression
	Scopes []func(*gorm.DB) *gorm.DB
}

// Meta 列表元信息
type Meta struct {
	Total int64 `json:"total"`
}

// ListResult 列表查询结果
type ListResult[T any] struct {
	Meta    Meta `json:"meta"`
	Results []T  `json:"results"`
}

// Collection 集合查询器
// 绑定单个实体的搜索字段、基础条件、租户列、默认排序和关联描述表
type Collection[T any] struct {
	db           *gorm.DB
	compiler     *filter.Compiler
	log          *zap.Logger
	globalFields []string
	base         []predicate.Expression
	tenantColumn string
	defaultSort  string
	numeric      []string
	hidden       map[string]struct{}
	relations    map[string]Relation

	once    sync.Once
	schema  *schema.Schema
	columns map[string]struct{}
	initErr error
}

// NewCollection 创建集合查询器
func NewCollection[T any](db *gorm.DB, log *zap.Logger) *Collection[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collection[T]{
		db:           db,
		compiler:     filter.NewCompiler(log),
		log:          log.Named("collection"),
		tenantColumn: filter.TenantColumn,
		defaultSort:  filter.DefaultSortField,
		hidden:       make(map[string]struct{}),
		relations:    make(map[string]Relation),
	}
}

// WithGlobalFields 设置全局搜索字段
func (c *Collection[T]) WithGlobalFields(fields ...string) *Collection[T] {
	c.globalFields = fields
	return c
}

// WithBase 设置基础条件，例如仅查询有效记录
func (c *Collection[T]) WithBase(conditions ...predicate.Expression) *Collection[T] {
	c.base = append(c.base, conditions...)
	return c
}

// WithTenantColumn 设置租户列
func (c *Collection[T]) WithTenantColumn(column string) *Collection[T] {
	c.tenantColumn = column
	return c
}

// WithDefaultSort 设置默认排序
func (c *Collection[T]) WithDefaultSort(field string) *Collection[T] {
	c.defaultSort = field
	return c
}

// WithNumericFields 设置需要将字符串值转换为数值的字段
func (c *Collection[T]) WithNumericFields(fields ...string) *Collection[T] {
	c.numeric = fields
	return c
}

// WithHiddenColumns 设置不可过滤和排序的列
func (c *Collection[T]) WithHiddenColumns(columns ...string) *Collection[T] {
	for _, col := range columns {
		c.hidden[col] = struct{}{}
	}
	return c
}

// WithRelations 设置关联描述表
func (c *Collection[T]) WithRelations(relations ...Relation) *Collection[T] {
	for _, r := range relations {
		c.relations[r.Name] = r
	}
	return c
}

// init 解析模型结构，得到列白名单
func (c *Collection[T]) init() error {
	c.once.Do(func() {
		sch, err := schema.Parse(new(T), &sync.Map{}, c.db.NamingStrategy)
		if err != nil {
			c.initErr = fmt.Errorf("dal: parse schema: %w", err)
			return
		}
		c.schema = sch
		c.columns = make(map[string]struct{}, len(sch.DBNames))
		for _, name := range sch.DBNames {
			if _, hidden := c.hidden[name]; !hidden {
				c.columns[name] = struct{}{}
			}
		}
	})
	return c.initErr
}

// HasColumn 列是否可用于过滤和排序
func (c *Collection[T]) HasColumn(column string) bool {
	if err := c.init(); err != nil {
		return false
	}
	_, ok := c.columns[column]
	return ok
}

// Check 校验关联描述表与模型定义一致
func (c *Collection[T]) Check() error {
	if err := c.init(); err != nil {
		return err
	}
	for _, name := range utils.Keys(c.relations) {
		r := c.relations[name]
		root, _, _ := strings.Cut(r.Field, ".")
		rel, ok := c.schema.Relationships.Relations[root]
		if !ok {
			return fmt.Errorf("dal: %s has no relation field %q", c.schema.Name, root)
		}
		want := schema.BelongsTo
		if r.Kind == HasMany {
			want = schema.HasMany
		}
		if rel.Type != want {
			return fmt.Errorf("dal: %s.%s is %s, described as %s", c.schema.Name, r.Field, rel.Type, want)
		}
	}
	return nil
}

// resolveRelations 按描述表解析关联名，未知名称返回校验错误
func (c *Collection[T]) resolveRelations(names []string) ([]string, error) {
	fields := make([]string, 0, len(names))
	for _, name := range names {
		r, ok := c.relations[name]
		if !ok {
			return nil, apperrors.Validation(fmt.Sprintf("unknown relation %q", name))
		}
		fields = append(fields, r.Field)
	}
	return fields, nil
}

// Predicate 编译完整查询条件
// 基础条件、客户端过滤和服务端范围以 AND 组合，最后附加租户范围
func (c *Collection[T]) Predicate(q ListQuery, scope Scope) predicate.Expression {
	spec := q.Filters
	if spec.Fields != nil {
		fields := make(map[string]filter.Field, len(spec.Fields))
		for k, v := range spec.Fields {
			fields[k] = v
		}
		spec.Fields = fields
	}

	if len(c.numeric) > 0 {
		spec.CoerceNumbers(c.numeric...)
	}
	if dropped := spec.Retain(c.HasColumn); len(dropped) > 0 {
		sort.Strings(dropped)
		c.log.Warn("unknown filter fields ignored", zap.Strings("fields", dropped))
	}

	parts := make([]predicate.Expression, 0, len(c.base)+len(scope.Where)+1)
	parts = append(parts, c.base...)
	parts = append(parts, c.compiler.Compile(spec, c.globalFields))
	parts = append(parts, scope.Where...)
	expr := predicate.And(parts...)

	if scope.Tenant != nil {
		tenant := *scope.Tenant
		if tenant.Column == "" {
			tenant.Column = c.tenantColumn
		}
		expr = filter.WithTenantScope(expr, tenant)
	}
	return expr
}

// List 获取列表
func (c *Collection[T]) List(ctx context.Context, q ListQuery, scope Scope) (*ListResult[T], error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	if q.FilterErr != nil {
		c.log.Warn("filters not fully applied", zap.Error(q.FilterErr))
	}

	preloads, err := c.resolveRelations(q.Relations)
	if err != nil {
		return nil, err
	}

	sql, args := c.Predicate(q, scope).ToSQL(predicate.GetDialect(c.db.Dialector.Name()))
	query := func() *gorm.DB {
		db := c.db.WithContext(ctx).Model(new(T))
		if sql != "" {
			db = db.Where(sql, args...)
		}
		return db.Scopes(scope.Scopes...)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("dal: count %s: %w", c.schema.Table, err)
	}

	order := filter.Sort(q.SortField, q.SortOrder, c.defaultSort)
	if !c.HasColumn(order.Field) {
		order.Field = c.defaultSort
	}

	db := query().Order(clause.OrderByColumn{Column: clause.Column{Name: order.Field}, Desc: order.Desc})
	if page := filter.Paginate(q.Page, q.Limit); page.Limited {
		db = db.Offset(page.Skip).Limit(page.Take)
	}
	for _, field := range preloads {
		db = db.Preload(field)
	}

	results := make([]T, 0)
	if err := db.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("dal: list %s: %w", c.schema.Table, err)
	}

	return &ListResult[T]{Meta: Meta{Total: total}, Results: results}, nil
}

// Get 在同一数据范围内获取单条记录，不存在时返回 nil, nil
func (c *Collection[T]) Get(ctx context.Context, id int64, scope Scope, relations ...string) (*T, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	preloads, err := c.resolveRelations(relations)
	if err != nil {
		return nil, err
	}

	expr := predicate.And(append([]predicate.Expression{predicate.Eq("id", id)}, scope.Where...)...)
	if scope.Tenant != nil {
		tenant := *scope.Tenant
		if tenant.Column == "" {
			tenant.Column = c.tenantColumn
		}
		expr = filter.WithTenantScope(expr, tenant)
	}
	sql, args := expr.ToSQL(predicate.GetDialect(c.db.Dialector.Name()))

	db := c.db.WithContext(ctx).Where(sql, args...).Scopes(scope.Scopes...)
	for _, field := range preloads {
		db = db.Preload(field)
	}

	var entity T
	if err := db.Take(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}
