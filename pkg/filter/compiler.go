package filter

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/portalback/pkg/predicate"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Compiler 过滤条件编译器
// 与实体无关，数值类型转换由调用方在编译前完成
type Compiler struct {
	log *zap.Logger
}

// NewCompiler 创建编译器
func NewCompiler(log *zap.Logger) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Compiler{log: log.Named("filter")}
}

// Compile 编译过滤描述为谓词树
func (c *Compiler) Compile(spec Spec, globalSearchFields []string) predicate.Expression {
	children := make([]predicate.Expression, 0, len(spec.Fields)+1)

	if g := c.global(spec.Global, globalSearchFields); g != nil {
		children = append(children, g)
	}

	names := make([]string, 0, len(spec.Fields))
	for name := range spec.Fields {
		if name == GlobalField {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field := spec.Fields[name]
		column := FieldName(name)

		parts := make([]predicate.Expression, 0, len(field.Constraints))
		for _, constraint := range field.Constraints {
			if constraint.Value == nil {
				continue
			}
			if expr := c.constraint(column, constraint); expr != nil {
				parts = append(parts, expr)
			}
		}

		switch {
		case len(parts) == 0:
			continue
		case field.Operator == Or:
			children = append(children, predicate.Or(parts...))
		default:
			children = append(children, predicate.And(parts...))
		}
	}

	return predicate.And(children...)
}

// global 全局搜索，对每个搜索字段做忽略大小写包含匹配
func (c *Compiler) global(g *Constraint, fields []string) predicate.Expression {
	if g == nil || g.Value == nil || len(fields) == 0 {
		return nil
	}
	value := strings.TrimSpace(text(g.Value))
	if value == "" {
		return nil
	}

	value = fold(value)
	parts := make([]predicate.Expression, len(fields))
	for i, f := range fields {
		parts[i] = predicate.Contains(f, value)
	}
	return predicate.Or(parts...)
}

// constraint 按匹配模式翻译单个约束，返回 nil 表示丢弃
func (c *Compiler) constraint(column string, con Constraint) predicate.Expression {
	v := con.Value

	switch con.MatchMode {
	case StartsWith:
		return predicate.StartsWith(column, fold(text(v)))
	case Contains:
		return predicate.Contains(column, fold(text(v)))
	case NotContains:
		return predicate.NotContains(column, fold(text(v)))
	case EndsWith:
		return predicate.EndsWith(column, fold(text(v)))
	case Equals:
		if s, ok := v.(string); ok {
			return predicate.EqFold(column, fold(s))
		}
		return predicate.Eq(column, v)
	case NotEquals:
		if s, ok := v.(string); ok {
			return predicate.NeqFold(column, fold(s))
		}
		return predicate.Neq(column, v)
	case In:
		values, _ := list(v)
		if folded, ok := foldAll(values); ok {
			return predicate.InFold(column, folded)
		}
		return predicate.In(column, values)
	case LessThan, DateBefore:
		return predicate.Lt(column, v)
	case LessOrEqual:
		return predicate.Lte(column, v)
	case GreaterThan, DateAfter:
		return predicate.Gt(column, v)
	case GreaterOrEq:
		return predicate.Gte(column, v)
	case Between:
		values, ok := list(v)
		if !ok || len(values) == 0 {
			return nil
		}
		var bounds []predicate.Expression
		if values[0] != nil {
			bounds = append(bounds, predicate.Gte(column, values[0]))
		}
		if len(values) > 1 && values[1] != nil {
			bounds = append(bounds, predicate.Lte(column, values[1]))
		}
		if len(bounds) == 0 {
			return nil
		}
		return predicate.And(bounds...)
	case DateIs:
		return predicate.Eq(column, v)
	case DateIsNot:
		return predicate.Neq(column, v)
	}

	c.log.Warn("unsupported match mode ignored",
		zap.String("field", column),
		zap.String("matchMode", string(con.MatchMode)),
	)
	return predicate.True()
}

// fold 小写折叠
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// foldAll 全部为字符串时返回小写结果
func foldAll(values []any) ([]any, bool) {
	if len(values) == 0 {
		return nil, false
	}
	out := make([]any, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[i] = fold(s)
	}
	return out, true
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// list 将数组值展开为切片，非数组返回 false
func list(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
