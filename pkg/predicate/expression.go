package predicate

import (
	"fmt"
	"reflect"
	"strings"
)

// Operator 比较操作符
type Operator string

const (
	OpEq      Operator = "="
	OpNeq     Operator = "<>"
	OpGt      Operator = ">"
	OpGte     Operator = ">="
	OpLt      Operator = "<"
	OpLte     Operator = "<="
	OpEqFold  Operator = "=~"
	OpNeqFold Operator = "<>~"
	OpLike    Operator = "~"
	OpNotLike Operator = "!~"
	OpIn      Operator = "in"
	OpInFold  Operator = "in~"
	OpIsNull  Operator = "null"
)

// LogicOperator 逻辑操作符
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// likeEscape LIKE 转义字符，三种方言通用
const likeEscape = "!"

// Expression 谓词表达式接口
// ToSQL 返回空字符串表示恒真(不附加条件)
type Expression interface {
	ToSQL(dialect Dialect) (string, []any)
	String() string
}

// Condition 字段条件
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ToSQL 转换为SQL
func (c *Condition) ToSQL(d Dialect) (string, []any) {
	col := d.Quote(c.Field)

	switch c.Operator {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		return fmt.Sprintf("%s %s ?", col, c.Operator), []any{c.Value}
	case OpEqFold:
		return fmt.Sprintf("%s = ?", d.Fold(col)), []any{c.Value}
	case OpNeqFold:
		return fmt.Sprintf("%s <> ?", d.Fold(col)), []any{c.Value}
	case OpLike:
		return fmt.Sprintf("%s LIKE ? ESCAPE '%s'", d.Fold(col), likeEscape), []any{c.Value}
	case OpNotLike:
		return fmt.Sprintf("%s NOT LIKE ? ESCAPE '%s'", d.Fold(col), likeEscape), []any{c.Value}
	case OpIn, OpInFold:
		values := toSlice(c.Value)
		if len(values) == 0 {
			return "1 = 0", nil
		}
		target := col
		if c.Operator == OpInFold {
			target = d.Fold(col)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return fmt.Sprintf("%s IN (%s)", target, placeholders), values
	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", col), nil
	}
	return "", nil
}

// String 转换为字符串表示
func (c *Condition) String() string {
	switch c.Operator {
	case OpIsNull:
		return fmt.Sprintf("%s %s", c.Field, c.Operator)
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Operator, formatValue(c.Value))
}

// Logic 逻辑组合表达式
type Logic struct {
	Operator LogicOperator
	Children []Expression
}

// ToSQL 转换为SQL
// AND 跳过恒真子项；OR 中出现恒真子项则整体恒真
func (l *Logic) ToSQL(d Dialect) (string, []any) {
	parts := make([]string, 0, len(l.Children))
	var args []any

	for _, child := range l.Children {
		if child == nil {
			continue
		}
		sql, childArgs := child.ToSQL(d)
		if sql == "" {
			if l.Operator == LogicOr {
				return "", nil
			}
			continue
		}
		parts = append(parts, sql)
		args = append(args, childArgs...)
	}

	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], args
	}
	return "(" + strings.Join(parts, " "+string(l.Operator)+" ") + ")", args
}

// String 转换为字符串表示
func (l *Logic) String() string {
	parts := make([]string, 0, len(l.Children))
	for _, child := range l.Children {
		if child == nil {
			continue
		}
		parts = append(parts, child.String())
	}
	if len(parts) == 1 {
		return parts[0]
	}
	sep := " && "
	if l.Operator == LogicOr {
		sep = " || "
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// always 恒真表达式
type always struct{}

// ToSQL 转换为SQL
func (always) ToSQL(Dialect) (string, []any) { return "", nil }

// String 转换为字符串表示
func (always) String() string { return "true" }

// toSlice 转换为切片
func toSlice(value any) []any {
	if value == nil {
		return nil
	}
	if s, ok := value.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// formatValue 格式化值
func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case nil:
		return "null"
	}
	if s := toSlice(value); s != nil {
		parts := make([]string, len(s))
		for i, item := range s {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(value)
}
