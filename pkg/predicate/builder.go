package predicate

import "strings"

// likeEscaper 转义 LIKE 通配符
var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// EscapeLike 转义 LIKE 模式中的通配符
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func cond(field string, op Operator, value any) Expression {
	return &Condition{Field: field, Operator: op, Value: value}
}

// Eq 等于
func Eq(field string, value any) Expression { return cond(field, OpEq, value) }

// Neq 不等于
func Neq(field string, value any) Expression { return cond(field, OpNeq, value) }

// Gt 大于
func Gt(field string, value any) Expression { return cond(field, OpGt, value) }

// Gte 大于等于
func Gte(field string, value any) Expression { return cond(field, OpGte, value) }

// Lt 小于
func Lt(field string, value any) Expression { return cond(field, OpLt, value) }

// Lte 小于等于
func Lte(field string, value any) Expression { return cond(field, OpLte, value) }

// EqFold 忽略大小写等于，value 需已转为小写
func EqFold(field string, value string) Expression { return cond(field, OpEqFold, value) }

// NeqFold 忽略大小写不等于，value 需已转为小写
func NeqFold(field string, value string) Expression { return cond(field, OpNeqFold, value) }

// Contains 忽略大小写包含
func Contains(field string, value string) Expression {
	return cond(field, OpLike, "%"+EscapeLike(value)+"%")
}

// NotContains 忽略大小写不包含
func NotContains(field string, value string) Expression {
	return cond(field, OpNotLike, "%"+EscapeLike(value)+"%")
}

// StartsWith 忽略大小写前缀匹配
func StartsWith(field string, value string) Expression {
	return cond(field, OpLike, EscapeLike(value)+"%")
}

// EndsWith 忽略大小写后缀匹配
func EndsWith(field string, value string) Expression {
	return cond(field, OpLike, "%"+EscapeLike(value))
}

// In 包含于
func In(field string, values []any) Expression { return cond(field, OpIn, values) }

// InFold 忽略大小写包含于，values 需已转为小写
func InFold(field string, values []any) Expression { return cond(field, OpInFold, values) }

// IsNull 为空
func IsNull(field string) Expression { return cond(field, OpIsNull, nil) }

// And 逻辑与
func And(children ...Expression) Expression {
	return &Logic{Operator: LogicAnd, Children: children}
}

// Or 逻辑或
func Or(children ...Expression) Expression {
	return &Logic{Operator: LogicOr, Children: children}
}

// True 恒真
func True() Expression { return always{} }
