package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MatchMode 匹配模式
type MatchMode string

const (
	StartsWith  MatchMode = "startsWith"
	Contains    MatchMode = "contains"
	NotContains MatchMode = "notContains"
	EndsWith    MatchMode = "endsWith"
	Equals      MatchMode = "equals"
	NotEquals   MatchMode = "notEquals"
	In          MatchMode = "in"
	LessThan    MatchMode = "lt"
	LessOrEqual MatchMode = "lte"
	GreaterThan MatchMode = "gt"
	GreaterOrEq MatchMode = "gte"
	Between     MatchMode = "between"
	DateIs      MatchMode = "dateIs"
	DateIsNot   MatchMode = "dateIsNot"
	DateBefore  MatchMode = "dateBefore"
	DateAfter   MatchMode = "dateAfter"
)

// Valid 是否为受支持的匹配模式
func (m MatchMode) Valid() bool {
	switch m {
	case StartsWith, Contains, NotContains, EndsWith, Equals, NotEquals, In,
		LessThan, LessOrEqual, GreaterThan, GreaterOrEq, Between,
		DateIs, DateIsNot, DateBefore, DateAfter:
		return true
	}
	return false
}

// ErrUnsupportedMatchMode 匹配模式不受支持，该约束编译为恒真
var ErrUnsupportedMatchMode = errors.New("unsupported match mode")

// Operator 同一字段多个约束的组合方式
type Operator string

const (
	And Operator = "AND"
	Or  Operator = "OR"
)

// GlobalField 全局搜索字段名
const GlobalField = "global"

// payloadPrefix 结构化列在 JSON 负载中的逻辑前缀
const payloadPrefix = "data."

// Constraint 单个约束
type Constraint struct {
	Value     any       `json:"value"`
	MatchMode MatchMode `json:"matchMode"`
}

// Field 字段过滤
type Field struct {
	Operator    Operator     `json:"operator"`
	Constraints []Constraint `json:"constraints"`
}

// Spec 客户端过滤描述
type Spec struct {
	Global *Constraint
	Fields map[string]Field
}

// wireField 过滤参数的原始形态
type wireField struct {
	Operator    string       `json:"operator"`
	Constraints []Constraint `json:"constraints"`
	Value       any          `json:"value"`
	MatchMode   MatchMode    `json:"matchMode"`
}

// Parse 解析 filters 查询参数
// 单个字段解析失败只丢弃该字段，不支持的匹配模式保留并报告，错误合并返回
func Parse(raw string) (Spec, error) {
	spec := Spec{Fields: make(map[string]Field)}
	if strings.TrimSpace(raw) == "" {
		return spec, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return spec, fmt.Errorf("filter: invalid filters: %w", err)
	}

	var errs []error
	for name, body := range entries {
		var w wireField
		if err := json.Unmarshal(body, &w); err != nil {
			errs = append(errs, fmt.Errorf("filter: field %q: %w", name, err))
			continue
		}

		constraints := w.Constraints
		if constraints == nil && (w.Value != nil || w.MatchMode != "") {
			constraints = []Constraint{{Value: w.Value, MatchMode: w.MatchMode}}
		}

		if name != GlobalField {
			for _, c := range constraints {
				if c.Value != nil && !c.MatchMode.Valid() {
					errs = append(errs, fmt.Errorf("filter: field %q: %w %q", name, ErrUnsupportedMatchMode, c.MatchMode))
				}
			}
		}

		if name == GlobalField {
			if len(constraints) > 0 {
				g := constraints[0]
				spec.Global = &g
			}
			continue
		}

		spec.Fields[name] = Field{
			Operator:    ParseOperator(w.Operator),
			Constraints: constraints,
		}
	}

	return spec, errors.Join(errs...)
}

// ParseOperator 解析操作符，仅 or 为或，其余均为与
func ParseOperator(s string) Operator {
	if strings.EqualFold(strings.TrimSpace(s), string(Or)) {
		return Or
	}
	return And
}

// FieldName 去除 data. 前缀得到实际列名
func FieldName(name string) string {
	return strings.TrimPrefix(name, payloadPrefix)
}

// Retain 仅保留列名通过校验的字段，返回被丢弃的字段名
func (s *Spec) Retain(keep func(column string) bool) []string {
	var dropped []string
	for name := range s.Fields {
		if !keep(FieldName(name)) {
			dropped = append(dropped, name)
			delete(s.Fields, name)
		}
	}
	return dropped
}

// CoerceNumbers 将指定字段中的数字字符串转换为数值
// 字段名可带 data. 前缀，匹配时按列名比较
func (s *Spec) CoerceNumbers(fields ...string) {
	targets := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		targets[FieldName(f)] = struct{}{}
	}

	for name, field := range s.Fields {
		if _, ok := targets[FieldName(name)]; !ok {
			continue
		}
		coerced := make([]Constraint, len(field.Constraints))
		for i, c := range field.Constraints {
			coerced[i] = Constraint{Value: coerceNumber(c.Value), MatchMode: c.MatchMode}
		}
		field.Constraints = coerced
		s.Fields[name] = field
	}
}

func coerceNumber(v any) any {
	switch val := v.(type) {
	case string:
		trimmed := strings.TrimSpace(val)
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = coerceNumber(item)
		}
		return out
	}
	return v
}
