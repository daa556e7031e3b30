package dal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/filter"

	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// IDType 支持的 ID 类型约束
type IDType interface {
	~int | ~int64 | ~string
}

// ParseID 解析单个 ID，数值 ID 必须为正数
func ParseID[T IDType](s string) (T, error) {
	var zero T
	s = strings.TrimSpace(s)
	if s == "" {
		return zero, apperrors.BadRequest("id is required")
	}

	if _, ok := any(zero).(string); ok {
		return any(s).(T), nil
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return zero, apperrors.BadRequest(fmt.Sprintf("invalid id %q", s))
	}

	switch any(zero).(type) {
	case int:
		return any(int(v)).(T), nil
	case int64:
		return any(v).(T), nil
	}
	return zero, apperrors.BadRequest("unsupported id type")
}

// GetIDParam 从路由参数获取 ID
func GetIDParam[T IDType](ctx *fiber.Ctx, paramName string) (T, error) {
	return ParseID[T](ctx.Params(paramName))
}

// Validate 校验结构体
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(errs))
			for _, fe := range errs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			return apperrors.Validation(strings.Join(msgs, "; "))
		}
		return apperrors.Validation(err.Error())
	}
	return nil
}

// BindBody 解析并校验请求体
func BindBody(ctx *fiber.Ctx, dst any) error {
	if err := ctx.BodyParser(dst); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	return Validate(dst)
}

// BindListQuery 从请求参数绑定列表查询
// filters 解析失败时忽略该部分，错误记录在 FilterErr
// 请求参数的字符串引用 fasthttp 缓冲区，保留前需复制
func BindListQuery(ctx *fiber.Ctx) (ListQuery, error) {
	var q ListQuery

	var err error
	if q.Page, err = optionalInt(ctx.Query("page"), "page"); err != nil {
		return q, err
	}
	if q.Limit, err = optionalInt(ctx.Query("limit"), "limit"); err != nil {
		return q, err
	}
	q.SortOrder = leadingInt(ctx.Query("sortOrder"))
	q.SortField = strings.Clone(strings.TrimSpace(ctx.Query("sortField")))

	q.Filters, q.FilterErr = filter.Parse(ctx.Query("filters"))

	for _, name := range strings.Split(ctx.Query("relations"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			q.Relations = append(q.Relations, strings.Clone(name))
		}
	}

	if err := Validate(&q); err != nil {
		return q, err
	}
	return q, nil
}

// leadingInt 取开头的整数部分，无法解析时为 0（降序）
func leadingInt(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	start := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 0
	}
	return n
}

func optionalInt(raw, name string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("%s must be a number", name))
	}
	return &n, nil
}
