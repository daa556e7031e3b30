package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误分类
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation_failed"
	KindBadRequest   Kind = "bad_request"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

// 预定义错误
var (
	ErrUnauthorized      = New(KindUnauthorized, "unauthorized")
	ErrForbidden         = New(KindForbidden, "forbidden")
	ErrInvalidCredential = New(KindUnauthorized, "invalid email or password")
	ErrTokenExpired      = New(KindUnauthorized, "token expired")
	ErrTokenInvalid      = New(KindUnauthorized, "token invalid")
	ErrUnknownModule     = New(KindForbidden, "module is not accessible")
)

// AppError 应用错误
type AppError struct {
	Kind    Kind   `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 解包错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 同类错误视为相等
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// StatusOf 错误分类对应的HTTP状态码
func StatusOf(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// New 创建新错误
func New(kind Kind, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    StatusOf(kind),
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, kind Kind, message string) *AppError {
	e := New(kind, message)
	e.Err = err
	return e
}

// Is 检查是否为指定错误
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 类型转换错误
func As(err error, target any) bool {
	return errors.As(err, target)
}

// KindOf 获取错误分类，非应用错误视为内部错误
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind 判断错误分类
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// GetCode 获取错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// GetMessage 获取对外错误消息，不暴露底层原因
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// NotFound 创建未找到错误
func NotFound(resource string) *AppError {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource))
}

// Conflict 创建冲突错误
func Conflict(message string) *AppError {
	return New(KindConflict, message)
}

// Duplicate 创建重复错误
func Duplicate(field string) *AppError {
	return New(KindConflict, fmt.Sprintf("%s already exists", field))
}

// BadRequest 创建请求错误
func BadRequest(message string) *AppError {
	return New(KindBadRequest, message)
}

// Unauthorized 创建未授权错误
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return New(KindUnauthorized, message)
}

// Forbidden 创建禁止访问错误
func Forbidden(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return New(KindForbidden, message)
}

// Validation 创建验证错误
func Validation(message string) *AppError {
	return New(KindValidation, message)
}

// Unavailable 创建外部依赖不可用错误
func Unavailable(message string, err error) *AppError {
	if message == "" {
		message = "service unavailable"
	}
	return Wrap(err, KindUnavailable, message)
}

// Internal 包装内部错误
func Internal(err error) *AppError {
	return Wrap(err, KindInternal, "internal server error")
}
