package response

import (
	"net/http"

	apperrors "github.com/portalback/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Meta 列表元信息
type Meta struct {
	Total int64 `json:"total"`
}

// ListEnvelope 列表响应体
type ListEnvelope[T any] struct {
	Meta    Meta `json:"meta"`
	Results []T  `json:"results"`
}

// 响应消息定义
const (
	MsgSuccess = "success"
	MsgCreated = "created"
)

// Success 成功响应
func Success(c *fiber.Ctx, data any) error {
	return c.Status(http.StatusOK).JSON(Response{
		Code:    http.StatusOK,
		Message: MsgSuccess,
		Data:    data,
	})
}

// SuccessWithMessage 成功响应(带消息)
func SuccessWithMessage(c *fiber.Ctx, message string, data any) error {
	return c.Status(http.StatusOK).JSON(Response{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *fiber.Ctx, data any) error {
	return c.Status(http.StatusCreated).JSON(Response{
		Code:    http.StatusCreated,
		Message: MsgCreated,
		Data:    data,
	})
}

// List 列表响应
func List[T any](c *fiber.Ctx, total int64, results []T) error {
	if results == nil {
		results = []T{}
	}
	return Success(c, ListEnvelope[T]{Meta: Meta{Total: total}, Results: results})
}

// Error 错误响应
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Response{
		Code:    status,
		Message: message,
	})
}

// Fail 将错误映射为响应，底层原因只写日志
func Fail(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := apperrors.GetCode(err)
	if log != nil {
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		}
		if rid, ok := c.Locals("requestId").(string); ok {
			fields = append(fields, zap.String("request_id", rid))
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
		} else {
			log.Debug("request rejected", fields...)
		}
	}
	return Error(c, status, apperrors.GetMessage(err))
}

// BadRequest 请求错误
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, http.StatusBadRequest, message)
}

// Unauthorized 未授权
func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "unauthorized"
	}
	return Error(c, http.StatusUnauthorized, message)
}

// Forbidden 禁止访问
func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "forbidden"
	}
	return Error(c, http.StatusForbidden, message)
}
