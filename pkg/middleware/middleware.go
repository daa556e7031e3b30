package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/metrics"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
)

// 上下文键
const (
	LocalRequestID   = "requestId"
	LocalUserID      = "userId"
	LocalEmail       = "email"
	LocalClaims      = "claims"
	LocalTenant      = "tenant"
	LocalModule      = "module"
	LocalPermissions = "permissions"
	LocalRoleIDs     = "roleIds"
)

// HeaderRequestID 请求ID头
const HeaderRequestID = "X-Request-ID"

// Recovery 恢复中间件
func Recovery(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.Any("error", r),
					zap.String("path", c.Path()),
					zap.String("method", c.Method()),
					zap.Stack("stack"),
				)
				err = response.Error(c, fiber.StatusInternalServerError, "internal server error")
			}
		}()
		return c.Next()
	}
}

// Cors 跨域中间件，未配置来源时允许全部
func Cors(allowOrigins []string) fiber.Handler {
	origins := strings.Join(allowOrigins, ",")
	if origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, X-Requested-With, Content-Type, Accept, Authorization, X-Request-ID",
		ExposeHeaders:    HeaderRequestID,
		AllowCredentials: origins != "*",
	})
}

// RateLimit 按客户端IP限流
func RateLimit(max int, expiration time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, "too many requests")
		},
	})
}

// RequestID 请求ID中间件
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := strings.Clone(c.Get(HeaderRequestID))
		if requestID == "" {
			requestID = utils.UUID()
		}
		c.Locals(LocalRequestID, requestID)
		c.Set(HeaderRequestID, requestID)
		return c.Next()
	}
}

// GetRequestID 从上下文获取请求ID
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalRequestID).(string)
	return id
}

// RequestLogger 请求日志中间件
func RequestLogger(log *zap.Logger, skipPaths ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if utils.Contains(skipPaths, c.Path()) {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", statusOf(c, err)),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if id := GetRequestID(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if userID := GetUserID(c); userID != 0 {
			fields = append(fields, zap.Int64("user_id", userID))
		}
		log.Info("request", fields...)
		return err
	}
}

// Metrics 请求指标中间件，按路由模板统计
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		m.Requests.WithLabelValues(c.Method(), route, fmt.Sprint(statusOf(c, err))).Inc()
		m.Duration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// NewErrorHandler 统一错误处理
func NewErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return response.Error(c, fe.Code, fe.Message)
		}
		return response.Fail(c, log, err)
	}
}

// statusOf 处理链返回错误时响应尚未写入，按错误推断状态码
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperrors.GetCode(err)
}
