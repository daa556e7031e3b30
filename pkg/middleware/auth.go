package middleware

import (
	"errors"
	"strings"

	"github.com/portalback/pkg/auth"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// JWTAuth JWT认证中间件
func JWTAuth(jwtManager *auth.JWTManager, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(fiber.HeaderAuthorization)
		if token == "" {
			token = c.Query("token")
		}
		token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
		if token == "" {
			return response.Fail(c, log, apperrors.ErrUnauthorized)
		}

		claims, err := jwtManager.ParseToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				return response.Fail(c, log, apperrors.ErrTokenExpired)
			}
			return response.Fail(c, log, apperrors.ErrTokenInvalid)
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalEmail, claims.Email)
		c.Locals(LocalClaims, claims)
		return c.Next()
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(LocalUserID).(int64)
	return id
}

// GetEmail 从上下文获取邮箱
func GetEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(LocalEmail).(string)
	return email
}

// GetClaims 从上下文获取令牌声明
func GetClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(LocalClaims).(*auth.Claims)
	return claims
}
