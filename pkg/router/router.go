package router

import (
	"github.com/portalback/pkg/middleware"

	"github.com/gofiber/fiber/v2"
)

// Route 路由配置
type Route struct {
	Method      string          // HTTP方法
	Path        string          // 相对于前缀的路径
	Permission  string          // 需要的权限键，为空时只校验模块
	Handler     fiber.Handler   // 处理函数
	Middlewares []fiber.Handler // 路由级中间件
}

// Registrar 路由注册器接口
type Registrar interface {
	// Prefix 返回路由前缀
	Prefix() string
	// Module 返回模块键，为空表示不做模块权限校验
	Module() string
	// Routes 返回路由配置列表
	Routes() []Route
}

// Register 自动注册路由
// 有模块键的控制器依次经过 authn 中间件、模块权限解析和路由权限校验
func Register(app fiber.Router, guard *middleware.Guard, authn []fiber.Handler, controllers ...Registrar) {
	for _, ctrl := range controllers {
		var g fiber.Router
		if module := ctrl.Module(); module != "" {
			handlers := append(append([]fiber.Handler{}, authn...), guard.Module(module))
			g = app.Group(ctrl.Prefix(), handlers...)
		} else {
			g = app.Group(ctrl.Prefix())
		}

		for _, route := range ctrl.Routes() {
			g.Add(route.Method, route.Path, buildHandlers(guard, route)...)
		}
	}
}

// buildHandlers 构建处理器链(中间件 + 权限 + 处理函数)
func buildHandlers(guard *middleware.Guard, route Route) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(route.Middlewares)+2)
	handlers = append(handlers, route.Middlewares...)
	if route.Permission != "" {
		handlers = append(handlers, guard.Require(route.Permission))
	}
	return append(handlers, route.Handler)
}
