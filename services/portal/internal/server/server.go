// Package server 组装门户HTTP应用
package server

import (
	"context"
	"fmt"
	"time"

	pkgAuth "github.com/portalback/pkg/auth"
	"github.com/portalback/pkg/config"
	"github.com/portalback/pkg/database"
	"github.com/portalback/pkg/erp"
	"github.com/portalback/pkg/metrics"
	"github.com/portalback/pkg/middleware"
	"github.com/portalback/pkg/response"
	"github.com/portalback/pkg/router"
	"github.com/portalback/services/portal/internal/access"
	"github.com/portalback/services/portal/internal/address"
	"github.com/portalback/services/portal/internal/auth"
	"github.com/portalback/services/portal/internal/category"
	"github.com/portalback/services/portal/internal/client"
	"github.com/portalback/services/portal/internal/company"
	"github.com/portalback/services/portal/internal/module"
	"github.com/portalback/services/portal/internal/order"
	"github.com/portalback/services/portal/internal/permission"
	"github.com/portalback/services/portal/internal/product"
	"github.com/portalback/services/portal/internal/profile"
	"github.com/portalback/services/portal/internal/role"
	"github.com/portalback/services/portal/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps 应用依赖
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	// Cache 为 nil 时不缓存ERP价格
	Cache *database.Cache
	// ERP 为 nil 且配置了ERP地址时按配置创建客户端
	ERP erp.Client
	Log *zap.Logger
}

// Server 门户应用
type Server struct {
	App     *fiber.App
	Metrics *metrics.Metrics
	ERP     erp.Client
}

// checker 可校验关联描述表的集合
type checker interface {
	Check() error
}

// checkCollections 任一集合的关联描述与模型不一致时拒绝启动
func checkCollections(cols ...checker) error {
	for _, col := range cols {
		if err := col.Check(); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	return nil
}

// New 创建应用并注册全部路由，集合描述校验失败时返回错误
func New(d Deps) (*Server, error) {
	cfg := d.Config
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           time.Duration(cfg.Server.HTTP.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.HTTP.WriteTimeout) * time.Second,
		ErrorHandler:          middleware.NewErrorHandler(log),
	})

	app.Use(middleware.Recovery(log))
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log.Named("http"), "/health", "/metrics"))
	app.Use(middleware.Cors(cfg.Server.HTTP.AllowOrigins))
	if cfg.RateLimit.Enabled {
		app.Use(middleware.RateLimit(cfg.RateLimit.Max, cfg.RateLimit.Expiration))
	}
	app.Use(middleware.Metrics(m))

	app.Get("/health", health(d.DB, cfg.App))
	app.Get("/metrics", m.Handler())

	erpClient := d.ERP
	if erpClient == nil && cfg.ERP.Enabled() {
		rpc := erp.NewRPCClient(cfg.ERP, log, erp.WithMetrics(m))
		erpClient = erp.NewCachedPricing(rpc, d.Cache, cfg.ERP.PriceCacheTTL, log)
	}

	db := d.DB
	jwt := pkgAuth.NewJWTManager(cfg.JWT)
	resolver := access.NewResolver(db)
	guard := middleware.NewGuard(resolver, m, log)
	tenants := company.NewTenantResolver(company.NewRepository(db), cfg.Tenant.DefaultKey, log)
	authn := []fiber.Handler{
		middleware.JWTAuth(jwt, log),
		middleware.Tenant(tenants, log),
	}

	users := user.NewRepository(db, log)
	clients := client.NewRepository(db, log)
	products := product.NewRepository(db, log)
	modules := module.NewRepository(db, log)
	roles := role.NewRepository(db, log)
	permissions := permission.NewRepository(db, log)
	categories := category.NewRepository(db, log)
	orders := order.NewRepository(db, log)
	addresses := address.NewRepository(db, log)

	err := checkCollections(
		users.Collection(), clients.Collection(), products.Collection(),
		modules.Collection(), roles.Collection(), permissions.Collection(),
		categories.Collection(), orders.Collection(), addresses.Collection(),
	)
	if err != nil {
		return nil, err
	}

	router.Register(app, guard, authn,
		auth.NewController(users, jwt, log),
		profile.NewController(users, resolver, authn, log),
		module.NewController(modules, log),
		role.NewController(roles, role.NewUserRoleRepository(db), users, log),
		permission.NewController(permissions, resolver, log),
		user.NewController(users, log),
		client.NewController(clients, users, log),
		category.NewController(categories, log),
		product.NewController(products, clients, erpClient, log),
		order.NewController(orders, products, clients, erpClient, log),
		address.NewController(addresses, clients, log),
	)

	app.Use(func(c *fiber.Ctx) error {
		return response.Error(c, fiber.StatusNotFound, "route not found")
	})

	return &Server{App: app, Metrics: m, ERP: erpClient}, nil
}

// health 健康检查，数据库不可达时返回503
func health(db *gorm.DB, app config.AppConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, code := "healthy", fiber.StatusOK
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			err = sqlDB.PingContext(ctx)
			cancel()
		}
		if err != nil {
			status, code = "unhealthy", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":  status,
			"service": app.Name,
			"version": app.Version,
			"time":    time.Now().Format(time.RFC3339),
		})
	}
}
