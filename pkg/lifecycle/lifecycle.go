// Package lifecycle 服务生命周期管理
//
// 启动顺序: start 钩子 -> 监听端口 -> ready 钩子，收到退出信号或上下文取消后
// 先关闭HTTP服务再按注册的逆序执行 stop 钩子。
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Event 生命周期事件
type Event string

const (
	EventStarting Event = "starting"
	EventReady    Event = "ready"
	EventStopping Event = "stopping"
	EventStopped  Event = "stopped"
)

// Hook 生命周期钩子
type Hook func(ctx context.Context, s *Service) error

// Options 服务配置
type Options struct {
	Name            string
	Address         string
	Listener        net.Listener
	ShutdownTimeout time.Duration
	Log             *zap.Logger
}

// Service HTTP服务包装器
type Service struct {
	opts    Options
	app     *fiber.App
	log     *zap.Logger
	onStart []Hook
	onReady []Hook
	onStop  []Hook
	events  []func(Event)
}

// NewService 创建服务
func NewService(opts Options, app *fiber.App) *Service {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{opts: opts, app: app, log: log.Named("lifecycle")}
}

// Name 服务名称
func (s *Service) Name() string { return s.opts.Name }

// App Fiber应用
func (s *Service) App() *fiber.App { return s.app }

// OnStart 注册启动钩子，在监听端口前执行
func (s *Service) OnStart(fn Hook) { s.onStart = append(s.onStart, fn) }

// OnReady 注册就绪钩子，在监听端口后执行
func (s *Service) OnReady(fn Hook) { s.onReady = append(s.onReady, fn) }

// OnStop 注册停止钩子
func (s *Service) OnStop(fn Hook) { s.onStop = append(s.onStop, fn) }

// OnEvent 监听生命周期事件
func (s *Service) OnEvent(fn func(Event)) { s.events = append(s.events, fn) }

func (s *Service) emit(e Event) {
	s.log.Debug("lifecycle event", zap.String("service", s.opts.Name), zap.String("event", string(e)))
	for _, fn := range s.events {
		fn(e)
	}
}

// Run 运行服务直到收到 SIGINT/SIGTERM 或 ctx 被取消
func (s *Service) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.emit(EventStarting)
	for _, fn := range s.onStart {
		if err := fn(ctx, s); err != nil {
			return fmt.Errorf("start hook: %w", err)
		}
	}

	ln := s.opts.Listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", s.opts.Address); err != nil {
			return fmt.Errorf("listen %s: %w", s.opts.Address, err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("service listening", zap.String("service", s.opts.Name), zap.String("address", ln.Addr().String()))
		errCh <- s.app.Listener(ln)
	}()

	for _, fn := range s.onReady {
		if err := fn(ctx, s); err != nil {
			_ = s.shutdown()
			return fmt.Errorf("ready hook: %w", err)
		}
	}
	s.emit(EventReady)

	select {
	case <-ctx.Done():
		s.log.Info("shutting down", zap.String("service", s.opts.Name))
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("server: %w", err)
		}
	}
	return s.shutdown()
}

// shutdown 关闭HTTP服务并执行停止钩子，钩子失败只记录日志
func (s *Service) shutdown() error {
	s.emit(EventStopping)
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}
	for i := len(s.onStop) - 1; i >= 0; i-- {
		if err := s.onStop[i](ctx, s); err != nil {
			s.log.Error("stop hook failed", zap.Error(err))
		}
	}
	s.emit(EventStopped)
	s.log.Info("service stopped", zap.String("service", s.opts.Name))
	return errors.Join(errs...)
}
