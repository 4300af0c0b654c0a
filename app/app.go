package app

import (
	"context"
	"net"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/searchktools/minihttp/config"
	"github.com/searchktools/minihttp/core"
	"github.com/searchktools/minihttp/core/logging"
	"github.com/searchktools/minihttp/core/middleware"
	"github.com/searchktools/minihttp/core/pools"
	"github.com/searchktools/minihttp/core/store"
	"github.com/searchktools/minihttp/handlers"
)

// App is the message server: engine, store and handlers wired from a Config
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	engine *core.Engine
}

// New creates an application instance with a logger built from cfg
func New(cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return NewWithLogger(cfg, logger), nil
}

// NewWithLogger creates an application instance using logger
func NewWithLogger(cfg *config.Config, logger *zap.Logger) *App {
	opts := []core.Option{
		core.WithLogger(logger.Named("engine")),
		core.WithWorkers(cfg.Workers),
		core.WithReadTimeout(cfg.ReadTimeout),
		core.WithWriteTimeout(cfg.WriteTimeout),
		core.WithMaxBodyBytes(cfg.MaxBodyBytes),
		core.WithReusePort(cfg.ReusePort),
	}
	if cfg.QueueCapacity > 0 {
		opts = append(opts, core.WithQueue(pools.NewBoundedQueue(cfg.QueueCapacity)))
	}
	engine := core.NewEngine(opts...)

	a := &App{
		cfg:    cfg,
		logger: logger,
		store:  store.New(),
		engine: engine,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Metrics(engine.Monitor()),
		middleware.Recovery(logger.Named("recovery")),
	)
	handlers.Register(engine, a.store, a.Stats, logger.Named("handlers"))

	return a
}

// Engine returns the underlying engine for extra route registration
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Store returns the message store
func (a *App) Store() *store.Store {
	return a.store
}

// Stats is the snapshot served on GET /stats
func (a *App) Stats() any {
	return map[string]any{
		"engine":      a.engine.Stats(),
		"routes":      a.engine.Monitor().Snapshot(),
		"bottlenecks": a.engine.Monitor().Bottlenecks(),
		"messages":    a.store.Len(),
	}
}

// Run listens on the configured port until ctx is done or SIGINT/SIGTERM
// arrives, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.engine.Listen(a.cfg.Port, func() {
			a.logger.Info("message server started",
				zap.Int("port", a.cfg.Port),
				zap.String("env", a.cfg.Env),
				zap.Int("workers", a.cfg.Workers))
		})
	}()

	return a.wait(ctx, errCh)
}

// Serve is Run on an existing listener, without signal handling
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.engine.Serve(ln)
	}()

	return a.wait(ctx, errCh)
}

func (a *App) wait(ctx context.Context, errCh <-chan error) error {
	select {
	case err := <-errCh:
		if errors.Is(err, core.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", zap.Duration("timeout", a.cfg.ShutdownTimeout))
	sctx := context.Background()
	if a.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(sctx, a.cfg.ShutdownTimeout)
		defer cancel()
	}

	if err := a.engine.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, core.ErrServerClosed) {
		return err
	}
	_ = a.logger.Sync()
	return nil
}
