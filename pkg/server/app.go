package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Infinity/internal/domain/repository"
	mid "Infinity/internal/middleware"
	"Infinity/internal/usecase"
	"Infinity/pkg/config"
	xhttp "Infinity/pkg/http"
	applogger "Infinity/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	session    *usecase.Session
	events     *mid.EventPipeline
	store      repository.StateStore
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	session *usecase.Session,
	events *mid.EventPipeline,
	store repository.StateStore,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		session:    session,
		events:     events,
		store:      store,
	}
}

// Run starts the application and blocks until interrupted or the HTTP server fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	a.events.Start(ctx)
	if err := a.session.Start(ctx); err != nil {
		a.closeBackends()
		return fmt.Errorf("session start: %w", err)
	}
	a.l.Info("session started",
		applogger.Int("assets", len(a.session.Assets())),
		applogger.Duration("feed_period_ms", a.session.FeedPeriod()),
	)

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		_ = a.session.Close()
		a.closeBackends()
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case runErr = <-a.httpServer.Err():
		a.l.Error("http server failed", applogger.Error(runErr))
	}

	a.shutdown()
	return runErr
}

// shutdown stops intake first, then the feed, then flushes and closes the backends.
func (a *App) shutdown() {
	a.l.Info("shutting down...")

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if err := a.session.Close(); err != nil {
		a.l.Warn("session close error", applogger.Error(err))
	}
	a.closeBackends()

	a.l.Info("shutdown complete")
}

func (a *App) closeBackends() {
	if err := a.events.Close(); err != nil {
		a.l.Warn("event sink close error", applogger.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.l.Warn("state store close error", applogger.Error(err))
	}
}
