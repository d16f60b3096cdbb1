// Package server assembles the HTTP handlers and runs the service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/contractwizard/internal/eventbus"
	"github.com/matthewbaird/contractwizard/internal/handler"
	"github.com/matthewbaird/contractwizard/internal/service"
	"github.com/matthewbaird/contractwizard/internal/session"
	"github.com/matthewbaird/contractwizard/internal/wire"
)

// Config holds server configuration.
type Config struct {
	Port           int
	Service        *service.Service
	Sessions       *session.Manager
	SweepInterval  time.Duration
	Logger         *zap.Logger
	AllowedOrigins []string

	// Bus may be nil.
	Bus *eventbus.Bus
	// Listener overrides Port when set.
	Listener net.Listener
}

// NewRouter registers all routes.
func NewRouter(svc *service.Service, log *zap.Logger, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Recovery(log))
	r.Use(handler.Logging(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	handler.NewWizardHandler(svc, log).Routes(r, wire.NewHandler(svc, log, origins))
	return r
}

// Run starts the HTTP server, the session sweeper and the event bus, and
// blocks until ctx is cancelled or one of them fails.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ln := cfg.Listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}
	srv := &http.Server{
		Handler:           NewRouter(cfg.Service, log, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if cfg.Bus != nil {
		cfg.Bus.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return cfg.Sessions.Run(gctx, cfg.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if cfg.Bus != nil {
			cfg.Bus.Stop()
		}
		log.Info("server stopped")
		return err
	})
	return g.Wait()
}
