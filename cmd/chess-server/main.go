package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/chessmaster/internal/chessbuilder"
	"github.com/park285/chessmaster/internal/config"
	"github.com/park285/chessmaster/internal/httpapi"
	"github.com/park285/chessmaster/internal/obslog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chess-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := chessbuilder.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("chess init error: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("deps_close_error", zap.Error(err))
		}
	}()

	api := httpapi.New(deps.Manager, httpapi.Options{
		Feed:           deps.Feed(),
		Catalog:        deps.Catalog,
		Renderer:       deps.Renderer,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if deps.Relay != nil {
		g.Go(func() error { return deps.Relay.Run(gctx, nil) })
	}
	g.Go(func() error {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("http_shutdown", zap.Duration("timeout", cfg.ShutdownTimeout))
		api.Hub().Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
