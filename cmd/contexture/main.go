package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/seralab/contexture/internal/engine"
	"github.com/seralab/contexture/internal/schema"
	"github.com/seralab/contexture/internal/server"
	"github.com/seralab/contexture/pkg/config"
	"github.com/seralab/contexture/pkg/logger"
	"github.com/seralab/contexture/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	loadPath := flag.String("load", "", "index snapshot to load on startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting contexture", "port", cfg.Server.Port)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	eng := engine.New(cfg.Engine, schema.DefaultRegistry(), m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *loadPath != "" {
		if _, err := eng.Execute(ctx, engine.LoadIx{Path: *loadPath}); err != nil {
			slog.Error("failed to load index snapshot", "path", *loadPath, "error", err)
			os.Exit(1)
		}
		slog.Info("index snapshot loaded", "path", *loadPath)
	}

	var cache *server.QueryCache
	if cfg.Cache.Enabled {
		cache, err = server.NewQueryCache(cfg.Cache.Size, m)
		if err != nil {
			slog.Error("failed to create query cache", "error", err)
			os.Exit(1)
		}
		slog.Info("query cache enabled", "size", cfg.Cache.Size)
	}

	srv := server.New(eng, cache, cfg.Server)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Handler(m),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Warn("metrics server shutdown failed", "error", err)
			}
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("stopped")
}
