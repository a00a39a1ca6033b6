package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/visitor-insights/internal/api"
	"github.com/ignite/visitor-insights/internal/app"
	"github.com/ignite/visitor-insights/internal/config"
	"github.com/ignite/visitor-insights/internal/pkg/logger"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %w", addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to YAML config (optional)")
	flag.Parse()

	path := *configPath
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	addr := cfg.Server.Addr()
	if err := checkPortAvailable(addr); err != nil {
		logger.Error("pre-flight check failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	store := a.SnapshotStore()
	refresher, err := a.Refresher(store)
	if err != nil {
		logger.Error("failed to build visitor source", "source", cfg.Source.Type, "error", err)
		os.Exit(1)
	}
	go refresher.Start(ctx)

	assistantSvc, err := a.Assistant(ctx, refresher)
	if err != nil {
		logger.Error("failed to initialize assistant", "provider", cfg.Assistant.Provider, "error", err)
		os.Exit(1)
	}
	logger.Info("assistant ready", "provider", cfg.Assistant.Provider, "model", assistantSvc.ModelID())

	handlers := api.NewHandlers(refresher, assistantSvc, api.NewImportHandler(a.Adapter(), a.Resolver()))
	health := api.NewHealthChecker(a.Postgres, a.Redis, store, 3*cfg.Snapshot.Interval())
	server := api.NewServer(cfg.Server, handlers, health)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", addr, "source", cfg.Source.Type)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
