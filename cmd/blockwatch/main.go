// Package main wires together the blockwatch crawler binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fedistat/blockwatch/internal/api"
	"github.com/fedistat/blockwatch/internal/app"
	"github.com/fedistat/blockwatch/internal/config"
	"github.com/fedistat/blockwatch/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("app init failed", zap.Error(err))
		os.Exit(1)
	}
	defer application.Close()

	var srv *http.Server
	if cfg.Server.Port > 0 {
		apiServer := api.NewServer(application, application.Registry(), logger.Named("api"))
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("http server started", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", zap.Error(err))
			}
		}()
	}

	summary, runErr := application.Run(ctx)
	if runErr != nil {
		logger.Error("run failed", zap.Error(runErr))
	} else {
		logger.Info("crawl stored",
			zap.String("run_id", summary.RunID),
			zap.Int64("nodes_discovered", summary.NodesDiscovered),
			zap.Int64("rules_collected", summary.RulesCollected),
			zap.Int("rules_stored", summary.RulesStored),
		)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")

	if runErr != nil {
		os.Exit(1)
	}
}
