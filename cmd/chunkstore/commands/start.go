package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/chunkstore/internal/logger"
	"github.com/marmos91/chunkstore/pkg/api"
	"github.com/marmos91/chunkstore/pkg/chunk"
	"github.com/marmos91/chunkstore/pkg/config"
	"github.com/marmos91/chunkstore/pkg/metrics"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the chunkstore server",
	Long: `Start the chunkstore server with the configured substrate store,
REST API, and optional Prometheus metrics endpoint.

The server shuts down gracefully on SIGINT or SIGTERM, bounded by the
configured shutdown timeout.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/chunkstore/config.yaml)")
}

func runStart(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	// Initialize the structured logger
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("configuration loaded",
		"log_level", cfg.Logging.Level,
		"store", cfg.Store.Type,
		"default_batch_size", cfg.Engine.DefaultBatchSize,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics FIRST so the engine picks up a live recorder
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(cfg.Metrics)
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics collection disabled")
	}

	store, err := config.CreateStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	engine := chunk.New(store,
		chunk.WithDefaultBatchSize(cfg.Engine.DefaultBatchSize),
		chunk.WithMetrics(metrics.NewEngineMetrics()),
	)

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.API.IsEnabled() {
		apiServer := api.NewServer(cfg.API, engine, store)
		logger.Info("API server enabled", "port", apiServer.Port())
		group.Go(func() error {
			return apiServer.Start(groupCtx)
		})
	} else {
		logger.Info("API server disabled")
	}

	if metricsServer != nil {
		group.Go(func() error {
			return metricsServer.Start(groupCtx)
		})
	}

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("server is running. Press Ctrl+C to stop.")

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- group.Wait()
	}()

	select {
	case <-sigChan:
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()

		shutdownTimer := make(chan struct{})
		go func() {
			<-serverDone
			close(shutdownTimer)
		}()

		select {
		case <-shutdownTimer:
			logger.Info("server stopped gracefully")
		case <-time.After(cfg.ShutdownTimeout):
			logger.Error("shutdown timed out", "timeout", cfg.ShutdownTimeout.String())
			return fmt.Errorf("shutdown timed out after %s", cfg.ShutdownTimeout)
		}

	case err := <-serverDone:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("server stopped")
	}

	return nil
}
