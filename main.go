package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Saraahamrr/bulk-shipping-platform/internal/server"
	"github.com/Saraahamrr/bulk-shipping-platform/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "bulkship",
	Short:   "Bulk shipping label platform - CSV import, service assignment, and label purchase",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the simulation backend server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	store, err := server.OpenStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	// A default account so the workflow works out of the box.
	if _, err := store.GetProfile("demo"); err != nil {
		if err := store.CreateUser("demo", "demo@example.com", "demo"); err != nil {
			logger.Warn("Failed to seed demo user", zap.Error(err))
		}
	}

	logger.Info("Starting bulk shipping simulation backend",
		zap.Int("port", cfg.Port),
		zap.String("db", cfg.DBPath),
		zap.String("version", cfg.Version),
	)

	srv := server.New(server.Config{Port: cfg.Port}, store, logger, telemetry.NewMetrics())
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
