package main

import (
	"context"

	"github.com/Saraahamrr/bulk-shipping-platform/internal/config"
	"github.com/Saraahamrr/bulk-shipping-platform/internal/localstate"
	"github.com/Saraahamrr/bulk-shipping-platform/internal/session"
	"github.com/Saraahamrr/bulk-shipping-platform/internal/telemetry"
	"github.com/Saraahamrr/bulk-shipping-platform/internal/workflow"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/backend"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

// app bundles everything a client-side command needs: config, logger, the
// durable local state, the backend client, and the workflow coordinator.
type app struct {
	cfg    *config.Config
	logger *otelzap.Logger
	state  *localstate.Store
	client *backend.Client
	coord  *workflow.Coordinator
}

// newApp wires up the client side. Callers must Close.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	state, err := localstate.Open(cfg.StatePath)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	client := backend.New(backend.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout,
	}, state, logger)

	store := session.NewStore()
	coord := workflow.New(client, store, state, logger, telemetry.NewMetrics())

	return &app{
		cfg:    cfg,
		logger: logger,
		state:  state,
		client: client,
		coord:  coord,
	}, nil
}

func (a *app) Close() {
	a.state.Close()
	a.logger.Sync()
}
