package main

import (
	"fmt"

	"github.com/bookstore/storefront/internal/api"
	"github.com/bookstore/storefront/internal/config"
	"github.com/bookstore/storefront/internal/db"
	"github.com/bookstore/storefront/internal/events"
	"github.com/bookstore/storefront/internal/repo"
	"github.com/bookstore/storefront/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// app bundles the dependencies every subcommand builds the same way.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	database *db.DB
	intents  *repo.IntentRepository
	client   *api.Client
	registry *prometheus.Registry
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	log.Info("Connecting to intent database...")
	database, err := db.Connect(cfg.StateDSN)
	if err != nil {
		return nil, fmt.Errorf("connect intent database: %w", err)
	}
	log.Info("Intent database connected", zap.String("driver", database.Driver()))

	if err := db.RunMigrations(database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	client, err := api.NewClient(api.Options{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		RateLimit: cfg.APIRateLimit,
		Burst:     cfg.APIRateBurst,
		Logger:    log.Named("api"),
	})
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &app{
		cfg:      cfg,
		log:      log,
		database: database,
		intents:  repo.NewIntentRepository(database, log.Named("intents")),
		client:   client,
		registry: registry,
	}, nil
}

// newStore builds a store over the app's client and intent log.
func (a *app) newStore(notifier events.Notifier) *store.Store {
	return store.New(store.Options{
		API:      a.client,
		Intents:  a.intents,
		Notifier: notifier,
		Logger:   a.log.Named("store"),
		Metrics:  store.NewMetrics(a.registry),
	})
}

func (a *app) Close() {
	if err := a.database.Close(); err != nil {
		a.log.Warn("Failed to close intent database", zap.Error(err))
	}
	_ = a.log.Sync()
}
