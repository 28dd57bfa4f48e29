package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookstore/storefront/internal/events"
	grpcserver "github.com/bookstore/storefront/internal/grpc"
	"github.com/bookstore/storefront/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// purgeAfter is how long applied intents stay in the log.
const purgeAfter = 7 * 24 * time.Hour

func serveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the session engine with ops HTTP and gRPC health endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := g.setup()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	log := a.log
	cfg := a.cfg
	log.Info("Storefront starting", zap.String("api", a.client.BaseURL()))

	// Notifications fan out in process; the publisher mirrors them to RabbitMQ
	bus := events.NewBus()
	var reporter grpcserver.Reporter
	if cfg.RabbitMQURL != "" {
		log.Info("Connecting to RabbitMQ")
		publisher, err := events.NewPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			log.Warn("RabbitMQ unavailable, notifications stay local", zap.Error(err))
		} else {
			defer publisher.Close()
			reporter = publisher
			notifications, cancel := bus.Subscribe(256)
			defer cancel()
			go publisher.Forward(ctx, notifications)
		}
	}

	st := a.newStore(bus)

	// Server events invalidate cached collections
	if cfg.RabbitMQURL != "" {
		consumer, err := events.NewConsumer(cfg.RabbitMQURL, cfg.ServiceName, invalidationHandlers(st), log)
		if err != nil {
			log.Warn("RabbitMQ consumer unavailable, relying on periodic refresh", zap.Error(err))
		} else {
			defer consumer.Close()
			go func() {
				if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
					log.Error("Event consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	// Load catalog and restore the session
	res, err := st.Bootstrap(ctx)
	switch {
	case err != nil:
		log.Warn("Session restore failed, continuing as guest", zap.Error(err))
	case res == nil, res.User == nil:
		log.Info("No session to restore, continuing as guest")
	default:
		log.Info("Session restored",
			zap.Int64("user_id", res.User.ID),
			zap.Int("intents_applied", res.Replay.Applied),
			zap.Int("intents_failed", res.Replay.Failed),
		)
	}

	go a.refreshLoop(ctx, st)

	// Create gRPC server
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(log)),
	)
	healthServer := grpcserver.NewHealthServer(a.database, reporter, log)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen on gRPC port: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("Starting gRPC server", zap.String("address", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("serve gRPC: %w", err)
		}
	}()

	// Start HTTP ops server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      newOpsRouter(st, healthServer, a.intents, a.registry, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve HTTP: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case runErr = <-errCh:
		log.Error("Server failed", zap.Error(runErr))
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	grpcServer.GracefulStop()

	log.Info("Server stopped")
	return runErr
}

// refreshLoop reloads the catalog and purges old applied intents every RefreshInterval.
func (a *app) refreshLoop(ctx context.Context, st *store.Store) {
	if a.cfg.RefreshInterval <= 0 {
		return
	}
	ticker := time.NewTicker(a.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := st.RefreshBooks(ctx); err != nil && ctx.Err() == nil {
				a.log.Warn("Catalog refresh failed", zap.Error(err))
			}
			purged, err := a.intents.PurgeApplied(ctx, time.Now().Add(-purgeAfter))
			if err != nil {
				a.log.Warn("Intent purge failed", zap.Error(err))
			} else if purged > 0 {
				a.log.Info("Purged applied intents", zap.Int64("count", purged))
			}
		}
	}
}

// invalidationHandlers refetch what a server event made stale.
func invalidationHandlers(st *store.Store) events.Handlers {
	return events.Handlers{
		Catalog: func(ctx context.Context, _ events.Event) error {
			_, err := st.RefreshBooks(ctx)
			return err
		},
		Order: func(ctx context.Context, _ events.Event) error {
			if st.User() == nil {
				return nil
			}
			_, err := st.FetchOrders(ctx, nil)
			return err
		},
	}
}
