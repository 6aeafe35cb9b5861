package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shopwire/shopwire-backend/api/controllers"
	"github.com/shopwire/shopwire-backend/api/routes"
	consumers "github.com/shopwire/shopwire-backend/internal/consumers/feed"
	"github.com/shopwire/shopwire-backend/internal/dispatcher"
	"github.com/shopwire/shopwire-backend/internal/feed"
	"github.com/shopwire/shopwire-backend/internal/live"
	"github.com/shopwire/shopwire-backend/internal/registry"
	"github.com/shopwire/shopwire-backend/internal/shops"
	"github.com/shopwire/shopwire-backend/pkg/config"
	"github.com/shopwire/shopwire-backend/pkg/db"
	"github.com/shopwire/shopwire-backend/pkg/logger"
	"github.com/shopwire/shopwire-backend/pkg/metrics"
	"github.com/shopwire/shopwire-backend/pkg/migrate"
	"github.com/shopwire/shopwire-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	feedMetrics := metrics.NewFeedMetrics(prometheus.DefaultRegisterer)

	feedService, err := feed.NewService(feed.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create feed service", err)
		os.Exit(1)
	}
	shopService, err := shops.NewService(shops.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create shops service", err)
		os.Exit(1)
	}

	connections := registry.New()
	hub, err := live.NewHub(connections, logg, feedMetrics, cfg.Stream)
	if err != nil {
		logg.Error(context.Background(), "failed to create live hub", err)
		os.Exit(1)
	}

	feedDispatcher, err := dispatcher.New(feedService, shopService, connections, hub, logg, feedMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The registry is process-local, so domain events must be consumed in
	// the same process that holds the live connections.
	if cfg.PubSub.DomainSubscription != "" {
		pubsubClient, psErr := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if psErr != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", psErr)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()

		consumer, consErr := consumers.NewConsumer(feedDispatcher, pubsubClient.DomainSubscription(), logg)
		if consErr != nil {
			logg.Error(ctx, "failed to create feed consumer", consErr)
			os.Exit(1)
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "feed consumer stopped unexpectedly", err)
			}
		}()
	}

	router := routes.NewRouter(routes.RouterParams{
		Config:     cfg,
		Logger:     logg,
		Dispatcher: feedDispatcher,
		Feed:       feedService,
		Hub:        hub,
		Readiness:  map[string]controllers.Pinger{"database": dbClient},
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
