package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

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

// The event worker consumes the domain topic and appends to the durable
// log. It holds no stream connections, so appended events reach clients
// through catch-up or through the api instance that owns their stream.
func main() {
	logg := logger.New(logger.Options{ServiceName: "event-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "event-worker"

	logg = logger.New(logger.Options{
		ServiceName: "event-worker",
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	consumer, err := consumers.NewConsumer(feedDispatcher, pubsubClient.DomainSubscription(), logg)
	if err != nil {
		logg.Error(ctx, "failed to create feed consumer", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting event worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "event worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "event worker shutting down gracefully")
}
