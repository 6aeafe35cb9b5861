// Command publish-event pushes one domain event onto the shared topic. It
// exists for operators and producer services without their own Pub/Sub
// wiring: smoke-testing a deployment, backfilling a missed event, or
// exercising the consumer end to end.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	pubsubv2 "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/shopwire/shopwire-backend/pkg/config"
	"github.com/shopwire/shopwire-backend/pkg/enums"
	"github.com/shopwire/shopwire-backend/pkg/logger"
	"github.com/shopwire/shopwire-backend/pkg/pubsub"
)

type domainEvent struct {
	EventID    string          `json:"eventId"`
	UserID     string          `json:"userId,omitempty"`
	ShopID     string          `json:"shopId,omitempty"`
	ShopDomain string          `json:"shopDomain,omitempty"`
	EntityID   string          `json:"entityId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "publish-event"})

	_ = godotenv.Load()

	eventType := flag.String("type", "", "feed event type, e.g. order_created")
	userID := flag.String("user", "", "recipient user id")
	shopID := flag.String("shop", "", "recipient shop id (resolved to its owner)")
	shopDomain := flag.String("shop-domain", "", "recipient shop domain (resolved to its owner)")
	entityID := flag.String("entity", "", "affected entity id")
	payload := flag.String("payload", "", "JSON payload snapshot")
	flag.Parse()

	parsedType, err := enums.ParseFeedEventType(*eventType)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *userID == "" && *shopID == "" && *shopDomain == "" {
		fmt.Fprintln(os.Stderr, "one of -user, -shop or -shop-domain is required")
		os.Exit(2)
	}
	if _, err := uuid.Parse(*entityID); err != nil {
		fmt.Fprintln(os.Stderr, "invalid -entity:", err)
		os.Exit(2)
	}
	var rawPayload json.RawMessage
	if *payload != "" {
		if !json.Valid([]byte(*payload)) {
			fmt.Fprintln(os.Stderr, "-payload must be valid JSON")
			os.Exit(2)
		}
		rawPayload = json.RawMessage(*payload)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "publish-event",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer psClient.Close()

	event := domainEvent{
		EventID:    uuid.NewString(),
		UserID:     *userID,
		ShopID:     *shopID,
		ShopDomain: *shopDomain,
		EntityID:   *entityID,
		Payload:    rawPayload,
	}
	data, err := json.Marshal(event)
	requireResource(ctx, logg, "envelope", err)

	publisher := psClient.DomainPublisher()
	if publisher == nil {
		fmt.Fprintln(os.Stderr, "domain topic is not configured")
		os.Exit(1)
	}
	defer publisher.Stop()

	result := publisher.Publish(ctx, &pubsubv2.Message{
		Data:       data,
		Attributes: map[string]string{"event_type": string(parsedType)},
	})
	messageID, err := result.Get(ctx)
	requireResource(ctx, logg, "publish", err)

	ctx = logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_id":   event.EventID,
		"event_type": string(parsedType),
	})
	logg.Info(ctx, "domain event published")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
