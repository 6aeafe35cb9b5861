package feed

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	feedsvc "github.com/shopwire/shopwire-backend/internal/feed"
	"github.com/shopwire/shopwire-backend/pkg/db/models"
	"github.com/shopwire/shopwire-backend/pkg/enums"
	pkgerrors "github.com/shopwire/shopwire-backend/pkg/errors"
	"github.com/shopwire/shopwire-backend/pkg/logger"
)

// notifier is the slice of the dispatcher the consumer needs.
type notifier interface {
	Notify(ctx context.Context, input feedsvc.AppendInput) (*models.FeedEvent, error)
	NotifyShop(ctx context.Context, shopID uuid.UUID, eventType enums.FeedEventType, entityID uuid.UUID, payload json.RawMessage) (*models.FeedEvent, error)
	NotifyShopDomain(ctx context.Context, domain string, eventType enums.FeedEventType, entityID uuid.UUID, payload json.RawMessage) (*models.FeedEvent, error)
}

// eventEnvelope is the wire shape of a domain event on the shared topic.
// Exactly one of UserID, ShopID or ShopDomain addresses the recipient;
// shop-addressed events are resolved to the shop's owner before appending.
// Storefront producers that only see the request host publish ShopDomain.
type eventEnvelope struct {
	EventID    string          `json:"eventId"`
	UserID     uuid.UUID       `json:"userId,omitempty"`
	ShopID     uuid.UUID       `json:"shopId,omitempty"`
	ShopDomain string          `json:"shopDomain,omitempty"`
	EntityID   uuid.UUID       `json:"entityId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Consumer watches the domain topic and appends each recognized event to
// the recipient's feed, pushing to live connections as a side effect.
type Consumer struct {
	dispatcher   notifier
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

func NewConsumer(dispatcher notifier, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		dispatcher:   dispatcher,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.Attributes["event_type"], msg.ID, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// process classifies one message. Malformed messages are acked so they do
// not poison the subscription; only dependency failures are nacked for
// redelivery.
func (c *Consumer) process(ctx context.Context, rawEventType, messageID string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": rawEventType,
	})

	eventType, err := enums.ParseFeedEventType(rawEventType)
	if err != nil {
		c.logg.Info(logCtx, "skipping event type outside the feed set")
		return processResult{ack: true}
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if envelope.UserID == uuid.Nil && envelope.ShopID == uuid.Nil && envelope.ShopDomain == "" {
		c.logg.Error(logCtx, "envelope has no recipient", nil)
		return processResult{ack: true}
	}

	switch {
	case envelope.ShopID != uuid.Nil:
		_, err = c.dispatcher.NotifyShop(ctx, envelope.ShopID, eventType, envelope.EntityID, envelope.Payload)
	case envelope.ShopDomain != "":
		_, err = c.dispatcher.NotifyShopDomain(ctx, envelope.ShopDomain, eventType, envelope.EntityID, envelope.Payload)
	default:
		_, err = c.dispatcher.Notify(ctx, feedsvc.AppendInput{
			UserID:    envelope.UserID,
			EventType: eventType,
			EntityID:  envelope.EntityID,
			Payload:   envelope.Payload,
		})
	}
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
			c.logg.Error(logCtx, "dropping invalid event", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "failed to append event", err)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}
