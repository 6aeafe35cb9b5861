package dispatcher

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/shopwire/shopwire-backend/internal/feed"
	"github.com/shopwire/shopwire-backend/internal/registry"
	"github.com/shopwire/shopwire-backend/internal/shops"
	"github.com/shopwire/shopwire-backend/pkg/db/models"
	"github.com/shopwire/shopwire-backend/pkg/enums"
	"github.com/shopwire/shopwire-backend/pkg/errors"
	"github.com/shopwire/shopwire-backend/pkg/logger"
	"github.com/shopwire/shopwire-backend/pkg/metrics"
)

// Pusher delivers one event to one live connection. Implementations must
// not block past the configured push timeout; slow or dead connections
// return an error and are skipped.
type Pusher interface {
	Push(ctx context.Context, connectionID string, event *models.FeedEvent) error
}

// Dispatcher is the write path of the feed: it appends an event to the
// durable log first, then fans the stored event out to whatever connections
// the recipient currently holds. Delivery is best effort; the log is the
// source of truth and clients recover missed events through catch-up.
type Dispatcher struct {
	feed     feed.Service
	shops    shops.Service
	registry *registry.Registry
	pusher   Pusher
	log      *logger.Logger
	metrics  *metrics.FeedMetrics
}

func New(feedSvc feed.Service, shopSvc shops.Service, reg *registry.Registry, pusher Pusher, log *logger.Logger, feedMetrics *metrics.FeedMetrics) (*Dispatcher, error) {
	if feedSvc == nil {
		return nil, errors.New(errors.CodeInternal, "feed service is required")
	}
	if shopSvc == nil {
		return nil, errors.New(errors.CodeInternal, "shops service is required")
	}
	if reg == nil {
		return nil, errors.New(errors.CodeInternal, "connection registry is required")
	}
	if pusher == nil {
		return nil, errors.New(errors.CodeInternal, "pusher is required")
	}
	if log == nil {
		return nil, errors.New(errors.CodeInternal, "logger is required")
	}
	return &Dispatcher{
		feed:     feedSvc,
		shops:    shopSvc,
		registry: reg,
		pusher:   pusher,
		log:      log,
		metrics:  feedMetrics,
	}, nil
}

// Notify appends the event and pushes it to the recipient's live
// connections. The append must succeed before any push is attempted; if it
// fails, no connection sees the event and the error is returned. Pushes run
// in the background after Notify returns, so a stalled connection never
// holds up the producer, and push failures never fail the call.
func (d *Dispatcher) Notify(ctx context.Context, input feed.AppendInput) (*models.FeedEvent, error) {
	event, err := d.feed.Append(ctx, input)
	if err != nil {
		return nil, err
	}
	d.metrics.IncAppended(string(event.EventType))
	d.fanOut(ctx, event)
	return event, nil
}

// NotifyShop resolves the shop to its owning user and appends on their
// feed. A shop without a resolvable owner drops the event with a warning;
// there is nobody to deliver to and the producer cannot act on the failure.
func (d *Dispatcher) NotifyShop(ctx context.Context, shopID uuid.UUID, eventType enums.FeedEventType, entityID uuid.UUID, payload json.RawMessage) (*models.FeedEvent, error) {
	ownerID, err := d.shops.ResolveOwner(ctx, shopID)
	if err != nil {
		if typed := errors.As(err); typed != nil && typed.Code() == errors.CodeNotFound {
			ctx = d.log.WithShopID(ctx, shopID.String())
			d.log.Warn(ctx, "dropping event for shop without resolvable owner")
			return nil, nil
		}
		return nil, err
	}
	return d.Notify(ctx, feed.AppendInput{
		UserID:    ownerID,
		EventType: eventType,
		EntityID:  entityID,
		Payload:   payload,
	})
}

// NotifyShopDomain addresses a shop by the host it serves, for producers
// that see a storefront request rather than a shop id. Resolution and drop
// semantics match NotifyShop.
func (d *Dispatcher) NotifyShopDomain(ctx context.Context, domain string, eventType enums.FeedEventType, entityID uuid.UUID, payload json.RawMessage) (*models.FeedEvent, error) {
	ownerID, err := d.shops.ResolveOwnerByDomain(ctx, domain)
	if err != nil {
		if typed := errors.As(err); typed != nil && typed.Code() == errors.CodeNotFound {
			ctx = d.log.WithField(ctx, "shop_domain", domain)
			d.log.Warn(ctx, "dropping event for unresolvable shop domain")
			return nil, nil
		}
		return nil, err
	}
	return d.Notify(ctx, feed.AppendInput{
		UserID:    ownerID,
		EventType: eventType,
		EntityID:  entityID,
		Payload:   payload,
	})
}

// fanOut pushes the stored event to each of the recipient's connections in
// its own goroutine and returns immediately. A slow or full connection only
// delays its own delivery.
func (d *Dispatcher) fanOut(ctx context.Context, event *models.FeedEvent) {
	connections := d.registry.ListByUser(event.UserID)
	if len(connections) == 0 {
		return
	}

	// Pushes outlive the request that produced the event; only the push
	// timeout bounds them.
	pushCtx := context.WithoutCancel(ctx)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		pushErr   error
		delivered int
	)
	for _, conn := range connections {
		wg.Add(1)
		go func(conn registry.Connection) {
			defer wg.Done()
			if err := d.pusher.Push(pushCtx, conn.ID, event); err != nil {
				d.metrics.IncPushDropped()
				mu.Lock()
				pushErr = multierr.Append(pushErr, errors.Wrap(errors.CodeDelivery, err, "push to "+conn.ID+" failed"))
				mu.Unlock()
				return
			}
			d.metrics.IncPushDelivered()
			mu.Lock()
			delivered++
			mu.Unlock()
		}(conn)
	}

	go func() {
		wg.Wait()
		if pushErr == nil {
			return
		}
		logCtx := d.log.WithFields(pushCtx, map[string]any{
			"sequence":  event.Sequence,
			"delivered": delivered,
			"failed":    len(multierr.Errors(pushErr)),
		})
		d.log.Error(logCtx, "some live pushes failed", pushErr)
	}()
}
