package live

import (
	"context"
	"sync"
	"time"

	"github.com/shopwire/shopwire-backend/internal/registry"
	"github.com/shopwire/shopwire-backend/pkg/config"
	"github.com/shopwire/shopwire-backend/pkg/db/models"
	"github.com/shopwire/shopwire-backend/pkg/errors"
	"github.com/shopwire/shopwire-backend/pkg/logger"
	"github.com/shopwire/shopwire-backend/pkg/metrics"
)

// Subscription is one live attachment's receiving end. Events arrive on
// Events; Done is closed when the hub detaches the subscription, either by
// an explicit disconnect or because the same connection ID re-subscribed.
type Subscription struct {
	Events <-chan *models.FeedEvent
	Done   <-chan struct{}
}

type subscription struct {
	events chan *models.FeedEvent
	done   chan struct{}
}

// Hub bridges the dispatcher's fan-out to open stream handlers. Every
// subscribed connection owns a buffered channel; pushes never wait on a slow
// reader longer than the configured timeout, they drop instead. Dropped
// events are not a correctness problem because clients re-sync through
// catch-up.
type Hub struct {
	registry    *registry.Registry
	log         *logger.Logger
	metrics     *metrics.FeedMetrics
	bufferSize  int
	pushTimeout time.Duration

	mu   sync.RWMutex
	subs map[string]*subscription
}

func NewHub(reg *registry.Registry, log *logger.Logger, feedMetrics *metrics.FeedMetrics, cfg config.StreamConfig) (*Hub, error) {
	if reg == nil {
		return nil, errors.New(errors.CodeInternal, "connection registry is required")
	}
	if log == nil {
		return nil, errors.New(errors.CodeInternal, "logger is required")
	}
	if cfg.BufferSize <= 0 {
		return nil, errors.New(errors.CodeInternal, "stream buffer size must be positive")
	}
	if cfg.PushTimeout <= 0 {
		return nil, errors.New(errors.CodeInternal, "stream push timeout must be positive")
	}
	return &Hub{
		registry:    reg,
		log:         log,
		metrics:     feedMetrics,
		bufferSize:  cfg.BufferSize,
		pushTimeout: cfg.PushTimeout,
		subs:        make(map[string]*subscription),
	}, nil
}

// Subscribe registers the connection and hands back its subscription. The
// returned release func detaches the connection; it is safe to call more
// than once. Subscribing an ID that is already live replaces the previous
// subscription and wakes its reader through Done.
func (h *Hub) Subscribe(conn registry.Connection) (*Subscription, func(), error) {
	if err := h.registry.Add(conn); err != nil {
		return nil, nil, err
	}

	sub := &subscription{
		events: make(chan *models.FeedEvent, h.bufferSize),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	if previous, ok := h.subs[conn.ID]; ok {
		close(previous.done)
	}
	h.subs[conn.ID] = sub
	h.mu.Unlock()
	h.metrics.SetLiveConnections(h.registry.Count())

	var once sync.Once
	release := func() {
		once.Do(func() {
			h.detach(conn.ID, sub)
		})
	}
	return &Subscription{Events: sub.events, Done: sub.done}, release, nil
}

func (h *Hub) detach(connectionID string, sub *subscription) {
	h.mu.Lock()
	if current, ok := h.subs[connectionID]; ok && (sub == nil || current == sub) {
		delete(h.subs, connectionID)
		select {
		case <-current.done:
		default:
			close(current.done)
		}
		sub = current
	} else {
		sub = nil
	}
	h.mu.Unlock()
	if sub != nil {
		h.registry.Remove(connectionID)
		h.metrics.SetLiveConnections(h.registry.Count())
	}
}

// Push delivers one event to one connection's buffer. An unknown connection
// or a buffer that stays full past the push timeout is an error; the
// dispatcher logs it and moves on.
func (h *Hub) Push(ctx context.Context, connectionID string, event *models.FeedEvent) error {
	h.mu.RLock()
	sub, ok := h.subs[connectionID]
	h.mu.RUnlock()
	if !ok {
		return errors.New(errors.CodeDelivery, "connection has no live channel")
	}

	select {
	case sub.events <- event:
		return nil
	case <-sub.done:
		return errors.New(errors.CodeDelivery, "connection detached")
	default:
	}

	timer := time.NewTimer(h.pushTimeout)
	defer timer.Stop()
	select {
	case sub.events <- event:
		return nil
	case <-sub.done:
		return errors.New(errors.CodeDelivery, "connection detached")
	case <-ctx.Done():
		return errors.Wrap(errors.CodeDelivery, ctx.Err(), "push canceled")
	case <-timer.C:
		return errors.New(errors.CodeDelivery, "connection buffer full")
	}
}

// Touch forwards heartbeat activity to the registry.
func (h *Hub) Touch(connectionID string, at time.Time) bool {
	return h.registry.Touch(connectionID, at)
}

// Disconnect detaches a connection by ID, for explicit leave requests.
func (h *Hub) Disconnect(connectionID string) {
	h.detach(connectionID, nil)
}
