package live

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shopwire/shopwire-backend/internal/registry"
	"github.com/shopwire/shopwire-backend/pkg/config"
	"github.com/shopwire/shopwire-backend/pkg/db/models"
	pkgerrors "github.com/shopwire/shopwire-backend/pkg/errors"
	"github.com/shopwire/shopwire-backend/pkg/logger"
)

func testHub(t *testing.T, bufferSize int) (*Hub, *registry.Registry) {
	t.Helper()

	reg := registry.New()
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	hub, err := NewHub(reg, log, nil, config.StreamConfig{
		BufferSize:  bufferSize,
		PushTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return hub, reg
}

func TestHubPushDeliversToSubscriber(t *testing.T) {
	hub, _ := testHub(t, 4)
	conn := registry.Connection{ID: "conn-1", UserID: uuid.New()}

	sub, release, err := hub.Subscribe(conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	event := &models.FeedEvent{Sequence: 7, UserID: conn.UserID}
	if err := hub.Push(context.Background(), "conn-1", event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case got := <-sub.Events:
		if got.Sequence != 7 {
			t.Fatalf("expected sequence 7, got %d", got.Sequence)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event on subscription channel")
	}
}

func TestHubPushToUnknownConnection(t *testing.T) {
	hub, _ := testHub(t, 4)

	err := hub.Push(context.Background(), "never-subscribed", &models.FeedEvent{Sequence: 1})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDelivery {
		t.Fatalf("expected delivery error, got %v", err)
	}
}

func TestHubPushDropsWhenBufferStaysFull(t *testing.T) {
	hub, _ := testHub(t, 1)
	conn := registry.Connection{ID: "conn-1", UserID: uuid.New()}

	_, release, err := hub.Subscribe(conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	if err := hub.Push(context.Background(), "conn-1", &models.FeedEvent{Sequence: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = hub.Push(context.Background(), "conn-1", &models.FeedEvent{Sequence: 2})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDelivery {
		t.Fatalf("expected drop on full buffer, got %v", err)
	}
}

func TestHubReleaseDetachesConnection(t *testing.T) {
	hub, reg := testHub(t, 4)
	conn := registry.Connection{ID: "conn-1", UserID: uuid.New()}

	sub, release, err := hub.Subscribe(conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()
	release()

	select {
	case <-sub.Done:
	case <-time.After(time.Second):
		t.Fatal("expected done channel to close on release")
	}
	if reg.Count() != 0 {
		t.Fatalf("expected registry to be empty, got %d", reg.Count())
	}
	if err := hub.Push(context.Background(), "conn-1", &models.FeedEvent{Sequence: 1}); err == nil {
		t.Fatal("expected push after release to fail")
	}
}

func TestHubResubscribeReplacesPrevious(t *testing.T) {
	hub, reg := testHub(t, 4)
	userID := uuid.New()

	first, _, err := hub.Subscribe(registry.Connection{ID: "conn-1", UserID: userID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, release, err := hub.Subscribe(registry.Connection{ID: "conn-1", UserID: userID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	select {
	case <-first.Done:
	case <-time.After(time.Second):
		t.Fatal("expected first subscription to be woken on replacement")
	}
	if reg.Count() != 1 {
		t.Fatalf("expected one registry slot, got %d", reg.Count())
	}

	if err := hub.Push(context.Background(), "conn-1", &models.FeedEvent{Sequence: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case got := <-second.Events:
		if got.Sequence != 3 {
			t.Fatalf("expected sequence 3, got %d", got.Sequence)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event on replacement subscription")
	}
}

func TestHubDisconnect(t *testing.T) {
	hub, reg := testHub(t, 4)
	conn := registry.Connection{ID: "conn-1", UserID: uuid.New()}

	sub, _, err := hub.Subscribe(conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hub.Disconnect("conn-1")
	hub.Disconnect("conn-1")

	select {
	case <-sub.Done:
	case <-time.After(time.Second):
		t.Fatal("expected done channel to close on disconnect")
	}
	if reg.Count() != 0 {
		t.Fatalf("expected registry to be empty, got %d", reg.Count())
	}
}

func TestHubTouch(t *testing.T) {
	hub, reg := testHub(t, 4)
	conn := registry.Connection{ID: "conn-1", UserID: uuid.New()}

	if _, _, err := hub.Subscribe(conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	at := time.Now().Add(time.Minute)
	if !hub.Touch("conn-1", at) {
		t.Fatal("expected touch to find the connection")
	}
	stored, _ := reg.Get("conn-1")
	if !stored.LastSeenAt.Equal(at) {
		t.Fatalf("expected last seen %v, got %v", at, stored.LastSeenAt)
	}
	if hub.Touch("unknown", at) {
		t.Fatal("expected touch on unknown connection to report false")
	}
}
