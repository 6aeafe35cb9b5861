package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopwire/shopwire-backend/pkg/db/models"
	"github.com/shopwire/shopwire-backend/pkg/enums"
	pkgerrors "github.com/shopwire/shopwire-backend/pkg/errors"
)

type fakeRepository struct {
	appendFn      func(ctx context.Context, event *models.FeedEvent) error
	listSinceFn   func(ctx context.Context, userID uuid.UUID, since int64, limit int) ([]models.FeedEvent, error)
	maxSequenceFn func(ctx context.Context) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Append(ctx context.Context, event *models.FeedEvent) error {
	if f.appendFn != nil {
		return f.appendFn(ctx, event)
	}
	return nil
}

func (f *fakeRepository) ListSince(ctx context.Context, userID uuid.UUID, since int64, limit int) ([]models.FeedEvent, error) {
	if f.listSinceFn != nil {
		return f.listSinceFn(ctx, userID, since, limit)
	}
	return nil, nil
}

func (f *fakeRepository) MaxSequence(ctx context.Context) (int64, error) {
	if f.maxSequenceFn != nil {
		return f.maxSequenceFn(ctx)
	}
	return 0, nil
}

func (f *fakeRepository) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo)
	return svc
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repo")
	}
}

func TestService_AppendAssignsSequenceFromStore(t *testing.T) {
	repo := &fakeRepository{
		appendFn: func(ctx context.Context, event *models.FeedEvent) error {
			event.Sequence = 42
			event.CreatedAt = time.Now()
			return nil
		},
	}

	svc := newServiceWithRepo(repo)
	event, err := svc.Append(context.Background(), AppendInput{
		UserID:    uuid.New(),
		EventType: enums.EventOrderCreated,
		EntityID:  uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Sequence != 42 {
		t.Fatalf("expected sequence 42, got %d", event.Sequence)
	}
}

func TestService_AppendDefaultsMissingPayload(t *testing.T) {
	var stored *models.FeedEvent
	repo := &fakeRepository{
		appendFn: func(ctx context.Context, event *models.FeedEvent) error {
			stored = event
			return nil
		},
	}

	svc := newServiceWithRepo(repo)
	if _, err := svc.Append(context.Background(), AppendInput{
		UserID:    uuid.New(),
		EventType: enums.EventNotificationDeleted,
		EntityID:  uuid.New(),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil || string(stored.Payload) != "{}" {
		t.Fatalf("expected empty-object payload, got %+v", stored)
	}
}

func TestService_AppendRejectsInvalidInput(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{
		appendFn: func(ctx context.Context, event *models.FeedEvent) error {
			t.Fatal("repo should not be reached")
			return nil
		},
	})

	_, err := svc.Append(context.Background(), AppendInput{EventType: enums.EventOrderCreated})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing user, got %v", err)
	}

	_, err = svc.Append(context.Background(), AppendInput{UserID: uuid.New(), EventType: "mystery_event"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown event type, got %v", err)
	}
}

func TestService_AppendWrapsRepoFailure(t *testing.T) {
	repo := &fakeRepository{
		appendFn: func(ctx context.Context, event *models.FeedEvent) error {
			return errors.New("connection refused")
		},
	}

	svc := newServiceWithRepo(repo)
	_, err := svc.Append(context.Background(), AppendInput{
		UserID:    uuid.New(),
		EventType: enums.EventCartChanged,
		EntityID:  uuid.New(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_GetSinceOverFetchesForHasMore(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepository{
		listSinceFn: func(ctx context.Context, gotUser uuid.UUID, since int64, limit int) ([]models.FeedEvent, error) {
			if gotUser != userID {
				t.Fatalf("unexpected user %s", gotUser)
			}
			if since != 10 {
				t.Fatalf("unexpected since %d", since)
			}
			if limit != CatchUpPageSize+1 {
				t.Fatalf("unexpected limit %d", limit)
			}
			events := make([]models.FeedEvent, CatchUpPageSize+1)
			for i := range events {
				events[i] = models.FeedEvent{Sequence: int64(11 + i), UserID: userID}
			}
			return events, nil
		},
	}

	svc := newServiceWithRepo(repo)
	result, err := svc.GetSince(context.Background(), userID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Events) != CatchUpPageSize {
		t.Fatalf("expected %d events, got %d", CatchUpPageSize, len(result.Events))
	}
	if !result.HasMore {
		t.Fatal("expected HasMore to be set")
	}
	if result.Events[0].Sequence != 11 {
		t.Fatalf("expected first sequence 11, got %d", result.Events[0].Sequence)
	}
}

func TestService_GetSinceShortPage(t *testing.T) {
	repo := &fakeRepository{
		listSinceFn: func(ctx context.Context, userID uuid.UUID, since int64, limit int) ([]models.FeedEvent, error) {
			return []models.FeedEvent{{Sequence: 3}, {Sequence: 4}}, nil
		},
	}

	svc := newServiceWithRepo(repo)
	result, err := svc.GetSince(context.Background(), uuid.New(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Events) != 2 || result.HasMore {
		t.Fatalf("expected short final page, got %d events hasMore=%v", len(result.Events), result.HasMore)
	}
}

func TestService_GetSinceRejectsNegativeFloor(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	_, err := svc.GetSince(context.Background(), uuid.New(), -1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_HighWaterMark(t *testing.T) {
	repo := &fakeRepository{
		maxSequenceFn: func(ctx context.Context) (int64, error) {
			return 99, nil
		},
	}

	svc := newServiceWithRepo(repo)
	max, err := svc.HighWaterMark(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if max != 99 {
		t.Fatalf("expected 99, got %d", max)
	}
}
