package feed

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/shopwire/shopwire-backend/pkg/db/models"
	"github.com/shopwire/shopwire-backend/pkg/enums"
	"github.com/shopwire/shopwire-backend/pkg/errors"
)

// CatchUpPageSize caps a single catch-up read. Clients page by repeating the
// request with the last sequence they received.
const CatchUpPageSize = 100

// AppendInput describes one event to be appended to a user's feed.
type AppendInput struct {
	UserID    uuid.UUID
	EventType enums.FeedEventType
	EntityID  uuid.UUID
	Payload   json.RawMessage
}

// CatchUpResult is one page of a user's feed in ascending sequence order.
type CatchUpResult struct {
	Events  []models.FeedEvent
	HasMore bool
}

// Service owns the append-only event log. Appends are durable before any
// caller learns the assigned sequence.
type Service interface {
	Append(ctx context.Context, input AppendInput) (*models.FeedEvent, error)
	GetSince(ctx context.Context, userID uuid.UUID, sinceSequence int64) (*CatchUpResult, error)
	HighWaterMark(ctx context.Context) (int64, error)
}

type serviceImpl struct {
	repo Repository
}

// NewService wires the feed service. Repo must be non-nil.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "feed repository is required")
	}
	return &serviceImpl{repo: repo}, nil
}

func (s *serviceImpl) Append(ctx context.Context, input AppendInput) (*models.FeedEvent, error) {
	if input.UserID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if !input.EventType.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown event type").
			WithDetails(map[string]any{"event_type": string(input.EventType)})
	}
	payload := input.Payload
	if len(payload) == 0 {
		// The payload column rejects NULL; events without a snapshot
		// store an empty object.
		payload = json.RawMessage(`{}`)
	}
	event := &models.FeedEvent{
		UserID:    input.UserID,
		EventType: input.EventType,
		EntityID:  input.EntityID,
		Payload:   payload,
	}
	if err := s.repo.Append(ctx, event); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "failed to append feed event")
	}
	return event, nil
}

func (s *serviceImpl) GetSince(ctx context.Context, userID uuid.UUID, sinceSequence int64) (*CatchUpResult, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if sinceSequence < 0 {
		return nil, errors.New(errors.CodeValidation, "since must not be negative")
	}
	// Over-fetch by one so the page can report whether more rows remain
	// without a second count query.
	events, err := s.repo.ListSince(ctx, userID, sinceSequence, CatchUpPageSize+1)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "failed to read feed events")
	}
	result := &CatchUpResult{Events: events}
	if len(events) > CatchUpPageSize {
		result.Events = events[:CatchUpPageSize]
		result.HasMore = true
	}
	return result, nil
}

func (s *serviceImpl) HighWaterMark(ctx context.Context) (int64, error) {
	max, err := s.repo.MaxSequence(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.CodeDependency, err, "failed to read feed high-water mark")
	}
	return max, nil
}
