package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/shopwire/shopwire-backend/api/middleware"
	"github.com/shopwire/shopwire-backend/api/responses"
	"github.com/shopwire/shopwire-backend/api/validators"
	"github.com/shopwire/shopwire-backend/internal/feed"
	"github.com/shopwire/shopwire-backend/pkg/db/models"
	"github.com/shopwire/shopwire-backend/pkg/enums"
	pkgerrors "github.com/shopwire/shopwire-backend/pkg/errors"
	"github.com/shopwire/shopwire-backend/pkg/logger"
)

// Notifier is the append-and-push entry point the controllers call.
type Notifier interface {
	Notify(ctx context.Context, input feed.AppendInput) (*models.FeedEvent, error)
	NotifyShop(ctx context.Context, shopID uuid.UUID, eventType enums.FeedEventType, entityID uuid.UUID, payload json.RawMessage) (*models.FeedEvent, error)
	NotifyShopDomain(ctx context.Context, domain string, eventType enums.FeedEventType, entityID uuid.UUID, payload json.RawMessage) (*models.FeedEvent, error)
}

type appendEventRequest struct {
	UserID     string          `json:"userId" validate:"omitempty,uuid"`
	ShopID     string          `json:"shopId" validate:"omitempty,uuid"`
	ShopDomain string          `json:"shopDomain" validate:"omitempty,hostname_rfc1123"`
	EventType  string          `json:"eventType" validate:"required"`
	EntityID   string          `json:"entityId" validate:"required,uuid"`
	Payload    json.RawMessage `json:"payload"`
}

type catchUpResponse struct {
	Events  []models.FeedEvent `json:"events"`
	HasMore bool               `json:"hasMore"`
}

type highWaterMarkResponse struct {
	Sequence int64 `json:"sequence"`
}

// AppendFeedEvent accepts a producer event, appends it durably and pushes
// it to the recipient's live connections. The recipient is either a user
// directly or a shop resolved to its owner.
func AppendFeedEvent(dispatcher Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dispatcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatcher unavailable"))
			return
		}

		var body appendEventRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.UserID == "" && body.ShopID == "" && body.ShopDomain == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "one of userId, shopId or shopDomain is required"))
			return
		}

		eventType, err := enums.ParseFeedEventType(body.EventType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown event type").
					WithDetails(map[string]any{"eventType": body.EventType}))
			return
		}
		entityID, err := uuid.Parse(body.EntityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entity id"))
			return
		}

		var event *models.FeedEvent
		switch {
		case body.ShopID != "":
			shopID, parseErr := uuid.Parse(body.ShopID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid shop id"))
				return
			}
			event, err = dispatcher.NotifyShop(r.Context(), shopID, eventType, entityID, body.Payload)
		case body.ShopDomain != "":
			event, err = dispatcher.NotifyShopDomain(r.Context(), body.ShopDomain, eventType, entityID, body.Payload)
		default:
			userID, parseErr := uuid.Parse(body.UserID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid user id"))
				return
			}
			event, err = dispatcher.Notify(r.Context(), feed.AppendInput{
				UserID:    userID,
				EventType: eventType,
				EntityID:  entityID,
				Payload:   body.Payload,
			})
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if event == nil {
			// Shop without a resolvable owner; accepted and dropped.
			responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "dropped"})
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, event)
	}
}

// ListFeedEvents returns the caller's feed events after the given sequence
// floor, oldest first, one page at a time.
func ListFeedEvents(svc feed.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "feed service unavailable"))
			return
		}

		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		since, err := validators.ParseQueryInt64(r, "since", 0, 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetSince(r.Context(), userID, since)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events := result.Events
		if events == nil {
			events = []models.FeedEvent{}
		}
		responses.WriteSuccess(w, catchUpResponse{Events: events, HasMore: result.HasMore})
	}
}

// FeedHighWaterMark reports the highest sequence assigned so far across
// all users, for clients that want to start live-only.
func FeedHighWaterMark(svc feed.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "feed service unavailable"))
			return
		}

		sequence, err := svc.HighWaterMark(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, highWaterMarkResponse{Sequence: sequence})
	}
}

func callerUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return userID, nil
}
