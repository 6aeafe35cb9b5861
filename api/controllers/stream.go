package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopwire/shopwire-backend/api/middleware"
	"github.com/shopwire/shopwire-backend/api/responses"
	"github.com/shopwire/shopwire-backend/internal/live"
	"github.com/shopwire/shopwire-backend/internal/registry"
	pkgerrors "github.com/shopwire/shopwire-backend/pkg/errors"
	"github.com/shopwire/shopwire-backend/pkg/logger"
)

const keepAliveInterval = 25 * time.Second

// StreamHub is the live-channel surface the stream controllers need.
type StreamHub interface {
	Subscribe(conn registry.Connection) (*live.Subscription, func(), error)
	Touch(connectionID string, at time.Time) bool
	Disconnect(connectionID string)
}

// StreamFeed attaches the caller as a live connection and writes feed
// events as server-sent events until the client goes away. The first frame
// reports the connection ID so the client can heartbeat and leave.
func StreamFeed(hub StreamHub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stream hub unavailable"))
			return
		}

		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		connectionID := strings.TrimSpace(r.URL.Query().Get("connectionId"))
		if connectionID == "" {
			connectionID = uuid.NewString()
		}

		conn := registry.Connection{ID: connectionID, UserID: userID}
		if shopID := middleware.ShopIDFromContext(r.Context()); shopID != "" {
			if parsed, parseErr := uuid.Parse(shopID); parseErr == nil {
				conn.ShopID = parsed
			}
		}

		sub, release, err := hub.Subscribe(conn)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer release()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		ctx := logg.WithConnectionID(r.Context(), connectionID)
		logg.Info(ctx, "stream connected")

		fmt.Fprintf(w, "event: connected\ndata: {\"connectionId\":%q}\n\n", connectionID)
		flusher.Flush()

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				logg.Info(ctx, "stream closed by client")
				return
			case <-sub.Done:
				logg.Info(ctx, "stream detached")
				return
			case event := <-sub.Events:
				if event == nil {
					continue
				}
				data, marshalErr := json.Marshal(event)
				if marshalErr != nil {
					logg.Error(ctx, "failed to encode feed event", marshalErr)
					continue
				}
				if _, writeErr := fmt.Fprintf(w, "event: feed\ndata: %s\n\n", data); writeErr != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, writeErr := fmt.Fprint(w, ": keep-alive\n\n"); writeErr != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// HeartbeatConnection refreshes the liveness timestamp for an open
// connection. A missing connection tells the client to reconnect.
func HeartbeatConnection(hub StreamHub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stream hub unavailable"))
			return
		}

		connectionID := chi.URLParam(r, "connectionID")
		if connectionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "connection id is required"))
			return
		}
		if !hub.Touch(connectionID, time.Now()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "connection not found"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "alive"})
	}
}

// LeaveConnection drops a connection explicitly. Leaving twice is fine.
func LeaveConnection(hub StreamHub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stream hub unavailable"))
			return
		}

		connectionID := chi.URLParam(r, "connectionID")
		if connectionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "connection id is required"))
			return
		}
		hub.Disconnect(connectionID)
		responses.WriteSuccess(w, map[string]string{"status": "left"})
	}
}
