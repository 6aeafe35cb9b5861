package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopwire/shopwire-backend/api/controllers"
	"github.com/shopwire/shopwire-backend/api/middleware"
	"github.com/shopwire/shopwire-backend/internal/feed"
	"github.com/shopwire/shopwire-backend/pkg/config"
	"github.com/shopwire/shopwire-backend/pkg/logger"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Dispatcher controllers.Notifier
	Feed       feed.Service
	Hub        controllers.StreamHub
	Readiness  map[string]controllers.Pinger
	Metrics    http.Handler
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Readiness))
	})

	metricsHandler := params.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1/feed", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/events", controllers.AppendFeedEvent(params.Dispatcher, logg))
		r.Get("/events", controllers.ListFeedEvents(params.Feed, logg))
		r.Get("/high-water-mark", controllers.FeedHighWaterMark(params.Feed, logg))

		r.Route("/stream", func(r chi.Router) {
			r.Get("/", controllers.StreamFeed(params.Hub, logg))
			r.Post("/{connectionID}/heartbeat", controllers.HeartbeatConnection(params.Hub, logg))
			r.Delete("/{connectionID}", controllers.LeaveConnection(params.Hub, logg))
		})
	})

	return r
}
