package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FeedMetrics tracks the event log and live-push delivery surface.
type FeedMetrics struct {
	appended        *prometheus.CounterVec
	pushesDelivered prometheus.Counter
	pushesDropped   prometheus.Counter
	liveConnections prometheus.Gauge
}

// NewFeedMetrics registers the feed metrics on the provided registerer.
func NewFeedMetrics(reg prometheus.Registerer) *FeedMetrics {
	if reg == nil {
		return &FeedMetrics{}
	}
	appended := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_events_appended_total",
		Help: "Events durably appended to the feed log.",
	}, []string{"event_type"})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_pushes_delivered_total",
		Help: "Live pushes handed to a connection channel.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_pushes_dropped_total",
		Help: "Live pushes dropped because a connection could not accept them.",
	})
	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "feed_live_connections",
		Help: "Currently registered live connections.",
	})
	reg.MustRegister(appended, delivered, dropped, connections)
	return &FeedMetrics{
		appended:        appended,
		pushesDelivered: delivered,
		pushesDropped:   dropped,
		liveConnections: connections,
	}
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}

// IncAppended increments the appended counter for the given event type.
func (f *FeedMetrics) IncAppended(eventType string) {
	if f == nil || f.appended == nil {
		return
	}
	f.appended.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncPushDelivered counts a push accepted by a connection.
func (f *FeedMetrics) IncPushDelivered() {
	if f == nil || f.pushesDelivered == nil {
		return
	}
	f.pushesDelivered.Inc()
}

// IncPushDropped counts a push a connection could not accept.
func (f *FeedMetrics) IncPushDropped() {
	if f == nil || f.pushesDropped == nil {
		return
	}
	f.pushesDropped.Inc()
}

// SetLiveConnections records the current registry size.
func (f *FeedMetrics) SetLiveConnections(n int) {
	if f == nil || f.liveConnections == nil {
		return
	}
	f.liveConnections.Set(float64(n))
}
