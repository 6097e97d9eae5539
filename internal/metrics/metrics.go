// Package metrics exposes Prometheus collectors for frame processing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kpatel2913/Faceable/internal/bus"
)

// Collectors, registered with the default registry.
var (
	FramesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faceable_frames_processed_total",
			Help: "Total number of frames run through the engine",
		},
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faceable_frames_dropped_total",
			Help: "Total number of frames rejected before processing",
		},
		[]string{"reason"},
	)

	Gestures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faceable_gestures_total",
			Help: "Total number of events emitted, by kind",
		},
		[]string{"kind"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "faceable_active_sessions",
			Help: "Number of connected frame streams",
		},
	)

	ProcessingLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faceable_frame_processing_seconds",
			Help:    "Time spent processing a single frame",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
	)

	ConfigReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faceable_config_reloads_total",
			Help: "Config file reloads, by result",
		},
		[]string{"result"},
	)
)

// Drop reasons
const (
	ReasonRateLimited = "rate_limited"
	ReasonMalformed   = "malformed"
)

// ObserveFrame records one processed frame and how long it took.
func ObserveFrame(elapsed time.Duration) {
	FramesProcessed.Inc()
	ProcessingLatency.Observe(elapsed.Seconds())
}

// Attach subscribes the collectors to bus events. Handlers only touch
// atomic collectors so they are safe under Publish and PublishSync.
func Attach(b *bus.EventBus) {
	b.SubscribeMultiple(bus.GestureEventTypes, func(e bus.Event) {
		kind, _ := e.Data["kind"].(string)
		if kind == "" {
			kind = string(e.Type)
		}
		Gestures.WithLabelValues(kind).Inc()
	})

	b.Subscribe(bus.EventTypeSessionStarted, func(bus.Event) {
		ActiveSessions.Inc()
	})
	b.Subscribe(bus.EventTypeSessionEnded, func(bus.Event) {
		ActiveSessions.Dec()
	})

	b.Subscribe(bus.EventTypeFrameDropped, func(e bus.Event) {
		reason, _ := e.Data["reason"].(string)
		if reason == "" {
			reason = "unknown"
		}
		FramesDropped.WithLabelValues(reason).Inc()
	})

	b.Subscribe(bus.EventTypeConfigReloaded, func(e bus.Event) {
		result := "ok"
		if _, failed := e.Data["error"]; failed {
			result = "error"
		}
		ConfigReloads.WithLabelValues(result).Inc()
	})
}
