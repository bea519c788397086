package observability

import (
	"context"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	movements  *prometheus.CounterVec
	entries    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	position   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewind_history_movements_total",
			Help: "Total number of history movements by type",
		}, []string{"type"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewind_state_entries_total",
			Help: "Total number of times a state became active",
		}, []string{"state"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewind_rejections_total",
			Help: "Total number of rejected transitions by error kind",
		}, []string{"kind"}),
		position: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rewind_history_position",
			Help:    "History cursor position after each movement",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.movements, m.entries, m.rejections, m.position)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	move := func(_ context.Context, e *domain.TransitionEvent) {
		m.movements.WithLabelValues(string(e.Type)).Inc()
		m.entries.WithLabelValues(e.To).Inc()
		m.position.Observe(float64(e.Position))
	}
	return domain.LifecycleHooks{
		OnStateChange: move,
		OnUndo:        move,
		OnRedo:        move,
		OnReset:       move,
		OnRejected: func(_ context.Context, e *domain.TransitionEvent) {
			m.rejections.WithLabelValues(string(e.Kind)).Inc()
		},
	}
}
