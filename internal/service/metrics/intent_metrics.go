package metrics

import (
	"errors"
	"time"

	"Infinity/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Intents tracks latency and rejections of session intents served over HTTP.
type Intents struct {
	latency  *prometheus.HistogramVec
	rejected *prometheus.CounterVec
}

// NewIntents registers the intent collectors on reg.
func NewIntents(reg prometheus.Registerer) *Intents {
	factory := promauto.With(reg)
	return &Intents{
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "infinity",
				Subsystem: "intent",
				Name:      "latency_seconds",
				Help:      "Latency of session intents",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3},
			},
			[]string{"intent"},
		),
		rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "infinity",
				Subsystem: "intent",
				Name:      "rejected_total",
				Help:      "Rejected session intents by reason",
			},
			[]string{"intent", "reason"},
		),
	}
}

// Observe records one served intent. A nil receiver is a no-op.
func (m *Intents) Observe(intent string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(intent).Observe(time.Since(start).Seconds())
	if err != nil {
		m.rejected.WithLabelValues(intent, Reason(err)).Inc()
	}
}

// Reason maps an intent error to a bounded label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, models.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, models.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrAlreadyJudged):
		return "already_judged"
	case errors.Is(err, models.ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, models.ErrInvalidTimeframe),
		errors.Is(err, models.ErrInvalidOutcome),
		errors.Is(err, models.ErrUnsupportedLanguage):
		return "invalid_argument"
	default:
		return "other"
	}
}
