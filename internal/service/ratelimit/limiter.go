package ratelimit

import (
	"time"

	"Infinity/internal/domain/models"
)

// DefaultWindow is the rolling lookback used to count recent signals.
const DefaultWindow = 12 * time.Hour

// Unlimited marks a tier without a quota.
const Unlimited = -1

// QuotaLimiter decides whether a user may start another signal cycle.
// It keeps no state of its own: every decision is derived from the history at call time.
type QuotaLimiter struct {
	window time.Duration
	quotas map[models.UserStatus]int
}

// New creates a limiter. Tiers missing from quotas fall back to the defaults.
func New(window time.Duration, quotas map[models.UserStatus]int) *QuotaLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	q := DefaultQuotas()
	for k, v := range quotas {
		q[k] = v
	}
	return &QuotaLimiter{window: window, quotas: q}
}

// DefaultQuotas returns the per-tier signal quotas.
func DefaultQuotas() map[models.UserStatus]int {
	return map[models.UserStatus]int{
		models.UserStandard: 20,
		models.UserVerified: 50,
		models.UserVIP:      Unlimited,
	}
}

// Window returns the rolling window length.
func (l *QuotaLimiter) Window() time.Duration { return l.window }

// Quota returns the tier quota; Unlimited (or any negative value) means no limit.
func (l *QuotaLimiter) Quota(status models.UserStatus) int {
	q, ok := l.quotas[status]
	if !ok {
		return l.quotas[models.UserStandard]
	}
	return q
}

// Used counts history entries inside the window ending at now.
func (l *QuotaLimiter) Used(h *models.History, now time.Time) int {
	if h == nil {
		return 0
	}
	return h.CountSince(now, l.window)
}

// Allow reports whether count < quota(status).
func (l *QuotaLimiter) Allow(h *models.History, status models.UserStatus, now time.Time) bool {
	q := l.Quota(status)
	if q < 0 {
		return true
	}
	return l.Used(h, now) < q
}
