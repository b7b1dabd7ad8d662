package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"Infinity/internal/domain/models"
	"Infinity/internal/domain/repository"
	"Infinity/internal/domain/service"
	applogger "Infinity/pkg/logger"

	"github.com/shopspring/decimal"
)

// DefaultFeedPeriod is the interval between two simulated ticks.
const DefaultFeedPeriod = 2000 * time.Millisecond

const (
	cryptoVolatility = 0.0005
	baseVolatility   = 0.0001
	changeSpread     = 0.02
	changePlaces     = 2
)

// PriceFeed keeps a synthetic quote for every tracked asset.
// Readers always see a whole tick: the asset slice is replaced, never edited in place.
type PriceFeed struct {
	mu      sync.RWMutex
	assets  []models.Asset
	rnd     service.Random
	period  time.Duration
	metrics repository.Metrics
	l       *applogger.Logger
}

// NewPriceFeed creates a feed seeded with assets.
func NewPriceFeed(assets []models.Asset, rnd service.Random, period time.Duration, metrics repository.Metrics, l *applogger.Logger) *PriceFeed {
	if period <= 0 {
		period = DefaultFeedPeriod
	}
	cp := make([]models.Asset, len(assets))
	copy(cp, assets)
	return &PriceFeed{assets: cp, rnd: rnd, period: period, metrics: metrics, l: l}
}

// Period returns the tick interval.
func (f *PriceFeed) Period() time.Duration { return f.period }

// Assets returns a copy of the latest snapshot.
func (f *PriceFeed) Assets() []models.Asset {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Asset, len(f.assets))
	copy(out, f.assets)
	return out
}

// Find returns the current quote of asset id.
func (f *PriceFeed) Find(id string) (models.Asset, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, a := range f.assets {
		if a.ID == id {
			return a, true
		}
	}
	return models.Asset{}, false
}

// Tick advances every asset by one step and swaps the snapshot.
// Only one goroutine may tick a feed.
func (f *PriceFeed) Tick() []models.Asset {
	start := time.Now()
	next := Advance(f.Assets(), f.rnd)

	f.mu.Lock()
	f.assets = next
	f.mu.Unlock()

	for _, a := range next {
		if p, err := decimal.NewFromString(a.Price); err == nil {
			f.metrics.RecordLastPrice(a.ID, p.InexactFloat64())
		}
	}
	f.metrics.RecordLatency("feed_tick", time.Since(start).Seconds())
	return next
}

// Run ticks every period until ctx is cancelled.
func (f *PriceFeed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.period)
	defer ticker.Stop()

	f.l.Debug("price feed started", applogger.Duration("period_ms", f.period), applogger.Int("assets", len(f.Assets())))
	for {
		select {
		case <-ctx.Done():
			f.l.Debug("price feed stopped")
			return
		case <-ticker.C:
			f.Tick()
		}
	}
}

// Advance is the per-tick transform over the full asset set.
func Advance(assets []models.Asset, rnd service.Random) []models.Asset {
	out := make([]models.Asset, len(assets))
	for i, a := range assets {
		out[i] = advanceAsset(a, rnd)
	}
	return out
}

func advanceAsset(a models.Asset, rnd service.Random) models.Asset {
	price, err := decimal.NewFromString(a.Price)
	if err != nil {
		return a
	}
	change, err := parseChange(a.Change)
	if err != nil {
		change = decimal.Zero
	}

	volatility := baseVolatility
	if a.IsCrypto() {
		volatility = cryptoVolatility
	}
	delta := price.Mul(decimal.NewFromFloat((rnd.Float64() - 0.5) * volatility))
	change = change.Add(decimal.NewFromFloat((rnd.Float64() - 0.5) * changeSpread))

	next := a
	next.Price = price.Add(delta).StringFixed(a.PricePrecision())
	next.Change = FormatChange(change)
	next.LastTick = models.TickDown
	if delta.Sign() >= 0 {
		next.LastTick = models.TickUp
	}
	return next
}

// FormatChange renders a percentage with an explicit sign for non-negative values.
func FormatChange(v decimal.Decimal) string {
	v = v.Round(changePlaces)
	sign := ""
	if v.Sign() >= 0 {
		sign = "+"
	}
	return sign + v.StringFixed(changePlaces) + "%"
}

func parseChange(s string) (decimal.Decimal, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = strings.TrimPrefix(s, "+")
	return decimal.NewFromString(s)
}
