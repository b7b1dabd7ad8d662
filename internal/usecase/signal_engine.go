package usecase

import (
	"fmt"
	"math"
	"time"

	"Infinity/internal/domain/models"
	"Infinity/internal/domain/service"
)

const (
	baseProbability   = 78.0
	probabilitySpread = 15.0
	signalIDPrefix    = "INF-"
	signalIDMin       = 10000
	signalIDSpan      = 90000
	maxIDAttempts     = 32
)

// SignalEngine turns an asset/timeframe pick into a pending signal.
type SignalEngine struct {
	rnd service.Random
}

// NewSignalEngine creates an engine drawing from rnd.
func NewSignalEngine(rnd service.Random) *SignalEngine {
	return &SignalEngine{rnd: rnd}
}

// Generate builds a new pending signal. taken reports ids already present in the retained
// history; the engine redraws until it finds a free one.
func (e *SignalEngine) Generate(asset models.Asset, timeframe string, bonus int, now time.Time, taken func(string) bool) models.Signal {
	base := baseProbability + e.rnd.Float64()*probabilitySpread

	direction := models.DirectionSell
	if e.rnd.Float64() < 0.5 {
		direction = models.DirectionBuy
	}

	return models.Signal{
		ID:          e.nextID(taken),
		Asset:       asset,
		Timeframe:   timeframe,
		Direction:   direction,
		Probability: FinalProbability(base, bonus),
		Timestamp:   now,
		Status:      models.StatusPending,
	}
}

// FinalProbability clamps base+bonus into [70, 99] and rounds to the nearest integer.
func FinalProbability(base float64, bonus int) int {
	p := math.Min(models.MaxProbability, math.Max(models.MinProbability, base+float64(bonus)))
	return int(math.Round(p))
}

func (e *SignalEngine) nextID(taken func(string) bool) string {
	var id string
	for i := 0; i < maxIDAttempts; i++ {
		id = fmt.Sprintf("%s%d", signalIDPrefix, signalIDMin+e.rnd.Intn(signalIDSpan))
		if taken == nil || !taken(id) {
			return id
		}
	}
	// 100 retained ids out of 90000: reaching this point is practically impossible.
	return id
}
