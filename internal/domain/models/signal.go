package models

import "time"

// Direction is the recommended side of a signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// SignalStatus is the lifecycle status of a signal. PENDING is the only non-terminal value.
type SignalStatus string

const (
	StatusPending   SignalStatus = "PENDING"
	StatusConfirmed SignalStatus = "CONFIRMED"
	StatusFailed    SignalStatus = "FAILED"
)

// IsOutcome reports whether s can be used to judge a pending signal.
func (s SignalStatus) IsOutcome() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Probability bounds of a generated signal.
const (
	MinProbability = 70
	MaxProbability = 99
)

// Signal is one generated recommendation.
type Signal struct {
	ID          string       `json:"id"`
	Asset       Asset        `json:"asset"`
	Timeframe   string       `json:"timeframe"`
	Direction   Direction    `json:"direction"`
	Probability int          `json:"probability"`
	Timestamp   time.Time    `json:"timestamp"`
	Status      SignalStatus `json:"status"`
}

// IsPending reports whether the signal can still be judged.
func (s Signal) IsPending() bool { return s.Status == StatusPending }

// SignalEvent is emitted to the event sink when a signal is created or judged.
type SignalEvent struct {
	EventID    string     `json:"event_id"`
	Type       string     `json:"type"` // "signal.created" | "signal.judged"
	Signal     Signal     `json:"signal"`
	UserStatus UserStatus `json:"user_status"`
	Bonus      int        `json:"bonus"`
	OccurredAt time.Time  `json:"occurred_at"`
}

const (
	EventSignalCreated = "signal.created"
	EventSignalJudged  = "signal.judged"
)
