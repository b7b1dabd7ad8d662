package models

import "time"

// HistoryCapacity is the maximum number of retained signals.
const HistoryCapacity = 100

// History is the ordered signal log, newest first.
type History struct {
	items    []Signal
	capacity int
}

// NewHistory builds a history from a newest-first slice, trimming to capacity.
func NewHistory(items []Signal, capacity int) *History {
	if capacity <= 0 {
		capacity = HistoryCapacity
	}
	if len(items) > capacity {
		items = items[:capacity]
	}
	cp := make([]Signal, len(items), capacity)
	copy(cp, items)
	return &History{items: cp, capacity: capacity}
}

// Prepend inserts s as the newest entry and evicts the oldest on overflow.
func (h *History) Prepend(s Signal) {
	h.items = append([]Signal{s}, h.items...)
	if len(h.items) > h.capacity {
		h.items = h.items[:h.capacity]
	}
}

// Len returns the number of retained signals.
func (h *History) Len() int { return len(h.items) }

// Items returns a newest-first copy.
func (h *History) Items() []Signal {
	out := make([]Signal, len(h.items))
	copy(out, h.items)
	return out
}

// Find returns the signal with id.
func (h *History) Find(id string) (Signal, bool) {
	if i := h.index(id); i >= 0 {
		return h.items[i], true
	}
	return Signal{}, false
}

// Contains reports whether id is already retained.
func (h *History) Contains(id string) bool { return h.index(id) >= 0 }

// SetStatus overwrites the status of the signal with id.
func (h *History) SetStatus(id string, status SignalStatus) (Signal, bool) {
	i := h.index(id)
	if i < 0 {
		return Signal{}, false
	}
	h.items[i].Status = status
	return h.items[i], true
}

// CountSince counts signals with now - timestamp < window.
func (h *History) CountSince(now time.Time, window time.Duration) int {
	n := 0
	for _, s := range h.items {
		if now.Sub(s.Timestamp) < window {
			n++
		}
	}
	return n
}

func (h *History) index(id string) int {
	for i := range h.items {
		if h.items[i].ID == id {
			return i
		}
	}
	return -1
}
