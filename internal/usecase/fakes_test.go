package usecase

import (
	"context"
	"errors"
	"sync"

	"Infinity/internal/domain/models"
)

// scriptedRandom replays fixed draws and repeats the last one when exhausted.
type scriptedRandom struct {
	floats []float64
	ints   []int
}

func (r *scriptedRandom) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	if len(r.floats) > 1 {
		r.floats = r.floats[1:]
	}
	return v
}

func (r *scriptedRandom) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	if len(r.ints) > 1 {
		r.ints = r.ints[1:]
	}
	return v % n
}

type memoryStore struct {
	mu      sync.Mutex
	state   models.PersistedState
	loadErr error
	saveErr error
	saves   int
}

func (m *memoryStore) Load(context.Context) (models.PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return models.PersistedState{}, m.loadErr
	}
	st := m.state
	st.History = append([]models.Signal(nil), m.state.History...)
	return st, nil
}

func (m *memoryStore) SaveHistory(_ context.Context, h []models.Signal) error {
	return m.save(func() { m.state.History = append([]models.Signal(nil), h...) })
}

func (m *memoryStore) SaveStatus(_ context.Context, s models.UserStatus) error {
	return m.save(func() { m.state.Status = s })
}

func (m *memoryStore) SaveLang(_ context.Context, l models.Language) error {
	return m.save(func() { m.state.Lang = l })
}

func (m *memoryStore) save(apply func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	apply()
	return nil
}

func (m *memoryStore) snapshot() models.PersistedState {
	st, _ := m.Load(context.Background())
	return st
}

func (m *memoryStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memoryStore) Close() error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SignalEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e models.SignalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

var errBackendDown = errors.New("backend down")
