package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"Infinity/internal/domain/models"
	"Infinity/internal/domain/repository"
	"Infinity/internal/service/ratelimit"
	applogger "Infinity/pkg/logger"

	"github.com/google/uuid"
)

const (
	keyHistory = "history"
	keyStatus  = "status"
	keyLang    = "lang"
)

// Snapshot is a read-only copy of the session handed to the presentation layer.
type Snapshot struct {
	Screen           models.Screen        `json:"screen"`
	PendingAsset     *models.Asset        `json:"pendingAsset,omitempty"`
	PendingTimeframe string               `json:"pendingTimeframe,omitempty"`
	ActiveSignal     *models.Signal       `json:"activeSignal,omitempty"`
	History          []models.Signal      `json:"history"`
	Bonus            models.FeedbackBonus `json:"bonus"`
	Status           models.UserStatus    `json:"status"`
	Lang             models.Language      `json:"lang"`
	SignalsUsed      int                  `json:"signalsUsed"`
	Limit            int                  `json:"limit"` // -1 when unlimited
}

// SessionOption configures Session.
type SessionOption func(*Session)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithDefaultLanguage sets the language used when none is persisted.
func WithDefaultLanguage(lang models.Language) SessionOption {
	return func(s *Session) {
		if lang.IsSupported() {
			s.defaultLang = lang
		}
	}
}

// WithPersistTimeout bounds each best-effort store write.
func WithPersistTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// WithHistoryCapacity bounds the number of retained signals.
func WithHistoryCapacity(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.historyCap = n
		}
	}
}

// WithEventIDs replaces the uuid generator used for event ids.
func WithEventIDs(fn func() string) SessionOption {
	return func(s *Session) { s.eventID = fn }
}

// Session is the single controller that owns the session state. Intents are serialized by mu.
// Store writes and event publication are queued in intent order and applied by one writer
// goroutine, so they never delay or fail an intent.
type Session struct {
	mu     sync.Mutex
	state  *models.SessionState
	writes chan write // nil unless started

	flow     *ScreenFlow
	feedback *FeedbackModel
	gate     *TierGate
	limiter  *ratelimit.QuotaLimiter
	feed     *PriceFeed

	store   repository.StateStore
	events  repository.EventPublisher
	metrics repository.Metrics
	l       *applogger.Logger

	persistTimeout time.Duration
	queueSize      int
	defaultLang    models.Language
	historyCap     int
	now            func() time.Time
	eventID        func() string

	lifeMu     sync.Mutex // guards Start/Close and the fields below
	cancel     context.CancelFunc
	feedDone   chan struct{}
	writerDone chan struct{}
}

// write is one queued side effect: a store key with the value captured at intent time,
// an event, or a flush marker.
type write struct {
	key     string
	history []models.Signal
	status  models.UserStatus
	lang    models.Language
	event   *models.SignalEvent
	flushed chan struct{}
}

// NewSession wires the core components around a fresh state.
func NewSession(
	feed *PriceFeed,
	engine *SignalEngine,
	limiter *ratelimit.QuotaLimiter,
	gate *TierGate,
	store repository.StateStore,
	events repository.EventPublisher,
	metrics repository.Metrics,
	l *applogger.Logger,
	opts ...SessionOption,
) *Session {
	s := &Session{
		flow:           NewScreenFlow(engine, limiter, feed),
		feedback:       NewFeedbackModel(),
		gate:           gate,
		limiter:        limiter,
		feed:           feed,
		store:          store,
		events:         events,
		metrics:        metrics,
		l:              l,
		persistTimeout: 3 * time.Second,
		queueSize:      256,
		defaultLang:    models.LangRU,
		historyCap:     models.HistoryCapacity,
		now:            time.Now,
		eventID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = models.NewSessionState(s.defaultLang)
	s.state.History = models.NewHistory(nil, s.historyCap)
	return s
}

// Start restores persisted state, then launches the price feed and the writer. The feed stops
// on Close or when ctx is cancelled; the writer stops on Close after draining its queue.
// Intents applied before Start or after Close are kept in memory only.
func (s *Session) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("session already started")
	}
	s.restore(ctx)

	writes := make(chan write, s.queueSize)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for w := range writes {
			s.apply(w)
		}
	}()

	feedCtx, cancel := context.WithCancel(ctx)
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		s.feed.Run(feedCtx)
	}()

	s.mu.Lock()
	s.writes = writes
	s.mu.Unlock()
	s.cancel, s.feedDone, s.writerDone = cancel, feedDone, writerDone
	return nil
}

// Close stops the price feed, applies every queued write and waits for both goroutines.
func (s *Session) Close() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	<-s.feedDone

	s.mu.Lock()
	writes := s.writes
	s.writes = nil
	s.mu.Unlock()
	close(writes)
	<-s.writerDone

	s.cancel, s.feedDone, s.writerDone = nil, nil, nil
	return nil
}

// Flush waits until every write queued so far has been applied, or ctx is done.
func (s *Session) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	s.mu.Lock()
	queued := s.enqueueLocked(ctx, write{flushed: flushed})
	s.mu.Unlock()
	if !queued {
		return ctx.Err()
	}
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) restore(ctx context.Context) {
	ps, err := s.store.Load(ctx)
	if err != nil {
		s.metrics.RecordError("state_load")
		s.l.Warn("session state load failed, starting empty", applogger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ps.History) > 0 {
		s.state.History = models.NewHistory(ps.History, s.historyCap)
	}
	if ps.Status.IsValid() {
		s.state.Status = ps.Status
	}
	if ps.Lang.IsSupported() {
		s.state.Lang = ps.Lang
	}
	s.state.Bonus = s.feedback.Rebuild(s.state.History)
	s.l.Info("session restored",
		applogger.Int("history", s.state.History.Len()),
		applogger.String("status", string(s.state.Status)),
		applogger.String("lang", string(s.state.Lang)),
	)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Assets returns the live quotes.
func (s *Session) Assets() []models.Asset { return s.feed.Assets() }

// FeedPeriod returns the interval between two quote updates.
func (s *Session) FeedPeriod() time.Duration { return s.feed.Period() }

// StartCycle leaves MAIN if the tier quota allows it.
func (s *Session) StartCycle() error {
	s.mu.Lock()
	err := s.flow.Start(s.state, s.now())
	status := s.state.Status
	s.mu.Unlock()

	if errors.Is(err, models.ErrQuotaExceeded) {
		s.metrics.RecordQuotaRejected(status)
		s.l.Info("signal quota exceeded", applogger.String("status", string(status)), applogger.Error(err))
	}
	return err
}

func (s *Session) SelectAsset(assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.SelectAsset(s.state, assetID)
}

func (s *Session) SelectTimeframe(tf string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.SelectTimeframe(s.state, tf)
}

// CompleteAnalysis generates the signal for the pending pick. ctx only bounds the wait for
// room in the write queue.
func (s *Session) CompleteAnalysis(ctx context.Context) (models.Signal, error) {
	start := time.Now()
	s.mu.Lock()
	sig, err := s.flow.CompleteAnalysis(s.state, s.now())
	if err != nil {
		s.mu.Unlock()
		return models.Signal{}, err
	}
	ev := s.newEvent(models.EventSignalCreated, sig)
	s.enqueueLocked(ctx, write{key: keyHistory, history: s.state.History.Items(), event: &ev})
	s.mu.Unlock()

	s.metrics.RecordSignalGenerated(sig.Asset.ID, sig.Direction)
	s.metrics.RecordLatency("generate_signal", time.Since(start).Seconds())
	s.l.Info("signal generated",
		applogger.String("id", sig.ID),
		applogger.String("asset", sig.Asset.ID),
		applogger.String("timeframe", sig.Timeframe),
		applogger.String("direction", string(sig.Direction)),
		applogger.Int("probability", sig.Probability),
		applogger.Int("bonus", ev.Bonus),
	)
	return sig, nil
}

func (s *Session) RestartCycle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.RestartCycle(s.state)
}

func (s *Session) BackToMain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow.BackToMain(s.state)
}

// RecordFeedback judges a pending signal and updates the asset bias.
func (s *Session) RecordFeedback(ctx context.Context, signalID string, outcome models.SignalStatus) (models.Signal, error) {
	s.mu.Lock()
	sig, err := s.feedback.Record(s.state, signalID, outcome)
	if err != nil {
		s.mu.Unlock()
		return models.Signal{}, err
	}
	ev := s.newEvent(models.EventSignalJudged, sig)
	s.enqueueLocked(ctx, write{key: keyHistory, history: s.state.History.Items(), event: &ev})
	s.mu.Unlock()

	s.metrics.RecordFeedback(sig.Asset.ID, outcome)
	s.l.Info("signal judged",
		applogger.String("id", sig.ID),
		applogger.String("asset", sig.Asset.ID),
		applogger.String("outcome", string(outcome)),
		applogger.Int("bonus", ev.Bonus),
	)
	return sig, nil
}

// ChangeTier unlocks the tier matched by secret.
func (s *Session) ChangeTier(ctx context.Context, secret string) (models.UserStatus, error) {
	status, err := s.gate.Resolve(secret)
	if err != nil {
		s.l.Info("tier change rejected")
		return "", err
	}

	s.mu.Lock()
	s.state.Status = status
	s.enqueueLocked(ctx, write{key: keyStatus, status: status})
	s.mu.Unlock()

	s.l.Info("tier changed", applogger.String("status", string(status)))
	return status, nil
}

// SetLanguage switches the interface language.
func (s *Session) SetLanguage(ctx context.Context, code string) error {
	lang := models.Language(strings.ToUpper(strings.TrimSpace(code)))
	if !lang.IsSupported() {
		return fmt.Errorf("language %q: %w", code, models.ErrUnsupportedLanguage)
	}

	s.mu.Lock()
	s.state.Lang = lang
	s.enqueueLocked(ctx, write{key: keyLang, lang: lang})
	s.mu.Unlock()
	return nil
}

func (s *Session) snapshotLocked() Snapshot {
	st := s.state
	snap := Snapshot{
		Screen:           st.Screen,
		PendingTimeframe: st.PendingTimeframe,
		History:          st.History.Items(),
		Bonus:            st.Bonus.Clone(),
		Status:           st.Status,
		Lang:             st.Lang,
		SignalsUsed:      s.limiter.Used(st.History, s.now()),
		Limit:            s.limiter.Quota(st.Status),
	}
	if snap.Limit < 0 {
		snap.Limit = ratelimit.Unlimited
	}
	if st.PendingAsset != nil {
		a := *st.PendingAsset
		snap.PendingAsset = &a
	}
	if st.ActiveSignalID != "" {
		if sig, ok := st.History.Find(st.ActiveSignalID); ok {
			snap.ActiveSignal = &sig
		}
	}
	return snap
}

func (s *Session) newEvent(typ string, sig models.Signal) models.SignalEvent {
	return models.SignalEvent{
		EventID:    s.eventID(),
		Type:       typ,
		Signal:     sig,
		UserStatus: s.state.Status,
		Bonus:      s.state.Bonus[sig.Asset.ID],
		OccurredAt: s.now(),
	}
}

// enqueueLocked queues w behind earlier writes. Values are captured under mu, so queue order
// is state order. The writer never takes mu, so blocking here on a full queue is safe.
func (s *Session) enqueueLocked(ctx context.Context, w write) bool {
	if s.writes == nil {
		s.l.Debug("session not running, write skipped", applogger.String("key", w.key))
		return false
	}
	select {
	case s.writes <- w:
		return true
	case <-ctx.Done():
		s.metrics.RecordError("state_queue")
		s.l.Warn("write queue full, write dropped", applogger.String("key", w.key), applogger.Error(ctx.Err()))
		return false
	}
}

// apply runs on the writer goroutine. Failures are logged and counted only.
func (s *Session) apply(w write) {
	if w.flushed != nil {
		close(w.flushed)
		return
	}
	if w.key != "" {
		s.persist(w)
	}
	if w.event != nil {
		s.publish(*w.event)
	}
}

func (s *Session) persist(w write) {
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	start := time.Now()
	var err error
	switch w.key {
	case keyHistory:
		err = s.store.SaveHistory(ctx, w.history)
	case keyStatus:
		err = s.store.SaveStatus(ctx, w.status)
	case keyLang:
		err = s.store.SaveLang(ctx, w.lang)
	}
	if err != nil {
		s.metrics.RecordError("state_save")
		s.l.Warn("session state save failed", applogger.String("key", w.key), applogger.Error(err))
		return
	}
	s.metrics.RecordLatency("state_save", time.Since(start).Seconds())
}

func (s *Session) publish(ev models.SignalEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	if err := s.events.Publish(ctx, ev); err != nil {
		s.metrics.RecordError("event_publish")
		s.l.Warn("signal event publish failed",
			applogger.String("type", ev.Type),
			applogger.String("signal", ev.Signal.ID),
			applogger.Error(err),
		)
	}
}
