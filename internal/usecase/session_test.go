package usecase

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"Infinity/internal/domain/models"
	"Infinity/internal/service/ratelimit"
	applogger "Infinity/pkg/logger"
	"Infinity/pkg/metrics"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestSession(t *testing.T, store *memoryStore, pub *recordingPublisher, clock *testClock) *Session {
	t.Helper()
	feed := NewPriceFeed(models.DefaultAssets(), rand.New(rand.NewSource(11)), time.Hour, metrics.Nop{}, applogger.Nop())
	s := NewSession(
		feed,
		NewSignalEngine(rand.New(rand.NewSource(13))),
		ratelimit.New(ratelimit.DefaultWindow, nil),
		NewTierGate(nil),
		store,
		pub,
		metrics.Nop{},
		applogger.Nop(),
		WithClock(clock.Now),
		WithEventIDs(func() string { return "evt" }),
	)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func flush(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func runCycle(t *testing.T, s *Session, assetID string) models.Signal {
	t.Helper()
	if err := s.StartCycle(); err != nil {
		t.Fatalf("start cycle: %v", err)
	}
	if err := s.SelectAsset(assetID); err != nil {
		t.Fatalf("select asset: %v", err)
	}
	if err := s.SelectTimeframe("5m"); err != nil {
		t.Fatalf("select timeframe: %v", err)
	}
	sig, err := s.CompleteAnalysis(context.Background())
	if err != nil {
		t.Fatalf("complete analysis: %v", err)
	}
	return sig
}

func TestSessionQuotaWindow(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	s := newTestSession(t, &memoryStore{}, &recordingPublisher{}, clock)

	for i := 0; i < 20; i++ {
		runCycle(t, s, "f-eurusd")
		s.BackToMain()
	}
	if err := s.StartCycle(); !errors.Is(err, models.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	snap := s.Snapshot()
	if snap.SignalsUsed != 20 || snap.Limit != 20 || snap.Screen != models.ScreenMain {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	clock.Advance(12 * time.Hour)
	if err := s.StartCycle(); err != nil {
		t.Fatalf("expected quota to reset after the window, got %v", err)
	}
	if s.Snapshot().SignalsUsed != 0 {
		t.Fatalf("expected 0 signals used after the window")
	}
}

func TestSessionFeedbackAndRestore(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	store := &memoryStore{}
	pub := &recordingPublisher{}
	s := newTestSession(t, store, pub, clock)

	first := runCycle(t, s, "c-btcusd")
	if _, err := s.RecordFeedback(context.Background(), first.ID, models.StatusConfirmed); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if _, err := s.RecordFeedback(context.Background(), first.ID, models.StatusFailed); !errors.Is(err, models.ErrAlreadyJudged) {
		t.Fatalf("expected ErrAlreadyJudged, got %v", err)
	}
	if err := s.RestartCycle(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	second, err := s.CompleteAnalysis(context.Background())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	flush(t, s)
	snap := s.Snapshot()
	if snap.Bonus["c-btcusd"] != 5 {
		t.Fatalf("expected bonus 5, got %v", snap.Bonus)
	}
	if snap.ActiveSignal == nil || snap.ActiveSignal.ID != second.ID {
		t.Fatalf("active signal not shown: %+v", snap.ActiveSignal)
	}
	if got := pub.types(); len(got) != 3 || got[0] != models.EventSignalCreated || got[1] != models.EventSignalJudged {
		t.Fatalf("unexpected events %v", got)
	}

	persisted := store.snapshot()
	if len(persisted.History) != 2 || persisted.History[0].ID != second.ID || persisted.History[1].Status != models.StatusConfirmed {
		t.Fatalf("history not persisted newest first: %+v", persisted.History)
	}

	restored := newTestSession(t, store, &recordingPublisher{}, clock)
	rs := restored.Snapshot()
	if len(rs.History) != 2 || rs.Bonus["c-btcusd"] != 5 {
		t.Fatalf("restore lost state: history=%d bonus=%v", len(rs.History), rs.Bonus)
	}
	if rs.Screen != models.ScreenMain || rs.ActiveSignal != nil {
		t.Fatalf("restored session should start on MAIN")
	}
}

func TestSessionChangeTier(t *testing.T) {
	clock := &testClock{now: time.Now()}
	store := &memoryStore{}
	s := newTestSession(t, store, &recordingPublisher{}, clock)

	status, err := s.ChangeTier(context.Background(), "2741520")
	if err != nil || status != models.UserVerified {
		t.Fatalf("expected VERIFIED, got %q %v", status, err)
	}
	flush(t, s)
	if store.snapshot().Status != models.UserVerified {
		t.Fatalf("status not persisted")
	}
	if _, err := s.ChangeTier(context.Background(), "0000000"); !errors.Is(err, models.ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	snap := s.Snapshot()
	if snap.Status != models.UserVerified || snap.Limit != 50 {
		t.Fatalf("wrong password changed status: %+v", snap)
	}

	if _, err := s.ChangeTier(context.Background(), "1448135"); err != nil {
		t.Fatalf("vip: %v", err)
	}
	if s.Snapshot().Limit != ratelimit.Unlimited {
		t.Fatalf("expected unlimited quota for VIP")
	}
}

func TestSessionLanguage(t *testing.T) {
	store := &memoryStore{}
	s := newTestSession(t, store, &recordingPublisher{}, &testClock{now: time.Now()})

	if s.Snapshot().Lang != models.LangRU {
		t.Fatalf("expected RU by default")
	}
	if err := s.SetLanguage(context.Background(), "en"); err != nil {
		t.Fatalf("set language: %v", err)
	}
	flush(t, s)
	if s.Snapshot().Lang != models.LangEN || store.snapshot().Lang != models.LangEN {
		t.Fatalf("language not applied or persisted")
	}
	if err := s.SetLanguage(context.Background(), "DE"); !errors.Is(err, models.ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestSessionStoreFailuresDoNotFailIntents(t *testing.T) {
	store := &memoryStore{loadErr: errBackendDown, saveErr: errBackendDown}
	pub := &recordingPublisher{err: errBackendDown}
	s := newTestSession(t, store, pub, &testClock{now: time.Now()})

	sig := runCycle(t, s, "m-xauusd")
	if _, err := s.RecordFeedback(context.Background(), sig.ID, models.StatusFailed); err != nil {
		t.Fatalf("feedback should succeed without storage: %v", err)
	}
	if _, err := s.ChangeTier(context.Background(), "1448135"); err != nil {
		t.Fatalf("tier change should succeed without storage: %v", err)
	}
	flush(t, s)
	if saves := store.saveCount(); saves != 3 {
		t.Fatalf("expected 3 save attempts, got %d", saves)
	}
	snap := s.Snapshot()
	if snap.Bonus["m-xauusd"] != -5 || snap.Status != models.UserVIP {
		t.Fatalf("in-memory state not updated: %+v", snap)
	}
}

func TestSessionStartTwice(t *testing.T) {
	s := newTestSession(t, &memoryStore{}, &recordingPublisher{}, &testClock{now: time.Now()})
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected error on second start")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSessionHistoryCapacity(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	feed := NewPriceFeed(models.DefaultAssets(), rand.New(rand.NewSource(11)), time.Hour, metrics.Nop{}, applogger.Nop())
	s := NewSession(feed, NewSignalEngine(rand.New(rand.NewSource(13))),
		ratelimit.New(ratelimit.DefaultWindow, nil), NewTierGate(nil),
		&memoryStore{}, &recordingPublisher{}, metrics.Nop{}, applogger.Nop(),
		WithClock(clock.Now), WithHistoryCapacity(3))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Close()

	var last models.Signal
	for i := 0; i < 5; i++ {
		last = runCycle(t, s, "m-xauusd")
		s.BackToMain()
	}
	snap := s.Snapshot()
	if len(snap.History) != 3 || snap.History[0].ID != last.ID {
		t.Fatalf("expected 3 newest entries led by %s, got %+v", last.ID, snap.History)
	}
}

func TestSessionStartCloseLoop(t *testing.T) {
	for i := 0; i < 500; i++ {
		feed := NewPriceFeed(models.DefaultAssets(), rand.New(rand.NewSource(int64(i))), time.Millisecond, metrics.Nop{}, applogger.Nop())
		s := NewSession(feed, NewSignalEngine(rand.New(rand.NewSource(1))),
			ratelimit.New(ratelimit.DefaultWindow, nil), NewTierGate(nil),
			&memoryStore{}, &recordingPublisher{}, metrics.Nop{}, applogger.Nop())
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
}

func TestSessionConcurrentStart(t *testing.T) {
	s := NewSession(
		NewPriceFeed(models.DefaultAssets(), rand.New(rand.NewSource(1)), time.Hour, metrics.Nop{}, applogger.Nop()),
		NewSignalEngine(rand.New(rand.NewSource(2))),
		ratelimit.New(ratelimit.DefaultWindow, nil), NewTierGate(nil),
		&memoryStore{}, &recordingPublisher{}, metrics.Nop{}, applogger.Nop())

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Start(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	started := 0
	for err := range errs {
		if err == nil {
			started++
		}
	}
	if started != 1 {
		t.Fatalf("expected exactly one successful start, got %d", started)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSessionCloseDrainsQueuedWrites(t *testing.T) {
	store := &memoryStore{}
	pub := &recordingPublisher{}
	feed := NewPriceFeed(models.DefaultAssets(), rand.New(rand.NewSource(1)), time.Hour, metrics.Nop{}, applogger.Nop())
	s := NewSession(feed, NewSignalEngine(rand.New(rand.NewSource(2))),
		ratelimit.New(ratelimit.DefaultWindow, nil), NewTierGate(nil),
		store, pub, metrics.Nop{}, applogger.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	sig := runCycle(t, s, "f-gbpusd")
	if _, err := s.RecordFeedback(context.Background(), sig.ID, models.StatusConfirmed); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if err := s.SetLanguage(context.Background(), "EN"); err != nil {
		t.Fatalf("lang: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	persisted := store.snapshot()
	if len(persisted.History) != 1 || persisted.History[0].Status != models.StatusConfirmed || persisted.Lang != models.LangEN {
		t.Fatalf("queued writes not applied in order: %+v", persisted)
	}
	if got := pub.types(); len(got) != 2 || got[0] != models.EventSignalCreated || got[1] != models.EventSignalJudged {
		t.Fatalf("unexpected events %v", got)
	}

	// after Close the state still changes in memory, nothing is written
	if err := s.SetLanguage(context.Background(), "RU"); err != nil {
		t.Fatalf("lang after close: %v", err)
	}
	if store.snapshot().Lang != models.LangEN {
		t.Fatalf("write after close should be skipped")
	}
}
