package server

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"Infinity/internal/domain/models"
	mid "Infinity/internal/middleware"
	"Infinity/internal/repository"
	"Infinity/internal/service/ratelimit"
	"Infinity/internal/usecase"
	"Infinity/pkg/cache"
	"Infinity/pkg/config"
	xhttp "Infinity/pkg/http"
	applogger "Infinity/pkg/logger"
	pkgmetrics "Infinity/pkg/metrics"
)

type closeTrackingStore struct {
	*repository.CacheStateStore
	closed bool
}

func (s *closeTrackingStore) Close() error {
	s.closed = true
	return s.CacheStateStore.Close()
}

func TestAppRunStopsOnCancel(t *testing.T) {
	l := applogger.Nop()
	store := &closeTrackingStore{CacheStateStore: repository.NewCacheStateStore(cache.NewMemoryCache(), l)}
	events := mid.NewEventPipeline(repository.NoopEventPublisher{}, pkgmetrics.Nop{}, l)
	feed := usecase.NewPriceFeed(models.DefaultAssets(), rand.New(rand.NewSource(1)), 10*time.Millisecond, pkgmetrics.Nop{}, l)
	session := usecase.NewSession(feed, usecase.NewSignalEngine(rand.New(rand.NewSource(2))),
		ratelimit.New(0, nil), usecase.NewTierGate(nil), store, events, pkgmetrics.Nop{}, l)
	srv := xhttp.NewServer(nil, l, nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetricsPath(""))

	app := New(&config.Config{}, l, srv, session, events, store)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- app.run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
	if !store.closed {
		t.Fatalf("expected state store to be closed on shutdown")
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
}
