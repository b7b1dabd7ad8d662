package usecase

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"Infinity/internal/domain/models"
	applogger "Infinity/pkg/logger"
	"Infinity/pkg/metrics"

	"github.com/shopspring/decimal"
)

func TestAdvanceCurrencyPairStep(t *testing.T) {
	eur := models.Asset{ID: "f-eurusd", Name: "EUR/USD", Price: "1.10000", Change: "+0.00%", Type: models.AssetForex}
	rnd := rand.New(rand.NewSource(42))
	start := decimal.RequireFromString(eur.Price)
	limit := decimal.RequireFromString("0.000055").Add(decimal.RequireFromString("0.000005"))

	for i := 0; i < 500; i++ {
		next := Advance([]models.Asset{eur}, rnd)[0]
		p, err := decimal.NewFromString(next.Price)
		if err != nil {
			t.Fatalf("unparsable price %q", next.Price)
		}
		if parts := strings.SplitN(next.Price, ".", 2); len(parts) != 2 || len(parts[1]) != 5 {
			t.Fatalf("expected 5 decimals, got %q", next.Price)
		}
		if p.Sub(start).Abs().GreaterThan(limit) {
			t.Fatalf("step %s too large: %s -> %s", p.Sub(start), eur.Price, next.Price)
		}
	}
}

func TestAdvanceCryptoUsesTwoDecimals(t *testing.T) {
	btc := models.Asset{ID: "c-btcusd", Price: "64250.00", Change: "+1.45%"}
	gold := models.Asset{ID: "m-xauusd", Price: "2345.60", Change: "-0.41%"}
	next := Advance([]models.Asset{btc, gold}, &scriptedRandom{floats: []float64{0.9, 0.5}})

	for _, a := range next {
		parts := strings.SplitN(a.Price, ".", 2)
		if len(parts) != 2 || len(parts[1]) != 2 {
			t.Fatalf("expected 2 decimals for %s, got %q", a.ID, a.Price)
		}
	}
	// 64250 * 0.4 * 0.0005 = 12.85
	if next[0].Price != "64262.85" {
		t.Fatalf("unexpected crypto price %s", next[0].Price)
	}
	if next[0].LastTick != models.TickUp {
		t.Fatalf("expected up tick")
	}
	if next[0].Change != "+1.45%" {
		t.Fatalf("unexpected change %s", next[0].Change)
	}
}

func TestAdvanceDownTickAndChange(t *testing.T) {
	a := models.Asset{ID: "m-xagusd", Price: "27.45", Change: "+0.00%"}
	next := Advance([]models.Asset{a}, &scriptedRandom{floats: []float64{0.1, 0.0}})[0]
	if next.LastTick != models.TickDown {
		t.Fatalf("expected down tick, got %s", next.LastTick)
	}
	if next.Change != "-0.01%" {
		t.Fatalf("unexpected change %s", next.Change)
	}
}

func TestFormatChange(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "+0.00%"},
		{"0.125", "+0.13%"},
		{"-0.004", "+0.00%"},
		{"-1.5", "-1.50%"},
		{"2", "+2.00%"},
	}
	for _, tt := range tests {
		if got := FormatChange(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Fatalf("FormatChange(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPriceFeedTickReplacesSnapshot(t *testing.T) {
	f := NewPriceFeed(models.DefaultAssets(), rand.New(rand.NewSource(1)), 0, metrics.Nop{}, applogger.Nop())
	if f.Period() != DefaultFeedPeriod {
		t.Fatalf("expected default period, got %s", f.Period())
	}
	before := f.Assets()
	after := f.Tick()
	if len(after) != len(before) {
		t.Fatalf("asset count changed: %d -> %d", len(before), len(after))
	}
	for i := range after {
		if after[i].ID != before[i].ID {
			t.Fatalf("asset order changed at %d", i)
		}
	}
	got, ok := f.Find("f-eurusd")
	if !ok || got.Price != after[0].Price {
		t.Fatalf("find does not see the latest tick: %+v", got)
	}
	if _, ok := f.Find("x-unknown"); ok {
		t.Fatalf("expected unknown asset to be missing")
	}
}

func TestPriceFeedRunStopsOnCancel(t *testing.T) {
	f := NewPriceFeed(models.DefaultAssets(), rand.New(rand.NewSource(1)), 5*time.Millisecond, metrics.Nop{}, applogger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	initial := f.Assets()[4].Price
	for f.Assets()[4].Price == initial {
		select {
		case <-deadline:
			t.Fatalf("feed never ticked")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("feed did not stop")
	}
}
