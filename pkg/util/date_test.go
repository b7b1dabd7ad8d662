package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got, ok := ParseSince("12h", now)
	if !ok || !got.Equal(now.Add(-12*time.Hour)) {
		t.Fatalf("unexpected relative since %v %v", got, ok)
	}
	got, ok = ParseSince("2026-03-01T00:00:00Z", now)
	if !ok || got.Hour() != 0 {
		t.Fatalf("unexpected absolute since %v", got)
	}
	for _, bad := range []string{"", "-5m", "yesterday"} {
		if _, ok := ParseSince(bad, now); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" k1:9092, ,k2:9092,")
	if len(got) != 2 || got[0] != "k1:9092" || got[1] != "k2:9092" {
		t.Fatalf("unexpected split %q", got)
	}
}
