package quota

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRemotePolicyAppliesOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"kill_switch": true, "free_daily_limit": 5, "launch_bonus": 2, "promo_end_date": "2026-12-31"}`))
	}))
	defer srv.Close()

	base := Policy{FreeDailyLimit: 2, FreeMonthlyCap: 60}
	src := NewRemotePolicy(srv.URL, base, time.Minute, zerolog.Nop())

	pol, err := src.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if !pol.KillSwitch {
		t.Fatalf("KillSwitch not applied")
	}
	if pol.FreeDailyLimit != 5 {
		t.Fatalf("FreeDailyLimit = %d, want 5", pol.FreeDailyLimit)
	}
	if pol.FreeMonthlyCap != 60 {
		t.Fatalf("FreeMonthlyCap = %d, want base value 60", pol.FreeMonthlyCap)
	}
	if pol.LaunchBonus != 2 {
		t.Fatalf("LaunchBonus = %d, want 2", pol.LaunchBonus)
	}
	wantEnd := DayOrdinal(time.Date(2026, 12, 31, 0, 0, 0, 0, time.Local))
	if pol.PromoEndOrdinal != wantEnd {
		t.Fatalf("PromoEndOrdinal = %d, want %d", pol.PromoEndOrdinal, wantEnd)
	}
}

func TestRemotePolicyCachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"free_daily_limit": 4}`))
	}))
	defer srv.Close()

	src := NewRemotePolicy(srv.URL, Policy{FreeDailyLimit: 2}, time.Minute, zerolog.Nop())
	for i := 0; i < 3; i++ {
		if _, err := src.Snapshot(context.Background()); err != nil {
			t.Fatalf("Snapshot() %d error: %v", i+1, err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("config endpoint hit %d times within TTL, want 1", got)
	}
}

func TestRemotePolicyServesStaleOnFetchFailure(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"free_daily_limit": 7}`))
	}))
	defer srv.Close()

	src := NewRemotePolicy(srv.URL, Policy{FreeDailyLimit: 2}, time.Nanosecond, zerolog.Nop())
	first, err := src.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	fail.Store(true)
	time.Sleep(time.Millisecond)
	second, err := src.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() after failure error: %v", err)
	}
	if second != first {
		t.Fatalf("stale snapshot mismatch: got %+v want %+v", second, first)
	}
}

func TestRemotePolicyColdStartFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewRemotePolicy(srv.URL, Policy{}, time.Minute, zerolog.Nop())
	if _, err := src.Snapshot(context.Background()); err == nil {
		t.Fatalf("Snapshot() on cold-start failure expected error")
	}
}
