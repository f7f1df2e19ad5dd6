package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"billserver/internal/domain"
)

type manualClock struct {
	today      int
	monthStart int
}

func (c *manualClock) TodayOrdinal() int      { return c.today }
func (c *manualClock) MonthStartOrdinal() int { return c.monthStart }
func (c *manualClock) NextMidnight() time.Time {
	return time.Unix(int64(c.today+1)*86400, 0)
}

func staticDevices(tier domain.DeviceTier) DeviceClassifier {
	return ClassifierFunc(func(context.Context) domain.DeviceTier { return tier })
}

func testGate(store Store, clock Clock, pol Policy) *Gate {
	return NewGate(store, clock, StaticPolicy{Policy: pol}, staticDevices(domain.DeviceTierMidRange), zerolog.Nop())
}

func basePolicy() Policy {
	return Policy{FreeDailyLimit: 2, FreeMonthlyCap: 60}
}

func TestEvaluateConsumesUpToDailyCap(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20000, monthStart: 19990}
	gate := testGate(store, clock, basePolicy())

	for i := 0; i < 2; i++ {
		v, err := gate.Evaluate(context.Background(), "u1", true)
		if err != nil {
			t.Fatalf("Evaluate() call %d error: %v", i+1, err)
		}
		allowed, ok := v.(Allowed)
		if !ok {
			t.Fatalf("Evaluate() call %d = %T, want Allowed", i+1, v)
		}
		if want := 1 - i; allowed.Remaining != want {
			t.Fatalf("Remaining on call %d = %d, want %d", i+1, allowed.Remaining, want)
		}
	}

	v, err := gate.Evaluate(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("Evaluate() third call error: %v", err)
	}
	capped, ok := v.(DailyCapReached)
	if !ok {
		t.Fatalf("Evaluate() third call = %T, want DailyCapReached", v)
	}
	if capped.Limit != 2 {
		t.Fatalf("DailyCapReached.Limit = %d, want 2", capped.Limit)
	}
	if capped.ResetAt.IsZero() {
		t.Fatalf("DailyCapReached.ResetAt is zero")
	}
}

func TestEvaluateLaunchBonusExtendsCap(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20000, monthStart: 19990}
	pol := basePolicy()
	pol.LaunchBonus = 1
	pol.PromoEndOrdinal = 20010
	gate := testGate(store, clock, pol)

	for i := 0; i < 3; i++ {
		v, err := gate.Evaluate(context.Background(), "u1", true)
		if err != nil {
			t.Fatalf("Evaluate() call %d error: %v", i+1, err)
		}
		if _, ok := v.(Allowed); !ok {
			t.Fatalf("Evaluate() call %d = %T, want Allowed", i+1, v)
		}
	}
	v, err := gate.Evaluate(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("Evaluate() fourth call error: %v", err)
	}
	capped, ok := v.(DailyCapReached)
	if !ok {
		t.Fatalf("Evaluate() fourth call = %T, want DailyCapReached", v)
	}
	if capped.Limit != 3 {
		t.Fatalf("DailyCapReached.Limit = %d, want 3", capped.Limit)
	}
}

func TestEvaluateNoBonusAfterPromoEnds(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20011, monthStart: 20000}
	pol := basePolicy()
	pol.LaunchBonus = 1
	pol.PromoEndOrdinal = 20010
	gate := testGate(store, clock, pol)

	v, err := gate.Evaluate(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	allowed, ok := v.(Allowed)
	if !ok {
		t.Fatalf("Evaluate() = %T, want Allowed", v)
	}
	if allowed.Remaining != 1 {
		t.Fatalf("Remaining = %d, want 1 (no promo bonus)", allowed.Remaining)
	}
}

func TestProbeIsIdempotent(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20000, monthStart: 19990}
	gate := testGate(store, clock, basePolicy())

	var first Verdict
	for i := 0; i < 5; i++ {
		v, err := gate.Evaluate(context.Background(), "u1", false)
		if err != nil {
			t.Fatalf("probe %d error: %v", i+1, err)
		}
		if first == nil {
			first = v
		} else if v != first {
			t.Fatalf("probe %d = %#v, want %#v", i+1, v, first)
		}
	}

	rec, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec.DailyUsed != 0 || rec.MonthlyUsed != 0 {
		t.Fatalf("probe mutated counters: daily=%d monthly=%d", rec.DailyUsed, rec.MonthlyUsed)
	}
}

func TestProbeReflectsSingleConsume(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20000, monthStart: 19990}
	gate := testGate(store, clock, basePolicy())

	before, err := gate.Evaluate(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("probe error: %v", err)
	}
	if got := before.(Allowed).Remaining; got != 1 {
		t.Fatalf("probe before consume Remaining = %d, want 1", got)
	}
	if _, err := gate.Evaluate(context.Background(), "u1", true); err != nil {
		t.Fatalf("consume error: %v", err)
	}
	after, err := gate.Evaluate(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("probe error: %v", err)
	}
	if got := after.(Allowed).Remaining; got != 0 {
		t.Fatalf("probe after consume Remaining = %d, want 0", got)
	}
}

func TestDailyRolloverResetsBeforeCapCheck(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20001, monthStart: 19990}
	gate := testGate(store, clock, basePolicy())

	seed := &domain.UserQuota{
		UserID:              "u1",
		Tier:                domain.TierFree,
		DailyUsed:           2,
		LastResetDay:        20000,
		MonthlyUsed:         2,
		LastMonthlyResetDay: 19990,
		FreeExpiryDay:       20300,
	}
	if err := store.Put(context.Background(), seed); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	v, err := gate.Evaluate(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if _, ok := v.(Allowed); !ok {
		t.Fatalf("Evaluate() after rollover = %T, want Allowed", v)
	}
	rec, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec.DailyUsed != 0 || rec.LastResetDay != 20001 {
		t.Fatalf("rollover not applied: daily=%d lastReset=%d", rec.DailyUsed, rec.LastResetDay)
	}
	if rec.MonthlyUsed != 2 {
		t.Fatalf("monthly counter reset by daily rollover: %d", rec.MonthlyUsed)
	}
}

func TestMonthlyRolloverResetsMonthlyCounter(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20020, monthStart: 20020}
	gate := testGate(store, clock, basePolicy())

	seed := &domain.UserQuota{
		UserID:              "u1",
		Tier:                domain.TierFree,
		DailyUsed:           0,
		LastResetDay:        20020,
		MonthlyUsed:         60,
		LastMonthlyResetDay: 19990,
		FreeExpiryDay:       20300,
	}
	if err := store.Put(context.Background(), seed); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	v, err := gate.Evaluate(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if _, ok := v.(Allowed); !ok {
		t.Fatalf("Evaluate() after monthly rollover = %T, want Allowed", v)
	}
}

func TestMonthlyCapBlocksFreeTier(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20000, monthStart: 19990}
	gate := testGate(store, clock, basePolicy())

	seed := &domain.UserQuota{
		UserID:              "u1",
		Tier:                domain.TierFree,
		DailyUsed:           0,
		LastResetDay:        20000,
		MonthlyUsed:         60,
		LastMonthlyResetDay: 19990,
		FreeExpiryDay:       20300,
	}
	if err := store.Put(context.Background(), seed); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	v, err := gate.Evaluate(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if _, ok := v.(MonthlyCapReached); !ok {
		t.Fatalf("Evaluate() = %T, want MonthlyCapReached", v)
	}
	rec, _ := store.Get(context.Background(), "u1")
	if rec.DailyUsed != 0 {
		t.Fatalf("blocked call consumed quota: daily=%d", rec.DailyUsed)
	}
}

func TestPaidTierHasNoEffectiveDailyCap(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20000, monthStart: 19990}
	gate := testGate(store, clock, basePolicy())

	seed := &domain.UserQuota{
		UserID:              "pro-user",
		Tier:                domain.TierPro,
		DailyUsed:           1000,
		LastResetDay:        20000,
		MonthlyUsed:         5000,
		LastMonthlyResetDay: 19990,
	}
	if err := store.Put(context.Background(), seed); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	v, err := gate.Evaluate(context.Background(), "pro-user", true)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if _, ok := v.(Allowed); !ok {
		t.Fatalf("Evaluate() for pro tier = %T, want Allowed", v)
	}
}

func TestKillSwitchShortCircuits(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20000, monthStart: 19990}
	pol := basePolicy()
	pol.KillSwitch = true
	gate := testGate(store, clock, pol)

	v, err := gate.Evaluate(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if _, ok := v.(Killed); !ok {
		t.Fatalf("Evaluate() = %T, want Killed", v)
	}
	// The kill switch path must not provision or mutate state.
	if _, err := store.Get(context.Background(), "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("kill switch touched stored state: err=%v", err)
	}
}

func TestFreeExpiryWinsOverFreshDailyQuota(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20400, monthStart: 20390}
	gate := testGate(store, clock, basePolicy())

	seed := &domain.UserQuota{
		UserID:              "u1",
		Tier:                domain.TierFree,
		DailyUsed:           0,
		LastResetDay:        20400,
		MonthlyUsed:         0,
		LastMonthlyResetDay: 20390,
		FreeExpiryDay:       20399,
	}
	if err := store.Put(context.Background(), seed); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	v, err := gate.Evaluate(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if _, ok := v.(FreeExpired); !ok {
		t.Fatalf("Evaluate() = %T, want FreeExpired", v)
	}
	rec, _ := store.Get(context.Background(), "u1")
	if rec.DailyUsed != 0 {
		t.Fatalf("expired call consumed quota: daily=%d", rec.DailyUsed)
	}
}

func TestProvisioningDefaults(t *testing.T) {
	tests := []struct {
		name          string
		promoEnd      int
		wantRetention int
	}{
		{name: "outside promo", promoEnd: 0, wantRetention: 30},
		{name: "inside promo", promoEnd: 20010, wantRetention: 60},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := NewMemStore()
			clock := &manualClock{today: 20000, monthStart: 19990}
			pol := basePolicy()
			pol.PromoEndOrdinal = tc.promoEnd
			gate := NewGate(store, clock, StaticPolicy{Policy: pol}, staticDevices(domain.DeviceTierHighEnd), zerolog.Nop())

			if _, err := gate.Evaluate(context.Background(), "new-user", false); err != nil {
				t.Fatalf("Evaluate() error: %v", err)
			}
			rec, err := store.Get(context.Background(), "new-user")
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if rec.Tier != domain.TierFree {
				t.Fatalf("new user tier = %s, want free regardless of device", rec.Tier)
			}
			if !rec.Watermark {
				t.Fatalf("new free user should carry watermark")
			}
			if rec.RetentionDays != tc.wantRetention {
				t.Fatalf("RetentionDays = %d, want %d", rec.RetentionDays, tc.wantRetention)
			}
			if rec.FreeExpiryDay != 20365 {
				t.Fatalf("FreeExpiryDay = %d, want 20365", rec.FreeExpiryDay)
			}
			if rec.DeviceTier != domain.DeviceTierHighEnd {
				t.Fatalf("DeviceTier = %s, want high_end", rec.DeviceTier)
			}
		})
	}
}

func TestEvaluateRejectsEmptyUser(t *testing.T) {
	gate := testGate(NewMemStore(), &manualClock{today: 20000, monthStart: 19990}, basePolicy())
	if _, err := gate.Evaluate(context.Background(), "  ", true); !errors.Is(err, domain.ErrInvalidUser) {
		t.Fatalf("Evaluate() error = %v, want ErrInvalidUser", err)
	}
}

type faultyStore struct {
	Store
	getErr error
	incErr error
}

func (f *faultyStore) Get(ctx context.Context, userID string) (*domain.UserQuota, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, userID)
}

func (f *faultyStore) IncrementUsage(ctx context.Context, userID string) error {
	if f.incErr != nil {
		return f.incErr
	}
	return f.Store.IncrementUsage(ctx, userID)
}

func TestStorageFailurePropagatesAsError(t *testing.T) {
	boom := fmt.Errorf("connection reset")
	store := &faultyStore{Store: NewMemStore(), getErr: boom}
	gate := testGate(store, &manualClock{today: 20000, monthStart: 19990}, basePolicy())

	v, err := gate.Evaluate(context.Background(), "u1", true)
	if v != nil {
		t.Fatalf("Evaluate() verdict = %#v, want nil on storage failure", v)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("Evaluate() error = %v, want wrapped %v", err, boom)
	}
}

func TestConcurrentConsumesNeverExceedCap(t *testing.T) {
	store := NewMemStore()
	clock := &manualClock{today: 20000, monthStart: 19990}
	gate := testGate(store, clock, basePolicy())

	const calls = 16
	var wg sync.WaitGroup
	verdicts := make([]Verdict, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := gate.Evaluate(context.Background(), "u1", true)
			if err != nil {
				t.Errorf("Evaluate() error: %v", err)
				return
			}
			verdicts[i] = v
		}(i)
	}
	wg.Wait()

	allowed := 0
	for _, v := range verdicts {
		if _, ok := v.(Allowed); ok {
			allowed++
		}
	}
	if allowed != 2 {
		t.Fatalf("allowed %d concurrent consumes, want exactly 2", allowed)
	}
	rec, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec.DailyUsed != 2 {
		t.Fatalf("DailyUsed = %d, want 2", rec.DailyUsed)
	}
}
