package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultPolicyTTL = 5 * time.Minute

// remotePolicyPayload is the JSON document served by the policy config
// endpoint. Absent fields keep the baseline value.
type remotePolicyPayload struct {
	KillSwitch     *bool   `json:"kill_switch"`
	FreeDailyLimit *int    `json:"free_daily_limit"`
	FreeMonthlyCap *int    `json:"free_monthly_cap"`
	LaunchBonus    *int    `json:"launch_bonus"`
	PromoEndDate   *string `json:"promo_end_date"`
}

// RemotePolicy fetches policy from an HTTP config endpoint and caches it for
// a TTL. A fetch failure serves the last good snapshot when one exists and
// is an error otherwise, so a cold start with an unreachable endpoint fails
// loudly instead of silently applying defaults.
type RemotePolicy struct {
	url      string
	base     Policy
	ttl      time.Duration
	httpc    *http.Client
	logger   zerolog.Logger
	mu       sync.Mutex
	cached   Policy
	hasCache bool
	fetched  time.Time
}

// NewRemotePolicy builds a TTL-cached policy source over the given endpoint.
// base supplies values the endpoint omits. A non-positive ttl uses the
// default of five minutes.
func NewRemotePolicy(url string, base Policy, ttl time.Duration, logger zerolog.Logger) *RemotePolicy {
	if ttl <= 0 {
		ttl = defaultPolicyTTL
	}
	return &RemotePolicy{
		url:    url,
		base:   base,
		ttl:    ttl,
		httpc:  &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("component", "remote_policy").Logger(),
	}
}

func (r *RemotePolicy) Snapshot(ctx context.Context) (Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasCache && time.Since(r.fetched) < r.ttl {
		return r.cached, nil
	}

	pol, err := r.fetch(ctx)
	if err != nil {
		if r.hasCache {
			r.logger.Warn().Err(err).Msg("policy fetch failed, serving stale snapshot")
			return r.cached, nil
		}
		return Policy{}, err
	}

	r.cached = pol
	r.hasCache = true
	r.fetched = time.Now()
	return pol, nil
}

func (r *RemotePolicy) fetch(ctx context.Context) (Policy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return Policy{}, fmt.Errorf("policy: build request: %w", err)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Policy{}, fmt.Errorf("policy: fetch config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Policy{}, fmt.Errorf("policy: config endpoint returned %d", resp.StatusCode)
	}

	var payload remotePolicyPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Policy{}, fmt.Errorf("policy: decode config: %w", err)
	}

	pol := r.base
	if payload.KillSwitch != nil {
		pol.KillSwitch = *payload.KillSwitch
	}
	if payload.FreeDailyLimit != nil {
		pol.FreeDailyLimit = *payload.FreeDailyLimit
	}
	if payload.FreeMonthlyCap != nil {
		pol.FreeMonthlyCap = *payload.FreeMonthlyCap
	}
	if payload.LaunchBonus != nil {
		pol.LaunchBonus = *payload.LaunchBonus
	}
	if payload.PromoEndDate != nil && *payload.PromoEndDate != "" {
		end, err := time.ParseInLocation("2006-01-02", *payload.PromoEndDate, time.Local)
		if err != nil {
			return Policy{}, fmt.Errorf("policy: bad promo_end_date %q: %w", *payload.PromoEndDate, err)
		}
		pol.PromoEndOrdinal = DayOrdinal(end)
	}
	return pol, nil
}
