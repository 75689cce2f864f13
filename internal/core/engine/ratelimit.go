package engine

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/namelens/handlescan/internal/core"
)

// RateLimiter enforces per-host request windows and honors persisted 429
// backoff windows.
type RateLimiter struct {
	Store  RateLimitStore
	Limits map[string]RateLimit
	Clock  func() time.Time
	Margin float64
}

// RateLimit represents a rate limit window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// RateLimitStore stores rate limit state.
type RateLimitStore interface {
	GetRateLimit(ctx context.Context, host string) (*core.RateLimitState, error)
	UpdateRateLimit(ctx context.Context, host string, state *core.RateLimitState) error
}

// DefaultLimits provides conservative defaults for hosts known to throttle
// profile lookups. Keys match the host or any parent domain.
var DefaultLimits = map[string]RateLimit{
	"github.com":        {RequestsPerWindow: 60, WindowDuration: time.Minute},
	"www.instagram.com": {RequestsPerWindow: 20, WindowDuration: time.Minute},
	"www.reddit.com":    {RequestsPerWindow: 30, WindowDuration: time.Minute},
	"www.twitch.tv":     {RequestsPerWindow: 30, WindowDuration: time.Minute},
	"t.me":              {RequestsPerWindow: 30, WindowDuration: time.Minute},
	"hub.docker.com":    {RequestsPerWindow: 60, WindowDuration: time.Minute},
}

// defaultLimit applies to hosts without an explicit entry.
var defaultLimit = RateLimit{RequestsPerWindow: 120, WindowDuration: time.Minute}

// Allow checks if a request is allowed and returns wait duration if not.
func (r *RateLimiter) Allow(ctx context.Context, host string) (bool, time.Duration, error) {
	if r == nil || r.Store == nil {
		return true, 0, nil
	}

	state, err := r.Store.GetRateLimit(ctx, host)
	if err != nil {
		return true, 0, err
	}
	if state == nil {
		state = &core.RateLimitState{WindowStart: r.now()}
	}

	now := r.now()
	if wait := state.BackoffRemaining(now); wait > 0 {
		return false, wait, nil
	}

	limit := r.getLimit(host)
	state.RollWindow(now, limit.WindowDuration)
	if state.RequestCount >= limit.RequestsPerWindow {
		return false, state.WindowStart.Add(limit.WindowDuration).Sub(now), nil
	}

	return true, 0, nil
}

// Record increments the request count for a host, starting a new window
// when the previous one has elapsed.
func (r *RateLimiter) Record(ctx context.Context, host string) error {
	if r == nil || r.Store == nil {
		return nil
	}

	state, err := r.Store.GetRateLimit(ctx, host)
	if err != nil {
		return err
	}
	now := r.now()
	if state == nil {
		state = &core.RateLimitState{WindowStart: now}
	}

	state.RollWindow(now, r.getLimit(host).WindowDuration)
	state.RequestCount++

	return r.Store.UpdateRateLimit(ctx, host, state)
}

// Record429 applies a backoff window from a 429 response.
func (r *RateLimiter) Record429(ctx context.Context, host string, retryAfter time.Duration) error {
	if r == nil || r.Store == nil {
		return nil
	}

	state, err := r.Store.GetRateLimit(ctx, host)
	if err != nil {
		return err
	}
	if state == nil {
		state = &core.RateLimitState{WindowStart: r.now()}
	}

	state.Throttle(r.now(), retryAfter)

	return r.Store.UpdateRateLimit(ctx, host, state)
}

// ApplyOverrides merges per-host request overrides (per minute).
func (r *RateLimiter) ApplyOverrides(overrides map[string]int) {
	if r == nil || len(overrides) == 0 {
		return
	}

	if r.Limits == nil {
		r.Limits = make(map[string]RateLimit, len(DefaultLimits))
		for key, limit := range DefaultLimits {
			r.Limits[key] = limit
		}
	}

	for host, value := range overrides {
		host = strings.ToLower(strings.TrimSpace(host))
		if host == "" || value <= 0 {
			continue
		}
		r.Limits[host] = RateLimit{
			RequestsPerWindow: value,
			WindowDuration:    time.Minute,
		}
	}
}

// ApplySafetyMargin adjusts the effective request limits by a ratio (0-1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil {
		return
	}
	if margin <= 0 || margin > 1 {
		return
	}
	r.Margin = margin
}

func (r *RateLimiter) getLimit(host string) RateLimit {
	if r == nil {
		return RateLimit{RequestsPerWindow: 1, WindowDuration: time.Minute}
	}

	limits := r.Limits
	if limits == nil {
		limits = DefaultLimits
	}

	host = strings.ToLower(host)
	for candidate := host; candidate != ""; {
		if limit, ok := limits[candidate]; ok {
			return r.applyMargin(limit)
		}
		dot := strings.IndexByte(candidate, '.')
		if dot < 0 {
			break
		}
		candidate = candidate[dot+1:]
	}

	return r.applyMargin(defaultLimit)
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *RateLimiter) applyMargin(limit RateLimit) RateLimit {
	if r == nil || r.Margin <= 0 || r.Margin > 1 {
		return limit
	}
	adjusted := int(math.Floor(float64(limit.RequestsPerWindow) * r.Margin))
	if adjusted < 1 {
		adjusted = 1
	}
	limit.RequestsPerWindow = adjusted
	return limit
}
