package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/handlescan/internal/core"
)

type memoryRateStore struct {
	mu    sync.Mutex
	state map[string]*core.RateLimitState
}

func (m *memoryRateStore) GetRateLimit(ctx context.Context, host string) (*core.RateLimitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, nil
	}
	if val, ok := m.state[host]; ok {
		copied := *val
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryRateStore) UpdateRateLimit(ctx context.Context, host string, state *core.RateLimitState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		m.state = make(map[string]*core.RateLimitState)
	}
	copied := *state
	m.state[host] = &copied
	return nil
}

func TestRateLimiterWindow(t *testing.T) {
	store := &memoryRateStore{}
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store: store,
		Limits: map[string]RateLimit{
			"profiles.example": {RequestsPerWindow: 1, WindowDuration: time.Minute},
		},
		Clock: func() time.Time { return clock },
	}

	allowed, _, err := limiter.Allow(context.Background(), "profiles.example")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, limiter.Record(context.Background(), "profiles.example"))

	allowed, wait, err := limiter.Allow(context.Background(), "profiles.example")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, time.Minute, wait)

	clock = clock.Add(2 * time.Minute)
	allowed, _, err = limiter.Allow(context.Background(), "profiles.example")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestRateLimiterBackoff(t *testing.T) {
	store := &memoryRateStore{}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store: store,
		Clock: func() time.Time { return now },
	}

	require.NoError(t, limiter.Record429(context.Background(), "profiles.example", 30*time.Second))

	allowed, wait, err := limiter.Allow(context.Background(), "profiles.example")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 30*time.Second, wait)

	now = now.Add(31 * time.Second)
	allowed, _, err = limiter.Allow(context.Background(), "profiles.example")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestRateLimiterParentDomainLimit(t *testing.T) {
	limiter := &RateLimiter{
		Limits: map[string]RateLimit{
			"tumblr.example": {RequestsPerWindow: 5, WindowDuration: time.Minute},
		},
	}

	require.Equal(t, 5, limiter.getLimit("handle.tumblr.example").RequestsPerWindow)
	require.Equal(t, 5, limiter.getLimit("TUMBLR.example").RequestsPerWindow)
	require.Equal(t, defaultLimit, limiter.getLimit("other.example"))
}

func TestRateLimiterOverrides(t *testing.T) {
	limiter := &RateLimiter{}
	limiter.ApplyOverrides(map[string]int{" GitHub.com ": 10, "": 5, "ignored.example": 0})

	require.Equal(t, 10, limiter.getLimit("github.com").RequestsPerWindow)
	_, ok := limiter.Limits["ignored.example"]
	require.False(t, ok)
	require.Contains(t, limiter.Limits, "www.reddit.com")
}

func TestRateLimiterMargin(t *testing.T) {
	store := &memoryRateStore{}
	limiter := &RateLimiter{
		Store: store,
		Limits: map[string]RateLimit{
			"profiles.example": {RequestsPerWindow: 10, WindowDuration: time.Minute},
		},
		Clock: func() time.Time { return time.Now().UTC() },
	}

	limiter.ApplySafetyMargin(0.9)
	limit := limiter.getLimit("profiles.example")
	require.Equal(t, 9, limit.RequestsPerWindow)

	limiter.ApplySafetyMargin(1.5)
	require.Equal(t, 0.9, limiter.Margin)
}
