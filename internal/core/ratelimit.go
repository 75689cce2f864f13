package core

import "time"

// RateLimitState is one host's request window and 429 backoff.
type RateLimitState struct {
	RequestCount int        `json:"request_count"`
	WindowStart  time.Time  `json:"window_start"`
	BackoffUntil *time.Time `json:"backoff_until,omitempty"`
	Last429At    *time.Time `json:"last_429_at,omitempty"`
}

// InBackoff reports whether the host is inside a backoff window at now.
func (s *RateLimitState) InBackoff(now time.Time) bool {
	return s != nil && s.BackoffUntil != nil && now.Before(*s.BackoffUntil)
}

// BackoffRemaining returns how long the backoff window still runs at now.
func (s *RateLimitState) BackoffRemaining(now time.Time) time.Duration {
	if !s.InBackoff(now) {
		return 0
	}
	return s.BackoffUntil.Sub(now)
}

// RollWindow starts a fresh counting window when the current one is unset
// or has elapsed. It reports whether the window was reset.
func (s *RateLimitState) RollWindow(now time.Time, window time.Duration) bool {
	if !s.WindowStart.IsZero() && !now.After(s.WindowStart.Add(window)) {
		return false
	}
	s.RequestCount = 0
	s.WindowStart = now
	return true
}

// Throttle records a 429 at now and, when retryAfter is positive, backs the
// host off until now+retryAfter.
func (s *RateLimitState) Throttle(now time.Time, retryAfter time.Duration) {
	at := now
	s.Last429At = &at
	if retryAfter > 0 {
		until := now.Add(retryAfter)
		s.BackoffUntil = &until
	}
}
