package engine

import "time"

// Default scheduling parameters.
const (
	DefaultWidth      = 20
	DefaultBatchDelay = 250 * time.Millisecond
	DefaultTimeout    = 10 * time.Second
)

// Policy bounds a single run: Width probes at a time, BatchDelay between
// batches, and Timeout per probe.
type Policy struct {
	Width      int
	BatchDelay time.Duration
	Timeout    time.Duration
}

// DefaultPolicy returns the stock scheduling policy.
func DefaultPolicy() Policy {
	return Policy{
		Width:      DefaultWidth,
		BatchDelay: DefaultBatchDelay,
		Timeout:    DefaultTimeout,
	}
}

// Normalized fills zero or negative fields with defaults.
func (p Policy) Normalized() Policy {
	if p.Width <= 0 {
		p.Width = DefaultWidth
	}
	if p.BatchDelay < 0 {
		p.BatchDelay = 0
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	return p
}
