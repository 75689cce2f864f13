package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/namelens/handlescan/internal/core"
)

// Prober resolves one target to an outcome. Implementations must not return
// errors; every failure becomes an indeterminate outcome.
type Prober interface {
	Probe(ctx context.Context, identifier string, target core.Target) core.ProbeOutcome
}

// Acceptor decides whether a target accepts the identifier's format.
type Acceptor interface {
	Accepts(identifier string, target core.Target) bool
}

// Observer is notified about every finished probe.
type Observer interface {
	ProbeFinished(outcome core.ProbeOutcome)
}

// Scheduler fans targets out to a fixed pool of workers in batches.
type Scheduler struct {
	Prober   Prober
	Gate     Acceptor
	Policy   Policy
	Observer Observer
	Logger   *logging.Logger
	// Sleep waits between batches; it must return early with false when ctx ends.
	Sleep func(ctx context.Context, d time.Duration) bool
}

const skipDetail = "format not accepted by this target"

type job struct {
	index  int
	target core.Target
}

type result struct {
	index   int
	outcome core.ProbeOutcome
}

// RunAll probes every target and returns exactly one outcome per target, in
// input order. Rejected targets are skipped without network access. When ctx
// ends, targets that never started are reported as cancelled.
func (s *Scheduler) RunAll(ctx context.Context, identifier string, targets []core.Target) []core.ProbeOutcome {
	if ctx == nil {
		ctx = context.Background()
	}

	outcomes := make([]core.ProbeOutcome, len(targets))
	done := make([]bool, len(targets))

	pending := make([]job, 0, len(targets))
	for i, target := range targets {
		if s.Gate != nil && !s.Gate.Accepts(identifier, target) {
			outcomes[i] = core.Indeterminate(target, target.URLFor(identifier), core.ErrorKindSkipped, skipDetail)
			done[i] = true
			continue
		}
		pending = append(pending, job{index: i, target: target})
	}

	policy := s.Policy.Normalized()
	width := policy.Width
	if width > len(pending) {
		width = len(pending)
	}

	if width > 0 {
		jobs := make(chan job, width)
		results := make(chan result, width)

		var wg sync.WaitGroup
		for w := 0; w < width; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range jobs {
					results <- result{index: j.index, outcome: s.probe(ctx, identifier, j.target, policy.Timeout)}
				}
			}()
		}

		batches := 0
	feed:
		for start := 0; start < len(pending); start += width {
			if start > 0 && !s.sleep(ctx, policy.BatchDelay) {
				break
			}
			if ctx.Err() != nil {
				break
			}

			end := start + width
			if end > len(pending) {
				end = len(pending)
			}

			sent := 0
			for _, j := range pending[start:end] {
				select {
				case jobs <- j:
					sent++
				case <-ctx.Done():
				}
				if ctx.Err() != nil {
					break
				}
			}

			for k := 0; k < sent; k++ {
				r := <-results
				outcomes[r.index] = r.outcome
				done[r.index] = true
				if s.Observer != nil {
					s.Observer.ProbeFinished(r.outcome)
				}
			}
			batches++

			if sent < end-start {
				break feed
			}
		}

		close(jobs)
		wg.Wait()

		s.debug("Probe batches finished",
			zap.String("identifier", identifier),
			zap.Int("targets", len(targets)),
			zap.Int("scheduled", len(pending)),
			zap.Int("batches", batches),
			zap.Int("width", width),
		)
	}

	for i, target := range targets {
		if done[i] {
			continue
		}
		detail := "run cancelled before probe started"
		if err := ctx.Err(); err != nil {
			detail = fmt.Sprintf("%s: %v", detail, err)
		}
		outcomes[i] = core.Indeterminate(target, target.URLFor(identifier), core.ErrorKindCancelled, detail)
	}

	return outcomes
}

func (s *Scheduler) probe(ctx context.Context, identifier string, target core.Target, timeout time.Duration) (outcome core.ProbeOutcome) {
	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = core.Indeterminate(target, target.URLFor(identifier), core.ErrorKindInternal, fmt.Sprintf("probe panicked: %v", recovered))
			s.warn("Probe panicked", zap.String("target", target.Name), zap.Any("panic", recovered))
		}
	}()

	if s.Prober == nil {
		return core.Indeterminate(target, target.URLFor(identifier), core.ErrorKindInternal, "no prober configured")
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome = s.Prober.Probe(probeCtx, identifier, target)
	if outcome.Target == "" {
		outcome.Target = target.Name
	}
	return outcome
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Scheduler) debug(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Debug(msg, fields...)
	}
}

func (s *Scheduler) warn(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Warn(msg, fields...)
	}
}
