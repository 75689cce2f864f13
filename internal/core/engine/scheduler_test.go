package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/handlescan/internal/core"
)

type proberFunc func(ctx context.Context, identifier string, target core.Target) core.ProbeOutcome

func (f proberFunc) Probe(ctx context.Context, identifier string, target core.Target) core.ProbeOutcome {
	return f(ctx, identifier, target)
}

type prefixGate struct{ reject string }

func (g prefixGate) Accepts(identifier string, target core.Target) bool {
	return !strings.HasPrefix(target.Name, g.reject)
}

func takenProber(calls *int64) Prober {
	return proberFunc(func(ctx context.Context, identifier string, target core.Target) core.ProbeOutcome {
		atomic.AddInt64(calls, 1)
		return core.ProbeOutcome{Target: target.Name, URL: target.URLFor(identifier), Availability: core.AvailabilityTaken}
	})
}

func fixtureTargets(names ...string) []core.Target {
	targets := make([]core.Target, 0, len(names))
	for _, name := range names {
		targets = append(targets, core.Target{
			Name:      name,
			URL:       "https://" + strings.ToLower(name) + ".example/{}",
			URLMain:   "https://" + strings.ToLower(name) + ".example/",
			Detection: core.DetectionStatusCode,
		})
	}
	return targets
}

func noSleep(ctx context.Context, d time.Duration) bool {
	return ctx.Err() == nil
}

func TestRunAllTotality(t *testing.T) {
	var calls int64
	targets := fixtureTargets("A", "B", "C", "D", "E", "F", "G")
	scheduler := &Scheduler{
		Prober: takenProber(&calls),
		Policy: Policy{Width: 3, Timeout: time.Second},
		Sleep:  noSleep,
	}

	outcomes := scheduler.RunAll(context.Background(), "handle", targets)
	require.Len(t, outcomes, len(targets))
	for i, outcome := range outcomes {
		require.Equal(t, targets[i].Name, outcome.Target)
		require.Equal(t, core.AvailabilityTaken, outcome.Availability)
	}
	require.Equal(t, int64(len(targets)), atomic.LoadInt64(&calls))
}

func TestRunAllGateSkipsWithoutProbing(t *testing.T) {
	var calls int64
	targets := fixtureTargets("Open", "Strict1", "Strict2")
	scheduler := &Scheduler{
		Prober: takenProber(&calls),
		Gate:   prefixGate{reject: "Strict"},
		Sleep:  noSleep,
	}

	outcomes := scheduler.RunAll(context.Background(), "bad name", targets)
	require.Len(t, outcomes, 3)
	require.Equal(t, int64(1), atomic.LoadInt64(&calls))

	for _, outcome := range outcomes[1:] {
		require.Equal(t, core.AvailabilityIndeterminate, outcome.Availability)
		require.Equal(t, core.ErrorKindSkipped, outcome.ErrorKind)
		require.Equal(t, "format not accepted by this target", outcome.ErrorDetail)
	}
	require.Equal(t, "https://strict1.example/bad%20name", outcomes[1].URL)
}

func TestRunAllRecoversPanics(t *testing.T) {
	scheduler := &Scheduler{
		Prober: proberFunc(func(ctx context.Context, identifier string, target core.Target) core.ProbeOutcome {
			if target.Name == "Boom" {
				panic("exploded")
			}
			return core.ProbeOutcome{Target: target.Name, Availability: core.AvailabilityAvailable}
		}),
		Sleep: noSleep,
	}

	outcomes := scheduler.RunAll(context.Background(), "handle", fixtureTargets("Fine", "Boom", "Other"))
	require.Len(t, outcomes, 3)
	require.Equal(t, core.AvailabilityAvailable, outcomes[0].Availability)
	require.Equal(t, core.AvailabilityIndeterminate, outcomes[1].Availability)
	require.Equal(t, core.ErrorKindInternal, outcomes[1].ErrorKind)
	require.Contains(t, outcomes[1].ErrorDetail, "exploded")
	require.Equal(t, core.AvailabilityAvailable, outcomes[2].Availability)
}

func TestRunAllRespectsWidthAndBatches(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex
	var sleeps []time.Duration

	scheduler := &Scheduler{
		Prober: proberFunc(func(ctx context.Context, identifier string, target core.Target) core.ProbeOutcome {
			current := atomic.AddInt64(&inFlight, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if current <= old || atomic.CompareAndSwapInt64(&peak, old, current) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return core.ProbeOutcome{Target: target.Name, Availability: core.AvailabilityTaken}
		}),
		Policy: Policy{Width: 2, BatchDelay: 5 * time.Millisecond, Timeout: time.Second},
		Sleep: func(ctx context.Context, d time.Duration) bool {
			mu.Lock()
			sleeps = append(sleeps, d)
			mu.Unlock()
			return true
		},
	}

	outcomes := scheduler.RunAll(context.Background(), "handle", fixtureTargets("A", "B", "C", "D", "E"))
	require.Len(t, outcomes, 5)
	require.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
	require.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}, sleeps)
}

func TestRunAllCatalogScale(t *testing.T) {
	names := make([]string, 1500)
	for i := range names {
		names[i] = fmt.Sprintf("Site%04d", i)
	}
	targets := fixtureTargets(names...)

	var calls, inFlight, peak int64
	var sleeps int64
	scheduler := &Scheduler{
		Prober: proberFunc(func(ctx context.Context, identifier string, target core.Target) core.ProbeOutcome {
			atomic.AddInt64(&calls, 1)
			current := atomic.AddInt64(&inFlight, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if current <= old || atomic.CompareAndSwapInt64(&peak, old, current) {
					break
				}
			}
			defer atomic.AddInt64(&inFlight, -1)
			return core.ProbeOutcome{Target: target.Name, Availability: core.AvailabilityAvailable}
		}),
		Policy: Policy{Width: 64, BatchDelay: time.Millisecond, Timeout: time.Second},
		Sleep: func(ctx context.Context, d time.Duration) bool {
			atomic.AddInt64(&sleeps, 1)
			return true
		},
	}

	outcomes := scheduler.RunAll(context.Background(), "handle", targets)
	require.Len(t, outcomes, len(targets))
	for i, outcome := range outcomes {
		require.Equal(t, targets[i].Name, outcome.Target)
	}
	require.Equal(t, int64(1500), atomic.LoadInt64(&calls))
	require.LessOrEqual(t, atomic.LoadInt64(&peak), int64(64))
	// 1500 targets in batches of 64 is 24 batches, so 23 pauses.
	require.Equal(t, int64(23), atomic.LoadInt64(&sleeps))
}

func TestRunAllCancellationMarksRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int64
	scheduler := &Scheduler{
		Prober: takenProber(&calls),
		Policy: Policy{Width: 2, BatchDelay: time.Hour, Timeout: time.Second},
		Sleep: func(ctx context.Context, d time.Duration) bool {
			cancel()
			return false
		},
	}

	outcomes := scheduler.RunAll(ctx, "handle", fixtureTargets("A", "B", "C", "D", "E"))
	require.Len(t, outcomes, 5)
	require.Equal(t, int64(2), atomic.LoadInt64(&calls))
	require.Equal(t, core.AvailabilityTaken, outcomes[0].Availability)
	require.Equal(t, core.AvailabilityTaken, outcomes[1].Availability)
	for _, outcome := range outcomes[2:] {
		require.Equal(t, core.AvailabilityIndeterminate, outcome.Availability)
		require.Equal(t, core.ErrorKindCancelled, outcome.ErrorKind)
	}
}

func TestRunAllTimeoutBoundsLatency(t *testing.T) {
	scheduler := &Scheduler{
		Prober: proberFunc(func(ctx context.Context, identifier string, target core.Target) core.ProbeOutcome {
			<-ctx.Done()
			return core.Indeterminate(target, target.URLFor(identifier), core.ErrorKindTimeout, ctx.Err().Error())
		}),
		Policy: Policy{Width: 10, Timeout: 50 * time.Millisecond},
		Sleep:  noSleep,
	}

	start := time.Now()
	outcomes := scheduler.RunAll(context.Background(), "handle", fixtureTargets("A", "B", "C", "D", "E", "F", "G", "H"))
	elapsed := time.Since(start)

	require.Len(t, outcomes, 8)
	for _, outcome := range outcomes {
		require.Equal(t, core.ErrorKindTimeout, outcome.ErrorKind)
	}
	require.Less(t, elapsed, 8*50*time.Millisecond)
}

func TestRunAllEmpty(t *testing.T) {
	scheduler := &Scheduler{}
	require.Empty(t, scheduler.RunAll(context.Background(), "handle", nil))
}

func TestSleepContext(t *testing.T) {
	require.True(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, sleepContext(ctx, time.Hour))
	require.False(t, sleepContext(ctx, 0))
}
