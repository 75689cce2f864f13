package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/handlescan/internal/core"
)

func TestGateAcceptsWithoutPattern(t *testing.T) {
	gate := NewGate()
	require.True(t, gate.Accepts("any thing", core.Target{Name: "Open"}))
}

func TestGatePattern(t *testing.T) {
	gate := NewGate()
	target := core.Target{Name: "Twitch", ValidationPattern: `^[a-zA-Z0-9_]{4,25}$`}

	require.True(t, gate.Accepts("handle_01", target))
	require.False(t, gate.Accepts("abc", target))
	require.False(t, gate.Accepts("has.dot", target))
}

func TestGateFailsOpenOnBadPattern(t *testing.T) {
	gate := NewGate()
	target := core.Target{Name: "Broken", ValidationPattern: `^(?!admin)[a-z]+$`}

	require.True(t, gate.Accepts("admin", target))

	errs := gate.CompileErrors()
	require.Len(t, errs, 1)
	require.Contains(t, errs, target.ValidationPattern)

	failures := gate.Validate([]core.Target{target, {Name: "Fine", ValidationPattern: `^[a-z]+$`}})
	require.Len(t, failures, 1)
	require.Equal(t, "Broken", failures[0].Target)
}

func TestGateConcurrentUse(t *testing.T) {
	gate := NewGate()
	target := core.Target{Name: "Site", ValidationPattern: `^[a-z]{3,}$`}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, gate.Accepts("handle", target))
		}()
	}
	wg.Wait()
}
