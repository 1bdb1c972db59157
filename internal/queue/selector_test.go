package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber answers probes from a fixed map; unlisted targets are healthy.
type fakeProber struct {
	down map[string]bool
}

func (p *fakeProber) Probe(_ context.Context, target string) error {
	if p.down[target] {
		return errors.New("connection refused")
	}
	return nil
}

func TestLeastRecentSelector_NoCandidates(t *testing.T) {
	selector := NewLeastRecentSelector(&fakeProber{})

	_, ok := selector.Pick(context.Background(), nil, time.Second)
	assert.False(t, ok)
}

func TestLeastRecentSelector_AllDown(t *testing.T) {
	selector := NewLeastRecentSelector(&fakeProber{
		down: map[string]bool{"alpha": true, "beta": true},
	})

	_, ok := selector.Pick(context.Background(), []string{"alpha", "beta"}, time.Second)
	assert.False(t, ok)
}

func TestLeastRecentSelector_SkipsUnhealthy(t *testing.T) {
	selector := NewLeastRecentSelector(&fakeProber{
		down: map[string]bool{"alpha": true},
	})

	for i := 0; i < 5; i++ {
		target, ok := selector.Pick(context.Background(), []string{"alpha", "beta"}, time.Second)
		require.True(t, ok)
		assert.Equal(t, "beta", target)
	}
}

func TestLeastRecentSelector_SpreadsLoad(t *testing.T) {
	selector := NewLeastRecentSelector(&fakeProber{})
	candidates := []string{"alpha", "beta"}

	picks := make(map[string]int)
	for i := 0; i < 10; i++ {
		target, ok := selector.Pick(context.Background(), candidates, time.Second)
		require.True(t, ok)
		picks[target]++
	}

	assert.Equal(t, 5, picks["alpha"])
	assert.Equal(t, 5, picks["beta"])
}

func TestLeastRecentSelector_SlowProbeReadsAsDown(t *testing.T) {
	selector := NewLeastRecentSelector(proberFunc(func(ctx context.Context, target string) error {
		if target == "slow" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}))

	target, ok := selector.Pick(context.Background(), []string{"slow", "fast"}, 20*time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "fast", target)
}

func TestLeastRecentSelector_DecaysCounters(t *testing.T) {
	selector := NewLeastRecentSelector(&fakeProber{})

	// Push the tracked set past the decay threshold; single-pick entries
	// are dropped outright, so the map stays bounded.
	for i := 0; i < decayThreshold+10; i++ {
		name := fmt.Sprintf("target-%d", i)
		_, ok := selector.Pick(context.Background(), []string{name}, time.Second)
		require.True(t, ok)
	}

	selector.mu.Lock()
	defer selector.mu.Unlock()
	assert.LessOrEqual(t, len(selector.recent), decayThreshold+1)
}

// proberFunc adapts a function to the Prober interface.
type proberFunc func(ctx context.Context, target string) error

func (f proberFunc) Probe(ctx context.Context, target string) error { return f(ctx, target) }
