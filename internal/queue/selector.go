package queue

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// decayThreshold bounds the tracked candidate set; past it, all counters
// decay toward zero so they stay a recent-load signal.
const decayThreshold = 64

// Prober checks whether a named target is reachable. Implementations must
// honor the context deadline; a timeout reads as unhealthy, not as an error
// to escalate.
type Prober interface {
	Probe(ctx context.Context, target string) error
}

// Selector picks the best currently-healthy target from the configured
// candidates, or reports none.
type Selector interface {
	Pick(ctx context.Context, candidates []string, timeout time.Duration) (string, bool)
}

// LeastRecentSelector probes every candidate concurrently and, among the
// healthy ones, picks the one selected least recently, spreading load when
// several targets are up.
type LeastRecentSelector struct {
	prober Prober

	mu     sync.Mutex
	recent map[string]int
}

// NewLeastRecentSelector creates a selector using the given prober.
func NewLeastRecentSelector(prober Prober) *LeastRecentSelector {
	return &LeastRecentSelector{
		prober: prober,
		recent: make(map[string]int),
	}
}

// Pick probes all candidates in parallel with one shared timeout and returns
// the healthy candidate with the lowest recent-selection counter. Probe
// failures only exclude the candidate; an empty surviving set reports no
// target.
func (s *LeastRecentSelector) Pick(ctx context.Context, candidates []string, timeout time.Duration) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	healthy := make([]bool, len(candidates))
	var wg sync.WaitGroup
	for i, name := range candidates {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			start := time.Now()
			err := s.prober.Probe(probeCtx, name)
			recordProbe(name, err == nil, time.Since(start))
			if err != nil {
				slog.Debug("target probe failed", "target", name, "error", err)
				return
			}
			healthy[i] = true
		}(i, name)
	}
	wg.Wait()

	alive := make([]string, 0, len(candidates))
	for i, name := range candidates {
		if healthy[i] {
			alive = append(alive, name)
		}
	}
	if len(alive) == 0 {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sort.SliceStable(alive, func(a, b int) bool {
		return s.recent[alive[a]] < s.recent[alive[b]]
	})
	picked := alive[0]
	s.recent[picked]++
	s.decayLocked()

	return picked, true
}

func (s *LeastRecentSelector) decayLocked() {
	if len(s.recent) <= decayThreshold {
		return
	}
	for name, n := range s.recent {
		if n <= 1 {
			delete(s.recent, name)
			continue
		}
		s.recent[name] = n - 1
	}
}
