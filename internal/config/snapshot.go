package config

import (
	"sync/atomic"
	"time"
)

// Snapshot is the immutable queue-facing view of the configuration. A new
// snapshot replaces the previous one atomically on reload; it is never
// mutated in place, so readers never observe a partial update.
type Snapshot struct {
	Targets        []string
	Lobby          string
	Weights        TierWeights
	SoftbanMinWait time.Duration
	TickInterval   time.Duration
	MaxBatch       int
	NotifyCooldown time.Duration
	ProbeTimeout   time.Duration
	PremiumGroup   string
	VipGroup       string
	SoftbanGroup   string
}

// Snapshot derives the queue-facing snapshot from the full configuration.
func (c *Config) Snapshot() *Snapshot {
	targets := make([]string, len(c.Queue.Targets))
	copy(targets, c.Queue.Targets)

	return &Snapshot{
		Targets:        targets,
		Lobby:          c.Queue.Lobby,
		Weights:        c.Queue.Weights,
		SoftbanMinWait: c.Queue.SoftbanMinWait,
		TickInterval:   c.Queue.TickInterval,
		MaxBatch:       c.Queue.MaxBatch,
		NotifyCooldown: c.Queue.NotifyCooldown,
		ProbeTimeout:   c.Queue.ProbeTimeout,
		PremiumGroup:   c.Directory.PremiumGroup,
		VipGroup:       c.Directory.VipGroup,
		SoftbanGroup:   c.Directory.SoftbanGroup,
	}
}

// Source is a read handle to the current configuration snapshot. The
// scheduler reads it on every tick and admission; the reload path replaces
// the snapshot as a whole.
type Source struct {
	cur atomic.Pointer[Snapshot]
}

// NewSource creates a source holding the given initial snapshot.
func NewSource(s *Snapshot) *Source {
	src := &Source{}
	src.cur.Store(s)
	return src
}

// Current returns the current snapshot.
func (s *Source) Current() *Snapshot {
	return s.cur.Load()
}

// Replace atomically installs a new snapshot.
func (s *Source) Replace(next *Snapshot) {
	s.cur.Store(next)
}
