package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sevler/gatehouse/internal/config"
	"github.com/sevler/gatehouse/internal/domain"
)

// ErrNoTargetAvailable is returned when every configured target fails its
// health probe.
var ErrNoTargetAvailable = errors.New("no healthy target available")

// Scheduler owns the tiered queue store and runs the periodic tick that
// moves waiting clients onto healthy targets. The tick runs on a single
// goroutine and is never re-entered; arrival and departure events run
// concurrently with it.
type Scheduler struct {
	cfg        *config.Source
	store      *Store
	policy     Policy
	selector   Selector
	classifier Classifier
	gateway    Gateway
	now        func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler. The classifier may be nil, in which case
// every client is admitted to the default tier.
func NewScheduler(cfg *config.Source, store *Store, policy Policy, selector Selector, classifier Classifier, gateway Gateway) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		store:      store,
		policy:     policy,
		selector:   selector,
		classifier: classifier,
		gateway:    gateway,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the tick loop.
func (s *Scheduler) Start(ctx context.Context) {
	cfg := s.cfg.Current()
	slog.Info("starting scheduler",
		"tick_interval", cfg.TickInterval,
		"max_batch", cfg.MaxBatch,
		"targets", cfg.Targets,
		"lobby", cfg.Lobby,
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop gracefully stops the tick loop. The tick in flight completes.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	interval := s.cfg.Current().TickInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)

			// Re-derive the cadence so a config reload takes effect
			// without dropping in-flight work.
			if cur := s.cfg.Current().TickInterval; cur != interval {
				interval = cur
				ticker.Reset(interval)
				slog.Info("tick interval updated", "interval", interval)
			}
		}
	}
}

// tick is one scheduling step: pick a healthy target and drain up to
// MaxBatch clients onto it, or fall back to position notices when every
// target is down.
func (s *Scheduler) tick(ctx context.Context) {
	cfg := s.cfg.Current()
	now := s.now()

	target, ok := s.selector.Pick(ctx, cfg.Targets, cfg.ProbeTimeout)
	if !ok {
		s.notifyOffline(ctx, cfg, now)
		recordTick(tickModeDegraded)
		return
	}

	dispatched := 0
	for i := 0; i < cfg.MaxBatch; i++ {
		id, ok := s.selectNext(cfg)
		if !ok {
			break
		}
		s.dispatch(ctx, id, target)
		dispatched++
	}

	recordQueueDepth(s.store)
	if dispatched > 0 {
		recordTick(tickModeDispatch)
		slog.Debug("tick dispatched clients", "count", dispatched, "target", target)
	} else {
		recordTick(tickModeIdle)
	}
}

// selectNext asks the policy for the next eligible client. Emptiness is
// re-evaluated live on every call, so a client admitted mid-batch
// participates immediately.
func (s *Scheduler) selectNext(cfg *config.Snapshot) (domain.ClientID, bool) {
	return s.policy.SelectNext(
		s.store.Tier(domain.TierPremium),
		s.store.Tier(domain.TierVip),
		s.store.Tier(domain.TierDefault),
		s.store.SoftbanEligible(cfg.SoftbanMinWait, s.now()),
	)
}

// dispatch removes the client from the store and hands it off. The handoff
// is fire-and-forget; a failure is logged and the client finds its way back
// through the arrival path.
func (s *Scheduler) dispatch(ctx context.Context, id domain.ClientID, target string) {
	entry, tracked := s.store.Entry(id)
	s.store.Remove(id)

	if err := s.gateway.Connect(ctx, id, target); err != nil {
		slog.Warn("connection handoff failed", "client", id, "target", target, "error", err)
	}
	if err := s.gateway.Notify(ctx, id, "Connecting..."); err != nil {
		slog.Debug("connecting notice failed", "client", id, "error", err)
	}

	if tracked {
		recordDispatch(entry.Tier, s.now().Sub(entry.JoinedAt))
	}
}

// notifyOffline tells waiting clients their position while every target is
// down, rate-limited per client. Nobody is dequeued on a degraded tick.
func (s *Scheduler) notifyOffline(ctx context.Context, cfg *config.Snapshot, now time.Time) {
	combined := s.store.Combined(cfg.SoftbanMinWait, now)
	for i, id := range combined {
		if !s.store.ShouldNotify(id, cfg.NotifyCooldown, now) {
			continue
		}
		msg := fmt.Sprintf("All targets are offline. You are in queue, position %d.", i+1)
		if err := s.gateway.Notify(ctx, id, msg); err != nil {
			slog.Debug("offline notice failed", "client", id, "error", err)
		}
		s.store.MarkNotified(id, now)
	}
}

// HandleArrival admits a client that arrived in the lobby. Clients already
// on a target, or not in the lobby at all, are never admitted; a duplicate
// arrival for a queued client is a no-op.
func (s *Scheduler) HandleArrival(ctx context.Context, id domain.ClientID) {
	cfg := s.cfg.Current()

	server, err := s.gateway.Locate(ctx, id)
	if err != nil {
		slog.Warn("locate failed, skipping admission", "client", id, "error", err)
		return
	}
	if server == "" {
		return
	}
	for _, t := range cfg.Targets {
		if strings.EqualFold(server, t) {
			return
		}
	}
	if !strings.EqualFold(server, cfg.Lobby) {
		return
	}
	if s.store.Contains(id) {
		return
	}

	tier := s.classify(ctx, id, cfg)
	s.store.Admit(id, tier, s.now())
	recordAdmission(tier)
	recordQueueDepth(s.store)
	slog.Debug("client admitted", "client", id, "tier", tier)
}

// HandleDeparture removes a client that left the lobby for any reason.
// Removal is idempotent.
func (s *Scheduler) HandleDeparture(_ context.Context, id domain.ClientID) {
	s.store.Remove(id)
	recordQueueDepth(s.store)
}

// PositionOf returns the client's 1-based position in the combined eligible
// ordering.
func (s *Scheduler) PositionOf(id domain.ClientID) int {
	cfg := s.cfg.Current()
	return s.store.Position(id, cfg.SoftbanMinWait, s.now())
}

// DispatchNow moves a single client to the best healthy target immediately,
// bypassing the queue. Used by the skip-token consume path.
func (s *Scheduler) DispatchNow(ctx context.Context, id domain.ClientID) error {
	cfg := s.cfg.Current()

	target, ok := s.selector.Pick(ctx, cfg.Targets, cfg.ProbeTimeout)
	if !ok {
		return ErrNoTargetAvailable
	}

	s.dispatch(ctx, id, target)
	recordQueueDepth(s.store)
	return nil
}

// classify maps a client to its tier: premium, then vip, then softban,
// falling through to default. Classification disabled or failing reads as
// "no elevated membership".
func (s *Scheduler) classify(ctx context.Context, id domain.ClientID, cfg *config.Snapshot) domain.Tier {
	if s.classifier == nil || !s.classifier.IsEnabled() {
		return domain.TierDefault
	}
	switch {
	case s.classifier.IsInGroup(ctx, id, cfg.PremiumGroup):
		return domain.TierPremium
	case s.classifier.IsInGroup(ctx, id, cfg.VipGroup):
		return domain.TierVip
	case s.classifier.IsInGroup(ctx, id, cfg.SoftbanGroup):
		return domain.TierSoftban
	default:
		return domain.TierDefault
	}
}
