package queue

import (
	"errors"

	"github.com/google/uuid"
	"github.com/sevler/gatehouse/internal/domain"
)

// ErrInvalidWeights is returned when a tier weight is zero or negative.
var ErrInvalidWeights = errors.New("tier weights must be positive")

// Policy selects the next client to advance given the current tier queues.
// Implementations are not required to be safe for concurrent use; the
// scheduler calls SelectNext from a single tick goroutine.
type Policy interface {
	SelectNext(premium, vip, standard, softban TierView) (domain.ClientID, bool)
}

// WeightedPolicy interleaves the three primary tiers proportionally to their
// configured weights. Each tier owns a sub-range of size w inside [0, W)
// where W is the weight sum; a tier is offered its queue head exactly when
// its counter mod W falls inside that sub-range. The counters increase
// monotonically and are never reset, so weight shares stay accurate over
// long runs even as queues empty and refill.
//
// Softban is strictly subordinate: a softban client advances only when
// premium, vip and default are all empty at the moment of the fallback
// check. A client admitted to a primary tier mid-batch therefore preempts a
// softban client that would otherwise have gone this batch; that re-check on
// every selection is deliberate.
type WeightedPolicy struct {
	wPremium int
	wVip     int
	wDefault int

	iPremium int
	iVip     int
	iDefault int
}

// NewWeightedPolicy creates a weighted policy. All weights must be strictly
// positive; anything else is a configuration error.
func NewWeightedPolicy(premium, vip, standard int) (*WeightedPolicy, error) {
	if premium <= 0 || vip <= 0 || standard <= 0 {
		return nil, ErrInvalidWeights
	}
	return &WeightedPolicy{wPremium: premium, wVip: vip, wDefault: standard}, nil
}

// SelectNext returns the next client to advance, or false when nothing is
// available this round. An exhausted round with primary clients still queued
// signals the caller to stop the batch, not an error.
func (p *WeightedPolicy) SelectNext(premium, vip, standard, softban TierView) (domain.ClientID, bool) {
	cycle := p.wPremium + p.wVip + p.wDefault

	for attempt := 0; attempt < cycle; attempt++ {
		i := p.iPremium
		p.iPremium++
		if premium.Len() > 0 && i%cycle < p.wPremium {
			if id, ok := premium.Pop(); ok {
				return id, true
			}
		}

		i = p.iVip
		p.iVip++
		if vip.Len() > 0 && i%cycle < p.wVip {
			if id, ok := vip.Pop(); ok {
				return id, true
			}
		}

		i = p.iDefault
		p.iDefault++
		if standard.Len() > 0 && i%cycle < p.wDefault {
			if id, ok := standard.Pop(); ok {
				return id, true
			}
		}
	}

	// Softban advances only while every primary tier is empty, not merely
	// exhausted for this round.
	if premium.Len() == 0 && vip.Len() == 0 && standard.Len() == 0 {
		return softban.Pop()
	}

	return uuid.Nil, false
}
