// Package queue implements the tiered fair-share queue scheduler: the queue
// store, the weighted dequeue policy, the target selector and the periodic
// scheduler loop that ties them together.
package queue

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sevler/gatehouse/internal/domain"
)

// numTiers is the constant tier count; TierSoftban is the last tier.
const numTiers = int(domain.TierSoftban) + 1

// clientState holds per-client metadata. One record per queued client,
// owned by the Store.
type clientState struct {
	tier           domain.Tier
	joinedAt       time.Time
	lastNotifiedAt time.Time
}

// tierList is one tier's FIFO ordering. Each tier carries its own lock so
// activity on one tier does not serialize the others.
type tierList struct {
	mu  sync.Mutex
	ids []domain.ClientID
}

func (l *tierList) push(id domain.ClientID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
}

func (l *tierList) remove(id domain.ClientID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, cur := range l.ids {
		if cur == id {
			l.ids = slices.Delete(l.ids, i, i+1)
			return true
		}
	}
	return false
}

func (l *tierList) peek() (domain.ClientID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.ids) == 0 {
		return uuid.Nil, false
	}
	return l.ids[0], true
}

func (l *tierList) pop() (domain.ClientID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.ids) == 0 {
		return uuid.Nil, false
	}
	id := l.ids[0]
	l.ids = slices.Delete(l.ids, 0, 1)
	return id, true
}

// popIf pops the head only if it still equals id.
func (l *tierList) popIf(id domain.ClientID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.ids) == 0 || l.ids[0] != id {
		return false
	}
	l.ids = slices.Delete(l.ids, 0, 1)
	return true
}

func (l *tierList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

func (l *tierList) snapshot() []domain.ClientID {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.ClientID, len(l.ids))
	copy(out, l.ids)
	return out
}

// Store is the tiered queue store: four per-tier FIFO orderings plus one
// metadata map keyed by client ID. A client occupies at most one tier at any
// time. Admission and removal run concurrently with the scheduler tick; the
// metadata map and each tier list are independently locked. Lock order is
// always metadata before tier list, never the reverse.
type Store struct {
	mu      sync.RWMutex
	clients map[domain.ClientID]*clientState

	tiers [numTiers]tierList
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{clients: make(map[domain.ClientID]*clientState)}
}

// Admit places the client at the tail of the given tier's queue. A client
// already waiting in the same tier keeps its position (duplicate arrival
// events must not reorder it); a client waiting in a different tier is moved
// to the new tier's tail. Admission never fails.
func (s *Store) Admit(id domain.ClientID, tier domain.Tier, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.clients[id]
	if ok {
		if st.tier == tier {
			return
		}
		s.tiers[st.tier].remove(id)
		st.tier = tier
	} else {
		st = &clientState{tier: tier}
		s.clients[id] = st
	}
	st.joinedAt = now
	s.tiers[tier].push(id)
}

// Remove takes the client out of whichever tier it occupies and clears all
// metadata. Removing an absent client is a no-op.
func (s *Store) Remove(id domain.ClientID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.clients[id]
	if !ok {
		return
	}
	s.tiers[st.tier].remove(id)
	delete(s.clients, id)
}

// Contains reports whether the client is currently queued.
func (s *Store) Contains(id domain.ClientID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.clients[id]
	return ok
}

// Entry returns the client's queue entry, if queued.
func (s *Store) Entry(id domain.ClientID) (domain.QueueEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.clients[id]
	if !ok {
		return domain.QueueEntry{}, false
	}
	return domain.QueueEntry{ID: id, Tier: st.tier, JoinedAt: st.joinedAt}, true
}

// Combined returns the combined eligible ordering: premium, vip and default
// head-to-tail, followed by the softban entries that have waited at least
// minWait. This is the ordering positions are reported against.
func (s *Store) Combined(minWait time.Duration, now time.Time) []domain.ClientID {
	out := s.tiers[domain.TierPremium].snapshot()
	out = append(out, s.tiers[domain.TierVip].snapshot()...)
	out = append(out, s.tiers[domain.TierDefault].snapshot()...)
	for _, id := range s.tiers[domain.TierSoftban].snapshot() {
		if s.softbanReady(id, minWait, now) {
			out = append(out, id)
		}
	}
	return out
}

// Position returns the client's 1-based rank within the combined eligible
// ordering. A client that is absent, or a softban client still inside its
// minimum wait, reports len(combined)+1.
func (s *Store) Position(id domain.ClientID, minWait time.Duration, now time.Time) int {
	combined := s.Combined(minWait, now)
	for i, cur := range combined {
		if cur == id {
			return i + 1
		}
	}
	return len(combined) + 1
}

// Len returns the number of clients waiting in the given tier.
func (s *Store) Len(tier domain.Tier) int {
	return s.tiers[tier].len()
}

// ShouldNotify reports whether the per-client notification cooldown has
// elapsed.
func (s *Store) ShouldNotify(id domain.ClientID, cooldown time.Duration, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.clients[id]
	if !ok {
		return false
	}
	return now.Sub(st.lastNotifiedAt) >= cooldown
}

// MarkNotified stamps the client's notification throttle.
func (s *Store) MarkNotified(id domain.ClientID, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.clients[id]; ok {
		st.lastNotifiedAt = now
	}
}

// softbanReady reports whether a softban client has served its minimum wait.
// A client missing from the metadata map counts as ready; the entry is
// already on its way out.
func (s *Store) softbanReady(id domain.ClientID, minWait time.Duration, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.clients[id]
	if !ok {
		return true
	}
	return now.Sub(st.joinedAt) >= minWait
}

// TierView is a live view over one tier's queue, consumed by the dequeue
// policy. Pop removes only the queue ordering; the caller clears metadata
// via Remove once the client is dispatched.
type TierView interface {
	Len() int
	Pop() (domain.ClientID, bool)
}

type tierView struct {
	list *tierList
}

func (v *tierView) Len() int { return v.list.len() }

func (v *tierView) Pop() (domain.ClientID, bool) { return v.list.pop() }

// Tier returns a view over the given tier's queue.
func (s *Store) Tier(tier domain.Tier) TierView {
	return &tierView{list: &s.tiers[tier]}
}

// SoftbanEligible returns a view over the softban queue restricted to
// clients past their minimum wait. The softban queue is FIFO by join time,
// so eligibility is a prefix of the queue.
func (s *Store) SoftbanEligible(minWait time.Duration, now time.Time) TierView {
	return &softbanView{store: s, minWait: minWait, now: now}
}

type softbanView struct {
	store   *Store
	minWait time.Duration
	now     time.Time
}

func (v *softbanView) Len() int {
	n := 0
	for _, id := range v.store.tiers[domain.TierSoftban].snapshot() {
		if !v.store.softbanReady(id, v.minWait, v.now) {
			break
		}
		n++
	}
	return n
}

func (v *softbanView) Pop() (domain.ClientID, bool) {
	list := &v.store.tiers[domain.TierSoftban]
	for {
		head, ok := list.peek()
		if !ok {
			return uuid.Nil, false
		}
		if !v.store.softbanReady(head, v.minWait, v.now) {
			return uuid.Nil, false
		}
		if list.popIf(head) {
			return head, true
		}
		// Head changed between peek and pop; try again.
	}
}
