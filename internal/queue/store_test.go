package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sevler/gatehouse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AdmitAndContains(t *testing.T) {
	store := NewStore()
	now := time.Now()
	id := uuid.New()

	assert.False(t, store.Contains(id))

	store.Admit(id, domain.TierDefault, now)

	assert.True(t, store.Contains(id))
	assert.Equal(t, 1, store.Len(domain.TierDefault))

	entry, ok := store.Entry(id)
	require.True(t, ok)
	assert.Equal(t, domain.TierDefault, entry.Tier)
	assert.Equal(t, now, entry.JoinedAt)
}

func TestStore_TierExclusivity(t *testing.T) {
	store := NewStore()
	now := time.Now()
	id := uuid.New()

	store.Admit(id, domain.TierDefault, now)
	store.Admit(id, domain.TierPremium, now.Add(time.Second))

	assert.Equal(t, 0, store.Len(domain.TierDefault))
	assert.Equal(t, 1, store.Len(domain.TierPremium))

	entry, ok := store.Entry(id)
	require.True(t, ok)
	assert.Equal(t, domain.TierPremium, entry.Tier)
}

func TestStore_DuplicateAdmitKeepsPosition(t *testing.T) {
	store := NewStore()
	now := time.Now()
	first := uuid.New()
	second := uuid.New()

	store.Admit(first, domain.TierDefault, now)
	store.Admit(second, domain.TierDefault, now)

	// A repeated arrival for the head must not move it behind second.
	store.Admit(first, domain.TierDefault, now.Add(time.Minute))

	head, ok := store.Tier(domain.TierDefault).Pop()
	require.True(t, ok)
	assert.Equal(t, first, head)
}

func TestStore_FIFOWithinTier(t *testing.T) {
	store := NewStore()
	now := time.Now()

	ids := []domain.ClientID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		store.Admit(id, domain.TierVip, now)
	}

	view := store.Tier(domain.TierVip)
	for _, want := range ids {
		got, ok := view.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := view.Pop()
	assert.False(t, ok)
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	store := NewStore()
	id := uuid.New()

	store.Admit(id, domain.TierDefault, time.Now())
	store.Remove(id)
	store.Remove(id)

	assert.False(t, store.Contains(id))
	assert.Equal(t, 0, store.Len(domain.TierDefault))
}

func TestStore_Position(t *testing.T) {
	store := NewStore()
	now := time.Now()

	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	store.Admit(a, domain.TierPremium, now)
	store.Admit(b, domain.TierPremium, now)
	store.Admit(c, domain.TierVip, now)

	assert.Equal(t, 1, store.Position(a, 0, now))
	assert.Equal(t, 2, store.Position(b, 0, now))
	assert.Equal(t, 3, store.Position(c, 0, now))

	// An unknown client reports one past the end of the eligible ordering.
	assert.Equal(t, 4, store.Position(uuid.New(), 0, now))
}

func TestStore_PositionSoftbanMinWait(t *testing.T) {
	store := NewStore()
	now := time.Now()
	minWait := 5 * time.Minute

	waiting := uuid.New()
	banned := uuid.New()

	store.Admit(waiting, domain.TierDefault, now)
	store.Admit(banned, domain.TierSoftban, now)

	// Inside the minimum wait the softban client is not in the eligible
	// ordering at all.
	assert.Equal(t, 2, store.Position(banned, minWait, now.Add(time.Minute)))
	assert.Equal(t, []domain.ClientID{waiting}, store.Combined(minWait, now.Add(time.Minute)))

	// Past the minimum wait it queues behind every primary tier.
	later := now.Add(minWait)
	assert.Equal(t, 2, store.Position(banned, minWait, later))
	assert.Equal(t, []domain.ClientID{waiting, banned}, store.Combined(minWait, later))
}

func TestStore_SoftbanEligibleView(t *testing.T) {
	store := NewStore()
	now := time.Now()
	minWait := 5 * time.Minute

	early := uuid.New()
	late := uuid.New()

	store.Admit(early, domain.TierSoftban, now)
	store.Admit(late, domain.TierSoftban, now.Add(3*time.Minute))

	// Only the first client has served its wait.
	at := now.Add(minWait)
	view := store.SoftbanEligible(minWait, at)
	assert.Equal(t, 1, view.Len())

	got, ok := view.Pop()
	require.True(t, ok)
	assert.Equal(t, early, got)

	// The second is still inside its wait, so the view is empty.
	_, ok = view.Pop()
	assert.False(t, ok)

	// Once both waits elapse the second becomes visible.
	view = store.SoftbanEligible(minWait, now.Add(8*time.Minute))
	assert.Equal(t, 1, view.Len())
}

func TestStore_NotifyCooldown(t *testing.T) {
	store := NewStore()
	now := time.Now()
	cooldown := 10 * time.Second
	id := uuid.New()

	assert.False(t, store.ShouldNotify(id, cooldown, now), "absent client is never notified")

	store.Admit(id, domain.TierDefault, now)
	assert.True(t, store.ShouldNotify(id, cooldown, now))

	store.MarkNotified(id, now)
	assert.False(t, store.ShouldNotify(id, cooldown, now.Add(5*time.Second)))
	assert.True(t, store.ShouldNotify(id, cooldown, now.Add(cooldown)))
}
