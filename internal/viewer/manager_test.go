package viewer

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	m := NewManager(Options{Clock: fc})
	t.Cleanup(m.Shutdown)
	return m, fc
}

func TestManager_CreateGetRemove(t *testing.T) {
	m, _ := newTestManager(t)
	m.SetStories(authorStories(2, 1))

	s := m.Create("viewer-1")
	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, "viewer-1", got.ViewerID())
	require.NoError(t, got.Open("u1", 0))

	require.NoError(t, m.Remove(s.ID()))
	assert.Equal(t, StateClosed, s.Snapshot().State)

	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Remove(s.ID()), ErrSessionNotFound)
}

func TestManager_SetStoriesReachesSessions(t *testing.T) {
	m, _ := newTestManager(t)
	s := m.Create("viewer-1")
	assert.ErrorIs(t, s.Open("u0", 0), ErrStoryNotFound)

	m.SetStories(authorStories(3, 2))

	assert.Equal(t, 3, m.Groups().Len())
	require.NoError(t, s.Open("u2", 1))
}

func TestManager_NotifyBroadcasts(t *testing.T) {
	m, _ := newTestManager(t)
	a, b := m.Create("a"), m.Create("b")
	evA, cancelA := a.Subscribe()
	defer cancelA()
	evB, cancelB := b.Subscribe()
	defer cancelB()

	m.Notify("Failed to load stories")

	assert.Equal(t, "Failed to load stories", (<-evA).Notice)
	assert.Equal(t, "Failed to load stories", (<-evB).Notice)
}

func TestManager_EvictIdle(t *testing.T) {
	m, fc := newTestManager(t)
	m.SetStories(authorStories(1, 1))
	idle := m.Create("idle")
	fc.Advance(20 * time.Minute)
	active := m.Create("active")

	evicted := m.EvictIdle(15 * time.Minute)

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, m.Len())
	_, err := m.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(active.ID())
	assert.NoError(t, err)
}

func TestManager_EvictIdleKeepsWatchedSessions(t *testing.T) {
	m, fc := newTestManager(t)
	watched := m.Create("watched")
	_, cancel := watched.Subscribe()
	defer cancel()
	fc.Advance(20 * time.Minute)

	assert.Zero(t, m.EvictIdle(15*time.Minute))
	_, err := m.Get(watched.ID())
	assert.NoError(t, err)
}

func TestManager_AutoAdvanceCountsAsActivity(t *testing.T) {
	m, fc := newTestManager(t)
	m.SetStories(authorStories(1, 2))
	s := m.Create("viewer")
	require.NoError(t, s.Open("u0", 0))

	fc.Advance(DefaultDuration)
	eventuallyAt(t, s, "u0", 1)
	fc.Advance(4 * time.Second)

	assert.Zero(t, m.EvictIdle(6*time.Second))
}

func TestManager_OnRemoveRunsForRemoveAndEvict(t *testing.T) {
	m, fc := newTestManager(t)

	var mu sync.Mutex
	var removed []string
	m.OnRemove(func(id string) {
		mu.Lock()
		defer mu.Unlock()
		removed = append(removed, id)
	})

	a := m.Create("a")
	require.NoError(t, m.Remove(a.ID()))

	b := m.Create("b")
	fc.Advance(time.Hour)
	require.Equal(t, 1, m.EvictIdle(time.Minute))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{a.ID(), b.ID()}, removed)
}

func TestManager_ConcurrentSetStoriesLeaveSessionsOnLatestGroups(t *testing.T) {
	m, _ := newTestManager(t)
	sessions := []*Session{m.Create("a"), m.Create("b"), m.Create("c")}

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(authors int) {
			defer wg.Done()
			m.SetStories(authorStories(authors, 1))
		}(i)
	}
	wg.Wait()

	latest := m.Groups()
	for _, s := range sessions {
		s.mu.Lock()
		got := s.groups
		s.mu.Unlock()
		assert.Same(t, latest, got)
	}
}
