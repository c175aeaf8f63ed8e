package viewer

import (
	"testing"
	"time"

	"github.com/orgball2608/storyreel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_NextCrossesAuthors(t *testing.T) {
	s, _ := newTestSession(t, authorStories(3, 2), Options{})

	require.NoError(t, s.Open("u0", 0))
	s.Next()
	s.Next()
	s.Next()
	at(t, s, "u1", 1)

	s.Next()
	at(t, s, "u2", 0)
}

func TestSession_PreviousAtStartIsNoop(t *testing.T) {
	s, fc := newTestSession(t, authorStories(3, 2), Options{})

	require.NoError(t, s.Open("u0", 0))
	fc.Advance(time.Second)
	s.Previous()

	at(t, s, "u0", 0)
	assert.InDelta(t, 0.2, s.Snapshot().Progress, 0.001)
}

func TestSession_PreviousCrossesToLastStoryOfPreviousAuthor(t *testing.T) {
	s, _ := newTestSession(t, authorStories(3, 2), Options{})

	require.NoError(t, s.Open("u2", 0))
	s.Previous()

	at(t, s, "u1", 1)
}

func TestSession_NextPastEndCloses(t *testing.T) {
	s, _ := newTestSession(t, authorStories(3, 2), Options{})

	require.NoError(t, s.Open("u2", 1))
	s.Next()

	assert.Equal(t, StateClosed, s.Snapshot().State)
	assert.Equal(t, 0, pendingExpiries(s))
}

func TestSession_ExpiryOnLastStoryCloses(t *testing.T) {
	s, fc := newTestSession(t, authorStories(3, 2), Options{})

	require.NoError(t, s.Open("u2", 1))
	fc.Advance(DefaultDuration)

	require.Eventually(t, func() bool {
		return s.Snapshot().State == StateClosed
	}, waitFor, tick)
}

func TestSession_ExpiryAdvancesOnce(t *testing.T) {
	s, fc := newTestSession(t, authorStories(3, 2), Options{})

	require.NoError(t, s.Open("u0", 0))
	fc.Advance(DefaultDuration)

	eventuallyAt(t, s, "u0", 1)
	assert.Equal(t, 1, pendingExpiries(s))
	assert.InDelta(t, 0, s.Snapshot().Progress, 0.001)
}

func TestSession_ManualNextCancelsPendingExpiry(t *testing.T) {
	s, fc := newTestSession(t, authorStories(3, 2), Options{})

	require.NoError(t, s.Open("u0", 0))
	fc.Advance(4 * time.Second)
	s.Next()
	at(t, s, "u0", 1)

	// The first run would have expired here; the new run still has 4s to go.
	fc.Advance(time.Second)
	require.Never(t, func() bool {
		return s.Snapshot().UserID != "u0"
	}, 50*time.Millisecond, tick)
	assert.Equal(t, 1, pendingExpiries(s))

	fc.Advance(4 * time.Second)
	eventuallyAt(t, s, "u1", 0)
}

func TestSession_RapidNavigationKeepsSinglePendingExpiry(t *testing.T) {
	s, fc := newTestSession(t, authorStories(3, 3), Options{})

	require.NoError(t, s.Open("u0", 0))
	for i := 0; i < 5; i++ {
		s.Next()
		s.Previous()
		s.Next()
		assert.Equal(t, 1, pendingExpiries(s))
	}
	at(t, s, "u1", 2)

	fc.Advance(DefaultDuration)
	eventuallyAt(t, s, "u2", 0)
}

func TestSession_StaleCallbackIsIgnored(t *testing.T) {
	s, _ := newTestSession(t, authorStories(2, 2), Options{})
	require.NoError(t, s.Open("u0", 0))

	s.mu.Lock()
	staleGen := s.clock.gen
	s.mu.Unlock()

	s.Next()
	s.clock.fire(staleGen)
	s.clock.tick(staleGen)

	at(t, s, "u0", 1)
}

func TestSession_PauseResumeConservesProgress(t *testing.T) {
	s, fc := newTestSession(t, authorStories(2, 2), Options{})

	require.NoError(t, s.Open("u0", 0))
	fc.Advance(2 * time.Second)
	s.Pause()

	c := s.Snapshot()
	require.Equal(t, StatePaused, c.State)
	assert.True(t, c.Paused)
	assert.InDelta(t, 0.4, c.Progress, 0.001)
	assert.Equal(t, 0, pendingExpiries(s))

	fc.Advance(10 * time.Second)
	assert.InDelta(t, 0.4, s.Snapshot().Progress, 0.001)

	s.Resume()
	assert.InDelta(t, 0.4, s.Snapshot().Progress, 0.001)
	assert.InDelta(t, float64(3*time.Second), float64(remaining(s)), float64(time.Millisecond))

	fc.Advance(1500 * time.Millisecond)
	assert.InDelta(t, 0.7, s.Snapshot().Progress, 0.001)

	fc.Advance(1499 * time.Millisecond)
	require.Never(t, func() bool {
		return s.Snapshot().Index != 0
	}, 50*time.Millisecond, tick)

	fc.Advance(time.Millisecond)
	eventuallyAt(t, s, "u0", 1)
}

func TestSession_PauseResumeIdempotent(t *testing.T) {
	s, fc := newTestSession(t, authorStories(2, 2), Options{})

	require.NoError(t, s.Open("u0", 0))
	s.Resume()
	assert.Equal(t, StatePlaying, s.Snapshot().State)
	assert.Equal(t, 1, pendingExpiries(s))

	fc.Advance(time.Second)
	s.Pause()
	s.Pause()
	assert.Equal(t, StatePaused, s.Snapshot().State)
	assert.InDelta(t, 0.2, s.Snapshot().Progress, 0.001)

	s.Resume()
	s.Resume()
	assert.Equal(t, StatePlaying, s.Snapshot().State)
	assert.Equal(t, 1, pendingExpiries(s))
}

func TestSession_TogglePause(t *testing.T) {
	s, _ := newTestSession(t, authorStories(1, 1), Options{})

	s.TogglePause()
	assert.Equal(t, StateClosed, s.Snapshot().State)

	require.NoError(t, s.Open("u0", 0))
	s.TogglePause()
	assert.Equal(t, StatePaused, s.Snapshot().State)
	s.TogglePause()
	assert.Equal(t, StatePlaying, s.Snapshot().State)
}

func TestSession_NavigationFromPausedStartsFresh(t *testing.T) {
	s, fc := newTestSession(t, authorStories(2, 2), Options{})

	require.NoError(t, s.Open("u0", 0))
	fc.Advance(3 * time.Second)
	s.Pause()
	s.Next()

	c := s.Snapshot()
	at(t, s, "u0", 1)
	assert.InDelta(t, 0, c.Progress, 0.001)
	assert.Equal(t, 1, pendingExpiries(s))
}

func TestSession_CloseCancelsEverything(t *testing.T) {
	s, fc := newTestSession(t, authorStories(2, 2), Options{FrameInterval: 100 * time.Millisecond})

	require.NoError(t, s.Open("u0", 0))
	s.Close()
	assert.Equal(t, 0, pendingExpiries(s))

	fc.Advance(time.Minute)
	require.Never(t, func() bool {
		return s.Snapshot().State != StateClosed
	}, 50*time.Millisecond, tick)

	s.Next()
	s.Previous()
	assert.Equal(t, StateClosed, s.Snapshot().State)
}

func TestSession_ReopenAfterClose(t *testing.T) {
	s, _ := newTestSession(t, authorStories(2, 2), Options{})

	require.NoError(t, s.Open("u0", 0))
	s.Close()
	require.NoError(t, s.Open("u1", 1))

	at(t, s, "u1", 1)
}

func TestSession_OpenUnknownStory(t *testing.T) {
	s, _ := newTestSession(t, authorStories(2, 2), Options{})

	assert.ErrorIs(t, s.Open("ghost", 0), ErrStoryNotFound)
	assert.ErrorIs(t, s.Open("u0", 2), ErrStoryNotFound)
	assert.ErrorIs(t, s.Open("u0", -1), ErrStoryNotFound)
	assert.Equal(t, StateClosed, s.Snapshot().State)
}

func TestSession_NoGroupsIsNoop(t *testing.T) {
	s, _ := newTestSession(t, nil, Options{})

	s.Next()
	s.Previous()
	s.TogglePause()

	assert.Equal(t, StateClosed, s.Snapshot().State)
	assert.ErrorIs(t, s.Open("u0", 0), ErrStoryNotFound)
}

func TestSession_MarksViewed(t *testing.T) {
	s, _ := newTestSession(t, authorStories(2, 2), Options{})

	require.NoError(t, s.Open("u0", 1))
	s.Next()
	s.Previous()
	s.Previous()

	assert.Equal(t, []ViewedKey{
		{UserID: "u0", Index: 1},
		{UserID: "u1", Index: 0},
		{UserID: "u0", Index: 0},
	}, s.Viewed())
	assert.True(t, s.HasViewed("u1", 0))
	assert.False(t, s.HasViewed("u1", 1))
}

func TestSession_PreloadsForwardLookahead(t *testing.T) {
	preloader := &recordingPreloader{}
	s, _ := newTestSession(t, authorStories(2, 2), Options{Preloader: preloader})

	require.NoError(t, s.Open("u0", 1))
	assert.Equal(t, "https://cdn.example.com/u1/0.jpg", preloader.last())

	s.Previous()
	assert.Equal(t, "https://cdn.example.com/u0/1.jpg", preloader.last())
}

func TestSession_NoPreloadOnLastStory(t *testing.T) {
	preloader := &recordingPreloader{}
	s, _ := newTestSession(t, authorStories(1, 1), Options{Preloader: preloader})

	require.NoError(t, s.Open("u0", 0))
	assert.Empty(t, preloader.last())
}

func videoStories() []domain.Story {
	return []domain.Story{
		{ID: "v1", UserID: "u0", MediaURL: "https://cdn.example.com/v1.mp4", MediaKind: domain.MediaVideo},
		{ID: "v2", UserID: "u0", MediaURL: "https://cdn.example.com/v2.mp4", MediaKind: domain.MediaVideo},
	}
}

func TestSession_VideoDurationPlaceholderUntilKnown(t *testing.T) {
	s, fc := newTestSession(t, videoStories(), Options{})

	require.NoError(t, s.Open("u0", 0))
	c := s.Snapshot()
	assert.False(t, c.DurationKnown)
	assert.Equal(t, DefaultDuration.Milliseconds(), c.DurationMs)

	fc.Advance(2 * time.Second)
	s.ReportDuration("v1", 20*time.Second)

	c = s.Snapshot()
	assert.True(t, c.DurationKnown)
	assert.Equal(t, int64(20000), c.DurationMs)
	assert.InDelta(t, 0.1, c.Progress, 0.001)
	assert.Equal(t, 1, pendingExpiries(s))

	// The placeholder run would have expired at 5s.
	fc.Advance(3 * time.Second)
	require.Never(t, func() bool {
		return s.Snapshot().Index != 0
	}, 50*time.Millisecond, tick)

	fc.Advance(15 * time.Second)
	eventuallyAt(t, s, "u0", 1)
}

func TestSession_LateDurationForOtherStoryIsKept(t *testing.T) {
	s, _ := newTestSession(t, videoStories(), Options{})

	require.NoError(t, s.Open("u0", 0))
	s.ReportDuration("v2", 8*time.Second)
	assert.False(t, s.Snapshot().DurationKnown)

	s.Next()
	c := s.Snapshot()
	assert.True(t, c.DurationKnown)
	assert.Equal(t, int64(8000), c.DurationMs)
}

func TestSession_VideoPauseDrivesMedia(t *testing.T) {
	s, _ := newTestSession(t, videoStories(), Options{})
	events, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.Open("u0", 0))
	s.Pause()
	s.Resume()

	assert.Equal(t, []string{"play:v1", "pause:v1", "play:v1"}, mediaActions(events))
}

func TestSession_ImagePauseDoesNotDriveMedia(t *testing.T) {
	s, _ := newTestSession(t, authorStories(1, 1), Options{})
	events, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.Open("u0", 0))
	s.Pause()
	s.Resume()

	assert.Empty(t, mediaActions(events))
}

func TestSession_MediaErrorUsesPlaceholder(t *testing.T) {
	preloader := &recordingPreloader{}
	s, _ := newTestSession(t, authorStories(1, 3), Options{
		PlaceholderMediaURL: "/static/placeholder.png",
		Preloader:           preloader,
	})

	s.ReportMediaError("u0-s1")
	require.NoError(t, s.Open("u0", 0))
	assert.Empty(t, preloader.last())

	s.ReportMediaError("u0-s0")
	assert.Equal(t, "/static/placeholder.png", s.Snapshot().Story.MediaURL)
	at(t, s, "u0", 0)
}

func TestSession_SetGroupsFollowsStory(t *testing.T) {
	s, _ := newTestSession(t, authorStories(2, 2), Options{})
	require.NoError(t, s.Open("u1", 1))

	// A new author shows up first; the open story shifts but stays selected.
	fresh := append([]domain.Story{{ID: "n1", UserID: "new"}}, authorStories(2, 2)...)
	s.SetStories(fresh)

	c := s.Snapshot()
	at(t, s, "u1", 1)
	assert.Equal(t, "u1-s1", c.Story.ID)
}

func TestSession_SetGroupsClampsWhenStoryRemoved(t *testing.T) {
	s, _ := newTestSession(t, authorStories(2, 3), Options{})
	require.NoError(t, s.Open("u1", 2))

	s.SetStories(authorStories(2, 2))

	at(t, s, "u1", 1)
	assert.Equal(t, 1, pendingExpiries(s))
}

func TestSession_SetGroupsKeepsPauseWhenStoryRemoved(t *testing.T) {
	s, fc := newTestSession(t, authorStories(2, 3), Options{})
	require.NoError(t, s.Open("u0", 2))
	s.Pause()

	s.SetStories(authorStories(2, 2))

	c := s.Snapshot()
	assert.Equal(t, StatePaused, c.State)
	assert.Equal(t, "u0", c.UserID)
	assert.Equal(t, 1, c.Index)
	assert.InDelta(t, 0, c.Progress, 0.001)
	assert.Equal(t, 0, pendingExpiries(s))

	fc.Advance(10 * time.Second)
	require.Never(t, func() bool {
		c := s.Snapshot()
		return c.State != StatePaused || c.Index != 1
	}, 50*time.Millisecond, tick)

	s.Resume()
	at(t, s, "u0", 1)
	assert.Equal(t, DefaultDuration, remaining(s))
	assert.Equal(t, 1, pendingExpiries(s))
}

func TestSession_SetGroupsPausedVideoStaysPaused(t *testing.T) {
	stories := append(videoStories(), domain.Story{
		ID: "v3", UserID: "u0", MediaURL: "https://cdn.example.com/v3.mp4", MediaKind: domain.MediaVideo,
	})
	s, _ := newTestSession(t, stories, Options{})
	require.NoError(t, s.Open("u0", 2))
	s.Pause()

	events, cancel := s.Subscribe()
	defer cancel()

	s.SetStories(videoStories())

	assert.Equal(t, StatePaused, s.Snapshot().State)
	assert.Equal(t, []string{"pause:v2"}, mediaActions(events))
}

func TestSession_SetGroupsClosesWhenAuthorRemoved(t *testing.T) {
	s, _ := newTestSession(t, authorStories(2, 2), Options{})
	require.NoError(t, s.Open("u1", 0))

	s.SetStories(authorStories(1, 2))

	assert.Equal(t, StateClosed, s.Snapshot().State)
	assert.Equal(t, 0, pendingExpiries(s))
}

func TestSession_SubscribeReceivesCursorAndFrames(t *testing.T) {
	s, fc := newTestSession(t, authorStories(1, 2), Options{FrameInterval: 100 * time.Millisecond})

	events, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.Open("u0", 0))
	ev := <-events
	require.Equal(t, EventCursor, ev.Type)
	assert.Equal(t, StatePlaying, ev.Cursor.State)
	assert.InDelta(t, 0, ev.Cursor.Progress, 0.001)

	fc.Advance(100 * time.Millisecond)
	select {
	case ev = <-events:
		require.Equal(t, EventCursor, ev.Type)
		assert.InDelta(t, 0.02, ev.Cursor.Progress, 0.001)
	case <-time.After(waitFor):
		t.Fatal("no frame event")
	}
}

func TestSession_ShutdownEndsSubscriptions(t *testing.T) {
	s, _ := newTestSession(t, authorStories(1, 1), Options{})
	events, _ := s.Subscribe()

	s.Notice("hello")
	ev := <-events
	assert.Equal(t, EventNotice, ev.Type)
	assert.Equal(t, "hello", ev.Notice)

	s.Shutdown()
	_, open := <-events
	assert.False(t, open)
	assert.ErrorIs(t, s.Open("u0", 0), ErrSessionClosed)
}
