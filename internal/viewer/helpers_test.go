package viewer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyreel/internal/domain"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = time.Millisecond
)

// authorStories builds perAuthor image stories for each author u0..u{n-1},
// interleaved the way a listing sorted by time would return them.
func authorStories(authors, perAuthor int) []domain.Story {
	var out []domain.Story
	for i := 0; i < perAuthor; i++ {
		for a := 0; a < authors; a++ {
			out = append(out, domain.Story{
				ID:        fmt.Sprintf("u%d-s%d", a, i),
				UserID:    fmt.Sprintf("u%d", a),
				UserName:  fmt.Sprintf("user %d", a),
				MediaURL:  fmt.Sprintf("https://cdn.example.com/u%d/%d.jpg", a, i),
				MediaKind: domain.MediaImage,
			})
		}
	}
	return out
}

type recordingPreloader struct {
	mu   sync.Mutex
	urls []string
}

func (p *recordingPreloader) Preload(url string, _ domain.MediaKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, url)
}

func (p *recordingPreloader) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.urls) == 0 {
		return ""
	}
	return p.urls[len(p.urls)-1]
}

// mediaActions drains the events buffered so far and returns the media ones
// as "action:storyID".
func mediaActions(events <-chan Event) []string {
	var out []string
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			if ev.Type == EventMedia {
				out = append(out, string(ev.Media.Action)+":"+ev.Media.StoryID)
			}
		default:
			return out
		}
	}
}

func newTestSession(t *testing.T, stories []domain.Story, opts Options) (*Session, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	opts.Clock = fc
	s := NewSession("s1", "viewer", BuildGroups(stories, nil), opts)
	t.Cleanup(s.Shutdown)
	return s, fc
}

func at(t *testing.T, s *Session, userID string, index int) {
	t.Helper()
	c := s.Snapshot()
	require.Equal(t, StatePlaying, c.State)
	require.Equal(t, userID, c.UserID)
	require.Equal(t, index, c.Index)
}

func eventuallyAt(t *testing.T, s *Session, userID string, index int) {
	t.Helper()
	require.Eventually(t, func() bool {
		c := s.Snapshot()
		return c.State != StateClosed && c.UserID == userID && c.Index == index
	}, waitFor, tick)
}

func remaining(s *Session) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Remaining()
}

func pendingExpiries(s *Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.pending()
}
