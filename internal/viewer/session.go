package viewer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyreel/internal/domain"
	"github.com/orgball2608/storyreel/pkg/logger"
)

const DefaultDuration = 5 * time.Second

type State string

const (
	StateClosed  State = "closed"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Cursor is a point-in-time view of a session for rendering.
type Cursor struct {
	SessionID     string        `json:"sessionId"`
	State         State         `json:"state"`
	UserID        string        `json:"userId,omitempty"`
	UserName      string        `json:"userName,omitempty"`
	UserAvatar    string        `json:"userAvatar,omitempty"`
	Index         int           `json:"index"`
	Total         int           `json:"total"`
	Story         *domain.Story `json:"story,omitempty"`
	Progress      float64       `json:"progress"`
	Paused        bool          `json:"paused"`
	DurationMs    int64         `json:"durationMs"`
	DurationKnown bool          `json:"durationKnown"`
}

type Options struct {
	Clock               clockwork.Clock
	DefaultDuration     time.Duration
	FrameInterval       time.Duration
	PlaceholderMediaURL string
	Preloader           Preloader
	Logger              logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = DefaultDuration
	}
	if o.Preloader == nil {
		o.Preloader = NopPreloader{}
	}
	if o.Logger == nil {
		o.Logger = logger.NewNop()
	}
	return o
}

// Session is one viewer's walk through the story groups. It owns the viewing
// cursor, the playback clock and the viewed set; all of them change only under
// mu. Expiry and frame callbacks take mu too, so every transition is
// serialized.
type Session struct {
	id       string
	viewerID string
	opts     Options
	log      logger.Logger

	mu            sync.Mutex
	groups        *Groups
	state         State
	pos           Position
	clock         *playbackClock
	durationKnown bool
	viewed        *ViewedSet
	durations     map[string]time.Duration
	brokenMedia   map[string]struct{}
	subs          map[chan Event]struct{}
	shutdown      bool
	lastActive    time.Time
}

func NewSession(id, viewerID string, groups *Groups, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		id:          id,
		viewerID:    viewerID,
		opts:        opts,
		log:         opts.Logger.With("session_id", id),
		groups:      groups,
		state:       StateClosed,
		viewed:      NewViewedSet(),
		durations:   make(map[string]time.Duration),
		brokenMedia: make(map[string]struct{}),
		subs:        make(map[chan Event]struct{}),
		lastActive:  opts.Clock.Now(),
	}
	s.clock = newPlaybackClock(opts.Clock, &s.mu, opts.FrameInterval, s.onFrame, s.onExpire)
	return s
}

func (s *Session) ID() string       { return s.id }
func (s *Session) ViewerID() string { return s.viewerID }

// Open starts playing the story at index of userID from progress 0.
func (s *Session) Open(userID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return ErrSessionClosed
	}
	s.touch()

	gi, ok := s.groups.IndexOf(userID)
	if !ok {
		return ErrStoryNotFound
	}
	pos := Position{Group: gi, Index: index}
	if _, ok := s.groups.Story(pos); !ok {
		return ErrStoryNotFound
	}

	s.log.Debug("Opening story", "user_id", userID, "index", index)
	s.enterLocked(pos)
	return nil
}

func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.nextLocked()
}

func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.prevLocked()
}

func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.pauseLocked()
}

func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.resumeLocked()
}

func (s *Session) TogglePause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	switch s.state {
	case StatePlaying:
		s.pauseLocked()
	case StatePaused:
		s.resumeLocked()
	}
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.closeLocked()
}

// SetStories rebuilds the groups from a fresh listing.
func (s *Session) SetStories(stories []domain.Story) {
	s.SetGroups(BuildGroups(stories, s.log))
}

// SetGroups swaps in a new grouping. An open cursor follows its story when it
// still exists, is clamped into its author when only the story went away, and
// closes when the whole author is gone.
func (s *Session) SetGroups(g *Groups) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.groups
	s.groups = g
	if s.state == StateClosed {
		return
	}

	cur, _ := old.Story(s.pos)
	gi, ok := g.IndexOf(cur.UserID)
	if !ok {
		s.log.Info("Author of open story disappeared, closing", "user_id", cur.UserID)
		s.closeLocked()
		return
	}

	group := g.At(gi)
	for i, st := range group.Stories {
		if st.ID == cur.ID {
			s.pos = Position{Group: gi, Index: i}
			s.preloadNextLocked()
			s.publishLocked()
			return
		}
	}

	pos := Position{Group: gi, Index: min(s.pos.Index, len(group.Stories)-1)}
	if s.state == StatePaused {
		s.enterPausedLocked(pos)
		return
	}
	s.enterLocked(pos)
}

// ReportDuration records the playable length of a video once its metadata is
// known. The open clock picks it up only when it belongs to the current story;
// late reports for stories already left are kept for the next visit.
func (s *Session) ReportDuration(storyID string, d time.Duration) {
	if d <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations[storyID] = d
	if s.state == StateClosed {
		return
	}
	cur, ok := s.groups.Story(s.pos)
	if !ok || cur.ID != storyID || !cur.IsVideo() {
		return
	}

	s.clock.SetDuration(d)
	s.durationKnown = true
	s.publishLocked()
}

// ReportMediaError swaps the media of storyID for the placeholder.
func (s *Session) ReportMediaError(storyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.brokenMedia[storyID] = struct{}{}
	s.log.Warn("Media failed to load, using placeholder", "story_id", storyID)

	if cur, ok := s.groups.Story(s.pos); ok && s.state != StateClosed && cur.ID == storyID {
		s.publishLocked()
	}
}

func (s *Session) Snapshot() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) Viewed() []ViewedKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewed.Keys()
}

func (s *Session) HasViewed(userID string, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewed.Has(ViewedKey{UserID: userID, Index: index})
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Watched reports whether any subscriber is attached.
func (s *Session) Watched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) > 0
}

// Subscribe streams cursor, media and notice events. Slow readers miss
// events instead of blocking the session. The returned func unsubscribes.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, 16)
	if s.shutdown {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// Notice pushes a transient message to subscribers.
func (s *Session) Notice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(Event{Type: EventNotice, Notice: msg})
}

// Shutdown closes the cursor, cancels every pending callback and ends all
// subscriptions. The session refuses to open again afterwards.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()
	s.shutdown = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}

func (s *Session) enterLocked(pos Position) {
	story, ok := s.loadLocked(pos)
	if !ok {
		return
	}

	s.state = StatePlaying
	s.clock.Resume()
	if story.IsVideo() {
		s.mediaLocked(MediaPlay, story.ID)
	}
	s.publishLocked()
}

// enterPausedLocked shows the story at pos without starting its clock.
func (s *Session) enterPausedLocked(pos Position) {
	story, ok := s.loadLocked(pos)
	if !ok {
		return
	}

	s.state = StatePaused
	if story.IsVideo() {
		s.mediaLocked(MediaPause, story.ID)
	}
	s.publishLocked()
}

// loadLocked moves the cursor to pos and parks a fresh clock run at 0.
func (s *Session) loadLocked(pos Position) (domain.Story, bool) {
	story, ok := s.groups.Story(pos)
	if !ok {
		return domain.Story{}, false
	}

	s.pos = pos
	d, known := s.durationForLocked(story)
	s.durationKnown = known
	s.clock.Load(d)

	s.viewed.Add(ViewedKey{UserID: story.UserID, Index: pos.Index})
	s.preloadNextLocked()
	return story, true
}

func (s *Session) nextLocked() {
	if s.state == StateClosed || s.groups.Len() == 0 {
		return
	}
	next, ok := NextPosition(s.groups, s.pos)
	if !ok {
		s.closeLocked()
		return
	}
	s.enterLocked(next)
}

func (s *Session) prevLocked() {
	if s.state == StateClosed || s.groups.Len() == 0 {
		return
	}
	prev := PrevPosition(s.groups, s.pos)
	if prev == s.pos {
		return
	}
	s.enterLocked(prev)
}

func (s *Session) pauseLocked() {
	if s.state != StatePlaying {
		return
	}
	s.clock.Stop(false)
	s.state = StatePaused
	if story, ok := s.groups.Story(s.pos); ok && story.IsVideo() {
		s.mediaLocked(MediaPause, story.ID)
	}
	s.publishLocked()
}

func (s *Session) resumeLocked() {
	if s.state != StatePaused {
		return
	}
	s.state = StatePlaying
	s.clock.Resume()
	if story, ok := s.groups.Story(s.pos); ok && story.IsVideo() {
		s.mediaLocked(MediaPlay, story.ID)
	}
	s.publishLocked()
}

func (s *Session) closeLocked() {
	s.clock.Stop(true)
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.pos = Position{}
	s.durationKnown = false
	s.publishLocked()
}

// onExpire counts as activity: a viewer watching stories roll over is not idle.
func (s *Session) onExpire() {
	s.touch()
	s.nextLocked()
}

func (s *Session) onFrame(float64) {
	s.publishLocked()
}

func (s *Session) durationForLocked(story domain.Story) (time.Duration, bool) {
	if !story.IsVideo() {
		return s.opts.DefaultDuration, true
	}
	if d, ok := s.durations[story.ID]; ok {
		return d, true
	}
	return s.opts.DefaultDuration, false
}

// preloadNextLocked always looks one story forward, whichever way the cursor
// just moved.
func (s *Session) preloadNextLocked() {
	next, ok := NextPosition(s.groups, s.pos)
	if !ok {
		return
	}
	story, ok := s.groups.Story(next)
	if !ok || story.MediaURL == "" {
		return
	}
	if _, broken := s.brokenMedia[story.ID]; broken {
		return
	}
	s.opts.Preloader.Preload(story.MediaURL, story.MediaKind)
}

// mediaLocked tells the attached player to play or pause a video.
func (s *Session) mediaLocked(action MediaAction, storyID string) {
	s.emitLocked(Event{Type: EventMedia, Media: &MediaEvent{Action: action, StoryID: storyID}})
}

func (s *Session) publishLocked() {
	cursor := s.snapshotLocked()
	s.emitLocked(Event{Type: EventCursor, Cursor: &cursor})
}

func (s *Session) emitLocked(ev Event) {
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) snapshotLocked() Cursor {
	c := Cursor{
		SessionID: s.id,
		State:     s.state,
	}
	if s.state == StateClosed {
		return c
	}

	group := s.groups.At(s.pos.Group)
	story, ok := s.groups.Story(s.pos)
	if group == nil || !ok {
		return c
	}
	if _, broken := s.brokenMedia[story.ID]; broken && s.opts.PlaceholderMediaURL != "" {
		story.MediaURL = s.opts.PlaceholderMediaURL
	}

	c.UserID = group.UserID
	c.UserName = group.UserName
	c.UserAvatar = group.UserAvatar
	c.Index = s.pos.Index
	c.Total = len(group.Stories)
	c.Story = &story
	c.Progress = s.clock.Progress()
	c.Paused = s.state == StatePaused
	c.DurationMs = s.clock.Duration().Milliseconds()
	c.DurationKnown = s.durationKnown
	return c
}

func (s *Session) touch() {
	s.lastActive = s.opts.Clock.Now()
}
