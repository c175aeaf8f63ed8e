package viewer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// playbackClock drives the progress of one story from 0 to 1.
//
// It is not safe for concurrent use on its own: every method must be called
// with lock held, and timer callbacks take lock before touching state. Each
// run gets a generation number; callbacks from an older generation are
// dropped, so at most one expiry can ever act per run.
type playbackClock struct {
	clock clockwork.Clock
	lock  sync.Locker
	frame time.Duration

	onFrame  func(progress float64)
	onExpire func()

	duration time.Duration
	base     float64
	since    time.Time
	running  bool
	gen      uint64

	expiry    clockwork.Timer
	nextFrame clockwork.Timer
}

func newPlaybackClock(clock clockwork.Clock, lock sync.Locker, frame time.Duration, onFrame func(float64), onExpire func()) *playbackClock {
	return &playbackClock{
		clock:    clock,
		lock:     lock,
		frame:    frame,
		onFrame:  onFrame,
		onExpire: onExpire,
	}
}

// Load parks a fresh run over d at progress 0 without starting it.
func (c *playbackClock) Load(d time.Duration) {
	c.Stop(true)
	c.duration = d
}

// Stop cancels the pending frame and expiry. With reset the progress returns
// to 0, otherwise it is frozen where it is.
func (c *playbackClock) Stop(reset bool) {
	if c.running {
		c.base = c.Progress()
		c.running = false
	}
	c.gen++
	c.stopTimers()
	if reset {
		c.base = 0
	}
}

// Resume starts a loaded run or continues a stopped one from the frozen
// progress. A run frozen at the very end expires right away.
func (c *playbackClock) Resume() {
	if c.running || c.duration <= 0 {
		return
	}
	c.schedule()
}

// SetDuration swaps the total duration keeping the elapsed playback time.
// A running clock reschedules its single expiry for the new remainder.
func (c *playbackClock) SetDuration(d time.Duration) {
	if d <= 0 || d == c.duration {
		return
	}
	wasRunning := c.running
	c.Stop(false)
	elapsed := c.base * float64(c.duration)
	c.duration = d
	c.base = clamp01(elapsed / float64(d))
	if wasRunning {
		c.schedule()
	}
}

func (c *playbackClock) Progress() float64 {
	if !c.running || c.duration <= 0 {
		return c.base
	}
	elapsed := c.clock.Since(c.since)
	return clamp01(c.base + float64(elapsed)/float64(c.duration))
}

func (c *playbackClock) Duration() time.Duration {
	return c.duration
}

func (c *playbackClock) Running() bool {
	return c.running
}

// Remaining is the time left until expiry at the current progress.
func (c *playbackClock) Remaining() time.Duration {
	return time.Duration(float64(c.duration) * (1 - c.Progress()))
}

func (c *playbackClock) pending() int {
	if c.expiry == nil {
		return 0
	}
	return 1
}

func (c *playbackClock) schedule() {
	c.gen++
	gen := c.gen
	c.running = true
	c.since = c.clock.Now()

	remaining := time.Duration(float64(c.duration) * (1 - c.base))
	c.expiry = c.clock.AfterFunc(remaining, func() { c.fire(gen) })

	if c.frame > 0 && c.onFrame != nil {
		c.scheduleFrame(gen)
	}
}

func (c *playbackClock) scheduleFrame(gen uint64) {
	c.nextFrame = c.clock.AfterFunc(c.frame, func() { c.tick(gen) })
}

func (c *playbackClock) tick(gen uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if gen != c.gen || !c.running {
		return
	}

	c.nextFrame = nil
	p := c.Progress()
	c.onFrame(p)
	if p < 1 {
		c.scheduleFrame(gen)
	}
}

func (c *playbackClock) fire(gen uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if gen != c.gen || !c.running {
		return
	}

	c.running = false
	c.base = 1
	c.gen++
	c.expiry = nil
	c.stopTimers()

	c.onExpire()
}

func (c *playbackClock) stopTimers() {
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
	if c.nextFrame != nil {
		c.nextFrame.Stop()
		c.nextFrame = nil
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
