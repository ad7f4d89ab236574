package beepgraph

import (
	"time"

	"github.com/Wundark/binaural-engine/clock"
)

// timer is a callback due at a frame of the sample clock.
type timer struct {
	c        *Context
	seq      uint64
	due      int64
	interval int64
	fn       func()
	stopped  bool
}

func (t *timer) Stop() {
	t.c.tmu.Lock()
	defer t.c.tmu.Unlock()
	t.stopped = true
}

// Every runs fn each time d of audio has been rendered.
func (c *Context) Every(d time.Duration, fn func()) clock.Timer {
	return c.schedule(d, true, fn)
}

// After runs fn once d of audio has been rendered.
func (c *Context) After(d time.Duration, fn func()) clock.Timer {
	return c.schedule(d, false, fn)
}

func (c *Context) schedule(d time.Duration, repeat bool, fn func()) *timer {
	frames := int64(c.sr.N(d))
	if frames < 1 {
		frames = 1
	}
	c.mu.Lock()
	now := c.frame
	c.mu.Unlock()

	c.tmu.Lock()
	defer c.tmu.Unlock()
	c.seq++
	t := &timer{c: c, seq: c.seq, due: now + frames, fn: fn}
	if repeat {
		t.interval = frames
	}
	c.timers = append(c.timers, t)
	return t
}

// fireDue runs every callback due at or before the current frame, in due order, without holding
// either lock while a callback runs.
func (c *Context) fireDue() {
	for {
		c.mu.Lock()
		now := c.frame
		c.mu.Unlock()

		c.tmu.Lock()
		t := c.earliestLocked()
		if t == nil || t.due > now {
			c.tmu.Unlock()
			return
		}
		if t.interval > 0 {
			t.due += t.interval
		} else {
			t.stopped = true
		}
		fn := t.fn
		c.tmu.Unlock()
		fn()
	}
}

// nextDue returns the frame of the earliest pending callback.
func (c *Context) nextDue() (int64, bool) {
	c.tmu.Lock()
	defer c.tmu.Unlock()
	t := c.earliestLocked()
	if t == nil {
		return 0, false
	}
	return t.due, true
}

func (c *Context) earliestLocked() *timer {
	live := c.timers[:0]
	var best *timer
	for _, t := range c.timers {
		if t.stopped {
			continue
		}
		live = append(live, t)
		if best == nil || t.due < best.due || t.due == best.due && t.seq < best.seq {
			best = t
		}
	}
	for i := len(live); i < len(c.timers); i++ {
		c.timers[i] = nil
	}
	c.timers = live
	return best
}
