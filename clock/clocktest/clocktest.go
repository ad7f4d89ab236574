// Package clocktest provides a manually driven clock.Scheduler for tests.
package clocktest

import (
	"sort"
	"sync"
	"time"

	"github.com/Wundark/binaural-engine/clock"
)

// Scheduler fires callbacks only when Advance is called.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*Timer
}

// Timer is a callback registered with Scheduler.
type Timer struct {
	s        *Scheduler
	seq      int
	due      time.Duration
	interval time.Duration
	fn       func()
	stopped  bool
}

// Stop cancels the timer.
func (t *Timer) Stop() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.stopped = true
}

// New returns a scheduler at time zero.
func New() *Scheduler { return &Scheduler{} }

func (s *Scheduler) add(d, interval time.Duration, fn func()) *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &Timer{s: s, seq: s.seq, due: s.now + d, interval: interval, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Every registers fn to fire every d of advanced time.
func (s *Scheduler) Every(d time.Duration, fn func()) clock.Timer { return s.add(d, d, fn) }

// After registers fn to fire once, d from now.
func (s *Scheduler) After(d time.Duration, fn func()) clock.Timer { return s.add(d, 0, fn) }

// Active returns the number of timers that have not been stopped.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, firing due callbacks in time order without holding the
// scheduler lock.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	end := s.now + d
	s.mu.Unlock()
	for {
		s.mu.Lock()
		next := s.nextDue(end)
		if next == nil {
			s.now = end
			s.mu.Unlock()
			return
		}
		s.now = next.due
		if next.interval > 0 {
			next.due += next.interval
		} else {
			next.stopped = true
		}
		fn := next.fn
		s.mu.Unlock()
		fn()
	}
}

// Tick advances by n periods of d.
func (s *Scheduler) Tick(n int, d time.Duration) {
	for i := 0; i < n; i++ {
		s.Advance(d)
	}
}

func (s *Scheduler) nextDue(end time.Duration) *Timer {
	var due []*Timer
	for _, t := range s.timers {
		if !t.stopped && t.due <= end {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	return due[0]
}
