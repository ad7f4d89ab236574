// Package clock provides cancellable one-shot and periodic callbacks.
package clock

import (
	"sync"
	"time"
)

// Timer is a handle to a scheduled callback. Stop may be called any number of times.
type Timer interface {
	Stop()
}

// Scheduler runs callbacks later. Implementations never invoke fn synchronously from Every or After,
// and a periodic callback never overlaps itself.
type Scheduler interface {
	Every(d time.Duration, fn func()) Timer
	After(d time.Duration, fn func()) Timer
}

// WallClock schedules callbacks on the system clock.
type WallClock struct{}

// Every runs fn every d on its own goroutine until the returned Timer is stopped.
func (WallClock) Every(d time.Duration, fn func()) Timer {
	t := &ticker{done: make(chan struct{})}
	tk := time.NewTicker(d)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-tk.C:
				fn()
			case <-t.done:
				return
			}
		}
	}()
	return t
}

// After runs fn once after d.
func (WallClock) After(d time.Duration, fn func()) Timer {
	return afterTimer{time.AfterFunc(d, fn)}
}

type ticker struct {
	once sync.Once
	done chan struct{}
}

func (t *ticker) Stop() {
	t.once.Do(func() { close(t.done) })
}

type afterTimer struct {
	t *time.Timer
}

func (a afterTimer) Stop() { a.t.Stop() }
