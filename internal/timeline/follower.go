package timeline

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/Wundark/binaural-engine/clock"
	"github.com/Wundark/binaural-engine/engine"
)

// Tick is how often a Follower retargets the controller.
const Tick = 100 * time.Millisecond

// Target is the part of engine.Controller a Follower drives.
type Target interface {
	Update(base, beat engine.Freq) error
	SetVolume(vol float64)
	StartNoise(volume float64) error
	SetNoiseVolume(volume float64)
	StopNoise()
}

// Follower walks a Timeline on a scheduler and pushes every change to a Target. The tone pair must
// already be started; the follower only retargets it.
type Follower struct {
	mu     sync.Mutex
	tl     Timeline
	target Target
	logger *log.Logger

	ticks   int64
	applied bool
	last    Setting
	noise   bool
	noNoise bool
	done    bool
	timer   clock.Timer
}

// FollowOption configures a Follower.
type FollowOption func(*Follower)

// WithLogger sends retarget errors to l.
func WithLogger(l *log.Logger) FollowOption {
	return func(f *Follower) { f.logger = l }
}

// Follow applies the setting at time zero and then advances every Tick until the timeline ends.
func Follow(tl Timeline, target Target, sched clock.Scheduler, opts ...FollowOption) *Follower {
	f := &Follower{
		tl:     tl,
		target: target,
		logger: log.New(io.Discard, "", 0),
	}
	for _, o := range opts {
		o(f)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apply(tl.At(0))
	f.timer = sched.Every(Tick, f.tick)
	return f
}

func (f *Follower) elapsed() float64 {
	return float64(f.ticks) * Tick.Seconds()
}

// Stop halts the follower. The target keeps its last setting.
func (f *Follower) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = true
	f.timer.Stop()
}

func (f *Follower) tick() {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.ticks++
	t := f.elapsed()
	f.apply(f.tl.At(t))
	if t >= f.tl.Duration() {
		f.done = true
		f.timer.Stop()
	}
	f.mu.Unlock()
}

// apply pushes the fields of s that differ from the last applied setting.
func (f *Follower) apply(s Setting) {
	first := !f.applied
	f.applied = true

	var base, beat engine.Freq
	if first || s.Base != f.last.Base {
		base = engine.Hz(s.Base)
	}
	if first || s.Beat != f.last.Beat || base.Set {
		beat = engine.Hz(s.Beat)
	}
	if base.Set || beat.Set {
		if err := f.target.Update(base, beat); err != nil {
			f.logger.Printf("timeline: %v", err)
		}
	}
	if first || s.Volume != f.last.Volume {
		f.target.SetVolume(s.Volume)
	}

	switch {
	case s.Noise && !f.noise && !f.noNoise:
		if err := f.target.StartNoise(s.NoiseVolume); err != nil {
			// an unsupported noise source stays unsupported
			f.noNoise = true
			f.logger.Printf("timeline: %v", err)
		} else {
			f.noise = true
		}
	case s.Noise && f.noise && s.NoiseVolume != f.last.NoiseVolume:
		f.target.SetNoiseVolume(s.NoiseVolume)
	case !s.Noise && f.noise:
		f.target.StopNoise()
		f.noise = false
	}
	f.last = s
}
