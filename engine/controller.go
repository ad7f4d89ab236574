// Package engine drives binaural and isochronic stimuli on an audio graph.
//
// A Controller owns one stereo tone pair (the session), an optional drift loop that sweeps the beat
// frequency along a triangle wave, an optional isochronic pulse layer and an optional noise bed.
// All parameter changes on live nodes go through exponential transitions so nothing clicks.
package engine

import (
	"io"
	"log"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Wundark/binaural-engine/clock"
	"github.com/Wundark/binaural-engine/graph"
)

const (
	// SmoothingTimeConstant is the time constant in seconds of every frequency and volume transition.
	SmoothingTimeConstant = 0.1
	// StopGrace is how long a stopped tone pair keeps running while the output fades out.
	StopGrace = 100 * time.Millisecond

	// DefaultFilterCutoff is the lowpass cutoff in Hz ahead of the output gain.
	DefaultFilterCutoff = 12000.0
	// DefaultVolume is the output gain a session ramps to when Start gets no WithVolume.
	DefaultVolume = 0.5

	// Isochronic defaults: rate in Hz and pulse gain.
	DefaultPulseRate   = 10.0
	DefaultPulseVolume = 0.1

	// Drift defaults: period in seconds and beat range in Hz.
	DefaultDriftPeriod = 60.0
	DefaultDriftMin    = 3.0
	DefaultDriftMax    = 7.0
)

// Freq is an optional frequency argument to Update.
type Freq struct {
	Hz  float64
	Set bool
}

// Keep leaves a channel unchanged.
var Keep Freq

// Hz returns a Freq that sets the channel to v.
func Hz(v float64) Freq { return Freq{Hz: v, Set: true} }

// Controller manages one stimulus configuration on a graph.Context.
//
// Methods may be called from any goroutine, but callers should not interleave Start and Stop
// sequences from several goroutines without their own ordering.
type Controller struct {
	mu     sync.Mutex
	ctx    graph.Context
	sched  clock.Scheduler
	logger *log.Logger
	cutoff float64

	filter graph.Filter
	output graph.Gain

	waveform graph.Waveform
	volume   float64
	session  *session
	retiring []*session
	drift    *drift
	pulse    *pulse
	noise    *noise
	closed   bool
}

// session is one running tone pair.
type session struct {
	left, right     graph.Oscillator
	merger          graph.Merger
	leftHz, rightHz float64
	reaper          clock.Timer
	released        bool
}

// New builds the shared filter and output chain on ctx: filter -> output gain -> destination.
func New(ctx graph.Context, opts ...Option) (*Controller, error) {
	if ctx == nil {
		return nil, invalid("nil graph context")
	}
	c := &Controller{
		ctx:      ctx,
		sched:    clock.WallClock{},
		logger:   log.New(io.Discard, "", 0),
		cutoff:   DefaultFilterCutoff,
		waveform: graph.Sine,
	}
	for _, o := range opts {
		o(c)
	}
	if c.cutoff <= 0 {
		return nil, invalid("filter cutoff %.2f Hz", c.cutoff)
	}

	c.filter = ctx.NewFilter()
	c.filter.SetType(graph.Lowpass)
	c.filter.Frequency().SetValue(c.cutoff)
	if c.output == nil {
		c.output = ctx.NewGain()
	}
	c.volume = c.output.Gain().Value()
	if err := c.filter.Connect(c.output, 0); err != nil {
		return nil, errors.Wrap(err, "connect filter")
	}
	if err := c.output.Connect(ctx.Destination(), 0); err != nil {
		return nil, errors.Wrap(err, "connect output")
	}
	return c, nil
}

// Start replaces any running tone pair with a new one: base Hz on the left, base+beat Hz on the right.
// The output is muted before the oscillators start and then ramped to the requested volume.
func (c *Controller) Start(base, beat float64, opts ...ToneOption) error {
	t := toneConfig{volume: DefaultVolume, waveform: graph.Sine}
	for _, o := range opts {
		o(&t)
	}
	if base <= 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return invalid("base frequency %.2f Hz", base)
	}
	if base+beat <= 0 || math.IsNaN(beat) || math.IsInf(beat, 0) {
		return invalid("right channel frequency %.2f Hz", base+beat)
	}
	if t.volume < 0 || t.volume > 1 || math.IsNaN(t.volume) {
		return invalid("volume %.2f", t.volume)
	}
	if !t.waveform.Valid() {
		return invalid("waveform %v", t.waveform)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.stopLocked()
	c.releaseAllLocked()

	s := &session{
		left:    c.ctx.NewOscillator(),
		right:   c.ctx.NewOscillator(),
		merger:  c.ctx.NewMerger(2),
		leftHz:  base,
		rightHz: base + beat,
	}
	s.left.SetWaveform(t.waveform)
	s.right.SetWaveform(t.waveform)
	s.left.Frequency().SetValue(s.leftHz)
	s.right.Frequency().SetValue(s.rightHz)
	if err := connectAll(
		edge{s.left, s.merger, 0},
		edge{s.right, s.merger, 1},
		edge{s.merger, c.filter, 0},
	); err != nil {
		s.left.Disconnect()
		s.right.Disconnect()
		s.merger.Disconnect()
		return errors.Wrap(err, "route tone pair")
	}
	c.session = s
	c.waveform = t.waveform

	now := c.ctx.CurrentTime()
	mute(c.output.Gain(), now)
	start(s.left, now)
	start(s.right, now)
	c.setVolumeLocked(t.volume)

	c.logger.Printf("start: base %.2f Hz, beat %.2f Hz, volume %.2f, %v", base, beat, t.volume, t.waveform)
	return nil
}

// Update retargets the running tone pair. A Keep argument leaves that channel alone. The right
// channel is always set relative to the effective base: the new base if given, otherwise the left
// channel's current target.
//
// With no session a base change is ignored, while a beat change returns ErrNoSession because there is
// no left channel to measure it from.
func (c *Controller) Update(base, beat Freq) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateLocked(base, beat)
}

func (c *Controller) updateLocked(base, beat Freq) error {
	s := c.session
	if s == nil {
		if beat.Set {
			return errors.Wrap(ErrNoSession, "update beat frequency")
		}
		return nil
	}

	left := s.leftHz
	if base.Set {
		if base.Hz <= 0 || math.IsNaN(base.Hz) || math.IsInf(base.Hz, 0) {
			return invalid("base frequency %.2f Hz", base.Hz)
		}
		left = base.Hz
	}
	right := s.rightHz
	if beat.Set {
		right = left + beat.Hz
		if right <= 0 || math.IsNaN(right) || math.IsInf(right, 0) {
			return invalid("right channel frequency %.2f Hz", right)
		}
	}

	now := c.ctx.CurrentTime()
	if base.Set {
		transition(s.left.Frequency(), left, now)
		s.leftHz = left
	}
	if beat.Set {
		transition(s.right.Frequency(), right, now)
		s.rightHz = right
	}
	return nil
}

// SetVolume moves the output gain to vol. Values outside [0, 1] are passed through unchanged.
func (c *Controller) SetVolume(vol float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setVolumeLocked(vol)
}

func (c *Controller) setVolumeLocked(vol float64) {
	transition(c.output.Gain(), vol, c.ctx.CurrentTime())
	c.volume = vol
}

// SetWaveform changes the oscillator shape, live if a session is running.
func (c *Controller) SetWaveform(w graph.Waveform) error {
	if !w.Valid() {
		return invalid("waveform %v", w)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waveform = w
	if s := c.session; s != nil {
		s.left.SetWaveform(w)
		s.right.SetWaveform(w)
	}
	return nil
}

// Stop stops drift, fades the output to silence and retires the tone pair. The oscillators halt
// StopGrace later on the audio clock and are disconnected once the grace period has passed. The
// filter and output stay routed for the next Start. Stop without a session only fades the output.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	c.stopDriftLocked()
	now := c.ctx.CurrentTime()
	c.setVolumeLocked(0)

	s := c.session
	if s == nil {
		return
	}
	c.session = nil
	stopAt := now + StopGrace.Seconds()
	for _, osc := range []graph.Oscillator{s.left, s.right} {
		if a, ok := osc.Frequency().(graph.Automatable); ok {
			a.CancelScheduledValues(now)
		}
		if st, ok := osc.(graph.Stopper); ok {
			st.Stop(stopAt)
		}
	}
	c.retiring = append(c.retiring, s)
	s.reaper = c.sched.After(StopGrace, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.releaseLocked(s)
	})
	c.logger.Printf("stop")
}

// releaseLocked disconnects a retired tone pair.
func (c *Controller) releaseLocked(s *session) {
	if s.released {
		return
	}
	s.released = true
	s.left.Disconnect()
	s.right.Disconnect()
	s.merger.Disconnect()
	for i, r := range c.retiring {
		if r == s {
			c.retiring = append(c.retiring[:i], c.retiring[i+1:]...)
			break
		}
	}
}

// releaseAllLocked disconnects every retired tone pair without waiting for its grace period.
func (c *Controller) releaseAllLocked() {
	for len(c.retiring) > 0 {
		s := c.retiring[0]
		if s.reaper != nil {
			s.reaper.Stop()
		}
		c.releaseLocked(s)
	}
}

// Close stops every layer, disconnects all nodes including the shared chain, and rejects later starts.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stopLocked()
	c.releaseAllLocked()
	c.stopIsochronicLocked()
	c.stopNoiseLocked()
	c.filter.Disconnect()
	c.output.Disconnect()
	c.closed = true
}

// transition moves p to v: smoothly when p supports automation, immediately otherwise.
func transition(p graph.Param, v, now float64) {
	if a, ok := p.(graph.Automatable); ok {
		a.CancelScheduledValues(now)
		a.SetTargetAtTime(v, now, SmoothingTimeConstant)
		return
	}
	p.SetValue(v)
}

// mute drops any pending transition on p and silences it at once.
func mute(p graph.Param, now float64) {
	if a, ok := p.(graph.Automatable); ok {
		a.CancelScheduledValues(now)
	}
	p.SetValue(0)
}

func start(n graph.Node, when float64) {
	if s, ok := n.(graph.Starter); ok {
		s.Start(when)
	}
}

func stop(n graph.Node, when float64) {
	if s, ok := n.(graph.Stopper); ok {
		s.Stop(when)
	}
}

type edge struct {
	src, dst graph.Node
	input    int
}

func connectAll(edges ...edge) error {
	for _, e := range edges {
		if err := e.src.Connect(e.dst, e.input); err != nil {
			return err
		}
	}
	return nil
}
