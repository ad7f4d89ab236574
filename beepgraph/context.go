// Package beepgraph renders a graph.Context into a beep.Streamer.
//
// Nodes are pulled from the destination once per render chunk; a node feeding several others is
// rendered once and its buffer shared. Parameters follow scheduled exponential transitions sample by
// sample. The Context is also a clock.Scheduler running on the sample clock: callbacks fire between
// chunks, so an offline render through wav.Encode is fully deterministic.
package beepgraph

import (
	"math/rand"
	"sync"
	"time"

	"github.com/gopxl/beep"

	"github.com/Wundark/binaural-engine/clock"
	"github.com/Wundark/binaural-engine/graph"
)

var (
	_ graph.Context      = (*Context)(nil)
	_ graph.NoiseFactory = (*Context)(nil)
	_ clock.Scheduler    = (*Context)(nil)
	_ beep.Streamer      = (*Context)(nil)
)

// maxChunk bounds the frames rendered per pull so node buffers stay small.
const maxChunk = 1024

// Context is a graph.Context, graph.NoiseFactory and clock.Scheduler backed by an in-process renderer.
// It implements beep.Streamer; stream it to speaker.Play or wav.Encode.
type Context struct {
	mu    sync.Mutex
	sr    beep.SampleRate
	frame int64
	epoch uint64
	dest  *destination
	rand  *rand.Rand

	tmu    sync.Mutex
	timers []*timer
	seq    uint64
}

// Option configures a Context.
type Option func(*Context)

// WithSeed seeds the noise generator so renders are reproducible.
func WithSeed(seed int64) Option {
	return func(c *Context) { c.rand = rand.New(rand.NewSource(seed)) }
}

// New returns a Context rendering at sr.
func New(sr beep.SampleRate, opts ...Option) *Context {
	c := &Context{
		sr:   sr,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(c)
	}
	c.dest = &destination{}
	c.dest.node = newNode(c, c.dest, 1)
	return c
}

// SampleRate returns the rate the Context renders at.
func (c *Context) SampleRate() beep.SampleRate { return c.sr }

// CurrentTime is the position of the next rendered frame, in seconds.
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seconds(c.frame)
}

func (c *Context) seconds(frame int64) float64 {
	return float64(frame) / float64(c.sr)
}

// NewOscillator returns a 440 Hz sine oscillator that is silent until started.
func (c *Context) NewOscillator() graph.Oscillator {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := &oscillator{window: closedWindow()}
	o.node = newNode(c, o, 0)
	o.freq = newParam(c, 440)
	return o
}

// NewGain returns a unity gain node.
func (c *Context) NewGain() graph.Gain {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := &gain{}
	g.node = newNode(c, g, 1)
	g.gain = newParam(c, 1)
	return g
}

// NewFilter returns a lowpass biquad at 350 Hz.
func (c *Context) NewFilter() graph.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := &filter{kind: graph.Lowpass}
	f.node = newNode(c, f, 1)
	f.freq = newParam(c, 350)
	return f
}

// NewMerger returns a merger with at least one input. Input i feeds channel i.
func (c *Context) NewMerger(inputs int) graph.Merger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inputs < 1 {
		inputs = 1
	}
	m := &merger{}
	m.node = newNode(c, m, inputs)
	return m
}

// NewNoise returns a pink noise source. Like an oscillator it is silent until started.
func (c *Context) NewNoise() graph.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := &pinkNoise{window: closedWindow(), rand: rand.New(rand.NewSource(c.rand.Int63()))}
	n.node = newNode(c, n, 0)
	return n
}

// Destination is the node Stream renders.
func (c *Context) Destination() graph.Node { return c.dest }

// Stream renders the destination into samples, firing due scheduler callbacks between chunks.
func (c *Context) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		c.fireDue()
		chunk := len(samples) - n
		if chunk > maxChunk {
			chunk = maxChunk
		}
		if next, ok := c.nextDue(); ok {
			c.mu.Lock()
			until := int(next - c.frame)
			c.mu.Unlock()
			if until > 0 && until < chunk {
				chunk = until
			}
		}

		c.mu.Lock()
		c.epoch++
		out := c.dest.render(chunk)
		copy(samples[n:n+chunk], out)
		c.frame += int64(chunk)
		c.mu.Unlock()
		n += chunk
	}
	return n, true
}

// Err returns nil; rendering cannot fail.
func (c *Context) Err() error { return nil }

// Render streams d of audio into a new buffer.
func (c *Context) Render(d time.Duration) [][2]float64 {
	buf := make([][2]float64, c.sr.N(d))
	c.Stream(buf)
	return buf
}
