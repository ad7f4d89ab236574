package engine

import (
	"math"

	"github.com/pkg/errors"

	"github.com/Wundark/binaural-engine/graph"
)

// pulse is the isochronic layer: a square oscillator through its own gain into the output.
type pulse struct {
	osc    graph.Oscillator
	gain   graph.Gain
	rate   float64
	volume float64
}

// noise is a broadband bed mixed under the tones.
type noise struct {
	src    graph.Node
	gain   graph.Gain
	volume float64
}

// StartIsochronic starts a square-wave pulse layer at the given rate, replacing any running one. The
// layer is independent of the tone pair and keeps running across Start and Stop.
func (c *Controller) StartIsochronic(opts ...PulseOption) error {
	cfg := pulseConfig{rate: DefaultPulseRate, volume: DefaultPulseVolume}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.rate <= 0 || math.IsNaN(cfg.rate) || math.IsInf(cfg.rate, 0) {
		return invalid("pulse rate %.2f Hz", cfg.rate)
	}
	if math.IsNaN(cfg.volume) {
		return invalid("pulse volume NaN")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.stopIsochronicLocked()

	p := &pulse{
		osc:    c.ctx.NewOscillator(),
		gain:   c.ctx.NewGain(),
		rate:   cfg.rate,
		volume: cfg.volume,
	}
	p.osc.SetWaveform(graph.Square)
	p.osc.Frequency().SetValue(cfg.rate)
	p.gain.Gain().SetValue(cfg.volume)
	if err := connectAll(
		edge{p.osc, p.gain, 0},
		edge{p.gain, c.output, 0},
	); err != nil {
		p.osc.Disconnect()
		p.gain.Disconnect()
		return errors.Wrap(err, "route pulse layer")
	}
	start(p.osc, c.ctx.CurrentTime())
	c.pulse = p
	c.logger.Printf("isochronic: %.2f Hz, volume %.2f", cfg.rate, cfg.volume)
	return nil
}

// StopIsochronic removes the pulse layer. It is a no-op when no pulse layer is running.
func (c *Controller) StopIsochronic() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopIsochronicLocked()
}

func (c *Controller) stopIsochronicLocked() {
	p := c.pulse
	if p == nil {
		return
	}
	stop(p.osc, c.ctx.CurrentTime())
	p.osc.Disconnect()
	p.gain.Disconnect()
	c.pulse = nil
}

// StartNoise mixes a noise bed at volume under the tones, replacing any running one. It returns
// ErrUnsupported when the graph context cannot create noise sources.
func (c *Controller) StartNoise(volume float64) error {
	if math.IsNaN(volume) {
		return invalid("noise volume NaN")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	nf, ok := c.ctx.(graph.NoiseFactory)
	if !ok {
		return errors.Wrap(ErrUnsupported, "noise source")
	}
	c.stopNoiseLocked()

	n := &noise{src: nf.NewNoise(), gain: c.ctx.NewGain(), volume: volume}
	n.gain.Gain().SetValue(0)
	if err := connectAll(
		edge{n.src, n.gain, 0},
		edge{n.gain, c.output, 0},
	); err != nil {
		n.src.Disconnect()
		n.gain.Disconnect()
		return errors.Wrap(err, "route noise layer")
	}
	now := c.ctx.CurrentTime()
	start(n.src, now)
	transition(n.gain.Gain(), volume, now)
	c.noise = n
	c.logger.Printf("noise: volume %.2f", volume)
	return nil
}

// SetNoiseVolume moves the noise bed to volume. It does nothing when no bed is running.
func (c *Controller) SetNoiseVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.noise == nil {
		return
	}
	transition(c.noise.gain.Gain(), volume, c.ctx.CurrentTime())
	c.noise.volume = volume
}

// StopNoise removes the noise bed. It is a no-op when none is running.
func (c *Controller) StopNoise() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopNoiseLocked()
}

func (c *Controller) stopNoiseLocked() {
	n := c.noise
	if n == nil {
		return
	}
	stop(n.src, c.ctx.CurrentTime())
	n.src.Disconnect()
	n.gain.Disconnect()
	c.noise = nil
}
