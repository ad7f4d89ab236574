package engine

import (
	"math"
	"time"

	"github.com/Wundark/binaural-engine/clock"
)

const (
	// DriftTick is the interval between drift retargets.
	DriftTick = 100 * time.Millisecond
	// driftStep is how far one tick advances the drift phase, in seconds.
	driftStep = 0.1
)

// drift sweeps the beat frequency from min up to max and back over one period.
type drift struct {
	period   float64
	min, max float64
	ticks    int64
	step     float64
	timer    clock.Timer
}

// advance moves the phase one tick forward and returns the beat frequency for the new phase.
func (d *drift) advance() float64 {
	d.ticks++
	d.step = math.Mod(float64(d.ticks)*driftStep, d.period)
	return d.beat()
}

// beat maps the current phase onto a triangle between min and max.
func (d *drift) beat() float64 {
	phase := d.step / d.period
	var progress float64
	if phase < 0.5 {
		progress = phase * 2
	} else {
		progress = (1 - phase) * 2
	}
	return d.min + (d.max-d.min)*progress
}

// StartDrift begins sweeping the beat frequency every DriftTick. Any running drift is replaced and the
// phase restarts at zero, so the sweep begins from the lower bound.
func (c *Controller) StartDrift(opts ...DriftOption) error {
	cfg := driftConfig{period: DefaultDriftPeriod, min: DefaultDriftMin, max: DefaultDriftMax}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.period <= 0 || math.IsNaN(cfg.period) || math.IsInf(cfg.period, 0) {
		return invalid("drift period %.2f s", cfg.period)
	}
	if cfg.min > cfg.max || math.IsNaN(cfg.min) || math.IsNaN(cfg.max) {
		return invalid("drift range %.2f..%.2f Hz", cfg.min, cfg.max)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.stopDriftLocked()
	d := &drift{period: cfg.period, min: cfg.min, max: cfg.max}
	c.drift = d
	d.timer = c.sched.Every(DriftTick, func() { c.driftTick(d) })
	c.logger.Printf("drift: %.2f..%.2f Hz over %.1f s", cfg.min, cfg.max, cfg.period)
	return nil
}

// StopDrift cancels the drift loop. It is a no-op when drift is not running.
func (c *Controller) StopDrift() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopDriftLocked()
}

func (c *Controller) stopDriftLocked() {
	if c.drift == nil {
		return
	}
	c.drift.timer.Stop()
	c.drift = nil
}

func (c *Controller) driftTick(d *drift) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A tick already in flight when drift was stopped or replaced.
	if c.drift != d {
		return
	}
	beat := d.advance()
	// Idle: the sweep keeps its phase for the next Start.
	if c.session == nil {
		return
	}
	if err := c.updateLocked(Keep, Hz(beat)); err != nil {
		c.logger.Printf("drift: %v", err)
	}
}
