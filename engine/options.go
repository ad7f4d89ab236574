package engine

import (
	"log"

	"github.com/Wundark/binaural-engine/clock"
	"github.com/Wundark/binaural-engine/graph"
)

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler sets the scheduler driving drift ticks and delayed teardown. Defaults to clock.WallClock.
func WithScheduler(s clock.Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithLogger sets the logger for lifecycle messages and drift errors.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithFilterCutoff sets the low-pass cutoff in Hz. Defaults to DefaultFilterCutoff.
func WithFilterCutoff(hz float64) Option {
	return func(c *Controller) { c.cutoff = hz }
}

// WithOutputGain uses g as the output gain stage instead of creating one.
func WithOutputGain(g graph.Gain) Option {
	return func(c *Controller) { c.output = g }
}

type toneConfig struct {
	volume   float64
	waveform graph.Waveform
}

// ToneOption configures Start.
type ToneOption func(*toneConfig)

// WithVolume sets the session volume in [0, 1]. Defaults to DefaultVolume.
func WithVolume(v float64) ToneOption {
	return func(t *toneConfig) { t.volume = v }
}

// WithWaveform sets the oscillator shape. Defaults to graph.Sine.
func WithWaveform(w graph.Waveform) ToneOption {
	return func(t *toneConfig) { t.waveform = w }
}

type pulseConfig struct {
	rate   float64
	volume float64
}

// PulseOption configures StartIsochronic.
type PulseOption func(*pulseConfig)

// WithRate sets the pulse rate in Hz. Defaults to DefaultPulseRate.
func WithRate(hz float64) PulseOption {
	return func(p *pulseConfig) { p.rate = hz }
}

// WithPulseVolume sets the pulse layer gain. Defaults to DefaultPulseVolume.
func WithPulseVolume(v float64) PulseOption {
	return func(p *pulseConfig) { p.volume = v }
}

type driftConfig struct {
	period   float64
	min, max float64
}

// DriftOption configures StartDrift.
type DriftOption func(*driftConfig)

// WithPeriod sets the drift period in seconds. Defaults to DefaultDriftPeriod.
func WithPeriod(seconds float64) DriftOption {
	return func(d *driftConfig) { d.period = seconds }
}

// WithRange sets the beat frequency bounds in Hz. Defaults to DefaultDriftMin..DefaultDriftMax.
func WithRange(min, max float64) DriftOption {
	return func(d *driftConfig) {
		d.min = min
		d.max = max
	}
}
