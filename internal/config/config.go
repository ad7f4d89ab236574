// Package config loads session files.
//
// A session file is YAML. Every section is optional; a file that only lists frequency_changes (the
// converter's output) is a complete session.
//
//	sample_rate: 44100
//	duration: 20m
//	tone:
//	  base: 200
//	  beat: 10
//	  volume: 0.5
//	  waveform: sine
//	drift:
//	  period: 60
//	  min: 3
//	  max: 7
//	isochronic:
//	  rate: 10
//	  volume: 0.1
//	noise:
//	  volume: 0.2
package config

import (
	"bytes"
	"io"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Wundark/binaural-engine/engine"
	"github.com/Wundark/binaural-engine/graph"
	"github.com/Wundark/binaural-engine/internal/timeline"
)

// DefaultSampleRate is the rate used when a file sets none.
const DefaultSampleRate = 44100

// Config is one session.
type Config struct {
	SampleRate   int              `yaml:"sample_rate,omitempty"`
	Duration     time.Duration    `yaml:"duration,omitempty"` // zero plays until interrupted, or to the end of the timeline
	FilterCutoff float64          `yaml:"filter_cutoff,omitempty"`
	Tone         Tone             `yaml:"tone,omitempty"`
	Drift        *Drift           `yaml:"drift,omitempty"`
	Isochronic   *Isochronic      `yaml:"isochronic,omitempty"`
	Noise        *Noise           `yaml:"noise,omitempty"`
	Changes      []timeline.Point `yaml:"frequency_changes,omitempty"`
}

// Tone is the binaural pair.
type Tone struct {
	Base     float64        `yaml:"base,omitempty"`
	Beat     float64        `yaml:"beat,omitempty"`
	Volume   float64        `yaml:"volume,omitempty"`
	Waveform graph.Waveform `yaml:"waveform,omitempty"`
}

// Drift sweeps the beat frequency. Period is in seconds.
type Drift struct {
	Period float64 `yaml:"period"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

// Isochronic is the pulse layer.
type Isochronic struct {
	Rate   float64 `yaml:"rate"`
	Volume float64 `yaml:"volume"`
}

// Noise is the pink-noise bed.
type Noise struct {
	Volume float64 `yaml:"volume"`
}

// Default is the session used when a file sets nothing.
func Default() *Config {
	return &Config{
		SampleRate:   DefaultSampleRate,
		FilterCutoff: engine.DefaultFilterCutoff,
		Tone: Tone{
			Base:     200,
			Beat:     10,
			Volume:   engine.DefaultVolume,
			Waveform: graph.Sine,
		},
	}
}

// Load reads and parses the session file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes data over the defaults, sorts frequency_changes by time and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode")
	}
	timeline.Sort(cfg.Changes)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Timeline returns the frequency_changes schedule.
func (c *Config) Timeline() timeline.Timeline {
	return timeline.New(c.Changes)
}

// PlaybackTime is how long the session runs: Duration if set, otherwise the end of the timeline.
// Zero means open-ended.
func (c *Config) PlaybackTime() time.Duration {
	if c.Duration > 0 {
		return c.Duration
	}
	return time.Duration(c.Timeline().Duration() * float64(time.Second))
}

// Stretch scales every frequency_changes time by factor.
func (c *Config) Stretch(factor float64) error {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return errors.Errorf("stretch factor %v", factor)
	}
	c.Changes = c.Timeline().Stretch(factor)
	return nil
}

// Validate checks every section for values the engine would reject.
func (c *Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return errors.Errorf("sample_rate %d", c.SampleRate)
	case c.Duration < 0:
		return errors.Errorf("duration %v", c.Duration)
	case !positive(c.FilterCutoff):
		return errors.Errorf("filter_cutoff %v", c.FilterCutoff)
	case c.FilterCutoff >= float64(c.SampleRate)/2:
		return errors.Errorf("filter_cutoff %v above nyquist", c.FilterCutoff)
	}

	t := c.Tone
	switch {
	case !positive(t.Base):
		return errors.Errorf("tone: base %v", t.Base)
	case !positive(t.Base + t.Beat):
		return errors.Errorf("tone: right channel %v Hz", t.Base+t.Beat)
	case !unit(t.Volume):
		return errors.Errorf("tone: volume %v", t.Volume)
	case !t.Waveform.Valid():
		return errors.Errorf("tone: waveform %v", t.Waveform)
	}

	if d := c.Drift; d != nil {
		switch {
		case !positive(d.Period):
			return errors.Errorf("drift: period %v", d.Period)
		case math.IsNaN(d.Min) || math.IsNaN(d.Max) || d.Min > d.Max:
			return errors.Errorf("drift: range %v..%v", d.Min, d.Max)
		case len(c.Changes) > 0:
			return errors.New("drift and frequency_changes both retarget the beat; use one")
		}
	}
	if p := c.Isochronic; p != nil {
		if !positive(p.Rate) {
			return errors.Errorf("isochronic: rate %v", p.Rate)
		}
		if !unit(p.Volume) {
			return errors.Errorf("isochronic: volume %v", p.Volume)
		}
	}
	if n := c.Noise; n != nil && !unit(n.Volume) {
		return errors.Errorf("noise: volume %v", n.Volume)
	}

	for i, p := range c.Changes {
		switch {
		case p.Time < 0 || math.IsNaN(p.Time):
			return errors.Errorf("frequency_changes[%d]: time %v", i, p.Time)
		case !positive(p.Frequency):
			return errors.Errorf("frequency_changes[%d]: frequency %v", i, p.Frequency)
		case !positive(p.Frequency + p.BeatFrequency):
			return errors.Errorf("frequency_changes[%d]: right channel %v Hz", i, p.Frequency+p.BeatFrequency)
		case !unit(p.ToneVolume):
			return errors.Errorf("frequency_changes[%d]: tone_volume %v", i, p.ToneVolume)
		case !unit(p.PinkNoiseVolume):
			return errors.Errorf("frequency_changes[%d]: pink_noise_volume %v", i, p.PinkNoiseVolume)
		}
	}
	if peak := c.Peak(); peak > 1 {
		return errors.Errorf("tone, isochronic and noise volumes reach %.2f together; keep the sum at or below 1", peak)
	}
	return nil
}

// Peak is the loudest sum of layer volumes the session reaches. Each layer peaks at its volume, so a
// sum above 1 clips.
func (c *Config) Peak() float64 {
	tone := c.Tone.Volume
	var noise float64
	if c.Noise != nil {
		noise = c.Noise.Volume
	}
	if len(c.Changes) > 0 {
		tone = 0
		for _, p := range c.Changes {
			tone = math.Max(tone, p.ToneVolume)
			if p.PinkNoiseOn {
				noise = math.Max(noise, p.PinkNoiseVolume)
			}
		}
	}
	var pulse float64
	if c.Isochronic != nil {
		pulse = c.Isochronic.Volume
	}
	return tone + pulse + noise
}

// Marshal encodes c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	return buf.Bytes(), nil
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

func unit(v float64) bool { return v >= 0 && v <= 1 }
