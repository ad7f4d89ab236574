// Package graph describes the audio-processing graph a stimulus controller drives.
//
// The interfaces mirror the small subset of a node-based audio API that binaural and isochronic
// stimuli need: oscillators, gain stages, a filter, a stereo merger and a destination. Capabilities
// that some hosts lack (parameter automation, explicit start/stop, noise sources) are separate
// optional interfaces; callers discover them with a type assertion.
package graph

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Param is a numeric node parameter such as a frequency or a gain.
type Param interface {
	Value() float64
	SetValue(v float64)
}

// Automatable is implemented by parameters that can schedule smooth transitions.
type Automatable interface {
	// CancelScheduledValues drops every transition scheduled at or after startTime.
	CancelScheduledValues(startTime float64)
	// SetTargetAtTime approaches target exponentially from startTime with the given time constant.
	SetTargetAtTime(target, startTime, timeConstant float64)
}

// Node is a vertex of the audio graph.
type Node interface {
	// Connect routes this node's output into input slot input of dst.
	Connect(dst Node, input int) error
	// Disconnect removes every outgoing connection of this node.
	Disconnect()
}

// Starter is implemented by source nodes that must be started explicitly.
type Starter interface {
	Start(when float64)
}

// Stopper is implemented by source nodes that can be halted.
type Stopper interface {
	Stop(when float64)
}

// Oscillator is a periodic source.
type Oscillator interface {
	Node
	SetWaveform(w Waveform)
	Frequency() Param
}

// Gain scales its summed inputs.
type Gain interface {
	Node
	Gain() Param
}

// Filter is a two-pole filter with a settable response type and cutoff.
type Filter interface {
	Node
	SetType(t FilterType)
	Frequency() Param
}

// Merger combines mono inputs into one multi-channel output; input i feeds channel i.
type Merger interface {
	Node
	Inputs() int
}

// Context creates nodes and owns the audio clock.
type Context interface {
	// CurrentTime is the audio clock in seconds. It never decreases.
	CurrentTime() float64
	NewOscillator() Oscillator
	NewGain() Gain
	NewFilter() Filter
	NewMerger(inputs int) Merger
	Destination() Node
}

// NoiseFactory is implemented by contexts that can produce a broadband noise source.
type NoiseFactory interface {
	NewNoise() Node
}

// Waveform is the shape of an oscillator's period.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Triangle
	Sawtooth
)

var waveformNames = [...]string{
	Sine:     "sine",
	Square:   "square",
	Triangle: "triangle",
	Sawtooth: "sawtooth",
}

// Valid reports whether w is one of the defined waveforms.
func (w Waveform) Valid() bool {
	return w >= Sine && w <= Sawtooth
}

// String returns the waveform name.
func (w Waveform) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
	return waveformNames[w]
}

// ParseWaveform maps a waveform name ("sine", "square", "triangle", "sawtooth") to its value.
func ParseWaveform(s string) (Waveform, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for w, n := range waveformNames {
		if n == name {
			return Waveform(w), nil
		}
	}
	return 0, errors.Errorf("unknown waveform %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (w Waveform) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, errors.Errorf("invalid waveform %d", int(w))
	}
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Waveform) UnmarshalText(text []byte) error {
	v, err := ParseWaveform(string(text))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// FilterType selects a filter response.
type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
)

// String returns the filter type name.
func (t FilterType) String() string {
	switch t {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	}
	return fmt.Sprintf("FilterType(%d)", int(t))
}
