package engine

import "github.com/Wundark/binaural-engine/graph"

// State is a snapshot of a Controller.
type State struct {
	Active   bool           // a tone pair is running
	LeftHz   float64        // left channel target
	RightHz  float64        // right channel target
	Volume   float64        // output gain target
	Waveform graph.Waveform // current oscillator shape

	Drift *DriftState
	Pulse *PulseState
	Noise *NoiseState
}

// Beat is the difference between the right and left targets.
func (s State) Beat() float64 { return s.RightHz - s.LeftHz }

// DriftState describes a running drift loop.
type DriftState struct {
	Period   float64
	Min, Max float64
	Step     float64 // seconds into the current period
}

// PulseState describes a running isochronic layer.
type PulseState struct {
	Rate   float64
	Volume float64
}

// NoiseState describes a running noise bed.
type NoiseState struct {
	Volume float64
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{Volume: c.volume, Waveform: c.waveform}
	if s := c.session; s != nil {
		st.Active = true
		st.LeftHz = s.leftHz
		st.RightHz = s.rightHz
	}
	if d := c.drift; d != nil {
		st.Drift = &DriftState{Period: d.period, Min: d.min, Max: d.max, Step: d.step}
	}
	if p := c.pulse; p != nil {
		st.Pulse = &PulseState{Rate: p.rate, Volume: p.volume}
	}
	if n := c.noise; n != nil {
		st.Noise = &NoiseState{Volume: n.volume}
	}
	return st
}
