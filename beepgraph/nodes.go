package beepgraph

import (
	"math"

	"github.com/Wundark/binaural-engine/graph"
)

// oscillator is a mono periodic source written to both channels of its output.
type oscillator struct {
	*node
	freq   *param
	wave   graph.Waveform
	phase  float64 // position in the current period, [0, 1)
	window window
}

func (o *oscillator) SetWaveform(w graph.Waveform) {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	o.wave = w
}

func (o *oscillator) Frequency() graph.Param { return o.freq }

func (o *oscillator) Start(when float64) {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	o.window.start = when
}

func (o *oscillator) Stop(when float64) {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	o.window.stop = when
}

func (o *oscillator) process(n *node, out [][2]float64) {
	freqs := o.freq.fill(len(out))
	sr := float64(o.ctx.sr)
	for i := range out {
		if !o.window.open(o.ctx.seconds(o.ctx.frame + int64(i))) {
			continue
		}
		s := shape(o.wave, o.phase)
		out[i] = [2]float64{s, s}
		_, o.phase = math.Modf(o.phase + freqs[i]/sr)
		if o.phase < 0 {
			o.phase++
		}
	}
}

// shape evaluates one period of w at phase in [0, 1).
func shape(w graph.Waveform, phase float64) float64 {
	switch w {
	case graph.Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case graph.Triangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	case graph.Sawtooth:
		return 2*phase - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// gain scales the sum of its inputs.
type gain struct {
	*node
	gain *param
}

func (g *gain) Gain() graph.Param { return g.gain }

func (g *gain) process(n *node, out [][2]float64) {
	n.mix(0, out)
	gains := g.gain.fill(len(out))
	for i := range out {
		out[i][0] *= gains[i]
		out[i][1] *= gains[i]
	}
}

// merger puts a mono downmix of input i on channel i.
type merger struct {
	*node
}

func (m *merger) Inputs() int { return len(m.inputs) }

func (m *merger) process(n *node, out [][2]float64) {
	for ch := 0; ch < len(n.inputs) && ch < 2; ch++ {
		in := n.input(ch, len(out))
		for i := range out {
			out[i][ch] = (in[i][0] + in[i][1]) / 2
		}
	}
}

// destination sums everything routed to the output.
type destination struct {
	*node
}

func (d *destination) process(n *node, out [][2]float64) {
	n.mix(0, out)
}

// q is the Butterworth quality factor.
const q = math.Sqrt2 / 2

// filter is a biquad (RBJ cookbook) applied to each channel.
type filter struct {
	*node
	freq *param
	kind graph.FilterType

	cutoff             float64
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     [2]float64
}

func (f *filter) SetType(t graph.FilterType) {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()
	f.kind = t
	f.cutoff = 0
}

func (f *filter) Frequency() graph.Param { return f.freq }

func (f *filter) process(n *node, out [][2]float64) {
	n.mix(0, out)
	cutoffs := f.freq.fill(len(out))
	for i := range out {
		if cutoffs[i] != f.cutoff {
			f.design(cutoffs[i])
		}
		for ch := 0; ch < 2; ch++ {
			x := out[i][ch]
			y := f.b0*x + f.b1*f.x1[ch] + f.b2*f.x2[ch] - f.a1*f.y1[ch] - f.a2*f.y2[ch]
			f.x2[ch], f.x1[ch] = f.x1[ch], x
			f.y2[ch], f.y1[ch] = f.y1[ch], y
			out[i][ch] = y
		}
	}
}

func (f *filter) design(cutoff float64) {
	f.cutoff = cutoff
	sr := float64(f.ctx.sr)
	nyquist := sr / 2
	if cutoff >= nyquist {
		cutoff = nyquist * 0.999
	}
	if cutoff <= 0 {
		cutoff = 1
	}
	w := 2 * math.Pi * cutoff / sr
	cosw := math.Cos(w)
	alpha := math.Sin(w) / (2 * q)

	var b0, b1, b2 float64
	switch f.kind {
	case graph.Highpass:
		b0 = (1 + cosw) / 2
		b1 = -(1 + cosw)
		b2 = (1 + cosw) / 2
	default:
		b0 = (1 - cosw) / 2
		b1 = 1 - cosw
		b2 = (1 - cosw) / 2
	}
	a0 := 1 + alpha
	f.b0 = b0 / a0
	f.b1 = b1 / a0
	f.b2 = b2 / a0
	f.a1 = -2 * cosw / a0
	f.a2 = (1 - alpha) / a0
}
