package beepgraph

import (
	"math"
	"sort"
)

var inf = math.Inf(1)

// settle is the distance from a target below which a transition snaps to it.
const settle = 1e-9

// transition is a scheduled exponential approach toward target beginning at start.
type transition struct {
	start  float64
	target float64
	tc     float64
}

// param is a graph.Param and graph.Automatable advanced by the render loop.
type param struct {
	ctx    *Context
	value  float64
	active *transition
	queue  []transition
	vals   []float64
}

func newParam(c *Context, v float64) *param {
	return &param{ctx: c, value: v}
}

func (p *param) Value() float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	return p.value
}

// SetValue jumps to v now and drops every scheduled transition.
func (p *param) SetValue(v float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.value = v
	p.active = nil
	p.queue = nil
}

func (p *param) CancelScheduledValues(startTime float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	if p.active != nil && p.active.start >= startTime {
		p.active = nil
	}
	kept := p.queue[:0]
	for _, t := range p.queue {
		if t.start < startTime {
			kept = append(kept, t)
		}
	}
	p.queue = kept
}

func (p *param) SetTargetAtTime(target, startTime, timeConstant float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	if timeConstant < 0 {
		timeConstant = 0
	}
	p.queue = append(p.queue, transition{start: startTime, target: target, tc: timeConstant})
	sort.SliceStable(p.queue, func(i, j int) bool { return p.queue[i].start < p.queue[j].start })
}

// fill returns the parameter's value at each frame of the current chunk. Callers hold ctx.mu.
func (p *param) fill(frames int) []float64 {
	if cap(p.vals) < frames {
		p.vals = make([]float64, frames)
	}
	vals := p.vals[:frames]
	if p.active == nil && len(p.queue) == 0 {
		for i := range vals {
			vals[i] = p.value
		}
		return vals
	}

	sr := float64(p.ctx.sr)
	frame := p.ctx.frame
	var decay float64
	if p.active != nil {
		decay = p.active.decay(sr)
	}
	for i := range vals {
		t := float64(frame+int64(i)) / sr
		for len(p.queue) > 0 && p.queue[0].start <= t {
			next := p.queue[0]
			p.queue = p.queue[1:]
			p.active = &next
			decay = next.decay(sr)
		}
		if a := p.active; a != nil {
			p.value = a.target + (p.value-a.target)*decay
			if math.Abs(p.value-a.target) < settle {
				p.value = a.target
				p.active = nil
			}
		}
		vals[i] = p.value
	}
	return vals
}

// decay is the per-frame factor of the approach: exp(-1 / (tc * sr)).
func (t *transition) decay(sr float64) float64 {
	if t.tc <= 0 {
		return 0
	}
	return math.Exp(-1 / (t.tc * sr))
}
