// Package graphtest provides a recording implementation of the graph interfaces for tests.
package graphtest

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/Wundark/binaural-engine/graph"
)

// Capabilities selects which optional graph interfaces the recorder exposes.
type Capabilities struct {
	NoAutomation bool // params do not implement graph.Automatable
	NoStartStop  bool // oscillators do not implement graph.Starter or graph.Stopper
}

// EventKind names a recorded parameter operation.
type EventKind string

const (
	EventSet    EventKind = "set"
	EventCancel EventKind = "cancel"
	EventTarget EventKind = "target"
)

// Event is one operation applied to a parameter.
type Event struct {
	Kind         EventKind
	Value        float64
	Time         float64
	TimeConstant float64
}

// Param records every operation applied to it.
type Param struct {
	value   float64
	Events  []Event
	pending []Event
}

// Value is the current value.
func (p *Param) Value() float64 { return p.value }

// SetValue records an immediate set.
func (p *Param) SetValue(v float64) {
	p.value = v
	p.pending = nil
	p.Events = append(p.Events, Event{Kind: EventSet, Value: v})
}

// Target is the value the parameter settles at: the last scheduled transition that survived
// cancellation, or the immediate value when nothing is scheduled.
func (p *Param) Target() float64 {
	if n := len(p.pending); n > 0 {
		return p.pending[n-1].Value
	}
	return p.value
}

// Pending returns the transitions still scheduled.
func (p *Param) Pending() []Event {
	return append([]Event(nil), p.pending...)
}

type autoParam struct {
	*Param
}

func (p autoParam) CancelScheduledValues(startTime float64) {
	p.Events = append(p.Events, Event{Kind: EventCancel, Time: startTime})
	kept := p.pending[:0]
	for _, e := range p.pending {
		if e.Time < startTime {
			kept = append(kept, e)
		}
	}
	p.pending = kept
}

func (p autoParam) SetTargetAtTime(target, startTime, timeConstant float64) {
	e := Event{Kind: EventTarget, Value: target, Time: startTime, TimeConstant: timeConstant}
	p.Events = append(p.Events, e)
	p.pending = append(p.pending, e)
}

// Edge is an outgoing connection.
type Edge struct {
	Dst   *Node
	Input int
}

// Node is the recorded state shared by every node kind.
type Node struct {
	ID       int
	Kind     string
	Outputs  []Edge
	Inputs   int
	Waveform graph.Waveform
	Filter   graph.FilterType
	Started  bool
	StartAt  float64
	Stopped  bool
	StopAt   float64

	params map[string]*Param
	caps   Capabilities
}

// String names the node by kind and creation order.
func (n *Node) String() string { return fmt.Sprintf("%s#%d", n.Kind, n.ID) }

// Param returns the named parameter ("frequency" or "gain").
func (n *Node) Param(name string) *Param { return n.params[name] }

// Connected reports whether the node has any outgoing connection.
func (n *Node) Connected() bool { return len(n.Outputs) > 0 }

// ConnectedTo reports whether the node feeds dst.
func (n *Node) ConnectedTo(dst *Node) bool {
	for _, e := range n.Outputs {
		if e.Dst == dst {
			return true
		}
	}
	return false
}

func (n *Node) node() *Node { return n }

// Connect records an edge to input of dst.
func (n *Node) Connect(dst graph.Node, input int) error {
	d, ok := dst.(interface{ node() *Node })
	if !ok {
		return errors.Errorf("graphtest: cannot connect to foreign node %T", dst)
	}
	target := d.node()
	if input < 0 || input >= target.Inputs {
		return errors.Errorf("graphtest: %s has no input %d", target, input)
	}
	n.Outputs = append(n.Outputs, Edge{Dst: target, Input: input})
	return nil
}

// Disconnect drops every outgoing edge.
func (n *Node) Disconnect() { n.Outputs = nil }

func (n *Node) param(name string) graph.Param {
	p := n.params[name]
	if n.caps.NoAutomation {
		return p
	}
	return autoParam{p}
}

type oscillator struct{ *Node }

func (o oscillator) SetWaveform(w graph.Waveform) { o.Waveform = w }
func (o oscillator) Frequency() graph.Param       { return o.param("frequency") }

type startStopOscillator struct{ oscillator }

func (o startStopOscillator) Start(when float64) {
	o.Started = true
	o.StartAt = when
}

func (o startStopOscillator) Stop(when float64) {
	o.Stopped = true
	o.StopAt = when
}

type gain struct{ *Node }

func (g gain) Gain() graph.Param { return g.param("gain") }

type filter struct{ *Node }

func (f filter) SetType(t graph.FilterType) { f.Filter = t }
func (f filter) Frequency() graph.Param     { return f.param("frequency") }

type merger struct{ *Node }

func (m merger) Inputs() int { return m.Node.Inputs }

// Context is a graph.Context that records every node it creates.
type Context struct {
	Time  float64
	Caps  Capabilities
	nodes []*Node
	dest  *Node
}

// NewContext returns a recorder exposing the given capabilities.
func NewContext(caps Capabilities) *Context {
	c := &Context{Caps: caps}
	c.dest = c.add("destination", 1)
	return c
}

func (c *Context) add(kind string, inputs int) *Node {
	n := &Node{
		ID:     len(c.nodes),
		Kind:   kind,
		Inputs: inputs,
		params: map[string]*Param{},
		caps:   c.Caps,
	}
	c.nodes = append(c.nodes, n)
	return n
}

// CurrentTime returns Time, which tests set directly.
func (c *Context) CurrentTime() float64 { return c.Time }

// Advance moves the audio clock forward by d seconds.
func (c *Context) Advance(d float64) { c.Time += d }

// NewOscillator records a new oscillator.
func (c *Context) NewOscillator() graph.Oscillator {
	n := c.add("oscillator", 0)
	n.params["frequency"] = &Param{value: 440}
	osc := oscillator{n}
	if c.Caps.NoStartStop {
		return osc
	}
	return startStopOscillator{osc}
}

// NewGain records a new gain node.
func (c *Context) NewGain() graph.Gain {
	n := c.add("gain", 1)
	n.params["gain"] = &Param{value: 1}
	return gain{n}
}

// NewFilter records a new filter.
func (c *Context) NewFilter() graph.Filter {
	n := c.add("filter", 1)
	n.params["frequency"] = &Param{value: 350}
	return filter{n}
}

// NewMerger records a new merger.
func (c *Context) NewMerger(inputs int) graph.Merger {
	return merger{c.add("merger", inputs)}
}

// Destination is the recorded sink.
func (c *Context) Destination() graph.Node { return c.dest }

// DestinationNode returns the recorded sink.
func (c *Context) DestinationNode() *Node { return c.dest }

// Nodes returns every node of the given kind in creation order; an empty kind returns all nodes.
func (c *Context) Nodes(kind string) []*Node {
	var out []*Node
	for _, n := range c.nodes {
		if kind == "" || n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Connected returns every node of the given kind that still has an outgoing connection.
func (c *Context) Connected(kind string) []*Node {
	var out []*Node
	for _, n := range c.Nodes(kind) {
		if n.Connected() {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodeOf unwraps a graph value created by this recorder.
func NodeOf(v any) *Node {
	if n, ok := v.(interface{ node() *Node }); ok {
		return n.node()
	}
	return nil
}

// NoiseContext adds graph.NoiseFactory to Context.
type NoiseContext struct {
	*Context
}

// NewNoiseContext returns a recorder that can create noise sources.
func NewNoiseContext(caps Capabilities) *NoiseContext {
	return &NoiseContext{NewContext(caps)}
}

type noise struct{ *Node }

func (n noise) Start(when float64) {
	n.Started = true
	n.StartAt = when
}

func (n noise) Stop(when float64) {
	n.Stopped = true
	n.StopAt = when
}

// NewNoise records a new noise source.
func (c *NoiseContext) NewNoise() graph.Node {
	return noise{c.add("noise", 0)}
}
