package beepgraph

import (
	"github.com/pkg/errors"

	"github.com/Wundark/binaural-engine/graph"
)

// processor fills out with one chunk of a node's output, starting at the context's current frame.
type processor interface {
	process(n *node, out [][2]float64)
}

type edge struct {
	dst   *node
	input int
}

// node is the routing and buffering shared by every node kind.
type node struct {
	ctx     *Context
	proc    processor
	inputs  [][]*node
	outputs []edge
	buf     [][2]float64
	scratch [][2]float64
	epoch   uint64
}

func newNode(c *Context, p processor, inputs int) *node {
	return &node{ctx: c, proc: p, inputs: make([][]*node, inputs)}
}

func (n *node) base() *node { return n }

type hasBase interface {
	base() *node
}

// render returns this node's output for the current chunk, computing it at most once per chunk.
func (n *node) render(frames int) [][2]float64 {
	if n.epoch == n.ctx.epoch && len(n.buf) == frames {
		return n.buf
	}
	if cap(n.buf) < frames {
		n.buf = make([][2]float64, frames)
	}
	n.buf = n.buf[:frames]
	for i := range n.buf {
		n.buf[i] = [2]float64{}
	}
	n.proc.process(n, n.buf)
	n.epoch = n.ctx.epoch
	return n.buf
}

// mix adds every source connected to input slot i into out.
func (n *node) mix(i int, out [][2]float64) {
	for _, src := range n.inputs[i] {
		b := src.render(len(out))
		for k := range out {
			out[k][0] += b[k][0]
			out[k][1] += b[k][1]
		}
	}
}

// input renders input slot i into the node's scratch buffer.
func (n *node) input(i, frames int) [][2]float64 {
	if cap(n.scratch) < frames {
		n.scratch = make([][2]float64, frames)
	}
	s := n.scratch[:frames]
	for k := range s {
		s[k] = [2]float64{}
	}
	n.mix(i, s)
	return s
}

func (n *node) Connect(dst graph.Node, input int) error {
	d, ok := dst.(hasBase)
	if !ok {
		return errors.Errorf("beepgraph: cannot connect to %T", dst)
	}
	target := d.base()

	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	if target.ctx != n.ctx {
		return errors.New("beepgraph: nodes belong to different contexts")
	}
	if _, ok := n.proc.(*destination); ok {
		return errors.New("beepgraph: destination has no output")
	}
	if input < 0 || input >= len(target.inputs) {
		return errors.Errorf("beepgraph: input %d out of range [0, %d)", input, len(target.inputs))
	}
	if target == n || target.feeds(n) {
		return errors.New("beepgraph: connection would create a cycle")
	}
	for _, e := range n.outputs {
		if e.dst == target && e.input == input {
			return nil
		}
	}
	target.inputs[input] = append(target.inputs[input], n)
	n.outputs = append(n.outputs, edge{dst: target, input: input})
	return nil
}

// feeds reports whether n's output reaches other.
func (n *node) feeds(other *node) bool {
	for _, e := range n.outputs {
		if e.dst == other || e.dst.feeds(other) {
			return true
		}
	}
	return false
}

func (n *node) Disconnect() {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	for _, e := range n.outputs {
		srcs := e.dst.inputs[e.input]
		for i, s := range srcs {
			if s == n {
				e.dst.inputs[e.input] = append(srcs[:i], srcs[i+1:]...)
				break
			}
		}
	}
	n.outputs = nil
}

// window is the span of audio-clock time a source plays in. Sources are silent until started.
type window struct {
	start, stop float64
}

func closedWindow() window {
	return window{start: inf, stop: inf}
}

func (w window) open(t float64) bool {
	return t >= w.start && t < w.stop
}
