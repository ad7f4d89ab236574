package beepgraph

import "math/rand"

// pinkKeyMax has one bit per white-noise row of the Voss-McCartney generator.
const pinkKeyMax = 0x1F

// pinkNoise is a Voss-McCartney pink noise source written to both channels.
type pinkNoise struct {
	*node
	rand   *rand.Rand
	key    uint32
	white  [5]float64
	window window
}

func (pn *pinkNoise) Start(when float64) {
	pn.ctx.mu.Lock()
	defer pn.ctx.mu.Unlock()
	pn.window.start = when
}

func (pn *pinkNoise) Stop(when float64) {
	pn.ctx.mu.Lock()
	defer pn.ctx.mu.Unlock()
	pn.window.stop = when
}

func (pn *pinkNoise) process(n *node, out [][2]float64) {
	for i := range out {
		if !pn.window.open(pn.ctx.seconds(pn.ctx.frame + int64(i))) {
			continue
		}
		s := pn.next()
		out[i] = [2]float64{s, s}
	}
}

// next refreshes the rows whose key bit flipped and returns their scaled sum.
func (pn *pinkNoise) next() float64 {
	last := pn.key
	pn.key++
	if pn.key > pinkKeyMax {
		pn.key = 0
	}
	diff := last ^ pn.key
	for i := range pn.white {
		if diff&(1<<uint(i)) != 0 {
			pn.white[i] = pn.rand.Float64()*2 - 1
		}
	}
	sum := 0.0
	for _, w := range pn.white {
		sum += w
	}
	return sum * 0.1
}
