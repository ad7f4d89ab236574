package beepgraph

import (
	"math"
	"testing"
	"time"

	"github.com/Wundark/binaural-engine/graph"
	"github.com/Wundark/binaural-engine/graph/graphtest"
)

func TestShape(t *testing.T) {
	for _, tc := range []struct {
		w     graph.Waveform
		phase float64
		want  float64
	}{
		{graph.Sine, 0, 0},
		{graph.Sine, 0.25, 1},
		{graph.Sine, 0.75, -1},
		{graph.Square, 0.1, 1},
		{graph.Square, 0.6, -1},
		{graph.Triangle, 0, -1},
		{graph.Triangle, 0.25, 0},
		{graph.Triangle, 0.5, 1},
		{graph.Triangle, 0.75, 0},
		{graph.Sawtooth, 0, -1},
		{graph.Sawtooth, 0.5, 0},
	} {
		if got := shape(tc.w, tc.phase); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("shape(%v, %v) = %v, want %v", tc.w, tc.phase, got, tc.want)
		}
	}
}

func TestConnectErrors(t *testing.T) {
	c := New(8000)
	osc := c.NewOscillator()
	g := c.NewGain()
	m := c.NewMerger(2)

	if err := osc.Connect(m, 2); err == nil {
		t.Error("out-of-range merger input accepted")
	}
	if err := g.Connect(osc, 0); err == nil {
		t.Error("connection into a source accepted")
	}
	if err := c.Destination().Connect(g, 0); err == nil {
		t.Error("connection out of the destination accepted")
	}
	if err := g.Connect(g, 0); err == nil {
		t.Error("self connection accepted")
	}
	if err := g.Connect(m, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Connect(g, 0); err == nil {
		t.Error("cycle accepted")
	}
	other := New(8000)
	if err := g.Connect(other.NewGain(), 0); err == nil {
		t.Error("cross-context connection accepted")
	}
	foreign := graphtest.NewContext(graphtest.Capabilities{}).NewGain()
	if err := g.Connect(foreign, 0); err == nil {
		t.Error("foreign node accepted")
	}
	if m.Inputs() != 2 {
		t.Errorf("merger inputs %d", m.Inputs())
	}
}

func TestOscillatorSilentUntilStarted(t *testing.T) {
	c := New(8000)
	osc := c.NewOscillator()
	if err := osc.Connect(c.Destination(), 0); err != nil {
		t.Fatal(err)
	}
	out := c.Render(100 * time.Millisecond)
	for i, f := range out {
		if f != [2]float64{} {
			t.Fatalf("frame %d = %v before Start", i, f)
		}
	}

	osc.(graph.Starter).Start(c.CurrentTime())
	osc.(graph.Stopper).Stop(c.CurrentTime() + 0.05)
	out = c.Render(100 * time.Millisecond)
	var loud int
	for i, f := range out {
		if f[0] != f[1] {
			t.Fatalf("frame %d: mono source differs between channels: %v", i, f)
		}
		if i > 400 && f[0] != 0 {
			t.Fatalf("frame %d = %v after Stop", i, f)
		}
		if f[0] != 0 {
			loud++
		}
	}
	if loud < 300 {
		t.Errorf("only %d audible frames while started", loud)
	}
}

func TestFanOutRendersOnce(t *testing.T) {
	c := New(8000)
	osc := c.NewOscillator()
	osc.Frequency().SetValue(500)
	a, b := c.NewGain(), c.NewGain()
	m := c.NewMerger(2)
	for _, e := range []struct {
		src, dst graph.Node
		in       int
	}{
		{osc, a, 0}, {osc, b, 0}, {a, m, 0}, {b, m, 1}, {m, c.Destination(), 0},
	} {
		if err := e.src.Connect(e.dst, e.in); err != nil {
			t.Fatal(err)
		}
	}
	osc.(graph.Starter).Start(0)
	out := c.Render(50 * time.Millisecond)
	for i, f := range out {
		if f[0] != f[1] {
			t.Fatalf("frame %d: branches diverged %v", i, f)
		}
	}
	if p := osc.Frequency().Value(); p != 500 {
		t.Errorf("frequency %v", p)
	}
}

func TestMergerRoutesChannels(t *testing.T) {
	c := New(8000)
	left, right := c.NewOscillator(), c.NewOscillator()
	left.SetWaveform(graph.Square)
	right.SetWaveform(graph.Square)
	left.Frequency().SetValue(100)
	right.Frequency().SetValue(100)
	m := c.NewMerger(2)
	g := c.NewGain()
	g.Gain().SetValue(0.5)
	if err := left.Connect(m, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Connect(g, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(c.Destination(), 0); err != nil {
		t.Fatal(err)
	}
	left.(graph.Starter).Start(0)
	right.(graph.Starter).Start(0)
	if err := right.Connect(m, 1); err != nil {
		t.Fatal(err)
	}
	right.Disconnect()

	for i, f := range c.Render(20 * time.Millisecond) {
		if math.Abs(f[0]) != 0.5 || f[1] != 0 {
			t.Fatalf("frame %d = %v, want ±0.5 on the left only", i, f)
		}
	}
}

func TestSchedulerOnSampleClock(t *testing.T) {
	c := New(44100)
	var ticks []float64
	tm := c.Every(100*time.Millisecond, func() { ticks = append(ticks, c.CurrentTime()) })
	var once []float64
	c.After(250*time.Millisecond, func() { once = append(once, c.CurrentTime()) })
	stopped := c.After(50*time.Millisecond, func() { t.Error("stopped callback ran") })
	stopped.Stop()

	c.Render(time.Second + time.Millisecond)
	if len(ticks) != 10 {
		t.Fatalf("got %d ticks, want 10: %v", len(ticks), ticks)
	}
	for i, at := range ticks {
		if want := float64(i+1) * 0.1; math.Abs(at-want) > 1e-9 {
			t.Errorf("tick %d at %v, want %v", i, at, want)
		}
	}
	if len(once) != 1 || math.Abs(once[0]-0.25) > 1e-9 {
		t.Errorf("After fired at %v, want once at 0.25", once)
	}

	tm.Stop()
	tm.Stop()
	c.Render(500 * time.Millisecond)
	if len(ticks) != 10 {
		t.Errorf("ticker fired after Stop: %d ticks", len(ticks))
	}
}

func TestSchedulerCallbackCanReschedule(t *testing.T) {
	c := New(1000)
	var fired int
	var again func()
	again = func() {
		fired++
		if fired < 3 {
			c.After(10*time.Millisecond, again)
		}
	}
	c.After(10*time.Millisecond, again)
	c.Render(100 * time.Millisecond)
	if fired != 3 {
		t.Errorf("fired %d times, want 3", fired)
	}
}

func TestFilterAttenuatesAboveCutoff(t *testing.T) {
	level := func(freq float64) float64 {
		c := New(44100)
		osc := c.NewOscillator()
		osc.Frequency().SetValue(freq)
		f := c.NewFilter()
		f.SetType(graph.Lowpass)
		f.Frequency().SetValue(1000)
		if err := osc.Connect(f, 0); err != nil {
			t.Fatal(err)
		}
		if err := f.Connect(c.Destination(), 0); err != nil {
			t.Fatal(err)
		}
		osc.(graph.Starter).Start(0)
		c.Render(100 * time.Millisecond)
		var peak float64
		for _, s := range c.Render(100 * time.Millisecond) {
			peak = math.Max(peak, math.Abs(s[0]))
		}
		return peak
	}
	if low := level(100); low < 0.95 {
		t.Errorf("100 Hz passband level %v", low)
	}
	if high := level(10000); high > 0.05 {
		t.Errorf("10 kHz stopband level %v", high)
	}
}

func TestNoiseIsReproducible(t *testing.T) {
	render := func() [][2]float64 {
		c := New(8000, WithSeed(42))
		n := c.NewNoise()
		if err := n.Connect(c.Destination(), 0); err != nil {
			t.Fatal(err)
		}
		n.(graph.Starter).Start(0)
		return c.Render(50 * time.Millisecond)
	}
	a, b := render(), render()
	var energy float64
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("frame %d differs between seeded renders", i)
		}
		if a[i][0] != a[i][1] || math.Abs(a[i][0]) > 0.5 {
			t.Fatalf("frame %d = %v", i, a[i])
		}
		energy += a[i][0] * a[i][0]
	}
	if energy == 0 {
		t.Error("noise source is silent")
	}
}

func BenchmarkRenderTonePair(b *testing.B) {
	c := New(44100)
	m := c.NewMerger(2)
	for i, hz := range []float64{220, 224} {
		o := c.NewOscillator()
		o.Frequency().SetValue(hz)
		o.Connect(m, i)
		o.(graph.Starter).Start(0)
	}
	m.Connect(c.Destination(), 0)
	buf := make([][2]float64, 512)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Stream(buf)
	}
}
