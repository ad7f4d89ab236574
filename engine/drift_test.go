package engine

import (
	"bytes"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/Wundark/binaural-engine/clock/clocktest"
	"github.com/Wundark/binaural-engine/graph/graphtest"
)

const slack = 1e-9

func TestDriftTriangle(t *testing.T) {
	for _, tc := range []struct {
		period, min, max float64
	}{
		{60, 3, 7},
		{10, 1, 2},
		{1.2, 8, 12},
		{2, 4, 4},
	} {
		c, _, sched := newTestController(t, graphtest.Capabilities{})
		if err := c.Start(200, tc.min); err != nil {
			t.Fatal(err)
		}
		if err := c.StartDrift(WithPeriod(tc.period), WithRange(tc.min, tc.max)); err != nil {
			t.Fatal(err)
		}

		n := int(math.Round(tc.period / driftStep))
		beats := []float64{c.State().Beat()}
		for i := 0; i < n; i++ {
			sched.Advance(DriftTick)
			beats = append(beats, c.State().Beat())
		}

		half := n / 2
		for i := 1; i <= half; i++ {
			if beats[i] < beats[i-1]-slack {
				t.Errorf("period %v: beat fell on the way up at tick %d: %v -> %v", tc.period, i, beats[i-1], beats[i])
			}
		}
		for i := half + 1; i <= n; i++ {
			if beats[i] > beats[i-1]+slack {
				t.Errorf("period %v: beat rose on the way down at tick %d: %v -> %v", tc.period, i, beats[i-1], beats[i])
			}
		}
		if math.Abs(beats[0]-tc.min) > slack || math.Abs(beats[n]-tc.min) > 1e-6 {
			t.Errorf("period %v: starts at %v, ends at %v; want %v", tc.period, beats[0], beats[n], tc.min)
		}
		if math.Abs(beats[half]-tc.max) > 1e-6 {
			t.Errorf("period %v: half-period beat %v, want %v", tc.period, beats[half], tc.max)
		}
	}
}

func TestDriftAdvance(t *testing.T) {
	d := &drift{period: 10, min: 3, max: 7}
	for i, want := range []float64{3.08, 3.16, 3.24} {
		if got := d.advance(); math.Abs(got-want) > slack {
			t.Errorf("tick %d: beat %v, want %v", i+1, got, want)
		}
	}
	d.ticks = 74 // 7.5 s into the period after the next tick
	if got := d.advance(); math.Abs(got-5) > slack {
		t.Errorf("three quarters: beat %v, want 5", got)
	}
	d.ticks = 99
	if got := d.advance(); math.Abs(got-3) > 1e-6 || d.step > 1e-6 && d.step < 10-1e-6 {
		t.Errorf("wrap: beat %v step %v, want 3 at the period boundary", got, d.step)
	}
}

func TestDriftRetargetsRightChannelOnly(t *testing.T) {
	c, ctx, sched := newTestController(t, graphtest.Capabilities{})
	if err := c.Start(200, 3); err != nil {
		t.Fatal(err)
	}
	if err := c.StartDrift(WithPeriod(10), WithRange(3, 7)); err != nil {
		t.Fatal(err)
	}
	ctx.Time = 1
	sched.Advance(DriftTick)

	oscs := ctx.Nodes("oscillator")
	if p := oscs[0].Param("frequency").Pending(); len(p) != 0 {
		t.Errorf("left channel retargeted by drift: %+v", p)
	}
	p := oscs[1].Param("frequency").Pending()
	if len(p) != 1 || math.Abs(p[0].Value-203.08) > slack || p[0].Time != 1 {
		t.Errorf("right transitions %+v, want one to 203.08 at 1", p)
	}
}

func TestStartDriftResetsPhase(t *testing.T) {
	c, _, sched := newTestController(t, graphtest.Capabilities{})
	if err := c.Start(200, 3); err != nil {
		t.Fatal(err)
	}
	if err := c.StartDrift(WithPeriod(10), WithRange(3, 7)); err != nil {
		t.Fatal(err)
	}
	sched.Tick(30, DriftTick)
	if b := c.State().Beat(); math.Abs(b-5.4) > 1e-6 {
		t.Fatalf("beat after 3 s %v, want 5.4", b)
	}

	if err := c.StartDrift(WithPeriod(10), WithRange(3, 7)); err != nil {
		t.Fatal(err)
	}
	if st := c.State(); st.Drift == nil || st.Drift.Step != 0 {
		t.Fatalf("drift state after restart %+v, want step 0", st.Drift)
	}
	sched.Advance(DriftTick)
	if b := c.State().Beat(); math.Abs(b-3.08) > 1e-6 {
		t.Errorf("beat after restart %v, want 3.08 (from the lower bound)", b)
	}
	if n := sched.Active(); n != 1 {
		t.Errorf("%d timers armed, want only the replacement drift", n)
	}
}

func TestStartDriftRejectsInvalidArguments(t *testing.T) {
	c, _, sched := newTestController(t, graphtest.Capabilities{})
	for name, opts := range map[string][]DriftOption{
		"zero period":     {WithPeriod(0)},
		"negative period": {WithPeriod(-5)},
		"inverted range":  {WithRange(7, 3)},
		"NaN bound":       {WithRange(math.NaN(), 3)},
	} {
		if err := c.StartDrift(opts...); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: err = %v, want ErrInvalidArgument", name, err)
		}
	}
	if c.State().Drift != nil || sched.Active() != 0 {
		t.Error("rejected drift left state behind")
	}
}

func TestStopDrift(t *testing.T) {
	c, _, sched := newTestController(t, graphtest.Capabilities{})
	c.StopDrift()
	if err := c.Start(200, 3); err != nil {
		t.Fatal(err)
	}
	if err := c.StartDrift(); err != nil {
		t.Fatal(err)
	}
	sched.Tick(5, DriftTick)
	before := c.State().Beat()
	c.StopDrift()
	c.StopDrift()
	sched.Tick(5, DriftTick)
	if after := c.State().Beat(); after != before {
		t.Errorf("beat moved after StopDrift: %v -> %v", before, after)
	}
	if c.State().Drift != nil {
		t.Error("drift state survives StopDrift")
	}
}

func TestStopStopsDrift(t *testing.T) {
	c, _, sched := newTestController(t, graphtest.Capabilities{})
	if err := c.Start(200, 3); err != nil {
		t.Fatal(err)
	}
	if err := c.StartDrift(); err != nil {
		t.Fatal(err)
	}
	c.Stop()
	if c.State().Drift != nil {
		t.Error("drift survives Stop")
	}
	sched.Tick(10, DriftTick)
	if n := sched.Active(); n != 0 {
		t.Errorf("%d timers armed after Stop", n)
	}
}

func TestStaleDriftTickIgnored(t *testing.T) {
	c, _, _ := newTestController(t, graphtest.Capabilities{})
	if err := c.Start(200, 3); err != nil {
		t.Fatal(err)
	}
	if err := c.StartDrift(WithRange(10, 20)); err != nil {
		t.Fatal(err)
	}
	old := c.drift
	c.StopDrift()
	c.driftTick(old)
	if b := c.State().Beat(); b != 3 {
		t.Errorf("stale tick retargeted the beat to %v", b)
	}
}

func TestDriftWithoutSession(t *testing.T) {
	var buf bytes.Buffer
	sched := clocktest.New()
	c, err := New(graphtest.NewContext(graphtest.Capabilities{}), WithScheduler(sched), WithLogger(log.New(&buf, "", 0)))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.StartDrift(WithPeriod(10)); err != nil {
		t.Fatal(err)
	}
	sched.Tick(3, DriftTick)
	st := c.State()
	if st.Active {
		t.Error("drift started a session")
	}
	if st.Drift == nil || math.Abs(st.Drift.Step-0.3) > slack {
		t.Errorf("drift state %+v, want step 0.3", st.Drift)
	}
	if strings.Contains(buf.String(), "drift:") {
		t.Errorf("idle ticks logged %q", buf.String())
	}
}

func TestDriftLogsRejectedUpdates(t *testing.T) {
	var buf bytes.Buffer
	ctx := graphtest.NewContext(graphtest.Capabilities{})
	sched := clocktest.New()
	c, err := New(ctx, WithScheduler(sched), WithLogger(log.New(&buf, "", 0)))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(5, 1); err != nil {
		t.Fatal(err)
	}
	if err := c.StartDrift(WithRange(-10, -6)); err != nil {
		t.Fatal(err)
	}
	sched.Advance(DriftTick)
	if !strings.Contains(buf.String(), "drift: right channel frequency") {
		t.Errorf("log %q, want a drift error", buf.String())
	}
	if st := c.State(); st.RightHz != 6 {
		t.Errorf("rejected drift changed the right channel to %v", st.RightHz)
	}
}
