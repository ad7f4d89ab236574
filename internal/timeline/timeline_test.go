package timeline

import (
	"math"
	"testing"
)

var session = []Point{
	{Time: 60, Frequency: 200, BeatFrequency: 4, ToneVolume: 0.2, PinkNoiseOn: true, PinkNoiseVolume: 0.3},
	{Time: 0, Frequency: 100, BeatFrequency: 10, ToneVolume: 0.6},
	{Time: 120, Frequency: 200, BeatFrequency: 4, ToneVolume: 0},
}

func TestNewSortsCopy(t *testing.T) {
	tl := New(session)
	for i, want := range []float64{0, 60, 120} {
		if tl[i].Time != want {
			t.Errorf("point %d at %v, want %v", i, tl[i].Time, want)
		}
	}
	if session[0].Time != 60 {
		t.Error("New reordered its input")
	}
	if d := tl.Duration(); d != 120 {
		t.Errorf("Duration() = %v, want 120", d)
	}
	if d := New(nil).Duration(); d != 0 {
		t.Errorf("empty Duration() = %v", d)
	}
}

func TestAt(t *testing.T) {
	tl := New(session)
	for _, tc := range []struct {
		t    float64
		want Setting
	}{
		{-5, Setting{Base: 100, Beat: 10, Volume: 0.6}},
		{0, Setting{Base: 100, Beat: 10, Volume: 0.6}},
		{30, Setting{Base: 150, Beat: 7, Volume: 0.4}},
		{60, Setting{Base: 200, Beat: 4, Volume: 0.2, Noise: true, NoiseVolume: 0.3}},
		{90, Setting{Base: 200, Beat: 4, Volume: 0.1, Noise: true, NoiseVolume: 0.3}},
		{120, Setting{Base: 200, Beat: 4, Volume: 0}},
		{500, Setting{Base: 200, Beat: 4, Volume: 0}},
	} {
		got := tl.At(tc.t)
		if !same(got, tc.want) {
			t.Errorf("At(%v) = %+v, want %+v", tc.t, got, tc.want)
		}
	}
}

func TestAtStepsNoise(t *testing.T) {
	tl := New(session)
	if s := tl.At(59.9); s.Noise {
		t.Errorf("noise on before its point: %+v", s)
	}
	if s := tl.At(119.9); !s.Noise || s.NoiseVolume != 0.3 {
		t.Errorf("noise not held until the next point: %+v", s)
	}
}

func TestAtEmpty(t *testing.T) {
	if s := Timeline(nil).At(3); s != (Setting{Volume: 1}) {
		t.Errorf("At on empty timeline = %+v", s)
	}
}

func TestStretch(t *testing.T) {
	tl := New(session)
	s := tl.Stretch(0.5)
	if s.Duration() != 60 || tl.Duration() != 120 {
		t.Errorf("durations %v/%v, want 60/120", s.Duration(), tl.Duration())
	}
	if !same(s.At(15), tl.At(30)) {
		t.Errorf("stretched At(15) = %+v, want %+v", s.At(15), tl.At(30))
	}
}

func same(a, b Setting) bool {
	eq := func(x, y float64) bool { return math.Abs(x-y) < 1e-9 }
	return eq(a.Base, b.Base) && eq(a.Beat, b.Beat) && eq(a.Volume, b.Volume) &&
		a.Noise == b.Noise && eq(a.NoiseVolume, b.NoiseVolume)
}
