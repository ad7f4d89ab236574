// Package timeline holds a schedule of frequency changes and interpolates the session settings
// between them.
package timeline

import (
	"sort"
)

// Point is one entry of the schedule.
type Point struct {
	Time            float64 `yaml:"time"`              // Time in seconds
	Frequency       float64 `yaml:"frequency"`         // Base frequency in Hz
	BeatFrequency   float64 `yaml:"beat_frequency"`    // Beat frequency in Hz
	PinkNoiseOn     bool    `yaml:"pink_noise_on"`     // Pink noise on or off
	PinkNoiseVolume float64 `yaml:"pink_noise_volume"` // Volume for pink noise (0.0 to 1.0)
	ToneVolume      float64 `yaml:"tone_volume"`       // Volume for the tone pair (0.0 to 1.0)
}

// Setting is the state of the session at one instant.
type Setting struct {
	Base        float64
	Beat        float64
	Volume      float64
	Noise       bool
	NoiseVolume float64
}

// Timeline is a schedule sorted by time. Base, beat and tone volume are interpolated linearly between
// points; pink noise switches in steps.
type Timeline []Point

// New copies points and sorts them by time.
func New(points []Point) Timeline {
	tl := append(Timeline(nil), points...)
	Sort(tl)
	return tl
}

// Sort orders points by time, keeping the input order of points at the same instant.
func Sort(points []Point) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time < points[j].Time
	})
}

// Duration is the time of the last point.
func (tl Timeline) Duration() float64 {
	if len(tl) == 0 {
		return 0
	}
	return tl[len(tl)-1].Time
}

// Stretch returns a copy with every time multiplied by factor.
func (tl Timeline) Stretch(factor float64) Timeline {
	out := append(Timeline(nil), tl...)
	for i := range out {
		out[i].Time *= factor
	}
	return out
}

// At returns the setting at time t. Before the first point the first point holds, after the last
// point the last one does. An empty timeline is silent except for a full tone volume.
func (tl Timeline) At(t float64) Setting {
	if len(tl) == 0 {
		return Setting{Volume: 1}
	}
	if t <= tl[0].Time {
		return setting(tl[0])
	}
	last := tl[len(tl)-1]
	if t >= last.Time {
		return setting(last)
	}

	// first point strictly after t; i-1 is the point the interval starts at
	i := sort.Search(len(tl), func(i int) bool { return tl[i].Time > t })
	a, b := tl[i-1], tl[i]
	frac := (t - a.Time) / (b.Time - a.Time)
	lerp := func(x, y float64) float64 { return x + (y-x)*frac }
	return Setting{
		Base:        lerp(a.Frequency, b.Frequency),
		Beat:        lerp(a.BeatFrequency, b.BeatFrequency),
		Volume:      lerp(a.ToneVolume, b.ToneVolume),
		Noise:       a.PinkNoiseOn,
		NoiseVolume: a.PinkNoiseVolume,
	}
}

func setting(p Point) Setting {
	return Setting{
		Base:        p.Frequency,
		Beat:        p.BeatFrequency,
		Volume:      p.ToneVolume,
		Noise:       p.PinkNoiseOn,
		NoiseVolume: p.PinkNoiseVolume,
	}
}
