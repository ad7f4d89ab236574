// Package spectrum estimates the frequency content of rendered audio.
package spectrum

import (
	"math"
	"math/cmplx"

	"github.com/ktye/fft"
	"github.com/pkg/errors"
)

// minSize is the smallest transform worth running.
const minSize = 64

// Peak is the strongest bin of a spectrum.
type Peak struct {
	Hz         float64 // interpolated frequency
	Magnitude  float64
	Resolution float64 // bin width in Hz
}

// Dominant returns the strongest frequency in samples. The analysed window is the largest power of
// two that fits; it is Hann-windowed and the peak refined by parabolic interpolation. DC is ignored.
func Dominant(samples []float64, sampleRate float64) (Peak, error) {
	n := floorPow2(len(samples))
	if n < minSize {
		return Peak{}, errors.Errorf("spectrum: need at least %d samples, got %d", minSize, len(samples))
	}
	if sampleRate <= 0 {
		return Peak{}, errors.Errorf("spectrum: sample rate %v", sampleRate)
	}
	f, err := fft.New(n)
	if err != nil {
		return Peak{}, errors.Wrap(err, "spectrum")
	}

	x := make([]complex128, n)
	for i := range x {
		w := (1 - math.Cos(2*math.Pi*float64(i)/float64(n))) / 2
		x[i] = complex(samples[i]*w, 0)
	}
	x = f.Transform(x)

	mags := make([]float64, n/2)
	best := 1
	for i := 1; i < len(mags); i++ {
		mags[i] = cmplx.Abs(x[i])
		if mags[i] > mags[best] {
			best = i
		}
	}

	bin := float64(best)
	if best > 1 && best < len(mags)-1 {
		a, b, c := mags[best-1], mags[best], mags[best+1]
		if d := a - 2*b + c; d != 0 {
			bin += 0.5 * (a - c) / d
		}
	}
	res := sampleRate / float64(n)
	return Peak{Hz: bin * res, Magnitude: mags[best], Resolution: res}, nil
}

// Channel extracts channel ch (0 left, 1 right) from stereo frames.
func Channel(frames [][2]float64, ch int) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = f[ch]
	}
	return out
}

// RMS is the root mean square level of samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func floorPow2(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	if n < 1 {
		return 0
	}
	return p
}
