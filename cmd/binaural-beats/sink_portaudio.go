//go:build portaudio

package main

import (
	"context"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

const framesPerBuffer = 512

func init() {
	sinks["portaudio"] = playPortAudio
}

// playPortAudio pulls s from the PortAudio callback with one buffer per channel.
func playPortAudio(ctx context.Context, sr beep.SampleRate, s beep.Streamer) error {
	if err := portaudio.Initialize(); err != nil {
		return errors.Wrap(err, "init portaudio")
	}
	defer portaudio.Terminate()

	done := make(chan struct{})
	var once sync.Once
	var buf [][2]float64
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sr), framesPerBuffer, func(out [][]float32) {
		n := len(out[0])
		if cap(buf) < n {
			buf = make([][2]float64, n)
		}
		buf = buf[:n]
		got, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			var f [2]float64
			if i < got {
				f = buf[i]
			}
			out[0][i], out[1][i] = float32(f[0]), float32(f[1])
		}
		if !ok || got < n {
			once.Do(func() { close(done) })
		}
	})
	if err != nil {
		return errors.Wrap(err, "open stream")
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return errors.Wrap(err, "start stream")
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
	return errors.Wrap(stream.Stop(), "stop stream")
}
