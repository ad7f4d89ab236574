package main

import (
	"context"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/pkg/errors"
)

// sink plays s until it ends or ctx is cancelled.
type sink func(ctx context.Context, sr beep.SampleRate, s beep.Streamer) error

// sinks holds the live backends compiled into this binary.
var sinks = map[string]sink{
	"speaker": playSpeaker,
}

func playSpeaker(ctx context.Context, sr beep.SampleRate, s beep.Streamer) error {
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return errors.Wrap(err, "init speaker")
	}
	defer speaker.Close()

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	select {
	case <-done:
	case <-ctx.Done():
		speaker.Clear()
	}
	return nil
}
