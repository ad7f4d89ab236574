package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Wundark/binaural-engine/clock"
	"github.com/Wundark/binaural-engine/engine"
	"github.com/Wundark/binaural-engine/internal/config"
	"github.com/Wundark/binaural-engine/internal/timeline"
)

// session is a started controller plus the follower walking its timeline, if any.
type session struct {
	c        *engine.Controller
	follower *timeline.Follower
}

// Stop fades the session out. The follower goes first so no later tick raises the volume again.
func (s *session) Stop() {
	if s.follower != nil {
		s.follower.Stop()
	}
	s.c.Stop()
}

// stopBefore schedules Stop fadeOut ahead of total so a timed session ends in silence. A zero total
// is an open-ended session.
func (s *session) stopBefore(sched clock.Scheduler, total time.Duration) {
	if total > fadeOut {
		sched.After(total-fadeOut, s.Stop)
	}
}

// startSession starts every layer cfg enables. With frequency_changes the tone pair opens at the
// first point and a follower walks the rest.
func startSession(c *engine.Controller, cfg *config.Config, sched clock.Scheduler, logger *log.Logger) (*session, error) {
	tone := cfg.Tone
	tl := cfg.Timeline()
	if len(tl) > 0 {
		s := tl.At(0)
		tone.Base, tone.Beat, tone.Volume = s.Base, s.Beat, s.Volume
	}
	if err := c.Start(tone.Base, tone.Beat, engine.WithVolume(tone.Volume), engine.WithWaveform(tone.Waveform)); err != nil {
		return nil, errors.Wrap(err, "start tone pair")
	}

	if d := cfg.Drift; d != nil {
		if err := c.StartDrift(engine.WithPeriod(d.Period), engine.WithRange(d.Min, d.Max)); err != nil {
			return nil, errors.Wrap(err, "start drift")
		}
	}
	if p := cfg.Isochronic; p != nil {
		if err := c.StartIsochronic(engine.WithRate(p.Rate), engine.WithPulseVolume(p.Volume)); err != nil {
			return nil, errors.Wrap(err, "start isochronic pulse")
		}
	}
	if n := cfg.Noise; n != nil {
		if err := c.StartNoise(n.Volume); err != nil {
			return nil, errors.Wrap(err, "start noise")
		}
	}

	s := &session{c: c}
	if len(tl) > 0 {
		s.follower = timeline.Follow(tl, c, sched, timeline.WithLogger(logger))
	}
	return s, nil
}

// statusLine describes the session at elapsed seconds. A zero total is an open-ended session.
func statusLine(elapsed, total float64, st engine.State) string {
	var b strings.Builder
	if total > 0 {
		fmt.Fprintf(&b, "Time: %.2f s / Total %.2f s", elapsed, total)
	} else {
		fmt.Fprintf(&b, "Time: %.2f s", elapsed)
	}
	if !st.Active {
		b.WriteString(", stopped")
		return b.String()
	}
	fmt.Fprintf(&b, ", Base Frequency: %.2f Hz, Beat Frequency: %.2f Hz, Tone Volume: %.2f, Waveform: %v",
		st.LeftHz, st.Beat(), st.Volume, st.Waveform)
	if st.Drift != nil {
		fmt.Fprintf(&b, ", Drift: %.1f/%.1f s", st.Drift.Step, st.Drift.Period)
	}
	if st.Pulse != nil {
		fmt.Fprintf(&b, ", Pulse: %.2f Hz", st.Pulse.Rate)
	}
	if st.Noise != nil {
		fmt.Fprintf(&b, ", Pink Noise Volume: %.2f", st.Noise.Volume)
	}
	return b.String()
}
