package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Wundark/binaural-engine/beepgraph"
	"github.com/Wundark/binaural-engine/clock"
	"github.com/Wundark/binaural-engine/engine"
	"github.com/Wundark/binaural-engine/internal/config"
	"github.com/Wundark/binaural-engine/internal/spectrum"
)

const (
	statusInterval = 3 * time.Second
	// fadeOut is how long before the end of a timed session the tones are stopped.
	fadeOut = 500 * time.Millisecond
	// settle is skipped before analysis so the start ramp does not colour the spectrum.
	settle = 500 * time.Millisecond
)

type options struct {
	config   string
	output   string
	stretch  float64
	duration time.Duration
	analyze  time.Duration
	backend  string
	seed     int64
	verbose  bool
}

func main() {
	var o options
	flag.StringVar(&o.config, "config", "config.yaml", "Path to the configuration file")
	flag.StringVar(&o.output, "output", "", "Path to the output WAV file (if empty, audio will be played)")
	flag.Float64Var(&o.stretch, "stretch", 1.0, "Stretch factor for the frequency_changes timeline")
	flag.DurationVar(&o.duration, "duration", 0, "Session length, overriding the configuration")
	flag.DurationVar(&o.analyze, "analyze", 0, "Render this much audio offline and print the dominant frequencies")
	flag.StringVar(&o.backend, "backend", "speaker", "Live playback backend: "+strings.Join(backendNames(), ", "))
	flag.Int64Var(&o.seed, "seed", 0, "Noise seed (0 picks one from the clock)")
	flag.BoolVar(&o.verbose, "v", false, "Log engine events to stderr")
	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(o options) error {
	cfg, err := config.Load(o.config)
	if err != nil {
		return err
	}
	if err := cfg.Stretch(o.stretch); err != nil {
		return err
	}
	if o.duration < 0 {
		return errors.Errorf("duration %v", o.duration)
	}
	if o.duration > 0 {
		cfg.Duration = o.duration
	}

	logger := log.New(io.Discard, "", 0)
	if o.verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	seed := o.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sr := beep.SampleRate(cfg.SampleRate)
	g := beepgraph.New(sr, beepgraph.WithSeed(seed))

	// Offline renders run faster than real time, so they follow the sample clock. Live playback
	// follows the wall clock.
	offline := o.output != "" || o.analyze > 0
	var sched clock.Scheduler = clock.WallClock{}
	if offline {
		sched = g
	}
	c, err := engine.New(g,
		engine.WithScheduler(sched),
		engine.WithLogger(logger),
		engine.WithFilterCutoff(cfg.FilterCutoff),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	sess, err := startSession(c, cfg, sched, logger)
	if err != nil {
		return err
	}
	defer sess.Stop()

	total := cfg.PlaybackTime()
	sess.stopBefore(sched, total)

	switch {
	case o.analyze > 0:
		return analyze(os.Stdout, g, o.analyze)
	case o.output != "":
		if total == 0 {
			return errors.New("an open-ended session cannot be exported; set duration")
		}
		return export(o.output, g, total)
	}

	play, ok := sinks[o.backend]
	if !ok {
		return errors.Errorf("unknown backend %q (built in: %s)", o.backend, strings.Join(backendNames(), ", "))
	}
	var stream beep.Streamer = g
	if total > 0 {
		stream = beep.Take(sr.N(total), g)
	}
	return live(play, sr, stream, sess, total)
}

// live plays stream until it ends or the process is interrupted, printing a status line every few
// seconds. An interrupt fades the tones out before the sink is closed.
func live(play sink, sr beep.SampleRate, stream beep.Streamer, sess *session, total time.Duration) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	playCtx, cancelPlay := context.WithCancel(context.Background())
	defer cancelPlay()

	var eg errgroup.Group
	finished := make(chan struct{})
	startTime := time.Now()

	eg.Go(func() error {
		defer close(finished)
		return play(playCtx, sr, stream)
	})

	eg.Go(func() error {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		tick := func() {
			fmt.Println(statusLine(time.Since(startTime).Seconds(), total.Seconds(), sess.c.State()))
		}
		tick()
		for {
			select {
			case <-ticker.C:
				tick()
			case <-finished:
				tick()
				return nil
			}
		}
	})

	eg.Go(func() error {
		select {
		case <-sigCtx.Done():
			fmt.Println("Interrupted, fading out...")
			sess.Stop()
			select {
			case <-time.After(fadeOut):
			case <-finished:
			}
			cancelPlay()
		case <-finished:
		}
		return nil
	})

	return eg.Wait()
}

func export(path string, g *beepgraph.Context, total time.Duration) error {
	fmt.Printf("Exporting audio to %s...\n", path)
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output file")
	}
	defer out.Close()

	format := beep.Format{
		SampleRate:  g.SampleRate(),
		NumChannels: 2,
		Precision:   2, // 16-bit audio
	}
	if err := wav.Encode(out, beep.Take(g.SampleRate().N(total), g), format); err != nil {
		return errors.Wrap(err, "encode WAV")
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, "close output file")
	}
	fmt.Println("Export completed successfully.")
	return nil
}

// analyze renders d of audio after the start ramp and reports the dominant frequency of each channel.
func analyze(w io.Writer, g *beepgraph.Context, d time.Duration) error {
	g.Render(settle)
	frames := g.Render(d)
	sr := float64(g.SampleRate())
	left, err := spectrum.Dominant(spectrum.Channel(frames, 0), sr)
	if err != nil {
		return errors.Wrap(err, "analyze left channel")
	}
	right, err := spectrum.Dominant(spectrum.Channel(frames, 1), sr)
	if err != nil {
		return errors.Wrap(err, "analyze right channel")
	}
	_, err = fmt.Fprintf(w, "Left: %.2f Hz, Right: %.2f Hz, Beat: %.2f Hz (resolution %.2f Hz), Level: %.3f / %.3f\n",
		left.Hz, right.Hz, right.Hz-left.Hz, left.Resolution,
		spectrum.RMS(spectrum.Channel(frames, 0)), spectrum.RMS(spectrum.Channel(frames, 1)))
	return err
}

func backendNames() []string {
	names := make([]string, 0, len(sinks))
	for n := range sinks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
