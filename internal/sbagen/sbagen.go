// Package sbagen reads the tone-set and time-sequence parts of an Sbagen schedule and turns them into
// timeline points.
//
// Only binaural tones and pink noise are carried over. Mix, bell, spin and wave specifications are
// accepted and skipped.
package sbagen

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Wundark/binaural-engine/internal/timeline"
)

var (
	toneSetLine  = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_-]*):\s*(.*)$`)
	sequenceLine = regexp.MustCompile(`^(NOW|[+\d:.]+)\s+([a-zA-Z0-9_-]+)(\s*->)?$`)
	toneSpec     = regexp.MustCompile(`^(\d+(?:\.\d+)?)([+-])?(\d*(?:\.\d+)?)?(?:/(\d+(?:\.\d+)?))?$`)
)

// ToneSet is one named tone-set definition.
type ToneSet struct {
	Name        string
	Carrier     float64
	Beat        float64 // signed: a "-" tone puts the higher frequency on the left
	Volume      float64
	NoiseVolume float64
}

// Entry is one time-sequence line.
type Entry struct {
	Time    float64 // seconds from the start
	ToneSet string
	Slide   bool // "->": glide into the next entry
}

// Schedule is a parsed Sbagen file.
type Schedule struct {
	ToneSets map[string]ToneSet
	Sequence []Entry
}

// Parse reads a schedule. Tone-set definitions come first; the first line that is not one starts the
// time sequence.
func Parse(r io.Reader) (*Schedule, error) {
	s := &Schedule{ToneSets: make(map[string]ToneSet)}
	sc := bufio.NewScanner(r)
	inSets := true
	lastAbs := 0.0
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if inSets {
			if m := toneSetLine.FindStringSubmatch(line); m != nil {
				ts, err := ParseToneSet(m[1], m[2])
				if err != nil {
					return nil, errors.Wrapf(err, "line %d: tone-set %q", lineNo, m[1])
				}
				s.ToneSets[ts.Name] = ts
				continue
			}
			inSets = false
		}

		m := sequenceLine.FindStringSubmatch(line)
		if m == nil {
			return nil, errors.Errorf("line %d: invalid time-sequence line %q", lineNo, line)
		}
		at, err := entryTime(m[1], &lastAbs)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		s.Sequence = append(s.Sequence, Entry{Time: at, ToneSet: m[2], Slide: m[3] != ""})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read schedule")
	}

	if len(s.ToneSets) == 0 {
		return nil, errors.New("no tone-set definitions found")
	}
	if len(s.Sequence) == 0 {
		return nil, errors.New("no time-sequence definitions found")
	}
	return s, nil
}

// entryTime resolves NOW, +relative and absolute times. Relative times count from the last absolute
// time.
func entryTime(spec string, lastAbs *float64) (float64, error) {
	switch {
	case spec == "NOW":
		*lastAbs = 0
		return 0, nil
	case strings.HasPrefix(spec, "+"):
		rel, err := ParseClock(strings.TrimPrefix(spec, "+"))
		if err != nil {
			return 0, errors.Wrapf(err, "relative time %q", spec)
		}
		return *lastAbs + rel, nil
	default:
		abs, err := ParseClock(spec)
		if err != nil {
			return 0, errors.Wrapf(err, "absolute time %q", spec)
		}
		*lastAbs = abs
		return abs, nil
	}
}

// ParseToneSet parses the specification part of a tone-set line. "-" is silence.
func ParseToneSet(name, spec string) (ToneSet, error) {
	ts := ToneSet{Name: name}
	if spec == "-" {
		return ts, nil
	}
	for _, part := range strings.Fields(spec) {
		switch {
		case strings.HasPrefix(part, "pink/"):
			amp, err := strconv.ParseFloat(strings.TrimPrefix(part, "pink/"), 64)
			if err != nil {
				return ts, errors.Errorf("invalid pink noise amplitude %q", part)
			}
			ts.NoiseVolume = amp / 100
		case strings.HasPrefix(part, "mix/"),
			strings.HasPrefix(part, "bell"),
			strings.HasPrefix(part, "spin:"),
			strings.HasPrefix(part, "wave"):
			continue
		default:
			m := toneSpec.FindStringSubmatch(part)
			if m == nil {
				return ts, errors.Errorf("invalid tone specification %q", part)
			}
			carrier, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return ts, errors.Errorf("invalid carrier frequency %q", m[1])
			}
			var beat float64
			if m[3] != "" {
				if beat, err = strconv.ParseFloat(m[3], 64); err != nil {
					return ts, errors.Errorf("invalid beat frequency %q", m[3])
				}
				if m[2] == "-" {
					beat = -beat
				}
			}
			var amp float64
			if m[4] != "" {
				if amp, err = strconv.ParseFloat(m[4], 64); err != nil {
					return ts, errors.Errorf("invalid tone amplitude %q", m[4])
				}
			}
			// the last tone wins the carrier; amplitudes add up
			ts.Carrier = carrier
			ts.Beat = beat
			ts.Volume += amp / 100
		}
	}
	return ts, nil
}

// ParseClock parses "hh:mm" or "hh:mm:ss" into seconds.
func ParseClock(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.Errorf("time %q must be hh:mm or hh:mm:ss", s)
	}
	var total int
	for i, unit := range []int{3600, 60, 1}[:len(parts)] {
		v, err := strconv.Atoi(parts[i])
		if err != nil || v < 0 {
			return 0, errors.Errorf("invalid field %q in time %q", parts[i], s)
		}
		total += v * unit
	}
	return float64(total), nil
}

// Points converts the sequence into timeline points sorted by time. A tone-set without a tone keeps
// the previous carrier so the tone pair can fade instead of jumping to zero Hz.
//
// The timeline always interpolates between points, so an entry that is not marked "->" gets an
// extra point just before its successor that holds its own values.
func (s *Schedule) Points() ([]timeline.Point, error) {
	var pts []timeline.Point
	carrier, beat := 0.0, 0.0
	for i, e := range s.Sequence {
		ts, ok := s.ToneSets[e.ToneSet]
		if !ok {
			return nil, errors.Errorf("tone-set %q not defined", e.ToneSet)
		}
		if ts.Carrier > 0 {
			carrier, beat = ts.Carrier, ts.Beat
		}
		p := timeline.Point{
			Time:            e.Time,
			Frequency:       carrier,
			BeatFrequency:   beat,
			ToneVolume:      ts.Volume,
			PinkNoiseOn:     ts.NoiseVolume > 0,
			PinkNoiseVolume: ts.NoiseVolume,
		}
		pts = append(pts, p)
		if !e.Slide && i+1 < len(s.Sequence) {
			if next := s.Sequence[i+1].Time; next-holdGap > e.Time {
				hold := p
				hold.Time = next - holdGap
				pts = append(pts, hold)
			}
		}
	}
	if carrier == 0 {
		return nil, errors.New("no tone-set defines a tone")
	}
	// silent sets before the first tone take its carrier
	first := 0
	for pts[first].Frequency == 0 {
		first++
	}
	for i := 0; i < first; i++ {
		pts[i].Frequency = pts[first].Frequency
		pts[i].BeatFrequency = pts[first].BeatFrequency
	}
	timeline.Sort(pts)
	return pts, nil
}

// holdGap is how long before the next entry a held entry hands over.
const holdGap = 1.0
