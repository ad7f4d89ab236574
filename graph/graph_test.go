package graph

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseWaveform(t *testing.T) {
	for in, want := range map[string]Waveform{
		"sine":     Sine,
		" Square ": Square,
		"TRIANGLE": Triangle,
		"sawtooth": Sawtooth,
	} {
		got, err := ParseWaveform(in)
		if err != nil || got != want {
			t.Errorf("ParseWaveform(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	_, err := ParseWaveform("wobble")
	if err == nil || !strings.Contains(err.Error(), `unknown waveform "wobble"`) {
		t.Errorf("ParseWaveform(wobble) error %v", err)
	}
}

func TestWaveformText(t *testing.T) {
	var v struct {
		W Waveform `yaml:"w"`
	}
	if err := yaml.Unmarshal([]byte("w: triangle\n"), &v); err != nil || v.W != Triangle {
		t.Errorf("decoded %v, %v", v.W, err)
	}
	if _, err := Waveform(9).MarshalText(); err == nil {
		t.Error("invalid waveform marshalled")
	}
	if s := Waveform(9).String(); s != "Waveform(9)" {
		t.Errorf("String() = %q", s)
	}
}
