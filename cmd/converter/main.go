package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/Wundark/binaural-engine/internal/config"
	"github.com/Wundark/binaural-engine/internal/sbagen"
)

func main() {
	inputFile := flag.String("input", "", "Path to the Sbagen input file")
	outputFile := flag.String("output", "", "Path to the YAML output file (optional, defaults to stdout)")
	flag.Parse()

	if *inputFile == "" {
		log.Fatal("Input file is required. Use -input <path> to specify the Sbagen file.")
	}

	file, err := os.Open(*inputFile)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer file.Close()

	data, err := convert(file)
	if err != nil {
		log.Fatalf("Failed to convert %s: %v", *inputFile, err)
	}

	if *outputFile == "" {
		fmt.Print(string(data))
		return
	}
	if err := os.WriteFile(*outputFile, data, 0o644); err != nil {
		log.Fatalf("Failed to write YAML to file: %v", err)
	}
}

// convert turns an Sbagen schedule into a session file the player accepts.
func convert(r io.Reader) ([]byte, error) {
	schedule, err := sbagen.Parse(r)
	if err != nil {
		return nil, err
	}
	points, err := schedule.Points()
	if err != nil {
		return nil, err
	}
	cfg := &config.Config{Changes: points}

	// check the result the way the player will load it
	check := config.Default()
	check.Changes = points
	if err := check.Validate(); err != nil {
		return nil, errors.Wrap(err, "converted session")
	}
	return cfg.Marshal()
}
