// File: cmd/headlessreport/main.go
// Project: Starwake battle core
// Description: JSON-in/JSON-out headless battle runner
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-07

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kaspar-vey/starwake/internal/battle"
	"github.com/kaspar-vey/starwake/internal/metrics"
)

var (
	inputPath  = flag.String("in", "-", "Path to a JSON array of unit records, or - for stdin")
	outputPath = flag.String("out", "-", "Path to write the JSON report, or - for stdout")
	maxTicks   = flag.Int("ticks", 5000, "Maximum ticks to run before giving up")
)

// report is the full headless-run output: every tick's result plus the
// terminal summary, demonstrating the host-embedding boundary end to end.
type report struct {
	IngestErrors []battle.IngestError     `json:"ingest_errors,omitempty"`
	Ticks        []battle.TickResult      `json:"ticks"`
	Summary      battle.BattleSummary     `json:"summary"`
	Metrics      *metrics.MetricsSnapshot `json:"metrics"`
}

func main() {
	flag.Parse()

	input, err := readInput(*inputPath)
	if err != nil {
		log.Fatalf("reading input: %v", err)
	}

	var records []battle.UnitRecord
	if err := json.Unmarshal(input, &records); err != nil {
		log.Fatalf("parsing unit records: %v", err)
	}

	sim, ingestErrors := battle.NewSimulator(records)

	rep := report{IngestErrors: ingestErrors}

	collector := metrics.Global()

	for i := 0; i < *maxTicks; i++ {
		start := time.Now()
		result := sim.Tick(1.0, float64(i))

		var alive int64
		for _, u := range sim.Units() {
			if u.Alive {
				alive++
			}
		}
		collector.RecordTickActivity(len(result.WeaponsFired), len(result.Destroyed), alive, time.Since(start))

		rep.Ticks = append(rep.Ticks, result)
		if sim.IsBattleEnded() {
			break
		}
	}

	rep.Summary = sim.Summary(uuid.New())
	if sim.IsBattleEnded() {
		collector.IncrementBattlesEnded()
		if rep.Summary.StalematedAt != nil {
			collector.IncrementStalematesDeclared()
		}
	}
	rep.Metrics = collector.Snapshot()

	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Fatalf("marshaling report: %v", err)
	}

	if err := writeOutput(*outputPath, out); err != nil {
		log.Fatalf("writing output: %v", err)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := fmt.Println(string(data))
		return err
	}
	return os.WriteFile(path, data, 0644)
}
