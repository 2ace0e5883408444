// Command shoalsim runs the incident simulator headless: a single seeded
// run, or a calibration sweep against a historical counts file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/talgya/shoal-accord/internal/calibrate"
	"github.com/talgya/shoal-accord/internal/incident"
	"github.com/talgya/shoal-accord/internal/scenario"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	var (
		scenarioPath = flag.String("scenario", "", "scenario YAML file (empty = built-in baseline)")
		steps        = flag.Int("steps", 300, "simulation steps")
		seed         = flag.Int64("seed", 42, "random seed")
		alpha        = flag.Float64("alpha", 1.0, "risk-scale multiplier")
		baseP        = flag.Float64("base-p", 0.25, "initial incident pressure")
		bucket       = flag.Int("bucket", 20, "calibration bucket width in steps")
		histPath     = flag.String("calibrate", "", "historical counts JSON file; runs a calibration sweep")
		showEvents   = flag.Bool("events", false, "print every incident, not just the summary")
	)
	flag.Parse()

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scenario:", err)
		os.Exit(1)
	}

	agreement := sc.DefaultAgreement()
	env := sc.Environment(*seed)

	if *histPath != "" {
		runCalibration(sc, *histPath, *steps, *bucket)
		return
	}

	cfg := incident.Config{
		Alpha:       *alpha,
		BaseP:       *baseP,
		Composition: sc.PopulationComposition(),
	}
	sim := incident.NewSimulator(cfg, agreement, env, *seed)
	log := sim.Run(*steps)
	summary := incident.Summarize(log)

	fmt.Printf("scenario: %s\n", sc.Name)
	fmt.Printf("steps=%d seed=%d alpha=%.2f base_p=%.2f\n", *steps, *seed, cfg.Alpha, cfg.BaseP)
	fmt.Printf("incidents: %d  max severity: %.3f  final pressure: %.3f\n",
		summary.Incidents, summary.MaxSeverity, sim.Pressure())

	if *showEvents {
		for _, in := range log {
			fmt.Printf("  step %4d  %-17s severity %.3f\n", in.Step, incident.TypeName(in.Type), in.Severity)
		}
	}
}

func runCalibration(sc *scenario.Scenario, histPath string, steps, bucket int) {
	b, err := os.ReadFile(histPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "historical counts:", err)
		os.Exit(1)
	}
	var hist map[int]int
	if err := json.Unmarshal(b, &hist); err != nil {
		fmt.Fprintln(os.Stderr, "historical counts:", err)
		os.Exit(1)
	}

	search := calibrate.Search{
		Steps:       steps,
		Bucket:      bucket,
		Agreement:   sc.DefaultAgreement(),
		Environment: sc.Environment(1),
		Historical:  hist,
		Composition: sc.PopulationComposition(),
	}
	best, grid, err := search.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "calibration:", err)
		os.Exit(1)
	}

	fmt.Printf("calibration over %d candidates, %d steps, bucket %d:\n", len(grid), steps, bucket)
	for _, r := range grid {
		marker := " "
		if r == best {
			marker = "*"
		}
		fmt.Printf(" %s alpha=%.2f base_p=%.3f score=%.1f\n", marker, r.Alpha, r.BaseP, r.Score)
	}
	fmt.Printf("best: alpha=%.2f base_p=%.3f score=%.1f\n", best.Alpha, best.BaseP, best.Score)
}
