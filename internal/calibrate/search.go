// Package calibrate fits the incident simulator's free parameters to
// historical incident counts by exhaustive grid search over (alpha, base
// pressure), scored by summed squared bucket error across a fixed seed set.
package calibrate

import (
	"fmt"
	"sync"

	"github.com/talgya/shoal-accord/internal/accord"
	"github.com/talgya/shoal-accord/internal/incident"
	"github.com/talgya/shoal-accord/internal/marine"
)

// InvalidParameterError reports a calibration argument outside its accepted
// range.
type InvalidParameterError struct {
	Param string
	Value any
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("calibration parameter %s=%v out of range", e.Param, e.Value)
}

// Result is one evaluated candidate: its parameters and aggregate error.
type Result struct {
	Alpha float64 `json:"alpha"`
	BaseP float64 `json:"base_p"`
	Score float64 `json:"score"`
}

// Search describes one calibration job. Zero-valued grid and seed fields
// fall back to the defaults below.
type Search struct {
	Steps       int
	Bucket      int
	Agreement   *accord.Agreement
	Environment marine.Environment
	Historical  map[int]int
	Composition incident.Composition

	Alphas []float64
	BasePs []float64
	Seeds  []int64
}

// Default candidate grid and seed set. The grid is deliberately small and
// coarse so a full sweep stays interactive.
var (
	DefaultAlphas = []float64{0.6, 0.8, 1.0, 1.2, 1.4}
	DefaultBasePs = []float64{0.10, 0.15, 0.20, 0.25, 0.30}
	DefaultSeeds  = []int64{17, 29, 43}
)

// BucketCounts aggregates an incident log into fixed-width step buckets,
// keyed by bucket start.
func BucketCounts(log []incident.Incident, width int) (map[int]int, error) {
	if width <= 0 {
		return nil, &InvalidParameterError{Param: "bucket", Value: width}
	}
	counts := make(map[int]int)
	for _, in := range log {
		counts[(in.Step/width)*width]++
	}
	return counts, nil
}

// SquaredError sums squared per-bucket count differences over the union of
// keys in either series; a key missing on one side counts as zero there.
func SquaredError(sim, hist map[int]int) float64 {
	var sse float64
	for k, s := range sim {
		d := float64(s - hist[k])
		sse += d * d
	}
	for k, h := range hist {
		if _, seen := sim[k]; !seen {
			sse += float64(h) * float64(h)
		}
	}
	return sse
}

// Run sweeps the full candidate grid and returns the lowest-error
// (alpha, base pressure, score) triple along with every evaluated candidate.
// Candidates are independent, so each is scored on its own goroutine with
// run-scoped generators; results are folded by minimum score. Ties go to
// the earlier grid position so the sweep stays deterministic.
func (s Search) Run() (Result, []Result, error) {
	if s.Steps <= 0 {
		return Result{}, nil, &InvalidParameterError{Param: "steps", Value: s.Steps}
	}
	if s.Bucket <= 0 {
		return Result{}, nil, &InvalidParameterError{Param: "bucket", Value: s.Bucket}
	}

	alphas := s.Alphas
	if len(alphas) == 0 {
		alphas = DefaultAlphas
	}
	basePs := s.BasePs
	if len(basePs) == 0 {
		basePs = DefaultBasePs
	}
	seeds := s.Seeds
	if len(seeds) == 0 {
		seeds = DefaultSeeds
	}
	hist := s.Historical
	if hist == nil {
		// Best effort against an all-zero baseline; calibration never
		// refuses to run.
		hist = map[int]int{}
	}

	results := make([]Result, len(alphas)*len(basePs))
	var wg sync.WaitGroup
	for i, alpha := range alphas {
		for j, baseP := range basePs {
			wg.Add(1)
			go func(slot int, alpha, baseP float64) {
				defer wg.Done()
				results[slot] = Result{
					Alpha: alpha,
					BaseP: baseP,
					Score: s.score(alpha, baseP, seeds, hist),
				}
			}(i*len(basePs)+j, alpha, baseP)
		}
	}
	wg.Wait()

	best := results[0]
	for _, r := range results[1:] {
		if r.Score < best.Score {
			best = r
		}
	}
	return best, results, nil
}

// score runs one candidate across every seed and sums the bucket error.
func (s Search) score(alpha, baseP float64, seeds []int64, hist map[int]int) float64 {
	cfg := incident.Config{Alpha: alpha, BaseP: baseP, Composition: s.Composition}

	var total float64
	for _, seed := range seeds {
		sim := incident.NewSimulator(cfg, s.Agreement, s.Environment, seed)
		log := sim.Run(s.Steps)
		counts, _ := BucketCounts(log, s.Bucket) // width validated in Run
		total += SquaredError(counts, hist)
	}
	return total
}
