// Package warmup computes warmup set sequences for a working set. The
// calculator is a pure function over its inputs: identical working
// weight/reps, strategy, and settings always produce the identical plan.
package warmup

import (
	"fmt"
	"math"
	"sort"
)

// PlannedSet is one computed warmup step.
type PlannedSet struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// Strategy is an ordered percentage table. The percentages are fractions of
// the working weight, lightest first. Tables are data; loading a different
// table changes the ramp without touching the algorithm.
type Strategy struct {
	Name     string    `json:"name" yaml:"name"`
	Percents []float64 `json:"percents" yaml:"percents"`
}

// RepTier maps a percentage band to a rep adjustment relative to the working
// set. Bands are evaluated lightest-first; the first band whose upper bound
// covers the step's percentage wins.
type RepTier struct {
	UpToPercent float64 `json:"up_to_percent" yaml:"up_to_percent"`
	RepDelta    int     `json:"rep_delta" yaml:"rep_delta"`
}

// Settings holds the tunable constants of the calculator.
type Settings struct {
	// MinWorkingWeight disables warmup generation below this working weight.
	// Very light loads would round every step onto the working weight itself.
	MinWorkingWeight float64 `yaml:"min_working_weight"`
	// Increment is the rounding step for computed weights, typically the
	// smallest plate pair (2.5 in kg gyms).
	Increment float64 `yaml:"increment"`
	// MinPlateWeight is the lightest loadable warmup; steps rounding below
	// it are dropped.
	MinPlateWeight float64 `yaml:"min_plate_weight"`
	RepTiers       []RepTier `yaml:"rep_tiers"`
	RepCap         int       `yaml:"rep_cap"`
	RepFloor       int       `yaml:"rep_floor"`
}

// DefaultSettings returns the built-in calculator constants.
func DefaultSettings() Settings {
	return Settings{
		MinWorkingWeight: 10,
		Increment:        2.5,
		MinPlateWeight:   2.5,
		RepTiers: []RepTier{
			{UpToPercent: 0.5, RepDelta: 4},
			{UpToPercent: 0.7, RepDelta: 2},
			{UpToPercent: 1.0, RepDelta: -3},
		},
		RepCap:   15,
		RepFloor: 1,
	}
}

// Validate rejects malformed strategies: a usable table has 2–5 steps, each
// a fraction strictly between 0 and 1, in ascending order.
func (s Strategy) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("strategy has no name")
	}
	if len(s.Percents) < 2 || len(s.Percents) > 5 {
		return fmt.Errorf("strategy %q has %d steps, want 2..5", s.Name, len(s.Percents))
	}
	prev := 0.0
	for _, p := range s.Percents {
		if p <= 0 || p >= 1 {
			return fmt.Errorf("strategy %q: percentage %.2f outside (0,1)", s.Name, p)
		}
		if p <= prev {
			return fmt.Errorf("strategy %q: percentages not ascending at %.2f", s.Name, p)
		}
		prev = p
	}
	return nil
}

// Validate rejects malformed settings.
func (s Settings) Validate() error {
	if s.Increment <= 0 {
		return fmt.Errorf("increment must be positive, got %.2f", s.Increment)
	}
	if s.MinPlateWeight < 0 {
		return fmt.Errorf("min plate weight must not be negative, got %.2f", s.MinPlateWeight)
	}
	if s.RepFloor < 1 {
		return fmt.Errorf("rep floor must be at least 1, got %d", s.RepFloor)
	}
	if s.RepCap < s.RepFloor {
		return fmt.Errorf("rep cap %d below rep floor %d", s.RepCap, s.RepFloor)
	}
	if len(s.RepTiers) == 0 {
		return fmt.Errorf("no rep tiers configured")
	}
	if !sort.SliceIsSorted(s.RepTiers, func(i, j int) bool {
		return s.RepTiers[i].UpToPercent < s.RepTiers[j].UpToPercent
	}) {
		return fmt.Errorf("rep tiers not sorted by upper bound")
	}
	return nil
}

// Plan computes the warmup sequence for one working set. Steps that round
// below the minimum plate weight, or that fail to stay strictly below the
// working weight, are dropped. The returned slice is in strategy order
// (lightest first) and may be empty.
func Plan(workingWeight float64, workingReps int, strategy Strategy, s Settings) []PlannedSet {
	if workingWeight < s.MinWorkingWeight {
		return nil
	}

	var out []PlannedSet
	for _, p := range strategy.Percents {
		raw := workingWeight * p
		rounded := math.Round(raw/s.Increment) * s.Increment
		if rounded < s.MinPlateWeight || rounded >= workingWeight {
			continue
		}
		out = append(out, PlannedSet{
			Weight: rounded,
			Reps:   s.repsFor(p, workingReps),
		})
	}
	return out
}

// repsFor derives the step's rep count from its percentage band, clamped to
// the configured floor and cap.
func (s Settings) repsFor(percent float64, workingReps int) int {
	delta := s.RepTiers[len(s.RepTiers)-1].RepDelta
	for _, tier := range s.RepTiers {
		if percent <= tier.UpToPercent {
			delta = tier.RepDelta
			break
		}
	}
	reps := workingReps + delta
	if reps > s.RepCap {
		reps = s.RepCap
	}
	if reps < s.RepFloor {
		reps = s.RepFloor
	}
	return reps
}
