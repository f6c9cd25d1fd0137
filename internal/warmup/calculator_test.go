package warmup

import (
	"math"
	"reflect"
	"testing"
)

// TestPlanThreeStepRamp verifies the canonical ramp: 100 kg × 8 reps with a
// 40/60/80% table and 2.5 rounding yields 40/60/80 kg, more reps than the
// working set on the lightest step and fewer on the heaviest.
func TestPlanThreeStepRamp(t *testing.T) {
	strategy := Strategy{Name: "test", Percents: []float64{0.4, 0.6, 0.8}}
	got := Plan(100, 8, strategy, DefaultSettings())

	if len(got) != 3 {
		t.Fatalf("Plan() returned %d sets, want 3", len(got))
	}
	wantWeights := []float64{40, 60, 80}
	for i, w := range wantWeights {
		if got[i].Weight != w {
			t.Errorf("step %d weight = %.1f, want %.1f", i, got[i].Weight, w)
		}
	}
	if got[0].Reps < 8 {
		t.Errorf("lightest step reps = %d, want >= 8", got[0].Reps)
	}
	if got[2].Reps > 8 {
		t.Errorf("heaviest step reps = %d, want <= 8", got[2].Reps)
	}
}

// TestPlanDeterministic verifies identical inputs produce identical output.
func TestPlanDeterministic(t *testing.T) {
	strategy := Strategy{Name: "test", Percents: []float64{0.4, 0.6, 0.8}}
	s := DefaultSettings()
	a := Plan(100, 8, strategy, s)
	b := Plan(100, 8, strategy, s)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Plan() not deterministic: %v vs %v", a, b)
	}
}

// TestPlanSkipsLightLoads verifies that working weights below the configured
// minimum produce no warmup at all.
func TestPlanSkipsLightLoads(t *testing.T) {
	for _, strategy := range DefaultStrategies() {
		if got := Plan(7.5, 8, strategy, DefaultSettings()); len(got) != 0 {
			t.Errorf("Plan(7.5, 8, %q) = %v, want empty", strategy.Name, got)
		}
	}
}

// TestPlanDiscardRules verifies both discard conditions: steps rounding onto
// or above the working weight, and steps rounding below the minimum plate.
func TestPlanDiscardRules(t *testing.T) {
	s := DefaultSettings()

	// 95% of 20 rounds to 20, not strictly below the working weight.
	high := Strategy{Name: "high", Percents: []float64{0.5, 0.95}}
	got := Plan(20, 10, high, s)
	if len(got) != 1 || got[0].Weight != 10 {
		t.Errorf("Plan(20, 10, high) = %v, want only the 10.0 step", got)
	}

	// 10% of 10 rounds to 0, below the minimum plate.
	low := Strategy{Name: "low", Percents: []float64{0.1, 0.6}}
	got = Plan(10, 10, low, s)
	if len(got) != 1 {
		t.Fatalf("Plan(10, 10, low) = %v, want one step", got)
	}
	if got[0].Weight < s.MinPlateWeight {
		t.Errorf("surviving step weight = %.1f, below min plate %.1f", got[0].Weight, s.MinPlateWeight)
	}
}

// TestPlanRounding verifies weights land on the configured increment.
func TestPlanRounding(t *testing.T) {
	strategy := Strategy{Name: "test", Percents: []float64{0.43, 0.67}}
	got := Plan(102.5, 5, strategy, DefaultSettings())
	for _, set := range got {
		ratio := set.Weight / 2.5
		if math.Abs(ratio-math.Round(ratio)) > 1e-9 {
			t.Errorf("weight %.3f not on 2.5 increment", set.Weight)
		}
	}
}

// TestRepsClamped verifies rep adjustments respect the floor and cap.
func TestRepsClamped(t *testing.T) {
	s := DefaultSettings()

	// Working reps 14 + lightest-tier delta would exceed the cap of 15.
	if got := s.repsFor(0.4, 14); got != 15 {
		t.Errorf("repsFor(0.4, 14) = %d, want capped 15", got)
	}
	// Working reps 2 + heaviest-tier delta would drop below the floor of 1.
	if got := s.repsFor(0.9, 2); got != 1 {
		t.Errorf("repsFor(0.9, 2) = %d, want floor 1", got)
	}
}

// TestDefaultStrategies verifies the shipped tables: at least three named
// strategies, each passing its own validation.
func TestDefaultStrategies(t *testing.T) {
	strategies := DefaultStrategies()
	if len(strategies) < 3 {
		t.Fatalf("DefaultStrategies() = %d strategies, want >= 3", len(strategies))
	}
	seen := map[string]bool{}
	for _, s := range strategies {
		if err := s.Validate(); err != nil {
			t.Errorf("strategy %q invalid: %v", s.Name, err)
		}
		if seen[s.Name] {
			t.Errorf("duplicate strategy name %q", s.Name)
		}
		seen[s.Name] = true
	}
}

// TestStrategyValidate exercises the strategy shape rules.
func TestStrategyValidate(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		wantErr  bool
	}{
		{"valid", Strategy{Name: "ok", Percents: []float64{0.4, 0.6, 0.8}}, false},
		{"two steps", Strategy{Name: "ok", Percents: []float64{0.5, 0.75}}, false},
		{"five steps", Strategy{Name: "ok", Percents: []float64{0.3, 0.45, 0.6, 0.75, 0.9}}, false},
		{"one step", Strategy{Name: "bad", Percents: []float64{0.5}}, true},
		{"six steps", Strategy{Name: "bad", Percents: []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7}}, true},
		{"no name", Strategy{Percents: []float64{0.4, 0.6}}, true},
		{"descending", Strategy{Name: "bad", Percents: []float64{0.6, 0.4}}, true},
		{"at one", Strategy{Name: "bad", Percents: []float64{0.5, 1.0}}, true},
		{"zero", Strategy{Name: "bad", Percents: []float64{0, 0.5}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.strategy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestSettingsValidate exercises the settings shape rules.
func TestSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero increment", func(s *Settings) { s.Increment = 0 }},
		{"negative plate", func(s *Settings) { s.MinPlateWeight = -1 }},
		{"zero floor", func(s *Settings) { s.RepFloor = 0 }},
		{"cap below floor", func(s *Settings) { s.RepCap = 0 }},
		{"no tiers", func(s *Settings) { s.RepTiers = nil }},
		{"unsorted tiers", func(s *Settings) {
			s.RepTiers = []RepTier{{UpToPercent: 0.7, RepDelta: 2}, {UpToPercent: 0.5, RepDelta: 4}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
