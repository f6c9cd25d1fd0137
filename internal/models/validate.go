package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Validate checks every structural invariant of the aggregate. It is called
// by the use-case layer after each mutation, before the aggregate is
// persisted, so a bug in a mutation helper surfaces as an error instead of a
// corrupted row.
func (s *WorkoutSession) Validate() error {
	switch s.State {
	case StateActive, StatePaused, StateCompleted:
	default:
		return fmt.Errorf("unknown session state %q", s.State)
	}

	if s.State == StateCompleted && s.EndedAt == nil {
		return fmt.Errorf("completed session has no end time")
	}
	if s.IsLive() && s.EndedAt != nil {
		return fmt.Errorf("%s session has an end time", s.State)
	}

	seenOrder := make(map[int]uuid.UUID, len(s.Exercises))
	for i := range s.Exercises {
		ex := &s.Exercises[i]
		if prev, dup := seenOrder[ex.OrderIndex]; dup {
			return fmt.Errorf("exercises %s and %s share order index %d", prev, ex.ID, ex.OrderIndex)
		}
		seenOrder[ex.OrderIndex] = ex.ID

		if err := ex.validateSets(); err != nil {
			return fmt.Errorf("exercise %q: %w", ex.Name, err)
		}
	}

	for i := range s.Groups {
		if err := s.validateGroup(&s.Groups[i]); err != nil {
			return fmt.Errorf("group %d: %w", s.Groups[i].GroupIndex, err)
		}
	}

	return nil
}

// validateSets checks the gapless ordering invariant: the set order indexes
// of an exercise must be exactly {0, …, n-1} after every mutation.
func (e *SessionExercise) validateSets() error {
	seen := make([]bool, len(e.Sets))
	for i := range e.Sets {
		set := &e.Sets[i]
		if set.Weight < 0 {
			return fmt.Errorf("set %s has negative weight %.2f", set.ID, set.Weight)
		}
		if set.Reps < 0 {
			return fmt.Errorf("set %s has negative reps %d", set.ID, set.Reps)
		}
		if set.Completed != (set.CompletedAt != nil) {
			return fmt.Errorf("set %s completion flag and timestamp disagree", set.ID)
		}
		idx := set.OrderIndex
		if idx < 0 || idx >= len(e.Sets) {
			return fmt.Errorf("set order index %d outside 0..%d", idx, len(e.Sets)-1)
		}
		if seen[idx] {
			return fmt.Errorf("duplicate set order index %d", idx)
		}
		seen[idx] = true
	}
	return nil
}

func (s *WorkoutSession) validateGroup(g *ExerciseGroup) error {
	switch g.Kind {
	case GroupSuperset:
		if len(g.ExerciseIDs) != 2 {
			return fmt.Errorf("superset has %d members, want 2", len(g.ExerciseIDs))
		}
	case GroupCircuit:
		if len(g.ExerciseIDs) < 3 {
			return fmt.Errorf("circuit has %d members, want at least 3", len(g.ExerciseIDs))
		}
	default:
		return fmt.Errorf("unknown group kind %q", g.Kind)
	}

	if g.TotalRounds < 1 {
		return fmt.Errorf("total rounds %d, want at least 1", g.TotalRounds)
	}
	if g.CurrentRound < 1 || g.CurrentRound > g.TotalRounds {
		return fmt.Errorf("current round %d outside 1..%d", g.CurrentRound, g.TotalRounds)
	}

	for _, id := range g.ExerciseIDs {
		ex := s.Exercise(id)
		if ex == nil {
			return fmt.Errorf("member exercise %s not in session", id)
		}
		if len(ex.Sets) != g.TotalRounds {
			return fmt.Errorf("member %q has %d sets, want one per round (%d)",
				ex.Name, len(ex.Sets), g.TotalRounds)
		}
	}
	return nil
}
