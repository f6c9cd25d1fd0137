package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func validSession() *WorkoutSession {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	completed := now.Add(2 * time.Minute)
	rest := 90
	return &WorkoutSession{
		ID:         uuid.New(),
		UserID:     1,
		TemplateID: uuid.New(),
		Name:       "Push Day",
		State:      StateActive,
		StartedAt:  now,
		Exercises: []SessionExercise{
			{
				ID:         uuid.New(),
				CatalogID:  uuid.New(),
				Name:       "Bench Press",
				OrderIndex: 0,
				Sets: []SessionSet{
					{ID: uuid.New(), OrderIndex: 0, Weight: 80, Reps: 8, Completed: true, CompletedAt: &completed, RestSec: &rest},
					{ID: uuid.New(), OrderIndex: 1, Weight: 80, Reps: 8},
				},
			},
			{
				ID:         uuid.New(),
				CatalogID:  uuid.New(),
				Name:       "Overhead Press",
				OrderIndex: 1,
				Sets: []SessionSet{
					{ID: uuid.New(), OrderIndex: 0, Weight: 40, Reps: 10},
				},
			},
		},
	}
}

// TestValidateAccepts verifies that a well-formed aggregate passes validation.
func TestValidateAccepts(t *testing.T) {
	if err := validSession().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

// TestValidateRejects exercises each invariant with a minimally broken
// aggregate and expects a validation error.
func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		mutate func(*WorkoutSession)
	}{
		{
			name:  "unknown state",
			mutate: func(s *WorkoutSession) { s.State = "resting" },
		},
		{
			name:  "completed without end time",
			mutate: func(s *WorkoutSession) { s.State = StateCompleted },
		},
		{
			name: "active with end time",
			mutate: func(s *WorkoutSession) {
				end := s.StartedAt.Add(time.Hour)
				s.EndedAt = &end
			},
		},
		{
			name:  "duplicate exercise order index",
			mutate: func(s *WorkoutSession) { s.Exercises[1].OrderIndex = 0 },
		},
		{
			name:  "set order index gap",
			mutate: func(s *WorkoutSession) { s.Exercises[0].Sets[1].OrderIndex = 2 },
		},
		{
			name:  "duplicate set order index",
			mutate: func(s *WorkoutSession) { s.Exercises[0].Sets[1].OrderIndex = 0 },
		},
		{
			name:  "negative weight",
			mutate: func(s *WorkoutSession) { s.Exercises[0].Sets[0].Weight = -5 },
		},
		{
			name:  "negative reps",
			mutate: func(s *WorkoutSession) { s.Exercises[0].Sets[1].Reps = -1 },
		},
		{
			name:  "completed set without timestamp",
			mutate: func(s *WorkoutSession) { s.Exercises[0].Sets[0].CompletedAt = nil },
		},
		{
			name: "timestamp without completion",
			mutate: func(s *WorkoutSession) {
				at := s.StartedAt
				s.Exercises[0].Sets[1].CompletedAt = &at
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSession()
			tt.mutate(s)
			if err := s.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func groupedSession(kind GroupKind, members, rounds int) *WorkoutSession {
	s := &WorkoutSession{
		ID:        uuid.New(),
		UserID:    1,
		Name:      "Superset A",
		State:     StateActive,
		StartedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	g := ExerciseGroup{
		ID:           uuid.New(),
		Kind:         kind,
		CurrentRound: 1,
		TotalRounds:  rounds,
	}
	for i := 0; i < members; i++ {
		ex := SessionExercise{
			ID:         uuid.New(),
			CatalogID:  uuid.New(),
			Name:       "Station",
			OrderIndex: i,
		}
		for r := 0; r < rounds; r++ {
			ex.Sets = append(ex.Sets, SessionSet{ID: uuid.New(), OrderIndex: r, Weight: 20, Reps: 12})
		}
		g.ExerciseIDs = append(g.ExerciseIDs, ex.ID)
		s.Exercises = append(s.Exercises, ex)
	}
	s.Groups = []ExerciseGroup{g}
	return s
}

// TestValidateGroups verifies the group invariants: member counts per kind,
// round bounds, and one-set-per-round membership.
func TestValidateGroups(t *testing.T) {
	if err := groupedSession(GroupSuperset, 2, 3).Validate(); err != nil {
		t.Errorf("valid superset: Validate() = %v, want nil", err)
	}
	if err := groupedSession(GroupCircuit, 3, 2).Validate(); err != nil {
		t.Errorf("valid circuit: Validate() = %v, want nil", err)
	}

	tests := []struct {
		name  string
		build func() *WorkoutSession
	}{
		{
			name:  "superset with three members",
			build: func() *WorkoutSession { return groupedSession(GroupSuperset, 3, 2) },
		},
		{
			name:  "circuit with two members",
			build: func() *WorkoutSession { return groupedSession(GroupCircuit, 2, 2) },
		},
		{
			name: "round above total",
			build: func() *WorkoutSession {
				s := groupedSession(GroupSuperset, 2, 3)
				s.Groups[0].CurrentRound = 4
				return s
			},
		},
		{
			name: "round below one",
			build: func() *WorkoutSession {
				s := groupedSession(GroupSuperset, 2, 3)
				s.Groups[0].CurrentRound = 0
				return s
			},
		},
		{
			name: "member set count differs from rounds",
			build: func() *WorkoutSession {
				s := groupedSession(GroupSuperset, 2, 3)
				s.Exercises[0].Sets = s.Exercises[0].Sets[:2]
				return s
			},
		},
		{
			name: "member missing from session",
			build: func() *WorkoutSession {
				s := groupedSession(GroupSuperset, 2, 3)
				s.Groups[0].ExerciseIDs[1] = uuid.New()
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.build().Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

// TestCloneIsDeep verifies that mutating a clone's nested collections and
// pointer fields leaves the original untouched. The engine relies on this to
// make partial-mutation bugs structurally impossible.
func TestCloneIsDeep(t *testing.T) {
	orig := validSession()
	origSetID := orig.Exercises[0].Sets[0].ID
	origRest := *orig.Exercises[0].Sets[0].RestSec

	c := orig.Clone()
	c.Exercises[0].Sets[0].ID = uuid.New()
	c.Exercises[0].Sets[0].Weight = 999
	*c.Exercises[0].Sets[0].RestSec = 5
	c.Exercises[0].Sets = append(c.Exercises[0].Sets, SessionSet{ID: uuid.New(), OrderIndex: 2, Weight: 80, Reps: 8})
	c.Exercises = append(c.Exercises, SessionExercise{ID: uuid.New(), OrderIndex: 2})
	end := time.Now()
	c.EndedAt = &end

	if orig.Exercises[0].Sets[0].ID != origSetID {
		t.Error("clone mutation changed original set ID")
	}
	if orig.Exercises[0].Sets[0].Weight == 999 {
		t.Error("clone mutation changed original set weight")
	}
	if *orig.Exercises[0].Sets[0].RestSec != origRest {
		t.Error("clone mutation changed original rest pointer target")
	}
	if len(orig.Exercises[0].Sets) != 2 {
		t.Errorf("original set count = %d, want 2", len(orig.Exercises[0].Sets))
	}
	if len(orig.Exercises) != 2 {
		t.Errorf("original exercise count = %d, want 2", len(orig.Exercises))
	}
	if orig.EndedAt != nil {
		t.Error("clone mutation set original end time")
	}
}

// TestCloneGroups verifies the group member slice is copied, not shared.
func TestCloneGroups(t *testing.T) {
	orig := groupedSession(GroupSuperset, 2, 3)
	first := orig.Groups[0].ExerciseIDs[0]

	c := orig.Clone()
	c.Groups[0].ExerciseIDs[0] = uuid.New()
	c.Groups[0].CurrentRound = 3

	if orig.Groups[0].ExerciseIDs[0] != first {
		t.Error("clone mutation changed original group membership")
	}
	if orig.Groups[0].CurrentRound != 1 {
		t.Errorf("original current round = %d, want 1", orig.Groups[0].CurrentRound)
	}
}

// TestFirstWorkingSet verifies warmup sets are skipped and the lowest order
// index wins.
func TestFirstWorkingSet(t *testing.T) {
	ex := SessionExercise{
		Sets: []SessionSet{
			{OrderIndex: 0, Warmup: true, Weight: 40, Reps: 10},
			{OrderIndex: 2, Weight: 85, Reps: 6},
			{OrderIndex: 1, Weight: 80, Reps: 8},
		},
	}
	got := ex.FirstWorkingSet()
	if got == nil {
		t.Fatal("FirstWorkingSet() = nil, want set")
	}
	if got.OrderIndex != 1 || got.Weight != 80 {
		t.Errorf("FirstWorkingSet() order=%d weight=%.0f, want order=1 weight=80", got.OrderIndex, got.Weight)
	}

	onlyWarmup := SessionExercise{Sets: []SessionSet{{OrderIndex: 0, Warmup: true}}}
	if onlyWarmup.FirstWorkingSet() != nil {
		t.Error("FirstWorkingSet() on warmup-only exercise should be nil")
	}
}

// TestAllSetsCompleted verifies the derived-finished source predicate,
// including the empty-exercise case.
func TestAllSetsCompleted(t *testing.T) {
	at := time.Now()
	ex := SessionExercise{Sets: []SessionSet{
		{OrderIndex: 0, Completed: true, CompletedAt: &at},
		{OrderIndex: 1, Completed: true, CompletedAt: &at},
	}}
	if !ex.AllSetsCompleted() {
		t.Error("AllSetsCompleted() = false, want true")
	}
	ex.Sets[1].Completed = false
	if ex.AllSetsCompleted() {
		t.Error("AllSetsCompleted() = true with an open set, want false")
	}
	empty := SessionExercise{}
	if empty.AllSetsCompleted() {
		t.Error("AllSetsCompleted() = true for empty exercise, want false")
	}
}
