package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of a workout session.
type SessionState string

const (
	StateActive    SessionState = "active"
	StatePaused    SessionState = "paused"
	StateCompleted SessionState = "completed"
)

// GroupKind distinguishes the two rotational training group shapes.
type GroupKind string

const (
	GroupSuperset GroupKind = "superset" // exactly two exercises
	GroupCircuit  GroupKind = "circuit"  // three or more stations
)

// WorkoutSession is the aggregate root for one training session. It owns its
// exercises, their sets, and any rotational groups; everything inside the
// aggregate is mutated together and persisted with a single write.
type WorkoutSession struct {
	ID         uuid.UUID    `json:"id"`
	UserID     int          `json:"user_id"`
	TemplateID uuid.UUID    `json:"template_id"`
	Name       string       `json:"name"`
	State      SessionState `json:"state"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    *time.Time   `json:"ended_at,omitempty"`

	// HealthSyncID correlates the session with the external health sink.
	// Empty until the sink acknowledges the start event.
	HealthSyncID string `json:"health_sync_id,omitempty"`

	Exercises []SessionExercise `json:"exercises"`
	Groups    []ExerciseGroup   `json:"groups,omitempty"`
}

// SessionExercise is one exercise performed during a session. Name is a
// snapshot taken at session start so later catalog renames don't rewrite
// history. OrderIndex is display order among siblings only.
type SessionExercise struct {
	ID           uuid.UUID    `json:"id"`
	CatalogID    uuid.UUID    `json:"catalog_id"`
	Name         string       `json:"name"`
	OrderIndex   int          `json:"order_index"`
	Note         string       `json:"note,omitempty"`
	RestAfterSec int          `json:"rest_after_sec,omitempty"`
	Finished     bool         `json:"finished"`
	Sets         []SessionSet `json:"sets"`
}

// SessionSet is a single set. Either Reps or DurationSec carries the
// performed volume depending on the exercise; the model stores both and the
// catalog exercise decides which one is meaningful. Warmup is immutable once
// the set exists and is the only source of truth for warmup status; never
// derive it from OrderIndex.
type SessionSet struct {
	ID          uuid.UUID  `json:"id"`
	OrderIndex  int        `json:"order_index"`
	Weight      float64    `json:"weight"`
	Reps        int        `json:"reps"`
	DurationSec float64    `json:"duration_sec,omitempty"`
	Warmup      bool       `json:"warmup"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RestSec     *int       `json:"rest_sec,omitempty"`
}

// ExerciseGroup is a superset or circuit rotation over member exercises.
// Members are referenced by session exercise ID in rotation order. Every
// member holds exactly TotalRounds sets, one per round, with the set's
// OrderIndex equal to the round index.
type ExerciseGroup struct {
	ID                uuid.UUID   `json:"id"`
	Kind              GroupKind   `json:"kind"`
	GroupIndex        int         `json:"group_index"`
	ExerciseIDs       []uuid.UUID `json:"exercise_ids"`
	CurrentRound      int         `json:"current_round"`
	TotalRounds       int         `json:"total_rounds"`
	RestAfterRoundSec int         `json:"rest_after_round_sec,omitempty"`
}

// IsLive reports whether the session still occupies the one-live-session
// slot (active or paused).
func (s *WorkoutSession) IsLive() bool {
	return s.State == StateActive || s.State == StatePaused
}

// Exercise returns a pointer to the exercise with the given ID, or nil.
func (s *WorkoutSession) Exercise(id uuid.UUID) *SessionExercise {
	for i := range s.Exercises {
		if s.Exercises[i].ID == id {
			return &s.Exercises[i]
		}
	}
	return nil
}

// Group returns a pointer to the group with the given ID, or nil.
func (s *WorkoutSession) Group(id uuid.UUID) *ExerciseGroup {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return &s.Groups[i]
		}
	}
	return nil
}

// Set returns a pointer to the set with the given ID, or nil.
func (e *SessionExercise) Set(id uuid.UUID) *SessionSet {
	for i := range e.Sets {
		if e.Sets[i].ID == id {
			return &e.Sets[i]
		}
	}
	return nil
}

// SetAt returns a pointer to the set with the given order index, or nil.
func (e *SessionExercise) SetAt(orderIndex int) *SessionSet {
	for i := range e.Sets {
		if e.Sets[i].OrderIndex == orderIndex {
			return &e.Sets[i]
		}
	}
	return nil
}

// HasWarmup reports whether any set of the exercise is flagged as warmup.
func (e *SessionExercise) HasWarmup() bool {
	for i := range e.Sets {
		if e.Sets[i].Warmup {
			return true
		}
	}
	return false
}

// FirstWorkingSet returns the non-warmup set with the lowest order index,
// or nil when the exercise has only warmup sets.
func (e *SessionExercise) FirstWorkingSet() *SessionSet {
	var best *SessionSet
	for i := range e.Sets {
		if e.Sets[i].Warmup {
			continue
		}
		if best == nil || e.Sets[i].OrderIndex < best.OrderIndex {
			best = &e.Sets[i]
		}
	}
	return best
}

// AllSetsCompleted reports whether every set of the exercise is completed.
// An exercise with no sets is not considered complete.
func (e *SessionExercise) AllSetsCompleted() bool {
	if len(e.Sets) == 0 {
		return false
	}
	for i := range e.Sets {
		if !e.Sets[i].Completed {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the session. Mutating the copy never touches
// the original's nested collections.
func (s *WorkoutSession) Clone() *WorkoutSession {
	out := *s
	out.EndedAt = cloneTimePtr(s.EndedAt)
	if s.Exercises != nil {
		out.Exercises = make([]SessionExercise, len(s.Exercises))
		for i := range s.Exercises {
			out.Exercises[i] = s.Exercises[i].Clone()
		}
	}
	if s.Groups != nil {
		out.Groups = make([]ExerciseGroup, len(s.Groups))
		for i := range s.Groups {
			out.Groups[i] = s.Groups[i].Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the exercise and its sets.
func (e SessionExercise) Clone() SessionExercise {
	out := e
	if e.Sets != nil {
		out.Sets = make([]SessionSet, len(e.Sets))
		for i := range e.Sets {
			out.Sets[i] = e.Sets[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the set.
func (t SessionSet) Clone() SessionSet {
	out := t
	out.CompletedAt = cloneTimePtr(t.CompletedAt)
	if t.RestSec != nil {
		v := *t.RestSec
		out.RestSec = &v
	}
	return out
}

// Clone returns a deep copy of the group.
func (g ExerciseGroup) Clone() ExerciseGroup {
	out := g
	if g.ExerciseIDs != nil {
		out.ExerciseIDs = make([]uuid.UUID, len(g.ExerciseIDs))
		copy(out.ExerciseIDs, g.ExerciseIDs)
	}
	return out
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
