package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutTemplate is the plan a session is started from. Templates are
// read-only here: they are seeded or imported, then snapshotted into
// sessions. Editing them is a different surface entirely.
type WorkoutTemplate struct {
	ID        uuid.UUID          `json:"id"`
	UserID    int                `json:"user_id"`
	Name      string             `json:"name"`
	Exercises []TemplateExercise `json:"exercises"`
	Groups    []TemplateGroup    `json:"groups,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// TemplateExercise is one planned exercise slot. The default weight/reps are
// the fallback when the catalog has no usage history for the exercise.
type TemplateExercise struct {
	ID                 uuid.UUID `json:"id"`
	CatalogID          uuid.UUID `json:"catalog_id"`
	Name               string    `json:"name"`
	OrderIndex         int       `json:"order_index"`
	DefaultSets        int       `json:"default_sets"`
	DefaultWeight      float64   `json:"default_weight"`
	DefaultReps        int       `json:"default_reps"`
	DefaultDurationSec float64   `json:"default_duration_sec,omitempty"`
	RestAfterSec       int       `json:"rest_after_sec,omitempty"`
}

// TemplateGroup declares a superset/circuit layout over template exercises.
// Member order is rotation order.
type TemplateGroup struct {
	ID                uuid.UUID   `json:"id"`
	Kind              GroupKind   `json:"kind"`
	GroupIndex        int         `json:"group_index"`
	ExerciseIDs       []uuid.UUID `json:"exercise_ids"`
	Rounds            int         `json:"rounds"`
	RestAfterRoundSec int         `json:"rest_after_round_sec,omitempty"`
}

// Exercise returns the template exercise with the given ID, or nil.
func (t *WorkoutTemplate) Exercise(id uuid.UUID) *TemplateExercise {
	for i := range t.Exercises {
		if t.Exercises[i].ID == id {
			return &t.Exercises[i]
		}
	}
	return nil
}
