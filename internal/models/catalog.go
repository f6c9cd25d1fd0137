package models

import (
	"time"

	"github.com/google/uuid"
)

// CatalogExercise is the catalog's view of one exercise: the display name
// and the most recent working weight/reps, used to pre-fill new sessions.
// History fields are nil until the exercise has been performed once.
type CatalogExercise struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	TimeBased       bool       `json:"time_based"`
	LastUsedWeight  *float64   `json:"last_used_weight,omitempty"`
	LastUsedReps    *int       `json:"last_used_reps,omitempty"`
	LastUsedRestSec *int       `json:"last_used_rest_sec,omitempty"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
}
