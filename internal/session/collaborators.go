package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

// Repository persists workout sessions. Implementations must treat a whole
// session as the write unit: UpdateSession replaces the stored aggregate with
// the given one, atomically.
type Repository interface {
	// FetchActiveSession returns the user's live (active or paused) session,
	// or (nil, nil) when there is none.
	FetchActiveSession(ctx context.Context, userID int) (*models.WorkoutSession, error)

	// FetchSession loads a full session aggregate. Returns ErrSessionNotFound
	// when no session has the given id.
	FetchSession(ctx context.Context, id uuid.UUID) (*models.WorkoutSession, error)

	// SaveSession inserts a new session. Returns ErrActiveSessionExists when
	// the user already has a live session.
	SaveSession(ctx context.Context, sess *models.WorkoutSession) error

	// UpdateSession replaces the stored aggregate atomically.
	UpdateSession(ctx context.Context, sess *models.WorkoutSession) error

	// DeleteSession removes a session and everything under it.
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// ListCompletedSessions returns completed sessions that started within
	// [start, end), newest first.
	ListCompletedSessions(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error)
}

// TemplateStore provides the workout templates sessions are started from.
type TemplateStore interface {
	FetchTemplate(ctx context.Context, id uuid.UUID) (*models.WorkoutTemplate, error)
	ListTemplates(ctx context.Context, userID int) ([]models.WorkoutTemplate, error)
}

// Catalog is the exercise definition store. It is read-mostly: the engine
// reads it when starting a session and writes back last-used values when a
// session ends.
type Catalog interface {
	FetchExercise(ctx context.Context, id uuid.UUID) (*models.CatalogExercise, error)
	ListExercises(ctx context.Context) ([]models.CatalogExercise, error)
	UpdateLastUsed(ctx context.Context, id uuid.UUID, weightKg float64, reps int, restSec *int, at time.Time) error
}

// HealthExporter mirrors session boundaries to an external health sink.
// Calls are best-effort: the engine logs failures and moves on, and a sink
// outage never blocks or fails a workout.
type HealthExporter interface {
	// StartSession announces a new workout and returns the sink's correlation
	// id for it.
	StartSession(ctx context.Context, workoutType string, start time.Time) (string, error)

	// EndSession closes out a previously started workout.
	EndSession(ctx context.Context, correlationID string, end time.Time, energyKcal float64, metadata map[string]string) error
}
