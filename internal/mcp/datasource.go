package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

// DataSource abstracts the session engine for MCP tools. Both *session.Service
// (local, direct database) and HTTPClient (remote via REST API) satisfy this
// interface.
type DataSource interface {
	Active(ctx context.Context, userID int) (*models.WorkoutSession, error)
	Start(ctx context.Context, userID int, templateID uuid.UUID) (*models.WorkoutSession, error)
	End(ctx context.Context, id uuid.UUID) (*models.WorkoutSession, error)
	Cancel(ctx context.Context, id uuid.UUID) error

	AddSet(ctx context.Context, sessionID, exerciseID uuid.UUID, weightKg float64, reps int, isWarmup bool) (*models.WorkoutSession, error)
	ToggleSet(ctx context.Context, sessionID, exerciseID, setID uuid.UUID) (*models.WorkoutSession, error)
	CompleteGroupSet(ctx context.Context, sessionID, groupID, exerciseID, setID uuid.UUID) (*models.WorkoutSession, error)
	AdvanceGroupRound(ctx context.Context, sessionID, groupID uuid.UUID) (*models.WorkoutSession, error)

	InsertWarmup(ctx context.Context, sessionID, exerciseID uuid.UUID, strategyName string) (*models.WorkoutSession, error)
	InsertWarmupAll(ctx context.Context, sessionID uuid.UUID, strategyName string) (*models.WorkoutSession, error)

	Templates(ctx context.Context, userID int) ([]models.WorkoutTemplate, error)
	History(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error)
}

// Compile-time check: *session.Service satisfies DataSource.
var _ DataSource = (*session.Service)(nil)
