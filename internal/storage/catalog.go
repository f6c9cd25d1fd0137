package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

var _ session.Catalog = (*DB)(nil)

// FetchExercise loads one catalog exercise.
func (db *DB) FetchExercise(ctx context.Context, id uuid.UUID) (*models.CatalogExercise, error) {
	var ex models.CatalogExercise
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, time_based, last_used_weight_kg, last_used_reps, last_used_rest_sec, last_used_at
		 FROM exercise_catalog WHERE id = $1`,
		id).Scan(&ex.ID, &ex.Name, &ex.TimeBased, &ex.LastUsedWeight,
		&ex.LastUsedReps, &ex.LastUsedRestSec, &ex.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrExerciseNotFound
		}
		return nil, fmt.Errorf("querying catalog exercise: %w", err)
	}
	return &ex, nil
}

// ListExercises returns the whole catalog ordered by name.
func (db *DB) ListExercises(ctx context.Context) ([]models.CatalogExercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, time_based, last_used_weight_kg, last_used_reps, last_used_rest_sec, last_used_at
		 FROM exercise_catalog ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying exercise catalog: %w", err)
	}
	defer rows.Close()

	var exercises []models.CatalogExercise
	for rows.Next() {
		var ex models.CatalogExercise
		if err := rows.Scan(&ex.ID, &ex.Name, &ex.TimeBased, &ex.LastUsedWeight,
			&ex.LastUsedReps, &ex.LastUsedRestSec, &ex.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning catalog exercise: %w", err)
		}
		exercises = append(exercises, ex)
	}
	return exercises, rows.Err()
}

// UpdateLastUsed records the most recent working weight and reps for an
// exercise. Called once per exercise when a session completes.
func (db *DB) UpdateLastUsed(ctx context.Context, id uuid.UUID, weightKg float64, reps int, restSec *int, at time.Time) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE exercise_catalog
		 SET last_used_weight_kg = $2, last_used_reps = $3, last_used_rest_sec = $4, last_used_at = $5
		 WHERE id = $1`,
		id, weightKg, reps, restSec, at)
	if err != nil {
		return fmt.Errorf("updating last used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrExerciseNotFound
	}
	return nil
}

// InsertExercise adds a catalog entry. The importer uses it to register
// exercises it has not seen before.
func (db *DB) InsertExercise(ctx context.Context, ex *models.CatalogExercise) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO exercise_catalog (id, name, time_based, last_used_weight_kg, last_used_reps, last_used_rest_sec, last_used_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ex.ID, ex.Name, ex.TimeBased, ex.LastUsedWeight, ex.LastUsedReps, ex.LastUsedRestSec, ex.LastUsedAt)
	if err != nil {
		return fmt.Errorf("inserting catalog exercise: %w", err)
	}
	return nil
}

// FindExerciseByName looks an exercise up by exact name, or (nil, nil) when
// the catalog has no entry for it.
func (db *DB) FindExerciseByName(ctx context.Context, name string) (*models.CatalogExercise, error) {
	var ex models.CatalogExercise
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, time_based, last_used_weight_kg, last_used_reps, last_used_rest_sec, last_used_at
		 FROM exercise_catalog WHERE name = $1`,
		name).Scan(&ex.ID, &ex.Name, &ex.TimeBased, &ex.LastUsedWeight,
		&ex.LastUsedReps, &ex.LastUsedRestSec, &ex.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying catalog exercise by name: %w", err)
	}
	return &ex, nil
}

// SeedCatalog inserts the given exercises unless entries with the same name
// already exist. Returns how many were inserted.
func (db *DB) SeedCatalog(ctx context.Context, exercises []models.CatalogExercise) (int, error) {
	inserted := 0
	for i := range exercises {
		tag, err := db.Pool.Exec(ctx,
			`INSERT INTO exercise_catalog (id, name, time_based)
			 VALUES ($1,$2,$3)
			 ON CONFLICT (name) DO NOTHING`,
			exercises[i].ID, exercises[i].Name, exercises[i].TimeBased)
		if err != nil {
			return inserted, fmt.Errorf("seeding catalog: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
