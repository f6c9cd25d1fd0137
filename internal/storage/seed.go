package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

// DefaultCatalog is the exercise catalog a fresh install starts with. Names
// are unique; SeedCatalog skips any the importer or a previous run already
// created.
func DefaultCatalog() []models.CatalogExercise {
	names := []struct {
		name      string
		timeBased bool
	}{
		{"Barbell Squat", false},
		{"Barbell Bench Press", false},
		{"Barbell Deadlift", false},
		{"Barbell Row", false},
		{"Overhead Press", false},
		{"Romanian Deadlift", false},
		{"Pull-Up", false},
		{"Dip", false},
		{"Dumbbell Lunge", false},
		{"Dumbbell Curl", false},
		{"Lateral Raise", false},
		{"Leg Press", false},
		{"Leg Curl", false},
		{"Cable Row", false},
		{"Lat Pulldown", false},
		{"Face Pull", false},
		{"Calf Raise", false},
		{"Plank", true},
		{"Hanging Leg Raise", false},
	}

	catalog := make([]models.CatalogExercise, 0, len(names))
	for _, n := range names {
		catalog = append(catalog, models.CatalogExercise{
			ID:        uuid.New(),
			Name:      n.name,
			TimeBased: n.timeBased,
		})
	}
	return catalog
}

// Seed fills the exercise catalog and gives the user a starter template when
// they have none. Idempotent: catalog rows conflict on name, and the template
// is only created for an empty template list.
func (db *DB) Seed(ctx context.Context, log *slog.Logger, userID int) error {
	inserted, err := db.SeedCatalog(ctx, DefaultCatalog())
	if err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}
	if inserted > 0 {
		log.Info("seeded exercise catalog", "inserted", inserted)
	}

	templates, err := db.ListTemplates(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing templates: %w", err)
	}
	if len(templates) > 0 {
		return nil
	}

	tpl, err := db.starterTemplate(ctx, userID)
	if err != nil {
		return err
	}
	if err := db.InsertTemplate(ctx, tpl); err != nil {
		return fmt.Errorf("inserting starter template: %w", err)
	}
	log.Info("created starter template", "user_id", userID, "name", tpl.Name)
	return nil
}

// starterTemplate builds a basic full-body plan from the seeded catalog,
// ending in a core superset so group rotation is visible from day one.
func (db *DB) starterTemplate(ctx context.Context, userID int) (*models.WorkoutTemplate, error) {
	plan := []struct {
		name    string
		sets    int
		weight  float64
		reps    int
		seconds float64
		rest    int
	}{
		{name: "Barbell Squat", sets: 3, weight: 60, reps: 5, rest: 180},
		{name: "Barbell Bench Press", sets: 3, weight: 40, reps: 5, rest: 180},
		{name: "Barbell Row", sets: 3, weight: 40, reps: 8, rest: 120},
		{name: "Plank", sets: 3, seconds: 45, rest: 60},
		{name: "Hanging Leg Raise", sets: 3, reps: 10, rest: 60},
	}

	tpl := &models.WorkoutTemplate{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "Full Body A",
		CreatedAt: time.Now(),
	}
	for i, p := range plan {
		cat, err := db.FindExerciseByName(ctx, p.name)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", p.name, err)
		}
		if cat == nil {
			return nil, fmt.Errorf("catalog is missing %q", p.name)
		}
		tpl.Exercises = append(tpl.Exercises, models.TemplateExercise{
			ID:                 uuid.New(),
			CatalogID:          cat.ID,
			Name:               p.name,
			OrderIndex:         i,
			DefaultSets:        p.sets,
			DefaultWeight:      p.weight,
			DefaultReps:        p.reps,
			DefaultDurationSec: p.seconds,
			RestAfterSec:       p.rest,
		})
	}

	// Plank and leg raises alternate as a superset.
	tpl.Groups = []models.TemplateGroup{{
		ID:         uuid.New(),
		Kind:       models.GroupSuperset,
		GroupIndex: 0,
		ExerciseIDs: []uuid.UUID{
			tpl.Exercises[3].ID,
			tpl.Exercises[4].ID,
		},
		Rounds:            3,
		RestAfterRoundSec: 90,
	}}
	return tpl, nil
}
