package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

var _ session.TemplateStore = (*DB)(nil)

// FetchTemplate loads one template with its exercises and groups.
func (db *DB) FetchTemplate(ctx context.Context, id uuid.UUID) (*models.WorkoutTemplate, error) {
	var tpl models.WorkoutTemplate
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, created_at FROM workout_templates WHERE id = $1`,
		id).Scan(&tpl.ID, &tpl.UserID, &tpl.Name, &tpl.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("querying template: %w", err)
	}
	if err := loadTemplateChildren(ctx, db.Pool, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListTemplates returns the user's templates, newest first.
func (db *DB) ListTemplates(ctx context.Context, userID int) ([]models.WorkoutTemplate, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, created_at FROM workout_templates
		 WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var templates []models.WorkoutTemplate
	for rows.Next() {
		var tpl models.WorkoutTemplate
		if err := rows.Scan(&tpl.ID, &tpl.UserID, &tpl.Name, &tpl.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range templates {
		if err := loadTemplateChildren(ctx, db.Pool, &templates[i]); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

// InsertTemplate stores a template with all children in one transaction. Used
// by the catalog seeder and the history importer.
func (db *DB) InsertTemplate(ctx context.Context, tpl *models.WorkoutTemplate) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO workout_templates (id, user_id, name, created_at)
		 VALUES ($1,$2,$3,$4)`,
		tpl.ID, tpl.UserID, tpl.Name, tpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}

	for _, ex := range tpl.Exercises {
		_, err := tx.Exec(ctx,
			`INSERT INTO template_exercises (id, template_id, catalog_id, name, order_index,
			 default_sets, default_weight_kg, default_reps, default_duration_sec, rest_after_sec)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			ex.ID, tpl.ID, ex.CatalogID, ex.Name, ex.OrderIndex,
			ex.DefaultSets, ex.DefaultWeight, ex.DefaultReps, ex.DefaultDurationSec, ex.RestAfterSec)
		if err != nil {
			return fmt.Errorf("inserting template exercise: %w", err)
		}
	}

	for _, g := range tpl.Groups {
		_, err := tx.Exec(ctx,
			`INSERT INTO template_groups (id, template_id, kind, group_index, rounds, rest_after_round_sec)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			g.ID, tpl.ID, string(g.Kind), g.GroupIndex, g.Rounds, g.RestAfterRoundSec)
		if err != nil {
			return fmt.Errorf("inserting template group: %w", err)
		}
		for pos, exID := range g.ExerciseIDs {
			_, err := tx.Exec(ctx,
				`INSERT INTO template_group_members (group_id, exercise_id, position)
				 VALUES ($1,$2,$3)`,
				g.ID, exID, pos)
			if err != nil {
				return fmt.Errorf("inserting template group member: %w", err)
			}
		}
	}
	return tx.Commit(ctx)
}

// DeleteTemplate removes a template and its children. Sessions already
// started from it keep their snapshot and are not touched.
func (db *DB) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrTemplateNotFound
	}
	return nil
}

func loadTemplateChildren(ctx context.Context, q querier, tpl *models.WorkoutTemplate) error {
	exRows, err := q.Query(ctx,
		`SELECT id, catalog_id, name, order_index, default_sets, default_weight_kg,
		 default_reps, default_duration_sec, rest_after_sec
		 FROM template_exercises WHERE template_id = $1
		 ORDER BY order_index`,
		tpl.ID)
	if err != nil {
		return fmt.Errorf("querying template exercises: %w", err)
	}
	defer exRows.Close()

	for exRows.Next() {
		var ex models.TemplateExercise
		if err := exRows.Scan(&ex.ID, &ex.CatalogID, &ex.Name, &ex.OrderIndex,
			&ex.DefaultSets, &ex.DefaultWeight, &ex.DefaultReps,
			&ex.DefaultDurationSec, &ex.RestAfterSec); err != nil {
			return fmt.Errorf("scanning template exercise: %w", err)
		}
		tpl.Exercises = append(tpl.Exercises, ex)
	}
	if err := exRows.Err(); err != nil {
		return err
	}

	groupRows, err := q.Query(ctx,
		`SELECT id, kind, group_index, rounds, rest_after_round_sec
		 FROM template_groups WHERE template_id = $1
		 ORDER BY group_index`,
		tpl.ID)
	if err != nil {
		return fmt.Errorf("querying template groups: %w", err)
	}
	defer groupRows.Close()

	for groupRows.Next() {
		var (
			g    models.TemplateGroup
			kind string
		)
		if err := groupRows.Scan(&g.ID, &kind, &g.GroupIndex, &g.Rounds, &g.RestAfterRoundSec); err != nil {
			return fmt.Errorf("scanning template group: %w", err)
		}
		g.Kind = models.GroupKind(kind)
		tpl.Groups = append(tpl.Groups, g)
	}
	if err := groupRows.Err(); err != nil {
		return err
	}
	if len(tpl.Groups) == 0 {
		return nil
	}

	memberRows, err := q.Query(ctx,
		`SELECT m.group_id, m.exercise_id
		 FROM template_group_members m
		 JOIN template_groups g ON g.id = m.group_id
		 WHERE g.template_id = $1
		 ORDER BY m.group_id, m.position`,
		tpl.ID)
	if err != nil {
		return fmt.Errorf("querying template group members: %w", err)
	}
	defer memberRows.Close()

	membersByGroup := make(map[uuid.UUID][]uuid.UUID)
	for memberRows.Next() {
		var groupID, exerciseID uuid.UUID
		if err := memberRows.Scan(&groupID, &exerciseID); err != nil {
			return fmt.Errorf("scanning template group member: %w", err)
		}
		membersByGroup[groupID] = append(membersByGroup[groupID], exerciseID)
	}
	if err := memberRows.Err(); err != nil {
		return err
	}
	for i := range tpl.Groups {
		tpl.Groups[i].ExerciseIDs = membersByGroup[tpl.Groups[i].ID]
	}
	return nil
}
