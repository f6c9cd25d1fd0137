package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

// The session engine persists whole aggregates: SaveSession and UpdateSession
// write the session row and every child row in one transaction, so a reader
// never observes a half-written session and a failed write changes nothing.
var _ session.Repository = (*DB)(nil)

// FetchActiveSession returns the user's live (active or paused) session with
// all children, or (nil, nil) when the user has none.
func (db *DB) FetchActiveSession(ctx context.Context, userID int) (*models.WorkoutSession, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`SELECT id FROM workout_sessions
		 WHERE user_id = $1 AND state IN ('active', 'paused')`,
		userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	return loadSession(ctx, db.Pool, id)
}

// FetchSession loads one full session aggregate.
func (db *DB) FetchSession(ctx context.Context, id uuid.UUID) (*models.WorkoutSession, error) {
	return loadSession(ctx, db.Pool, id)
}

// SaveSession inserts a new session with all children. A second live session
// for the same user trips the partial unique index and maps to
// session.ErrActiveSessionExists.
func (db *DB) SaveSession(ctx context.Context, sess *models.WorkoutSession) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO workout_sessions (id, user_id, template_id, name, state, started_at, ended_at, health_sync_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		sess.ID, sess.UserID, nullableUUID(sess.TemplateID), sess.Name, string(sess.State),
		sess.StartedAt, sess.EndedAt, sess.HealthSyncID)
	if err != nil {
		if isUniqueViolation(err) {
			return session.ErrActiveSessionExists
		}
		return fmt.Errorf("inserting session: %w", err)
	}

	if err := insertSessionChildren(ctx, tx, sess); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateSession replaces the stored aggregate with the given one: the parent
// row is rewritten and every child row deleted and reinserted, atomically.
// The aggregate's own order indexes are authoritative; storage never
// renumbers.
func (db *DB) UpdateSession(ctx context.Context, sess *models.WorkoutSession) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE workout_sessions
		 SET name = $2, state = $3, started_at = $4, ended_at = $5, health_sync_id = $6
		 WHERE id = $1`,
		sess.ID, sess.Name, string(sess.State), sess.StartedAt, sess.EndedAt, sess.HealthSyncID)
	if err != nil {
		if isUniqueViolation(err) {
			return session.ErrActiveSessionExists
		}
		return fmt.Errorf("updating session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM session_exercises WHERE session_id = $1`, sess.ID); err != nil {
		return fmt.Errorf("clearing session exercises: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM session_groups WHERE session_id = $1`, sess.ID); err != nil {
		return fmt.Errorf("clearing session groups: %w", err)
	}
	if err := insertSessionChildren(ctx, tx, sess); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteSession removes a session; child rows go with it via ON DELETE
// CASCADE.
func (db *DB) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM workout_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

// ListCompletedSessions retrieves completed sessions started in [start, end),
// newest first, as full aggregates.
func (db *DB) ListCompletedSessions(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id FROM workout_sessions
		 WHERE user_id = $1 AND state = 'completed' AND started_at >= $2 AND started_at < $3
		 ORDER BY started_at DESC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying completed sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]models.WorkoutSession, 0, len(ids))
	for _, id := range ids {
		sess, err := loadSession(ctx, db.Pool, id)
		if err != nil {
			return nil, err
		}
		result = append(result, *sess)
	}
	return result, nil
}

// SessionExistsAt reports whether the user already has a session that started
// at exactly the given instant. The importer uses this to skip files that were
// already brought in on a previous run.
func (db *DB) SessionExistsAt(ctx context.Context, userID int, startedAt time.Time) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM workout_sessions WHERE user_id = $1 AND started_at = $2)`,
		userID, startedAt).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking session existence: %w", err)
	}
	return exists, nil
}

func insertSessionChildren(ctx context.Context, q querier, sess *models.WorkoutSession) error {
	for _, ex := range sess.Exercises {
		_, err := q.Exec(ctx,
			`INSERT INTO session_exercises (id, session_id, catalog_id, name, order_index, note, rest_after_sec, finished)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			ex.ID, sess.ID, ex.CatalogID, ex.Name, ex.OrderIndex, ex.Note, ex.RestAfterSec, ex.Finished)
		if err != nil {
			return fmt.Errorf("inserting session exercise: %w", err)
		}
	}

	if err := insertSessionSets(ctx, q, sess); err != nil {
		return err
	}

	for _, g := range sess.Groups {
		_, err := q.Exec(ctx,
			`INSERT INTO session_groups (id, session_id, kind, group_index, current_round, total_rounds, rest_after_round_sec)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			g.ID, sess.ID, string(g.Kind), g.GroupIndex, g.CurrentRound, g.TotalRounds, g.RestAfterRoundSec)
		if err != nil {
			return fmt.Errorf("inserting session group: %w", err)
		}
		for pos, exID := range g.ExerciseIDs {
			_, err := q.Exec(ctx,
				`INSERT INTO session_group_members (group_id, exercise_id, position)
				 VALUES ($1,$2,$3)`,
				g.ID, exID, pos)
			if err != nil {
				return fmt.Errorf("inserting group member: %w", err)
			}
		}
	}
	return nil
}

// insertSessionSets batch-inserts every set of every exercise in one
// statement.
func insertSessionSets(ctx context.Context, q querier, sess *models.WorkoutSession) error {
	type flatSet struct {
		exerciseID uuid.UUID
		set        models.SessionSet
	}
	var flat []flatSet
	for _, ex := range sess.Exercises {
		for _, set := range ex.Sets {
			flat = append(flat, flatSet{exerciseID: ex.ID, set: set})
		}
	}
	if len(flat) == 0 {
		return nil
	}

	query := `INSERT INTO session_sets (id, exercise_id, order_index, weight_kg, reps, duration_sec, is_warmup, completed, completed_at, rest_sec) VALUES `
	args := make([]any, 0, len(flat)*10)
	valueStrings := make([]string, 0, len(flat))

	for i, f := range flat {
		base := i * 10
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))
		s := f.set
		args = append(args, s.ID, f.exerciseID, s.OrderIndex, s.Weight, s.Reps,
			s.DurationSec, s.Warmup, s.Completed, s.CompletedAt, s.RestSec)
	}

	if _, err := q.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
		return fmt.Errorf("inserting session sets: %w", err)
	}
	return nil
}

// loadSession reassembles a full aggregate: session row, exercises ordered
// by order_index with their sets, groups with members in rotation order.
func loadSession(ctx context.Context, q querier, id uuid.UUID) (*models.WorkoutSession, error) {
	var (
		sess       models.WorkoutSession
		templateID uuid.NullUUID
		state      string
	)
	err := q.QueryRow(ctx,
		`SELECT id, user_id, template_id, name, state, started_at, ended_at, health_sync_id
		 FROM workout_sessions WHERE id = $1`,
		id).Scan(&sess.ID, &sess.UserID, &templateID, &sess.Name, &state,
		&sess.StartedAt, &sess.EndedAt, &sess.HealthSyncID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}
	if templateID.Valid {
		sess.TemplateID = templateID.UUID
	}
	sess.State = models.SessionState(state)

	exRows, err := q.Query(ctx,
		`SELECT id, catalog_id, name, order_index, note, rest_after_sec, finished
		 FROM session_exercises WHERE session_id = $1
		 ORDER BY order_index`,
		id)
	if err != nil {
		return nil, fmt.Errorf("querying session exercises: %w", err)
	}
	defer exRows.Close()

	for exRows.Next() {
		var ex models.SessionExercise
		if err := exRows.Scan(&ex.ID, &ex.CatalogID, &ex.Name, &ex.OrderIndex,
			&ex.Note, &ex.RestAfterSec, &ex.Finished); err != nil {
			return nil, fmt.Errorf("scanning session exercise: %w", err)
		}
		sess.Exercises = append(sess.Exercises, ex)
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	setsByExercise, err := loadSessionSets(ctx, q, id)
	if err != nil {
		return nil, err
	}
	for i := range sess.Exercises {
		sess.Exercises[i].Sets = setsByExercise[sess.Exercises[i].ID]
	}

	if err := loadSessionGroups(ctx, q, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func loadSessionSets(ctx context.Context, q querier, sessionID uuid.UUID) (map[uuid.UUID][]models.SessionSet, error) {
	rows, err := q.Query(ctx,
		`SELECT s.exercise_id, s.id, s.order_index, s.weight_kg, s.reps, s.duration_sec,
		 s.is_warmup, s.completed, s.completed_at, s.rest_sec
		 FROM session_sets s
		 JOIN session_exercises e ON e.id = s.exercise_id
		 WHERE e.session_id = $1
		 ORDER BY s.order_index`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session sets: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]models.SessionSet)
	for rows.Next() {
		var (
			exerciseID uuid.UUID
			set        models.SessionSet
		)
		if err := rows.Scan(&exerciseID, &set.ID, &set.OrderIndex, &set.Weight, &set.Reps,
			&set.DurationSec, &set.Warmup, &set.Completed, &set.CompletedAt, &set.RestSec); err != nil {
			return nil, fmt.Errorf("scanning session set: %w", err)
		}
		result[exerciseID] = append(result[exerciseID], set)
	}
	return result, rows.Err()
}

func loadSessionGroups(ctx context.Context, q querier, sess *models.WorkoutSession) error {
	rows, err := q.Query(ctx,
		`SELECT id, kind, group_index, current_round, total_rounds, rest_after_round_sec
		 FROM session_groups WHERE session_id = $1
		 ORDER BY group_index`,
		sess.ID)
	if err != nil {
		return fmt.Errorf("querying session groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			g    models.ExerciseGroup
			kind string
		)
		if err := rows.Scan(&g.ID, &kind, &g.GroupIndex, &g.CurrentRound,
			&g.TotalRounds, &g.RestAfterRoundSec); err != nil {
			return fmt.Errorf("scanning session group: %w", err)
		}
		g.Kind = models.GroupKind(kind)
		sess.Groups = append(sess.Groups, g)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(sess.Groups) == 0 {
		return nil
	}

	memberRows, err := q.Query(ctx,
		`SELECT m.group_id, m.exercise_id
		 FROM session_group_members m
		 JOIN session_groups g ON g.id = m.group_id
		 WHERE g.session_id = $1
		 ORDER BY m.group_id, m.position`,
		sess.ID)
	if err != nil {
		return fmt.Errorf("querying group members: %w", err)
	}
	defer memberRows.Close()

	membersByGroup := make(map[uuid.UUID][]uuid.UUID)
	for memberRows.Next() {
		var groupID, exerciseID uuid.UUID
		if err := memberRows.Scan(&groupID, &exerciseID); err != nil {
			return fmt.Errorf("scanning group member: %w", err)
		}
		membersByGroup[groupID] = append(membersByGroup[groupID], exerciseID)
	}
	if err := memberRows.Err(); err != nil {
		return err
	}
	for i := range sess.Groups {
		sess.Groups[i].ExerciseIDs = membersByGroup[sess.Groups[i].ID]
	}
	return nil
}

func nullableUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
