package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// defaultSessionLength stands in when an export row carries no parseable
// duration. Historical sessions need an end time to count as completed.
const defaultSessionLength = time.Hour

// ErrBadLog reports input that could not be parsed as a strength log export.
var ErrBadLog = errors.New("unparseable workout log")

// Result reports one import run's tallies.
type Result struct {
	FilesProcessed   int   `json:"files_processed,omitempty"`
	FilesSkipped     int   `json:"files_skipped,omitempty"`
	SessionsParsed   int   `json:"sessions_parsed"`
	SessionsImported int   `json:"sessions_imported"`
	SessionsSkipped  int   `json:"sessions_skipped"`
	SetsImported     int64 `json:"sets_imported"`
	ExercisesCreated int   `json:"exercises_created"`
}

// Importer converts strength log exports into completed workout sessions.
type Importer struct {
	db     *storage.DB
	log    *slog.Logger
	dryRun bool
	stats  Result

	// knownExercises memoizes name → catalog id within one run so a name
	// showing up across sessions resolves once (and dry runs stay coherent).
	knownExercises map[string]uuid.UUID
}

// New creates an Importer. With dryRun set it parses and counts everything
// but writes nothing.
func New(db *storage.DB, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{
		db:             db,
		log:            log,
		dryRun:         dryRun,
		knownExercises: make(map[string]uuid.UUID),
	}
}

// ImportReader parses one export stream and stores each session it contains
// as a completed aggregate, one write per session. Sessions the user already
// has (same start instant) are skipped, so re-importing an export is safe.
func (imp *Importer) ImportReader(ctx context.Context, r io.Reader, userID int) (*Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return &imp.stats, fmt.Errorf("%w: %v", ErrBadLog, err)
	}
	imp.stats.SessionsParsed += len(sessions)

	for _, ls := range sessions {
		exists, err := imp.db.SessionExistsAt(ctx, userID, ls.Date)
		if err != nil {
			return &imp.stats, fmt.Errorf("checking for existing session: %w", err)
		}
		if exists {
			imp.stats.SessionsSkipped++
			imp.log.Info("session already imported, skipping", "name", ls.Name, "date", ls.Date)
			continue
		}

		sess, err := imp.buildSession(ctx, ls, userID)
		if err != nil {
			return &imp.stats, err
		}
		if !imp.dryRun {
			if err := imp.db.SaveSession(ctx, sess); err != nil {
				return &imp.stats, fmt.Errorf("saving session %q: %w", ls.Name, err)
			}
		}
		imp.stats.SessionsImported++
		for i := range sess.Exercises {
			imp.stats.SetsImported += int64(len(sess.Exercises[i].Sets))
		}
		imp.log.Info("imported session",
			"name", ls.Name, "date", ls.Date, "exercises", len(sess.Exercises))
	}
	return &imp.stats, nil
}

// ImportFile imports one export file, consulting the resume state so a file
// already imported with identical content is skipped.
func (imp *Importer) ImportFile(ctx context.Context, state *StateDB, path string, userID int) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", path, err)
	}
	done, err := state.IsImported(path, info.Size(), hash)
	if err != nil {
		return fmt.Errorf("checking import state for %s: %w", path, err)
	}
	if done {
		imp.stats.FilesSkipped++
		imp.log.Info("file unchanged since last import, skipping", "path", path)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := imp.ImportReader(ctx, f, userID); err != nil {
		return err
	}
	imp.stats.FilesProcessed++

	if !imp.dryRun {
		if err := state.MarkImported(path, info.Size(), hash); err != nil {
			return fmt.Errorf("recording import state for %s: %w", path, err)
		}
	}
	return nil
}

// ImportDir imports every .csv export under dir in name order.
func (imp *Importer) ImportDir(ctx context.Context, state *StateDB, dir string, userID int) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := imp.ImportFile(ctx, state, p, userID); err != nil {
			return &imp.stats, err
		}
	}
	return &imp.stats, nil
}

// Stats returns the tallies accumulated so far.
func (imp *Importer) Stats() *Result {
	return &imp.stats
}

// buildSession converts one parsed log session into a completed aggregate.
// Every set in a historical log was performed, so sets arrive completed with
// warmups leading, numbered 0..n-1 in log order.
func (imp *Importer) buildSession(ctx context.Context, ls LogSession, userID int) (*models.WorkoutSession, error) {
	length := ls.Duration
	if length <= 0 {
		length = defaultSessionLength
	}
	endedAt := ls.Date.Add(length)

	sess := &models.WorkoutSession{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      ls.Name,
		State:     models.StateCompleted,
		StartedAt: ls.Date,
		EndedAt:   &endedAt,
	}

	for i, lex := range ls.Exercises {
		catalogID, err := imp.resolveCatalog(ctx, lex)
		if err != nil {
			return nil, err
		}
		ex := models.SessionExercise{
			ID:         uuid.New(),
			CatalogID:  catalogID,
			Name:       catalogName(lex),
			OrderIndex: i,
			Finished:   true,
		}
		for j, set := range lex.Sets {
			completedAt := endedAt
			ex.Sets = append(ex.Sets, models.SessionSet{
				ID:          uuid.New(),
				OrderIndex:  j,
				Weight:      set.WeightKg,
				Reps:        set.Reps,
				Warmup:      set.Warmup,
				Completed:   true,
				CompletedAt: &completedAt,
			})
		}
		sess.Exercises = append(sess.Exercises, ex)
	}

	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("imported session %q invalid: %w", ls.Name, err)
	}
	return sess, nil
}

// resolveCatalog maps a log exercise to a catalog entry, creating one the
// first time a name shows up. Dry runs hand out throwaway ids instead of
// writing.
func (imp *Importer) resolveCatalog(ctx context.Context, lex LogExercise) (uuid.UUID, error) {
	name := catalogName(lex)
	if id, ok := imp.knownExercises[name]; ok {
		return id, nil
	}

	existing, err := imp.db.FindExerciseByName(ctx, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("looking up exercise %q: %w", name, err)
	}
	if existing != nil {
		imp.knownExercises[name] = existing.ID
		return existing.ID, nil
	}

	ex := &models.CatalogExercise{ID: uuid.New(), Name: name}
	if !imp.dryRun {
		if err := imp.db.InsertExercise(ctx, ex); err != nil {
			return uuid.Nil, fmt.Errorf("creating exercise %q: %w", name, err)
		}
	}
	imp.knownExercises[name] = ex.ID
	imp.stats.ExercisesCreated++
	return ex.ID, nil
}

// catalogName keeps equipment as part of the exercise identity, so barbell
// and dumbbell pressing stay separate catalog entries.
func catalogName(lex LogExercise) string {
	if lex.Equipment == "" {
		return lex.Name
	}
	return lex.Name + " (" + lex.Equipment + ")"
}
