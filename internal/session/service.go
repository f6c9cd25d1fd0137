package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/warmup"
)

// Options tunes engine behavior. Zero values fall back to defaults.
type Options struct {
	Warmup           warmup.Settings
	Strategies       []warmup.Strategy
	NoteMaxLen       int
	EnergyKcalPerMin float64
	ExportTimeout    time.Duration
}

// Service runs the session use cases. Every mutating method takes ids, loads
// a fresh aggregate, applies the change in memory, validates, and writes the
// whole session back exactly once. Callers never hand in aggregates of their
// own, so a stale copy on the client side cannot overwrite newer state.
type Service struct {
	repo      Repository
	templates TemplateStore
	catalog   Catalog
	exporter  HealthExporter
	log       *slog.Logger

	warmupSettings warmup.Settings
	strategies     map[string]warmup.Strategy
	noteMaxLen     int
	energyRate     float64
	exportTimeout  time.Duration

	now func() time.Time
}

// New wires a Service. A nil exporter disables health-sink mirroring.
func New(repo Repository, templates TemplateStore, catalog Catalog, exporter HealthExporter, opts Options, log *slog.Logger) *Service {
	if opts.Warmup.Increment == 0 {
		opts.Warmup = warmup.DefaultSettings()
	}
	if len(opts.Strategies) == 0 {
		opts.Strategies = warmup.DefaultStrategies()
	}
	if opts.NoteMaxLen <= 0 {
		opts.NoteMaxLen = 500
	}
	if opts.EnergyKcalPerMin <= 0 {
		opts.EnergyKcalPerMin = 6.0
	}
	if opts.ExportTimeout <= 0 {
		opts.ExportTimeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:           repo,
		templates:      templates,
		catalog:        catalog,
		exporter:       exporter,
		log:            log,
		warmupSettings: opts.Warmup,
		strategies:     warmup.StrategyIndex(opts.Strategies),
		noteMaxLen:     opts.NoteMaxLen,
		energyRate:     opts.EnergyKcalPerMin,
		exportTimeout:  opts.ExportTimeout,
		now:            time.Now,
	}
}

// Strategies returns the configured warmup strategies sorted by name.
func (s *Service) Strategies() []warmup.Strategy {
	out := make([]warmup.Strategy, 0, len(s.strategies))
	for _, st := range s.strategies {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start creates a live session from a template. The user's single live slot
// must be free. The health sink is notified in the background; the session
// does not wait for it.
func (s *Service) Start(ctx context.Context, userID int, templateID uuid.UUID) (*models.WorkoutSession, error) {
	active, err := s.repo.FetchActiveSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: checking live session: %w", ErrPersistence, err)
	}
	if active != nil {
		return nil, fmt.Errorf("%w: session %s is %s", ErrActiveSessionExists, active.ID, active.State)
	}

	tpl, err := s.templates.FetchTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetching template: %w", ErrPersistence, err)
	}

	history := make(map[uuid.UUID]*models.CatalogExercise, len(tpl.Exercises))
	for _, tex := range tpl.Exercises {
		cat, err := s.catalog.FetchExercise(ctx, tex.CatalogID)
		if err != nil {
			s.log.Warn("catalog lookup failed, using template defaults",
				"catalog_id", tex.CatalogID, "error", err)
			continue
		}
		history[tex.CatalogID] = cat
	}

	sess, err := BuildSession(tpl, history, userID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveSession(ctx, sess); err != nil {
		if errors.Is(err, ErrActiveSessionExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: saving session: %w", ErrPersistence, err)
	}

	if s.exporter != nil {
		go s.syncStart(sess.ID, sess.Name, sess.StartedAt)
	}
	return sess, nil
}

// syncStart announces the session to the health sink and attaches the
// returned correlation id. Runs detached from the starting request; failures
// are logged and dropped.
func (s *Service) syncStart(id uuid.UUID, name string, startedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), s.exportTimeout)
	defer cancel()

	syncID, err := s.exporter.StartSession(ctx, name, startedAt)
	if err != nil {
		s.log.Warn("health sink rejected session start", "session_id", id, "error", err)
		return
	}
	if syncID == "" {
		return
	}
	if err := s.attachHealthSync(ctx, id, syncID); err != nil {
		s.log.Warn("failed to attach health sync id", "session_id", id, "error", err)
	}
}

// attachHealthSync stores the sink's correlation id on the session. It loads
// the session fresh so a mutation that happened since the start request went
// out is never overwritten.
func (s *Service) attachHealthSync(ctx context.Context, id uuid.UUID, syncID string) error {
	_, err := s.mutate(ctx, id, func(sess *models.WorkoutSession) error {
		sess.HealthSyncID = syncID
		return nil
	})
	return err
}

// Active returns the user's live session, or ErrSessionNotFound when the
// slot is free.
func (s *Service) Active(ctx context.Context, userID int) (*models.WorkoutSession, error) {
	sess, err := s.repo.FetchActiveSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching live session: %w", ErrPersistence, err)
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: no live session", ErrSessionNotFound)
	}
	return sess, nil
}

// Get loads one session by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.WorkoutSession, error) {
	return s.fetchFresh(ctx, id)
}

// History lists completed sessions that started within [start, end).
func (s *Service) History(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSession, error) {
	out, err := s.repo.ListCompletedSessions(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: listing sessions: %w", ErrPersistence, err)
	}
	return out, nil
}

// Pause suspends the session's timers without giving up the live slot.
func (s *Service) Pause(ctx context.Context, id uuid.UUID) (*models.WorkoutSession, error) {
	return s.mutate(ctx, id, Pause)
}

// Resume reactivates a paused session.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (*models.WorkoutSession, error) {
	return s.mutate(ctx, id, Resume)
}

// End completes the session, records what was actually performed in the
// exercise catalog, and closes out the health sink workout. Catalog and sink
// failures are logged, never returned: the workout is over either way.
func (s *Service) End(ctx context.Context, id uuid.UUID) (*models.WorkoutSession, error) {
	endedAt := s.now()
	sess, err := s.mutate(ctx, id, func(sess *models.WorkoutSession) error {
		return End(sess, endedAt)
	})
	if err != nil {
		return nil, err
	}

	s.recordLastUsed(ctx, sess)
	if s.exporter != nil && sess.HealthSyncID != "" {
		go s.syncEnd(sess.Clone(), endedAt)
	}
	return sess, nil
}

// recordLastUsed writes each exercise's heaviest completed working set back
// to the catalog so the next session starts from today's numbers.
func (s *Service) recordLastUsed(ctx context.Context, sess *models.WorkoutSession) {
	for i := range sess.Exercises {
		ex := &sess.Exercises[i]
		best := heaviestCompletedWorkingSet(ex)
		if best == nil {
			continue
		}
		var restSec *int
		if ex.RestAfterSec > 0 {
			r := ex.RestAfterSec
			restSec = &r
		}
		if err := s.catalog.UpdateLastUsed(ctx, ex.CatalogID, best.Weight, best.Reps, restSec, *sess.EndedAt); err != nil {
			s.log.Warn("failed to record last-used values",
				"catalog_id", ex.CatalogID, "exercise", ex.Name, "error", err)
		}
	}
}

func heaviestCompletedWorkingSet(ex *models.SessionExercise) *models.SessionSet {
	var best *models.SessionSet
	for i := range ex.Sets {
		set := &ex.Sets[i]
		if set.Warmup || !set.Completed {
			continue
		}
		if best == nil || set.Weight > best.Weight {
			best = set
		}
	}
	return best
}

func (s *Service) syncEnd(sess *models.WorkoutSession, endedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), s.exportTimeout)
	defer cancel()

	energy := endedAt.Sub(sess.StartedAt).Minutes() * s.energyRate
	meta := map[string]string{
		"name":           sess.Name,
		"exercises":      strconv.Itoa(len(sess.Exercises)),
		"completed_sets": strconv.Itoa(completedSetCount(sess)),
	}
	if err := s.exporter.EndSession(ctx, sess.HealthSyncID, endedAt, energy, meta); err != nil {
		s.log.Warn("health sink rejected session end", "session_id", sess.ID, "error", err)
	}
}

func completedSetCount(sess *models.WorkoutSession) int {
	n := 0
	for i := range sess.Exercises {
		for j := range sess.Exercises[i].Sets {
			if sess.Exercises[i].Sets[j].Completed {
				n++
			}
		}
	}
	return n
}

// Cancel discards a live session entirely. Nothing is exported and nothing
// is kept; a cancelled workout never happened.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	sess, err := s.fetchFresh(ctx, id)
	if err != nil {
		return err
	}
	if !sess.IsLive() {
		return fmt.Errorf("%w: cannot cancel a %s session", ErrInvalidOperation, sess.State)
	}
	if err := s.repo.DeleteSession(ctx, sess.ID); err != nil {
		return fmt.Errorf("%w: deleting session: %w", ErrPersistence, err)
	}
	return nil
}

// AddSet appends a rep-based set to an exercise.
func (s *Service) AddSet(ctx context.Context, sessionID, exerciseID uuid.UUID, weightKg float64, reps int, isWarmup bool) (*models.WorkoutSession, error) {
	return s.mutateExercise(ctx, sessionID, exerciseID, func(ex *models.SessionExercise) error {
		_, err := AddSet(ex, weightKg, reps, isWarmup)
		return err
	})
}

// AddTimedSet appends a duration-based set to an exercise.
func (s *Service) AddTimedSet(ctx context.Context, sessionID, exerciseID uuid.UUID, weightKg float64, durationSec float64, isWarmup bool) (*models.WorkoutSession, error) {
	return s.mutateExercise(ctx, sessionID, exerciseID, func(ex *models.SessionExercise) error {
		_, err := AddTimedSet(ex, weightKg, durationSec, isWarmup)
		return err
	})
}

// UpdateSet rewrites a rep-based set's target weight and reps.
func (s *Service) UpdateSet(ctx context.Context, sessionID, exerciseID, setID uuid.UUID, weightKg float64, reps int) (*models.WorkoutSession, error) {
	return s.mutateExercise(ctx, sessionID, exerciseID, func(ex *models.SessionExercise) error {
		return UpdateSet(ex, setID, weightKg, reps)
	})
}

// UpdateTimedSet rewrites a duration-based set's target weight and duration.
func (s *Service) UpdateTimedSet(ctx context.Context, sessionID, exerciseID, setID uuid.UUID, weightKg float64, durationSec float64) (*models.WorkoutSession, error) {
	return s.mutateExercise(ctx, sessionID, exerciseID, func(ex *models.SessionExercise) error {
		return UpdateTimedSet(ex, setID, weightKg, durationSec)
	})
}

// RemoveSet deletes a set; the exercise's remaining sets close ranks.
func (s *Service) RemoveSet(ctx context.Context, sessionID, exerciseID, setID uuid.UUID) (*models.WorkoutSession, error) {
	return s.mutateExercise(ctx, sessionID, exerciseID, func(ex *models.SessionExercise) error {
		return RemoveSet(ex, setID)
	})
}

// ToggleSet flips a set between completed and not.
func (s *Service) ToggleSet(ctx context.Context, sessionID, exerciseID, setID uuid.UUID) (*models.WorkoutSession, error) {
	now := s.now()
	return s.mutateExercise(ctx, sessionID, exerciseID, func(ex *models.SessionExercise) error {
		_, err := ToggleSet(ex, setID, now)
		return err
	})
}

// SetSetRest overrides the rest timer after one set; nil clears the override.
func (s *Service) SetSetRest(ctx context.Context, sessionID, exerciseID, setID uuid.UUID, restSec *int) (*models.WorkoutSession, error) {
	return s.mutateExercise(ctx, sessionID, exerciseID, func(ex *models.SessionExercise) error {
		return SetRest(ex, setID, restSec)
	})
}

// InsertWarmup plans a warmup ramp off the exercise's first working set and
// prepends it. Calling it again for the same exercise is a no-op.
func (s *Service) InsertWarmup(ctx context.Context, sessionID, exerciseID uuid.UUID, strategyName string) (*models.WorkoutSession, error) {
	strategy, ok := s.strategies[strategyName]
	if !ok {
		return nil, fmt.Errorf("%w: unknown warmup strategy %q", ErrInvalidInput, strategyName)
	}
	return s.mutateExercise(ctx, sessionID, exerciseID, func(ex *models.SessionExercise) error {
		s.insertWarmupLocked(ex, strategy)
		return nil
	})
}

// InsertWarmupAll plans warmup ramps for every exercise of the session in
// one pass over one snapshot, persisted with a single write.
func (s *Service) InsertWarmupAll(ctx context.Context, sessionID uuid.UUID, strategyName string) (*models.WorkoutSession, error) {
	strategy, ok := s.strategies[strategyName]
	if !ok {
		return nil, fmt.Errorf("%w: unknown warmup strategy %q", ErrInvalidInput, strategyName)
	}
	return s.mutate(ctx, sessionID, func(sess *models.WorkoutSession) error {
		for i := range sess.Exercises {
			s.insertWarmupLocked(&sess.Exercises[i], strategy)
		}
		return nil
	})
}

// insertWarmupLocked plans and inserts a ramp for one exercise within an
// already-loaded aggregate. Exercises without a working set, and loads below
// the plannable floor, come back with nothing to insert and are skipped.
func (s *Service) insertWarmupLocked(ex *models.SessionExercise, strategy warmup.Strategy) {
	ref := ex.FirstWorkingSet()
	if ref == nil {
		return
	}
	planned := warmup.Plan(ref.Weight, ref.Reps, strategy, s.warmupSettings)
	InsertWarmupSets(ex, planned)
}

// SetExerciseNote attaches a free-text note to an exercise.
func (s *Service) SetExerciseNote(ctx context.Context, sessionID, exerciseID uuid.UUID, note string) (*models.WorkoutSession, error) {
	if utf8.RuneCountInString(note) > s.noteMaxLen {
		return nil, fmt.Errorf("%w: note exceeds %d characters", ErrInvalidInput, s.noteMaxLen)
	}
	return s.mutateExercise(ctx, sessionID, exerciseID, func(ex *models.SessionExercise) error {
		ex.Note = note
		return nil
	})
}

// SetExerciseFinished marks an exercise done (or not) by hand. Adding a set
// later clears the flag again.
func (s *Service) SetExerciseFinished(ctx context.Context, sessionID, exerciseID uuid.UUID, finished bool) (*models.WorkoutSession, error) {
	return s.mutateExercise(ctx, sessionID, exerciseID, func(ex *models.SessionExercise) error {
		ex.Finished = finished
		return nil
	})
}

// SetExerciseRest sets the default rest timer between the exercise's sets.
func (s *Service) SetExerciseRest(ctx context.Context, sessionID, exerciseID uuid.UUID, restSec int) (*models.WorkoutSession, error) {
	if restSec < 0 {
		return nil, fmt.Errorf("%w: rest must not be negative, got %d", ErrInvalidInput, restSec)
	}
	return s.mutateExercise(ctx, sessionID, exerciseID, func(ex *models.SessionExercise) error {
		ex.RestAfterSec = restSec
		return nil
	})
}

// ReorderExercises rewrites display order. orderedIDs must be a permutation
// of the session's exercise ids.
func (s *Service) ReorderExercises(ctx context.Context, sessionID uuid.UUID, orderedIDs []uuid.UUID) (*models.WorkoutSession, error) {
	return s.mutate(ctx, sessionID, func(sess *models.WorkoutSession) error {
		if len(orderedIDs) != len(sess.Exercises) {
			return fmt.Errorf("%w: expected %d exercise ids, got %d", ErrInvalidInput, len(sess.Exercises), len(orderedIDs))
		}
		seen := make(map[uuid.UUID]bool, len(orderedIDs))
		for pos, id := range orderedIDs {
			if seen[id] {
				return fmt.Errorf("%w: duplicate exercise id %s", ErrInvalidInput, id)
			}
			seen[id] = true
			ex := sess.Exercise(id)
			if ex == nil {
				return fmt.Errorf("%w: %s", ErrExerciseNotFound, id)
			}
			ex.OrderIndex = pos
		}
		sort.SliceStable(sess.Exercises, func(i, j int) bool {
			return sess.Exercises[i].OrderIndex < sess.Exercises[j].OrderIndex
		})
		return nil
	})
}

// CompleteGroupSet toggles a set inside a superset/circuit and lets the
// group advance its round when the toggle closed the current one out.
func (s *Service) CompleteGroupSet(ctx context.Context, sessionID, groupID, exerciseID, setID uuid.UUID) (*models.WorkoutSession, error) {
	now := s.now()
	return s.mutate(ctx, sessionID, func(sess *models.WorkoutSession) error {
		return CompleteGroupSet(sess, groupID, exerciseID, setID, now)
	})
}

// AdvanceGroupRound moves a group to its next round by hand.
func (s *Service) AdvanceGroupRound(ctx context.Context, sessionID, groupID uuid.UUID) (*models.WorkoutSession, error) {
	return s.mutate(ctx, sessionID, func(sess *models.WorkoutSession) error {
		g := sess.Group(groupID)
		if g == nil {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
		}
		return AdvanceRound(g)
	})
}

// Templates lists the user's workout templates.
func (s *Service) Templates(ctx context.Context, userID int) ([]models.WorkoutTemplate, error) {
	out, err := s.templates.ListTemplates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing templates: %w", ErrPersistence, err)
	}
	return out, nil
}

// Template loads one template by id.
func (s *Service) Template(ctx context.Context, id uuid.UUID) (*models.WorkoutTemplate, error) {
	tpl, err := s.templates.FetchTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetching template: %w", ErrPersistence, err)
	}
	return tpl, nil
}

// CatalogExercises lists the exercise catalog.
func (s *Service) CatalogExercises(ctx context.Context) ([]models.CatalogExercise, error) {
	out, err := s.catalog.ListExercises(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing catalog: %w", ErrPersistence, err)
	}
	return out, nil
}

// fetchFresh loads the current aggregate, passing ErrSessionNotFound through
// untouched and wrapping everything else as a persistence failure.
func (s *Service) fetchFresh(ctx context.Context, id uuid.UUID) (*models.WorkoutSession, error) {
	sess, err := s.repo.FetchSession(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetching session: %w", ErrPersistence, err)
	}
	return sess, nil
}

// mutate is the one mutation path: load fresh, apply, validate, write back
// the whole aggregate once. A failed write leaves stored state untouched and
// the error carries ErrPersistence.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, op func(*models.WorkoutSession) error) (*models.WorkoutSession, error) {
	sess, err := s.fetchFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := op(sess); err != nil {
		return nil, err
	}
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("session %s left invalid: %w", id, err)
	}
	if err := s.repo.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: updating session: %w", ErrPersistence, err)
	}
	return sess, nil
}

// mutateExercise is mutate scoped to one exercise of the aggregate.
func (s *Service) mutateExercise(ctx context.Context, sessionID, exerciseID uuid.UUID, op func(*models.SessionExercise) error) (*models.WorkoutSession, error) {
	return s.mutate(ctx, sessionID, func(sess *models.WorkoutSession) error {
		ex := sess.Exercise(exerciseID)
		if ex == nil {
			return fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
		}
		return op(ex)
	})
}
