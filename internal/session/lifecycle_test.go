package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

func pushDayTemplate() *models.WorkoutTemplate {
	return &models.WorkoutTemplate{
		ID:     uuid.New(),
		UserID: 1,
		Name:   "Push Day",
		Exercises: []models.TemplateExercise{
			{
				ID:            uuid.New(),
				CatalogID:     uuid.New(),
				Name:          "Bench Press",
				OrderIndex:    0,
				DefaultSets:   3,
				DefaultWeight: 60,
				DefaultReps:   8,
				RestAfterSec:  120,
			},
			{
				ID:            uuid.New(),
				CatalogID:     uuid.New(),
				Name:          "Overhead Press",
				OrderIndex:    1,
				DefaultSets:   3,
				DefaultWeight: 40,
				DefaultReps:   10,
			},
		},
	}
}

// TestBuildSessionFromDefaults starts a session with no catalog history and
// expects the template defaults in every prefilled set.
func TestBuildSessionFromDefaults(t *testing.T) {
	tpl := pushDayTemplate()
	now := time.Date(2025, 3, 14, 17, 0, 0, 0, time.UTC)

	sess, err := BuildSession(tpl, nil, 1, now)
	if err != nil {
		t.Fatalf("BuildSession: %v", err)
	}
	if sess.State != models.StateActive {
		t.Errorf("state = %s, want active", sess.State)
	}
	if !sess.StartedAt.Equal(now) {
		t.Errorf("startedAt = %v, want %v", sess.StartedAt, now)
	}
	if sess.TemplateID != tpl.ID {
		t.Errorf("templateID = %v, want %v", sess.TemplateID, tpl.ID)
	}
	if len(sess.Exercises) != 2 {
		t.Fatalf("exercise count = %d, want 2", len(sess.Exercises))
	}

	bench := sess.Exercises[0]
	if bench.Name != "Bench Press" || bench.OrderIndex != 0 {
		t.Errorf("first exercise = %q at %d, want Bench Press at 0", bench.Name, bench.OrderIndex)
	}
	if bench.RestAfterSec != 120 {
		t.Errorf("rest = %d, want 120", bench.RestAfterSec)
	}
	if len(bench.Sets) != 3 {
		t.Fatalf("bench set count = %d, want 3", len(bench.Sets))
	}
	for i, set := range bench.Sets {
		if set.Weight != 60 || set.Reps != 8 {
			t.Errorf("bench set %d = %v kg x %d, want 60 x 8", i, set.Weight, set.Reps)
		}
		if set.Completed || set.Warmup {
			t.Errorf("bench set %d starts completed or warmup", i)
		}
	}
}

// TestBuildSessionPrefersCatalogHistory checks last-used values beat template
// defaults, including the catalog's current exercise name.
func TestBuildSessionPrefersCatalogHistory(t *testing.T) {
	tpl := pushDayTemplate()
	weight, reps, rest := 82.5, 5, 180
	history := map[uuid.UUID]*models.CatalogExercise{
		tpl.Exercises[0].CatalogID: {
			ID:              tpl.Exercises[0].CatalogID,
			Name:            "Competition Bench Press",
			LastUsedWeight:  &weight,
			LastUsedReps:    &reps,
			LastUsedRestSec: &rest,
		},
	}

	sess, err := BuildSession(tpl, history, 1, time.Now())
	if err != nil {
		t.Fatalf("BuildSession: %v", err)
	}
	bench := sess.Exercises[0]
	if bench.Name != "Competition Bench Press" {
		t.Errorf("name = %q, want the catalog name", bench.Name)
	}
	if bench.Sets[0].Weight != 82.5 || bench.Sets[0].Reps != 5 {
		t.Errorf("prefill = %v kg x %d, want 82.5 x 5", bench.Sets[0].Weight, bench.Sets[0].Reps)
	}
	if bench.RestAfterSec != 180 {
		t.Errorf("rest = %d, want 180", bench.RestAfterSec)
	}

	// The second exercise has no history and keeps its defaults.
	ohp := sess.Exercises[1]
	if ohp.Sets[0].Weight != 40 || ohp.Sets[0].Reps != 10 {
		t.Errorf("ohp prefill = %v kg x %d, want 40 x 10", ohp.Sets[0].Weight, ohp.Sets[0].Reps)
	}
}

// TestBuildSessionTimedExercise prefills duration instead of reps for
// time-based movements.
func TestBuildSessionTimedExercise(t *testing.T) {
	catalogID := uuid.New()
	tpl := &models.WorkoutTemplate{
		ID:   uuid.New(),
		Name: "Core",
		Exercises: []models.TemplateExercise{{
			ID:                 uuid.New(),
			CatalogID:          catalogID,
			Name:               "Plank",
			DefaultSets:        2,
			DefaultDurationSec: 60,
		}},
	}
	history := map[uuid.UUID]*models.CatalogExercise{
		catalogID: {ID: catalogID, Name: "Plank", TimeBased: true},
	}

	sess, err := BuildSession(tpl, history, 1, time.Now())
	if err != nil {
		t.Fatalf("BuildSession: %v", err)
	}
	set := sess.Exercises[0].Sets[0]
	if set.DurationSec != 60 {
		t.Errorf("duration = %v, want 60", set.DurationSec)
	}
	if set.Reps != 0 {
		t.Errorf("reps = %d, want 0 for a timed set", set.Reps)
	}
}

// TestBuildSessionGroups maps template groups onto the new session exercise
// ids and pins each member's set count to the round count.
func TestBuildSessionGroups(t *testing.T) {
	tpl := pushDayTemplate()
	tpl.Exercises[0].DefaultSets = 5 // overridden by the group's rounds
	tpl.Groups = []models.TemplateGroup{{
		ID:                uuid.New(),
		Kind:              models.GroupSuperset,
		ExerciseIDs:       []uuid.UUID{tpl.Exercises[0].ID, tpl.Exercises[1].ID},
		Rounds:            3,
		RestAfterRoundSec: 90,
	}}

	sess, err := BuildSession(tpl, nil, 1, time.Now())
	if err != nil {
		t.Fatalf("BuildSession: %v", err)
	}
	if len(sess.Groups) != 1 {
		t.Fatalf("group count = %d, want 1", len(sess.Groups))
	}
	g := sess.Groups[0]
	if g.CurrentRound != 1 || g.TotalRounds != 3 {
		t.Errorf("rounds = %d/%d, want 1/3", g.CurrentRound, g.TotalRounds)
	}
	if g.RestAfterRoundSec != 90 {
		t.Errorf("round rest = %d, want 90", g.RestAfterRoundSec)
	}
	for i, exID := range g.ExerciseIDs {
		ex := sess.Exercise(exID)
		if ex == nil {
			t.Fatalf("group member %d does not resolve to a session exercise", i)
		}
		if len(ex.Sets) != 3 {
			t.Errorf("%s set count = %d, want one per round", ex.Name, len(ex.Sets))
		}
	}
}

func TestBuildSessionRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.WorkoutTemplate)
	}{
		{"no exercises", func(tpl *models.WorkoutTemplate) { tpl.Exercises = nil }},
		{"zero rounds", func(tpl *models.WorkoutTemplate) {
			tpl.Groups = []models.TemplateGroup{{
				Kind:        models.GroupSuperset,
				ExerciseIDs: []uuid.UUID{tpl.Exercises[0].ID, tpl.Exercises[1].ID},
				Rounds:      0,
			}}
		}},
		{"unknown group member", func(tpl *models.WorkoutTemplate) {
			tpl.Groups = []models.TemplateGroup{{
				Kind:        models.GroupSuperset,
				ExerciseIDs: []uuid.UUID{tpl.Exercises[0].ID, uuid.New()},
				Rounds:      3,
			}}
		}},
		{"one-member superset", func(tpl *models.WorkoutTemplate) {
			tpl.Groups = []models.TemplateGroup{{
				Kind:        models.GroupSuperset,
				ExerciseIDs: []uuid.UUID{tpl.Exercises[0].ID},
				Rounds:      3,
			}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := pushDayTemplate()
			tt.mutate(tpl)
			if _, err := BuildSession(tpl, nil, 1, time.Now()); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

// TestLifecycleTransitions covers the legal state walk and every rejected
// transition.
func TestLifecycleTransitions(t *testing.T) {
	now := time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)

	sess, err := BuildSession(pushDayTemplate(), nil, 1, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("BuildSession: %v", err)
	}

	if err := Resume(sess); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("resume active: error = %v, want ErrInvalidOperation", err)
	}
	if err := Pause(sess); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if sess.State != models.StatePaused {
		t.Errorf("state = %s, want paused", sess.State)
	}
	if err := Pause(sess); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("pause paused: error = %v, want ErrInvalidOperation", err)
	}
	if err := Resume(sess); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if sess.State != models.StateActive {
		t.Errorf("state = %s, want active", sess.State)
	}

	if err := End(sess, now); err != nil {
		t.Fatalf("end: %v", err)
	}
	if sess.State != models.StateCompleted {
		t.Errorf("state = %s, want completed", sess.State)
	}
	if sess.EndedAt == nil || !sess.EndedAt.Equal(now) {
		t.Errorf("endedAt = %v, want %v", sess.EndedAt, now)
	}

	for name, fn := range map[string]func() error{
		"pause completed":  func() error { return Pause(sess) },
		"resume completed": func() error { return Resume(sess) },
		"end completed":    func() error { return End(sess, now) },
	} {
		if err := fn(); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("%s: error = %v, want ErrInvalidOperation", name, err)
		}
	}
}

// TestEndKeepsUnfinishedSets ends a session with open sets and checks nothing
// is auto-completed.
func TestEndKeepsUnfinishedSets(t *testing.T) {
	sess, err := BuildSession(pushDayTemplate(), nil, 1, time.Now())
	if err != nil {
		t.Fatalf("BuildSession: %v", err)
	}
	ex := &sess.Exercises[0]
	if _, err := ToggleSet(ex, ex.Sets[0].ID, time.Now()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if err := End(sess, time.Now()); err != nil {
		t.Fatalf("end: %v", err)
	}
	completed := 0
	for _, set := range ex.Sets {
		if set.Completed {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("completed sets = %d, want exactly the one toggled by hand", completed)
	}
}

// TestEndPausedSession: ending works from paused as well as active.
func TestEndPausedSession(t *testing.T) {
	sess, err := BuildSession(pushDayTemplate(), nil, 1, time.Now())
	if err != nil {
		t.Fatalf("BuildSession: %v", err)
	}
	if err := Pause(sess); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := End(sess, time.Now()); err != nil {
		t.Errorf("end paused: %v", err)
	}
}
