package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

// supersetSession builds a live session with one two-exercise superset of the
// given round count. Each member has one planned set per round.
func supersetSession(rounds int) *models.WorkoutSession {
	return groupedTestSession(models.GroupSuperset, 2, rounds)
}

func groupedTestSession(kind models.GroupKind, members, rounds int) *models.WorkoutSession {
	sess := &models.WorkoutSession{
		ID:        uuid.New(),
		UserID:    1,
		Name:      "Upper A",
		State:     models.StateActive,
		StartedAt: time.Date(2025, 3, 14, 17, 0, 0, 0, time.UTC),
	}
	group := models.ExerciseGroup{
		ID:           uuid.New(),
		Kind:         kind,
		CurrentRound: 1,
		TotalRounds:  rounds,
	}
	names := []string{"Bench Press", "Barbell Row", "Overhead Press", "Pull-Up"}
	for i := 0; i < members; i++ {
		ex := models.SessionExercise{
			ID:        uuid.New(),
			CatalogID: uuid.New(),
			Name:      names[i%len(names)],
		}
		for r := 0; r < rounds; r++ {
			ex.Sets = append(ex.Sets, models.SessionSet{
				ID:         uuid.New(),
				OrderIndex: r,
				Weight:     60 + float64(10*i),
				Reps:       8,
			})
		}
		group.ExerciseIDs = append(group.ExerciseIDs, ex.ID)
		sess.Exercises = append(sess.Exercises, ex)
	}
	sess.Groups = []models.ExerciseGroup{group}
	return sess
}

// TestCanAdvanceRequiresAllMembers walks round one of a superset: after one
// member finishes its set the group must hold, after both it may advance.
func TestCanAdvanceRequiresAllMembers(t *testing.T) {
	sess := supersetSession(3)
	g := &sess.Groups[0]

	if CanAdvance(sess, g) {
		t.Fatal("group can advance before any set is completed")
	}

	first := sess.Exercise(g.ExerciseIDs[0])
	if _, err := ToggleSet(first, first.SetAt(0).ID, time.Now()); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if CanAdvance(sess, g) {
		t.Fatal("group can advance with one member outstanding")
	}

	second := sess.Exercise(g.ExerciseIDs[1])
	if _, err := ToggleSet(second, second.SetAt(0).ID, time.Now()); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !CanAdvance(sess, g) {
		t.Fatal("group cannot advance although every member completed the round")
	}
}

// TestCanAdvanceChecksCurrentRoundOnly completes round two's sets while round
// one is still open; the group must not advance off future work.
func TestCanAdvanceChecksCurrentRoundOnly(t *testing.T) {
	sess := supersetSession(3)
	g := &sess.Groups[0]

	for _, exID := range g.ExerciseIDs {
		ex := sess.Exercise(exID)
		if _, err := ToggleSet(ex, ex.SetAt(1).ID, time.Now()); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}
	if CanAdvance(sess, g) {
		t.Error("group can advance although the current round's sets are open")
	}
}

func TestAdvanceRound(t *testing.T) {
	g := &models.ExerciseGroup{CurrentRound: 1, TotalRounds: 3}

	if err := AdvanceRound(g); err != nil {
		t.Fatalf("AdvanceRound: %v", err)
	}
	if g.CurrentRound != 2 {
		t.Errorf("current round = %d, want 2", g.CurrentRound)
	}

	g.CurrentRound = 3
	if err := AdvanceRound(g); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("advancing past final round: error = %v, want ErrInvalidOperation", err)
	}
	if g.CurrentRound != 3 {
		t.Errorf("current round = %d after rejected advance, want 3", g.CurrentRound)
	}
}

// TestCompleteGroupSetAutoAdvance drives a full two-round superset through
// CompleteGroupSet and checks the round counter moves exactly when a round
// closes out.
func TestCompleteGroupSetAutoAdvance(t *testing.T) {
	sess := supersetSession(2)
	g := &sess.Groups[0]
	now := time.Now()

	a := sess.Exercise(g.ExerciseIDs[0])
	b := sess.Exercise(g.ExerciseIDs[1])

	if err := CompleteGroupSet(sess, g.ID, a.ID, a.SetAt(0).ID, now); err != nil {
		t.Fatalf("complete a1: %v", err)
	}
	if g.CurrentRound != 1 {
		t.Fatalf("round = %d after half a round, want 1", g.CurrentRound)
	}

	if err := CompleteGroupSet(sess, g.ID, b.ID, b.SetAt(0).ID, now); err != nil {
		t.Fatalf("complete b1: %v", err)
	}
	if g.CurrentRound != 2 {
		t.Fatalf("round = %d after closing round one, want 2", g.CurrentRound)
	}

	// Closing the final round completes the group but never walks past the
	// last round.
	if err := CompleteGroupSet(sess, g.ID, a.ID, a.SetAt(1).ID, now); err != nil {
		t.Fatalf("complete a2: %v", err)
	}
	if err := CompleteGroupSet(sess, g.ID, b.ID, b.SetAt(1).ID, now); err != nil {
		t.Fatalf("complete b2: %v", err)
	}
	if g.CurrentRound != 2 {
		t.Errorf("round = %d after final round, want to stay at 2", g.CurrentRound)
	}
	for _, exID := range g.ExerciseIDs {
		if ex := sess.Exercise(exID); !ex.Finished {
			t.Errorf("%s not marked finished after all rounds", ex.Name)
		}
	}
}

// TestCompleteGroupSetUntoggleUnfinishes toggles a completed set back off and
// expects the member's finished flag to drop with it.
func TestCompleteGroupSetUntoggleUnfinishes(t *testing.T) {
	sess := supersetSession(1)
	g := &sess.Groups[0]
	now := time.Now()

	a := sess.Exercise(g.ExerciseIDs[0])
	b := sess.Exercise(g.ExerciseIDs[1])
	if err := CompleteGroupSet(sess, g.ID, a.ID, a.SetAt(0).ID, now); err != nil {
		t.Fatalf("complete a: %v", err)
	}
	if err := CompleteGroupSet(sess, g.ID, b.ID, b.SetAt(0).ID, now); err != nil {
		t.Fatalf("complete b: %v", err)
	}
	if !a.Finished || !b.Finished {
		t.Fatal("members not finished after completing the only round")
	}

	if err := CompleteGroupSet(sess, g.ID, a.ID, a.SetAt(0).ID, now); err != nil {
		t.Fatalf("untoggle a: %v", err)
	}
	if a.Finished {
		t.Error("member still finished after its set was toggled back off")
	}
	if !b.Finished {
		t.Error("untouched member lost its finished flag")
	}
}

func TestCompleteGroupSetRejectsOutsiders(t *testing.T) {
	sess := supersetSession(2)
	g := &sess.Groups[0]

	// An exercise that exists in the session but is outside the group.
	loner := models.SessionExercise{
		ID:        uuid.New(),
		CatalogID: uuid.New(),
		Name:      "Face Pull",
		Sets:      []models.SessionSet{{ID: uuid.New(), Weight: 20, Reps: 15}},
	}
	sess.Exercises = append(sess.Exercises, loner)

	err := CompleteGroupSet(sess, g.ID, loner.ID, loner.Sets[0].ID, time.Now())
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("outside exercise: error = %v, want ErrInvalidInput", err)
	}

	err = CompleteGroupSet(sess, uuid.New(), loner.ID, loner.Sets[0].ID, time.Now())
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("unknown group: error = %v, want ErrGroupNotFound", err)
	}

	member := sess.Exercise(g.ExerciseIDs[0])
	err = CompleteGroupSet(sess, g.ID, member.ID, uuid.New(), time.Now())
	if !errors.Is(err, ErrSetNotFound) {
		t.Errorf("unknown set: error = %v, want ErrSetNotFound", err)
	}
}

// TestCircuitRotation runs one round of a three-station circuit and checks
// the group waits for the slowest station.
func TestCircuitRotation(t *testing.T) {
	sess := groupedTestSession(models.GroupCircuit, 3, 2)
	g := &sess.Groups[0]
	now := time.Now()

	for i, exID := range g.ExerciseIDs[:2] {
		ex := sess.Exercise(exID)
		if err := CompleteGroupSet(sess, g.ID, ex.ID, ex.SetAt(0).ID, now); err != nil {
			t.Fatalf("station %d: %v", i, err)
		}
		if g.CurrentRound != 1 {
			t.Fatalf("round = %d after %d of 3 stations, want 1", g.CurrentRound, i+1)
		}
	}
	last := sess.Exercise(g.ExerciseIDs[2])
	if err := CompleteGroupSet(sess, g.ID, last.ID, last.SetAt(0).ID, now); err != nil {
		t.Fatalf("last station: %v", err)
	}
	if g.CurrentRound != 2 {
		t.Errorf("round = %d after full rotation, want 2", g.CurrentRound)
	}
}
