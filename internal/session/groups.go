package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

// Round tracking for supersets and circuits. A group's current round is
// 1-based; round r is backed by the set at orderIndex r-1 in each member
// exercise.

// CanAdvance reports whether every member exercise has completed its set for
// the group's current round.
func CanAdvance(sess *models.WorkoutSession, g *models.ExerciseGroup) bool {
	for _, exID := range g.ExerciseIDs {
		ex := sess.Exercise(exID)
		if ex == nil {
			return false
		}
		set := ex.SetAt(g.CurrentRound - 1)
		if set == nil || !set.Completed {
			return false
		}
	}
	return true
}

// AdvanceRound moves the group to the next round. Advancing past the final
// round is rejected; completing the last round is what finishes the group,
// not stepping beyond it.
func AdvanceRound(g *models.ExerciseGroup) error {
	if g.CurrentRound >= g.TotalRounds {
		return fmt.Errorf("%w: group is at its final round %d", ErrInvalidOperation, g.TotalRounds)
	}
	g.CurrentRound++
	return nil
}

// CompleteGroupSet toggles one member's set and keeps the group's round and
// the members' finished flags in sync:
//
//   - when the toggle closes out the current round and rounds remain, the
//     group advances automatically;
//   - each member's finished flag is recomputed from its sets, so toggling a
//     set back off un-finishes the exercise as well.
func CompleteGroupSet(sess *models.WorkoutSession, groupID, exerciseID, setID uuid.UUID, now time.Time) error {
	g := sess.Group(groupID)
	if g == nil {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	if !groupHasMember(g, exerciseID) {
		return fmt.Errorf("%w: exercise %s is not part of group %s", ErrInvalidInput, exerciseID, groupID)
	}
	ex := sess.Exercise(exerciseID)
	if ex == nil {
		return fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
	}
	if _, err := ToggleSet(ex, setID, now); err != nil {
		return err
	}

	if g.CurrentRound < g.TotalRounds && CanAdvance(sess, g) {
		g.CurrentRound++
	}

	for _, exID := range g.ExerciseIDs {
		member := sess.Exercise(exID)
		if member == nil {
			continue
		}
		member.Finished = member.AllSetsCompleted()
	}
	return nil
}

func groupHasMember(g *models.ExerciseGroup, exerciseID uuid.UUID) bool {
	for _, id := range g.ExerciseIDs {
		if id == exerciseID {
			return true
		}
	}
	return false
}
