package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/warmup"
)

// Set mutations keep one invariant at all times: the sets of an exercise,
// ordered by orderIndex, form a gapless sequence 0..n-1 with warmups first.
// Every function here re-establishes that invariant before returning.

// AddSet appends a set after the exercise's current last set. Marking the
// exercise finished is undone, since it now has an incomplete set.
func AddSet(ex *models.SessionExercise, weightKg float64, reps int, isWarmup bool) (*models.SessionSet, error) {
	if weightKg <= 0 {
		return nil, fmt.Errorf("%w: weight must be positive, got %v", ErrInvalidInput, weightKg)
	}
	if reps <= 0 {
		return nil, fmt.Errorf("%w: reps must be positive, got %d", ErrInvalidInput, reps)
	}
	set := models.SessionSet{
		ID:         uuid.New(),
		OrderIndex: nextOrderIndex(ex),
		Weight:     weightKg,
		Reps:       reps,
		Warmup:     isWarmup,
	}
	ex.Sets = append(ex.Sets, set)
	ex.Finished = false
	return &ex.Sets[len(ex.Sets)-1], nil
}

// AddTimedSet appends a duration-based set. Weight may be zero for bodyweight
// holds, but never negative.
func AddTimedSet(ex *models.SessionExercise, weightKg float64, durationSec float64, isWarmup bool) (*models.SessionSet, error) {
	if weightKg < 0 {
		return nil, fmt.Errorf("%w: weight must not be negative, got %v", ErrInvalidInput, weightKg)
	}
	if durationSec <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidInput, durationSec)
	}
	set := models.SessionSet{
		ID:          uuid.New(),
		OrderIndex:  nextOrderIndex(ex),
		Weight:      weightKg,
		DurationSec: durationSec,
		Warmup:      isWarmup,
	}
	ex.Sets = append(ex.Sets, set)
	ex.Finished = false
	return &ex.Sets[len(ex.Sets)-1], nil
}

func nextOrderIndex(ex *models.SessionExercise) int {
	next := 0
	for i := range ex.Sets {
		if ex.Sets[i].OrderIndex >= next {
			next = ex.Sets[i].OrderIndex + 1
		}
	}
	return next
}

// RemoveSet deletes a set and renumbers the survivors to close the gap.
// The last remaining set of an exercise cannot be removed.
func RemoveSet(ex *models.SessionExercise, setID uuid.UUID) error {
	idx := -1
	for i := range ex.Sets {
		if ex.Sets[i].ID == setID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrSetNotFound, setID)
	}
	if len(ex.Sets) == 1 {
		return fmt.Errorf("%w: an exercise keeps at least one set", ErrInvalidOperation)
	}
	ex.Sets = append(ex.Sets[:idx], ex.Sets[idx+1:]...)
	renumberSets(ex)
	return nil
}

// renumberSets sorts by the current orderIndex and reassigns 0..n-1.
func renumberSets(ex *models.SessionExercise) {
	sort.SliceStable(ex.Sets, func(i, j int) bool {
		return ex.Sets[i].OrderIndex < ex.Sets[j].OrderIndex
	})
	for i := range ex.Sets {
		ex.Sets[i].OrderIndex = i
	}
}

// UpdateSet rewrites the target values of a rep-based set in place.
func UpdateSet(ex *models.SessionExercise, setID uuid.UUID, weightKg float64, reps int) error {
	if weightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive, got %v", ErrInvalidInput, weightKg)
	}
	if reps <= 0 {
		return fmt.Errorf("%w: reps must be positive, got %d", ErrInvalidInput, reps)
	}
	set := findSet(ex, setID)
	if set == nil {
		return fmt.Errorf("%w: %s", ErrSetNotFound, setID)
	}
	set.Weight = weightKg
	set.Reps = reps
	return nil
}

// UpdateTimedSet rewrites the target values of a duration-based set.
func UpdateTimedSet(ex *models.SessionExercise, setID uuid.UUID, weightKg float64, durationSec float64) error {
	if weightKg < 0 {
		return fmt.Errorf("%w: weight must not be negative, got %v", ErrInvalidInput, weightKg)
	}
	if durationSec <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidInput, durationSec)
	}
	set := findSet(ex, setID)
	if set == nil {
		return fmt.Errorf("%w: %s", ErrSetNotFound, setID)
	}
	set.Weight = weightKg
	set.DurationSec = durationSec
	return nil
}

// SetRest overrides the rest timer that follows a single set. A nil restSec
// clears the override.
func SetRest(ex *models.SessionExercise, setID uuid.UUID, restSec *int) error {
	if restSec != nil && *restSec < 0 {
		return fmt.Errorf("%w: rest must not be negative, got %d", ErrInvalidInput, *restSec)
	}
	set := findSet(ex, setID)
	if set == nil {
		return fmt.Errorf("%w: %s", ErrSetNotFound, setID)
	}
	set.RestSec = restSec
	return nil
}

// ToggleSet flips a set's completion state. Completing stamps completedAt
// with now; un-completing clears it. Toggling twice restores the original
// completion state.
func ToggleSet(ex *models.SessionExercise, setID uuid.UUID, now time.Time) (*models.SessionSet, error) {
	set := findSet(ex, setID)
	if set == nil {
		return nil, fmt.Errorf("%w: %s", ErrSetNotFound, setID)
	}
	set.Completed = !set.Completed
	if set.Completed {
		t := now
		set.CompletedAt = &t
	} else {
		set.CompletedAt = nil
	}
	return set, nil
}

func findSet(ex *models.SessionExercise, setID uuid.UUID) *models.SessionSet {
	for i := range ex.Sets {
		if ex.Sets[i].ID == setID {
			return &ex.Sets[i]
		}
	}
	return nil
}

// InsertWarmupSets prepends a planned warmup ramp to an exercise. The whole
// batch lands before the existing sets, which shift up by the batch size in
// one step. An exercise that already has any warmup set is left untouched,
// so repeated calls cannot stack ramps. Reports whether anything changed.
func InsertWarmupSets(ex *models.SessionExercise, planned []warmup.PlannedSet) bool {
	if len(planned) == 0 || ex.HasWarmup() {
		return false
	}

	// New warmups inherit the rest timer of the first working set.
	var restSec *int
	if ref := ex.FirstWorkingSet(); ref != nil && ref.RestSec != nil {
		r := *ref.RestSec
		restSec = &r
	}

	k := len(planned)
	next := make([]models.SessionSet, 0, len(ex.Sets)+k)
	for i, p := range planned {
		set := models.SessionSet{
			ID:         uuid.New(),
			OrderIndex: i,
			Weight:     p.Weight,
			Reps:       p.Reps,
			Warmup:     true,
		}
		if restSec != nil {
			r := *restSec
			set.RestSec = &r
		}
		next = append(next, set)
	}
	for _, s := range ex.Sets {
		s.OrderIndex += k
		next = append(next, s)
	}
	ex.Sets = next
	ex.Finished = false
	return true
}
