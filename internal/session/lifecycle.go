package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
)

// BuildSession materializes a live session from a template. Everything the
// session needs is copied in: names, weights, reps and rest come from the
// catalog's last-used values when present, otherwise from the template
// defaults. Later edits to the template or catalog never reach a session
// already under way.
//
// history maps catalog exercise id to its catalog entry; entries may be
// missing, in which case the template defaults stand alone.
func BuildSession(tpl *models.WorkoutTemplate, history map[uuid.UUID]*models.CatalogExercise, userID int, now time.Time) (*models.WorkoutSession, error) {
	if len(tpl.Exercises) == 0 {
		return nil, fmt.Errorf("%w: template %q has no exercises", ErrInvalidInput, tpl.Name)
	}

	// Group membership pins the set count of its exercises to the round count.
	roundsFor := make(map[uuid.UUID]int)
	for _, g := range tpl.Groups {
		if g.Rounds < 1 {
			return nil, fmt.Errorf("%w: group %d needs at least one round", ErrInvalidInput, g.GroupIndex)
		}
		for _, exID := range g.ExerciseIDs {
			roundsFor[exID] = g.Rounds
		}
	}

	ordered := make([]models.TemplateExercise, len(tpl.Exercises))
	copy(ordered, tpl.Exercises)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})

	sess := &models.WorkoutSession{
		ID:         uuid.New(),
		UserID:     userID,
		TemplateID: tpl.ID,
		Name:       tpl.Name,
		State:      models.StateActive,
		StartedAt:  now,
		Exercises:  make([]models.SessionExercise, 0, len(ordered)),
	}

	sessionIDFor := make(map[uuid.UUID]uuid.UUID, len(ordered))
	for i, tex := range ordered {
		cat := history[tex.CatalogID]

		name := tex.Name
		weight := tex.DefaultWeight
		reps := tex.DefaultReps
		restSec := tex.RestAfterSec
		if cat != nil {
			if cat.Name != "" {
				name = cat.Name
			}
			if cat.LastUsedWeight != nil {
				weight = *cat.LastUsedWeight
			}
			if cat.LastUsedReps != nil {
				reps = *cat.LastUsedReps
			}
			if cat.LastUsedRestSec != nil {
				restSec = *cat.LastUsedRestSec
			}
		}

		count := tex.DefaultSets
		if r, ok := roundsFor[tex.ID]; ok {
			count = r
		}
		if count < 1 {
			count = 1
		}

		timed := tex.DefaultDurationSec > 0 || (cat != nil && cat.TimeBased)
		sets := make([]models.SessionSet, 0, count)
		for n := 0; n < count; n++ {
			set := models.SessionSet{ID: uuid.New(), OrderIndex: n, Weight: weight}
			if timed {
				set.DurationSec = tex.DefaultDurationSec
			} else {
				set.Reps = reps
			}
			sets = append(sets, set)
		}

		ex := models.SessionExercise{
			ID:           uuid.New(),
			CatalogID:    tex.CatalogID,
			Name:         name,
			OrderIndex:   i,
			RestAfterSec: restSec,
			Sets:         sets,
		}
		sessionIDFor[tex.ID] = ex.ID
		sess.Exercises = append(sess.Exercises, ex)
	}

	for _, tg := range tpl.Groups {
		members := make([]uuid.UUID, 0, len(tg.ExerciseIDs))
		for _, texID := range tg.ExerciseIDs {
			sid, ok := sessionIDFor[texID]
			if !ok {
				return nil, fmt.Errorf("%w: group %d references unknown template exercise %s", ErrInvalidInput, tg.GroupIndex, texID)
			}
			members = append(members, sid)
		}
		sess.Groups = append(sess.Groups, models.ExerciseGroup{
			ID:                uuid.New(),
			Kind:              tg.Kind,
			GroupIndex:        tg.GroupIndex,
			ExerciseIDs:       members,
			CurrentRound:      1,
			TotalRounds:       tg.Rounds,
			RestAfterRoundSec: tg.RestAfterRoundSec,
		})
	}

	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return sess, nil
}

// Pause suspends an active session. Paused sessions still hold the user's
// single live-session slot.
func Pause(sess *models.WorkoutSession) error {
	if sess.State != models.StateActive {
		return fmt.Errorf("%w: cannot pause a %s session", ErrInvalidOperation, sess.State)
	}
	sess.State = models.StatePaused
	return nil
}

// Resume reactivates a paused session.
func Resume(sess *models.WorkoutSession) error {
	if sess.State != models.StatePaused {
		return fmt.Errorf("%w: cannot resume a %s session", ErrInvalidOperation, sess.State)
	}
	sess.State = models.StateActive
	return nil
}

// End completes a live session and stamps its end time. Unfinished sets stay
// exactly as they are; the record keeps what actually happened.
func End(sess *models.WorkoutSession, now time.Time) error {
	if !sess.IsLive() {
		return fmt.Errorf("%w: cannot end a %s session", ErrInvalidOperation, sess.State)
	}
	sess.State = models.StateCompleted
	t := now
	sess.EndedAt = &t
	return nil
}
