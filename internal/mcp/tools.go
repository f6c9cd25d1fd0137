package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Session references ---
//
// Tools let the model reference exercises and sets the way a lifter would
// speak: by name ("bench press") or by 1-based position. Resolution always
// happens against a fresh read of the active session.

// findExercise resolves an exercise reference against the session. A numeric
// reference is a 1-based position; anything else matches names, exact before
// substring, case-insensitively.
func findExercise(sess *models.WorkoutSession, ref string) (*models.SessionExercise, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(sess.Exercises) {
			return nil, fmt.Errorf("exercise %d is out of range (session has %d exercises)", n, len(sess.Exercises))
		}
		return &sess.Exercises[n-1], nil
	}

	lower := strings.ToLower(ref)
	for i := range sess.Exercises {
		if strings.ToLower(sess.Exercises[i].Name) == lower {
			return &sess.Exercises[i], nil
		}
	}

	var match *models.SessionExercise
	for i := range sess.Exercises {
		if strings.Contains(strings.ToLower(sess.Exercises[i].Name), lower) {
			if match != nil {
				return nil, fmt.Errorf("%q matches more than one exercise", ref)
			}
			match = &sess.Exercises[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no exercise matching %q in the active session", ref)
	}
	return match, nil
}

// findSet resolves a set within an exercise. number is 1-based; zero means
// "the first set not yet completed".
func findSet(ex *models.SessionExercise, number int) (*models.SessionSet, error) {
	if number > 0 {
		set := ex.SetAt(number - 1)
		if set == nil {
			return nil, fmt.Errorf("set %d is out of range (%s has %d sets)", number, ex.Name, len(ex.Sets))
		}
		return set, nil
	}
	for i := range ex.Sets {
		if !ex.Sets[i].Completed {
			return &ex.Sets[i], nil
		}
	}
	return nil, fmt.Errorf("all sets of %s are already completed", ex.Name)
}

// groupFor returns the group the exercise belongs to, or nil.
func groupFor(sess *models.WorkoutSession, exerciseID uuid.UUID) *models.ExerciseGroup {
	for i := range sess.Groups {
		for _, id := range sess.Groups[i].ExerciseIDs {
			if id == exerciseID {
				return &sess.Groups[i]
			}
		}
	}
	return nil
}

// resolveTemplate turns a template reference (id or name) into an id.
func resolveTemplate(templates []models.WorkoutTemplate, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}

	lower := strings.ToLower(ref)
	for _, t := range templates {
		if strings.ToLower(t.Name) == lower {
			return t.ID, nil
		}
	}

	var match uuid.UUID
	var matchName string
	for _, t := range templates {
		if strings.Contains(strings.ToLower(t.Name), lower) {
			if match != uuid.Nil {
				return uuid.Nil, fmt.Errorf("%q matches both %q and %q", ref, matchName, t.Name)
			}
			match = t.ID
			matchName = t.Name
		}
	}
	if match == uuid.Nil {
		return uuid.Nil, fmt.Errorf("no template matching %q", ref)
	}
	return match, nil
}

// --- Compact views ---
//
// Mutation tools and history answer with a trimmed view instead of the full
// aggregate, so the model sees progress without wading through every set id.

type exerciseProgress struct {
	Name          string `json:"name"`
	CompletedSets int    `json:"completed_sets"`
	TotalSets     int    `json:"total_sets"`
	WarmupSets    int    `json:"warmup_sets,omitempty"`
	Finished      bool   `json:"finished,omitempty"`
}

type groupProgress struct {
	Kind         string   `json:"kind"`
	Exercises    []string `json:"exercises"`
	CurrentRound int      `json:"current_round"`
	TotalRounds  int      `json:"total_rounds"`
}

type sessionSummary struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	State       string             `json:"state"`
	StartedAt   time.Time          `json:"started_at"`
	EndedAt     *time.Time         `json:"ended_at,omitempty"`
	DurationMin float64            `json:"duration_min,omitempty"`
	VolumeKg    float64            `json:"volume_kg"`
	Exercises   []exerciseProgress `json:"exercises"`
	Groups      []groupProgress    `json:"groups,omitempty"`
}

func summarize(sess *models.WorkoutSession) sessionSummary {
	sum := sessionSummary{
		ID:        sess.ID,
		Name:      sess.Name,
		State:     string(sess.State),
		StartedAt: sess.StartedAt,
		EndedAt:   sess.EndedAt,
	}
	if sess.EndedAt != nil {
		sum.DurationMin = sess.EndedAt.Sub(sess.StartedAt).Minutes()
	}

	for i := range sess.Exercises {
		ex := &sess.Exercises[i]
		ep := exerciseProgress{
			Name:      ex.Name,
			TotalSets: len(ex.Sets),
			Finished:  ex.Finished,
		}
		for _, set := range ex.Sets {
			if set.Warmup {
				ep.WarmupSets++
			}
			if set.Completed {
				ep.CompletedSets++
				if !set.Warmup {
					sum.VolumeKg += set.Weight * float64(set.Reps)
				}
			}
		}
		sum.Exercises = append(sum.Exercises, ep)
	}

	for _, g := range sess.Groups {
		gp := groupProgress{
			Kind:         string(g.Kind),
			CurrentRound: g.CurrentRound,
			TotalRounds:  g.TotalRounds,
		}
		for _, id := range g.ExerciseIDs {
			if ex := sess.Exercise(id); ex != nil {
				gp.Exercises = append(gp.Exercises, ex.Name)
			}
		}
		sum.Groups = append(sum.Groups, gp)
	}
	return sum
}

// --- Tool definitions ---

var toolGetActiveSession = mcp.NewTool("get_active_session",
	mcp.WithDescription("Get the full in-progress workout session: every exercise with its sets (weight, reps, warmup flag, completion), notes, and superset/circuit round state."),
)

var toolStartSession = mcp.NewTool("start_session",
	mcp.WithDescription("Start a workout session from a template. Fails if a session is already active or paused."),
	mcp.WithString("template", mcp.Required(), mcp.Description("Template name (e.g. 'Push Day') or template ID")),
)

var toolLogSet = mcp.NewTool("log_set",
	mcp.WithDescription("Mark a set as done (or undo it if already done). Inside a superset/circuit this also advances the round once every member has a completed set for it."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name (partial match, e.g. 'bench') or 1-based position in the session")),
	mcp.WithNumber("set", mcp.Description("1-based set number. Defaults to the first set not yet completed.")),
)

var toolAddSet = mcp.NewTool("add_set",
	mcp.WithDescription("Append a set to an exercise in the active session."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name or 1-based position")),
	mcp.WithNumber("weight_kg", mcp.Required(), mcp.Description("Weight in kilograms")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Planned repetitions")),
	mcp.WithBoolean("warmup", mcp.Description("Mark the set as a warmup. Defaults to false.")),
)

var toolInsertWarmup = mcp.NewTool("insert_warmup",
	mcp.WithDescription("Insert a calculated warmup ramp before the working sets, derived from each exercise's first working set. Exercises that already have warmups are left alone."),
	mcp.WithString("exercise", mcp.Description("Exercise name or 1-based position. Omit to insert warmups for every eligible exercise.")),
	mcp.WithString("strategy", mcp.Description("Ramp strategy. Defaults to 'standard'."), mcp.Enum("conservative", "standard", "minimal")),
)

var toolAdvanceRound = mcp.NewTool("advance_round",
	mcp.WithDescription("Manually advance a superset/circuit to its next round. Requires a completed set for the current round in every member exercise."),
	mcp.WithNumber("group", mcp.Description("1-based group number. Defaults to the only group when the session has exactly one.")),
)

var toolEndSession = mcp.NewTool("end_session",
	mcp.WithDescription("Finish the active workout session and return its final summary."),
)

var toolCancelSession = mcp.NewTool("cancel_session",
	mcp.WithDescription("Discard the active workout session entirely. This cannot be undone."),
)

var toolListTemplates = mcp.NewTool("list_templates",
	mcp.WithDescription("List the workout templates a session can be started from."),
)

var toolGetSessionHistory = mcp.NewTool("get_session_history",
	mcp.WithDescription("Summaries of completed workout sessions: date, duration, per-exercise set counts, and total volume."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

// --- Tool handlers ---

// activeSessionFor loads the caller's live session, turning the not-found
// case into a tool-level message rather than an error.
func (h *handlers) activeSessionFor(ctx context.Context) (*models.WorkoutSession, *mcp.CallToolResult) {
	sess, err := h.ds.Active(ctx, UserIDFromContext(ctx))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, mcp.NewToolResultError("no active session; start one with start_session")
		}
		h.log.Error("mcp active session lookup", "error", err)
		return nil, mcp.NewToolResultError("query failed: " + err.Error())
	}
	return sess, nil
}

func (h *handlers) getActiveSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := h.activeSessionFor(ctx)
	if errResult != nil {
		return errResult, nil
	}

	result, err := mcp.NewToolResultJSON(sess)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) startSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError("template parameter is required"), nil
	}

	uid := UserIDFromContext(ctx)
	templates, err := h.ds.Templates(ctx, uid)
	if err != nil {
		h.log.Error("mcp start_session templates", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	templateID, err := resolveTemplate(templates, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sess, err := h.ds.Start(ctx, uid, templateID)
	if err != nil {
		if errors.Is(err, session.ErrActiveSessionExists) {
			return mcp.NewToolResultError("a session is already active; end or cancel it first"), nil
		}
		h.log.Error("mcp start_session", "error", err)
		return mcp.NewToolResultError("start failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(summarize(sess))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) logSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exRef, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	setNumber := req.GetInt("set", 0)

	sess, errResult := h.activeSessionFor(ctx)
	if errResult != nil {
		return errResult, nil
	}

	ex, err := findExercise(sess, exRef)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	set, err := findSet(ex, setNumber)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Grouped exercises go through the round-aware path so finishing the
	// last member of a round advances it.
	group := groupFor(sess, ex.ID)

	var updated *models.WorkoutSession
	if group != nil {
		updated, err = h.ds.CompleteGroupSet(ctx, sess.ID, group.ID, ex.ID, set.ID)
	} else {
		updated, err = h.ds.ToggleSet(ctx, sess.ID, ex.ID, set.ID)
	}
	if err != nil {
		h.log.Error("mcp log_set", "error", err)
		return mcp.NewToolResultError("logging set failed: " + err.Error()), nil
	}

	confirmation := map[string]any{
		"exercise": ex.Name,
		"set":      set.OrderIndex + 1,
	}
	if newEx := updated.Exercise(ex.ID); newEx != nil {
		if newSet := newEx.Set(set.ID); newSet != nil {
			confirmation["completed"] = newSet.Completed
			confirmation["weight_kg"] = newSet.Weight
			confirmation["reps"] = newSet.Reps
		}
	}
	if group != nil {
		if newGroup := updated.Group(group.ID); newGroup != nil {
			confirmation["round"] = newGroup.CurrentRound
			confirmation["total_rounds"] = newGroup.TotalRounds
		}
	}

	result, err := mcp.NewToolResultJSON(confirmation)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) addSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exRef, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	weight, err := req.RequireFloat("weight_kg")
	if err != nil {
		return mcp.NewToolResultError("weight_kg parameter is required"), nil
	}
	reps, err := req.RequireInt("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}
	warmup := req.GetBool("warmup", false)

	sess, errResult := h.activeSessionFor(ctx)
	if errResult != nil {
		return errResult, nil
	}

	ex, err := findExercise(sess, exRef)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	updated, err := h.ds.AddSet(ctx, sess.ID, ex.ID, weight, reps, warmup)
	if err != nil {
		h.log.Error("mcp add_set", "error", err)
		return mcp.NewToolResultError("adding set failed: " + err.Error()), nil
	}

	confirmation := map[string]any{
		"exercise":  ex.Name,
		"weight_kg": weight,
		"reps":      reps,
		"warmup":    warmup,
	}
	if newEx := updated.Exercise(ex.ID); newEx != nil {
		confirmation["total_sets"] = len(newEx.Sets)
	}

	result, err := mcp.NewToolResultJSON(confirmation)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) insertWarmup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	strategy := req.GetString("strategy", "standard")
	exRef := req.GetString("exercise", "")

	sess, errResult := h.activeSessionFor(ctx)
	if errResult != nil {
		return errResult, nil
	}

	var updated *models.WorkoutSession
	var err error
	if exRef != "" {
		ex, ferr := findExercise(sess, exRef)
		if ferr != nil {
			return mcp.NewToolResultError(ferr.Error()), nil
		}
		updated, err = h.ds.InsertWarmup(ctx, sess.ID, ex.ID, strategy)
	} else {
		updated, err = h.ds.InsertWarmupAll(ctx, sess.ID, strategy)
	}
	if err != nil {
		h.log.Error("mcp insert_warmup", "error", err)
		return mcp.NewToolResultError("inserting warmups failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"strategy": strategy,
		"added":    warmupDiff(sess, updated),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// warmupDiff reports the warmup sets present after the insertion that were
// not there before, per exercise.
func warmupDiff(before, after *models.WorkoutSession) []map[string]any {
	prior := make(map[uuid.UUID]int, len(before.Exercises))
	for i := range before.Exercises {
		n := 0
		for _, set := range before.Exercises[i].Sets {
			if set.Warmup {
				n++
			}
		}
		prior[before.Exercises[i].ID] = n
	}

	var added []map[string]any
	for i := range after.Exercises {
		ex := &after.Exercises[i]
		var warmups []models.SessionSet
		for _, set := range ex.Sets {
			if set.Warmup {
				warmups = append(warmups, set)
			}
		}
		if len(warmups) <= prior[ex.ID] {
			continue
		}
		sets := make([]map[string]any, 0, len(warmups)-prior[ex.ID])
		for _, set := range warmups[prior[ex.ID]:] {
			sets = append(sets, map[string]any{"weight_kg": set.Weight, "reps": set.Reps})
		}
		added = append(added, map[string]any{"exercise": ex.Name, "sets": sets})
	}
	return added
}

func (h *handlers) advanceRound(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groupNumber := req.GetInt("group", 0)

	sess, errResult := h.activeSessionFor(ctx)
	if errResult != nil {
		return errResult, nil
	}

	if len(sess.Groups) == 0 {
		return mcp.NewToolResultError("the active session has no exercise groups"), nil
	}
	if groupNumber == 0 {
		if len(sess.Groups) > 1 {
			return mcp.NewToolResultError(fmt.Sprintf("session has %d groups; pass the group number", len(sess.Groups))), nil
		}
		groupNumber = 1
	}
	if groupNumber < 1 || groupNumber > len(sess.Groups) {
		return mcp.NewToolResultError(fmt.Sprintf("group %d is out of range (session has %d)", groupNumber, len(sess.Groups))), nil
	}
	group := &sess.Groups[groupNumber-1]

	updated, err := h.ds.AdvanceGroupRound(ctx, sess.ID, group.ID)
	if err != nil {
		if errors.Is(err, session.ErrInvalidOperation) {
			return mcp.NewToolResultError("cannot advance: " + err.Error()), nil
		}
		h.log.Error("mcp advance_round", "error", err)
		return mcp.NewToolResultError("advancing round failed: " + err.Error()), nil
	}

	confirmation := map[string]any{"group": groupNumber}
	if newGroup := updated.Group(group.ID); newGroup != nil {
		confirmation["kind"] = newGroup.Kind
		confirmation["current_round"] = newGroup.CurrentRound
		confirmation["total_rounds"] = newGroup.TotalRounds
	}

	result, err := mcp.NewToolResultJSON(confirmation)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) endSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := h.activeSessionFor(ctx)
	if errResult != nil {
		return errResult, nil
	}

	ended, err := h.ds.End(ctx, sess.ID)
	if err != nil {
		h.log.Error("mcp end_session", "error", err)
		return mcp.NewToolResultError("ending session failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(summarize(ended))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) cancelSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := h.activeSessionFor(ctx)
	if errResult != nil {
		return errResult, nil
	}

	if err := h.ds.Cancel(ctx, sess.ID); err != nil {
		h.log.Error("mcp cancel_session", "error", err)
		return mcp.NewToolResultError("cancelling session failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]string{
		"status": "cancelled",
		"name":   sess.Name,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := h.ds.Templates(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp list_templates", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(templates)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessionHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	sessions, err := h.ds.History(ctx, UserIDFromContext(ctx), start, end)
	if err != nil {
		h.log.Error("mcp get_session_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	summaries := make([]sessionSummary, 0, len(sessions))
	for i := range sessions {
		summaries = append(summaries, summarize(&sessions[i]))
	}

	result, err := mcp.NewToolResultJSON(summaries)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
