package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// setRequest covers both set shapes: a rep-based set carries reps, a
// duration-based one carries duration_sec. A positive duration selects the
// timed variant.
type setRequest struct {
	WeightKg    float64 `json:"weight_kg"`
	Reps        int     `json:"reps"`
	DurationSec float64 `json:"duration_sec"`
	Warmup      bool    `json:"warmup"`
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id", "session")
	if !ok {
		return
	}
	exerciseID, ok := pathUUID(w, r, "exerciseID", "exercise")
	if !ok {
		return
	}
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var (
		sess any
		err  error
	)
	if req.DurationSec > 0 {
		sess, err = s.svc.AddTimedSet(r.Context(), sessionID, exerciseID, req.WeightKg, req.DurationSec, req.Warmup)
	} else {
		sess, err = s.svc.AddSet(r.Context(), sessionID, exerciseID, req.WeightKg, req.Reps, req.Warmup)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	sessionID, exerciseID, setID, ok := setPath(w, r)
	if !ok {
		return
	}
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var (
		sess any
		err  error
	)
	if req.DurationSec > 0 {
		sess, err = s.svc.UpdateTimedSet(r.Context(), sessionID, exerciseID, setID, req.WeightKg, req.DurationSec)
	} else {
		sess, err = s.svc.UpdateSet(r.Context(), sessionID, exerciseID, setID, req.WeightKg, req.Reps)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleRemoveSet(w http.ResponseWriter, r *http.Request) {
	sessionID, exerciseID, setID, ok := setPath(w, r)
	if !ok {
		return
	}
	sess, err := s.svc.RemoveSet(r.Context(), sessionID, exerciseID, setID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleToggleSet(w http.ResponseWriter, r *http.Request) {
	sessionID, exerciseID, setID, ok := setPath(w, r)
	if !ok {
		return
	}
	sess, err := s.svc.ToggleSet(r.Context(), sessionID, exerciseID, setID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSetSetRest(w http.ResponseWriter, r *http.Request) {
	sessionID, exerciseID, setID, ok := setPath(w, r)
	if !ok {
		return
	}
	var req struct {
		RestSec *int `json:"rest_sec"` // null clears the override
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	sess, err := s.svc.SetSetRest(r.Context(), sessionID, exerciseID, setID, req.RestSec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleInsertWarmup(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id", "session")
	if !ok {
		return
	}
	exerciseID, ok := pathUUID(w, r, "exerciseID", "exercise")
	if !ok {
		return
	}
	sess, err := s.svc.InsertWarmup(r.Context(), sessionID, exerciseID, warmupStrategy(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleInsertWarmupAll(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id", "session")
	if !ok {
		return
	}
	sess, err := s.svc.InsertWarmupAll(r.Context(), sessionID, warmupStrategy(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSetNote(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id", "session")
	if !ok {
		return
	}
	exerciseID, ok := pathUUID(w, r, "exerciseID", "exercise")
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	sess, err := s.svc.SetExerciseNote(r.Context(), sessionID, exerciseID, req.Note)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSetFinished(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id", "session")
	if !ok {
		return
	}
	exerciseID, ok := pathUUID(w, r, "exerciseID", "exercise")
	if !ok {
		return
	}
	var req struct {
		Finished bool `json:"finished"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	sess, err := s.svc.SetExerciseFinished(r.Context(), sessionID, exerciseID, req.Finished)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSetExerciseRest(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id", "session")
	if !ok {
		return
	}
	exerciseID, ok := pathUUID(w, r, "exerciseID", "exercise")
	if !ok {
		return
	}
	var req struct {
		RestSec int `json:"rest_sec"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	sess, err := s.svc.SetExerciseRest(r.Context(), sessionID, exerciseID, req.RestSec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCompleteGroupSet(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id", "session")
	if !ok {
		return
	}
	groupID, ok := pathUUID(w, r, "groupID", "group")
	if !ok {
		return
	}
	exerciseID, ok := pathUUID(w, r, "exerciseID", "exercise")
	if !ok {
		return
	}
	setID, ok := pathUUID(w, r, "setID", "set")
	if !ok {
		return
	}
	sess, err := s.svc.CompleteGroupSet(r.Context(), sessionID, groupID, exerciseID, setID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleAdvanceRound(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id", "session")
	if !ok {
		return
	}
	groupID, ok := pathUUID(w, r, "groupID", "group")
	if !ok {
		return
	}
	sess, err := s.svc.AdvanceGroupRound(r.Context(), sessionID, groupID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// setPath parses the session/exercise/set id triple shared by the set routes.
func setPath(w http.ResponseWriter, r *http.Request) (sessionID, exerciseID, setID uuid.UUID, ok bool) {
	sessionID, ok = pathUUID(w, r, "id", "session")
	if !ok {
		return
	}
	exerciseID, ok = pathUUID(w, r, "exerciseID", "exercise")
	if !ok {
		return
	}
	setID, ok = pathUUID(w, r, "setID", "set")
	return
}

// warmupStrategy reads the strategy name from the request body, defaulting
// to "standard". An empty body is fine.
func warmupStrategy(r *http.Request) string {
	var req struct {
		Strategy string `json:"strategy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Strategy == "" {
		return "standard"
	}
	return req.Strategy
}
