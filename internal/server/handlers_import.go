package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/liftlog/internal/importer"
	"github.com/claude/liftlog/internal/storage"
)

// handleImportHistory ingests a strength log export posted as the request
// body. Each session in the log becomes a completed workout session; sessions
// the user already has are skipped, so posting the same export twice is safe.
// With ?dry_run=1 the log is parsed and counted but nothing is written.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	dryRun := r.URL.Query().Get("dry_run") == "1" || r.URL.Query().Get("dry_run") == "true"

	started := time.Now()
	imp := importer.New(s.db, s.log, dryRun)
	result, err := imp.ImportReader(r.Context(), r.Body, uid)
	durationMs := int(time.Since(started).Milliseconds())

	if !dryRun {
		s.logImport(uid, "log_upload", result, err, durationMs)
	}

	if err != nil {
		s.log.Error("history import failed", "user_id", uid, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, importer.ErrBadLog) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]any{"error": err.Error(), "result": result})
		return
	}

	s.log.Info("history import finished",
		"user_id", uid,
		"dry_run", dryRun,
		"sessions_imported", result.SessionsImported,
		"sessions_skipped", result.SessionsSkipped,
		"sets_imported", result.SetsImported,
		"duration_ms", durationMs)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), uid, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// logImport records an import operation's result to the import_logs table.
func (s *Server) logImport(uid int, source string, result *importer.Result, importErr error, durationMs int) {
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}

	log := storage.ImportLog{
		UserID:           uid,
		Source:           source,
		Status:           status,
		RowsReceived:     result.SessionsParsed,
		SessionsInserted: result.SessionsImported,
		SessionsSkipped:  result.SessionsSkipped,
		SetsInserted:     result.SetsImported,
		DurationMs:       &durationMs,
		ErrorMessage:     errMsg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, log); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}
