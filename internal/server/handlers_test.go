package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/session"
)

// TestHandleMe verifies /api/v1/me echoes the identity set by middleware and
// the dev fallback otherwise.
func TestHandleMe(t *testing.T) {
	s := &Server{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rec := httptest.NewRecorder()
	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want local", info.Login)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	rec = httptest.NewRecorder()
	s.handleMe(rec, req.WithContext(ctx))

	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" || info.DisplayName != "Alice" {
		t.Errorf("identity = %+v", info)
	}
}

// TestWriteErrorMapping verifies engine error kinds map to the right HTTP
// statuses, including wrapped errors.
func TestWriteErrorMapping(t *testing.T) {
	s := &Server{log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	cases := []struct {
		err        error
		wantStatus int
	}{
		{session.ErrSessionNotFound, http.StatusNotFound},
		{session.ErrTemplateNotFound, http.StatusNotFound},
		{session.ErrExerciseNotFound, http.StatusNotFound},
		{session.ErrSetNotFound, http.StatusNotFound},
		{session.ErrGroupNotFound, http.StatusNotFound},
		{session.ErrActiveSessionExists, http.StatusConflict},
		{session.ErrInvalidOperation, http.StatusConflict},
		{session.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("completing set: %w", session.ErrInvalidOperation), http.StatusConflict},
		{fmt.Errorf("%w: reps must be positive", session.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("some query failed"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		s.writeError(rec, tc.err)
		if rec.Code != tc.wantStatus {
			t.Errorf("writeError(%v) status = %d, want %d", tc.err, rec.Code, tc.wantStatus)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Errorf("writeError(%v) body not JSON: %v", tc.err, err)
			continue
		}
		if body["error"] == "" {
			t.Errorf("writeError(%v) has empty error message", tc.err)
		}
	}
}

// TestParseTimeRange verifies date parsing, the 30-day default, and the
// end-of-day adjustment for date-only end params.
func TestParseTimeRange(t *testing.T) {
	// No params: last 30 days.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	start, end, err := parseTimeRange(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := end.Sub(start); d < 29*24*time.Hour || d > 31*24*time.Hour {
		t.Errorf("default range = %v, want ~30 days", d)
	}

	// Date-only params: end advances to cover the whole end date.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions?start=2026-01-01&end=2026-01-31", nil)
	start, end, err = parseTimeRange(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Day() != 1 {
		t.Errorf("start day = %d, want 1", start.Day())
	}
	if end.Day() != 1 || end.Month() != time.February {
		t.Errorf("end = %v, want 2026-02-01 (end of Jan 31)", end)
	}

	// RFC3339 passes through unchanged.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions?start=2026-01-01T08:00:00Z&end=2026-01-01T20:00:00Z", nil)
	_, end, err = parseTimeRange(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if end.Hour() != 20 {
		t.Errorf("end hour = %d, want 20", end.Hour())
	}

	// Garbage start is an error.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions?start=yesterday", nil)
	if _, _, err := parseTimeRange(req); err == nil {
		t.Error("expected error for unparseable start")
	}
}

// TestWarmupStrategy verifies the body's strategy name is honored and missing
// or empty bodies fall back to the standard strategy.
func TestWarmupStrategy(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"strategy":"percentage"}`, "percentage"},
		{`{"strategy":""}`, "standard"},
		{`{}`, "standard"},
		{``, "standard"},
		{`not json`, "standard"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/warmup", strings.NewReader(tc.body))
		if got := warmupStrategy(req); got != tc.want {
			t.Errorf("warmupStrategy(%q) = %q, want %q", tc.body, got, tc.want)
		}
	}
}
