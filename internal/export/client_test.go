package export

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestSink(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

// TestStartSession verifies the start request shape and correlation id parsing.
func TestStartSession(t *testing.T) {
	start := time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC)

	ts := newTestSink(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method=%s, want POST", r.Method)
			}
			if got := r.Header.Get("X-API-Key"); got != "sink-key" {
				t.Errorf("X-API-Key=%q, want sink-key", got)
			}

			var req startRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatal(err)
			}
			if req.WorkoutType != "Push Day" {
				t.Errorf("workout_type=%q, want Push Day", req.WorkoutType)
			}
			if !req.Start.Equal(start) {
				t.Errorf("start=%v, want %v", req.Start, start)
			}

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(startResponse{CorrelationID: "corr-42"})
		},
	})
	defer ts.Close()

	client := NewClient(ts.URL, "sink-key", 5*time.Second)
	id, err := client.StartSession(context.Background(), "Push Day", start)
	if err != nil {
		t.Fatal(err)
	}
	if id != "corr-42" {
		t.Errorf("correlation id=%q, want corr-42", id)
	}
}

// TestStartSessionEmptyCorrelationID verifies an empty id is treated as a
// sink error rather than passed back to the engine.
func TestStartSessionEmptyCorrelationID(t *testing.T) {
	ts := newTestSink(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(startResponse{})
		},
	})
	defer ts.Close()

	client := NewClient(ts.URL, "k", 5*time.Second)
	if _, err := client.StartSession(context.Background(), "Legs", time.Now()); err == nil {
		t.Fatal("expected error for empty correlation id")
	}
}

// TestEndSession verifies the end request hits the correlation-scoped path
// with energy and metadata.
func TestEndSession(t *testing.T) {
	end := time.Date(2026, 3, 2, 19, 45, 0, 0, time.UTC)

	ts := newTestSink(t, map[string]http.HandlerFunc{
		"/api/v1/workouts/corr-42/end": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method=%s, want POST", r.Method)
			}

			var req endRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatal(err)
			}
			if !req.End.Equal(end) {
				t.Errorf("end=%v, want %v", req.End, end)
			}
			if req.EnergyKcal != 450 {
				t.Errorf("energy=%f, want 450", req.EnergyKcal)
			}
			if req.Metadata["source"] != "liftlog" {
				t.Errorf("metadata source=%q, want liftlog", req.Metadata["source"])
			}
			w.WriteHeader(http.StatusOK)
		},
	})
	defer ts.Close()

	client := NewClient(ts.URL, "k", 5*time.Second)
	err := client.EndSession(context.Background(), "corr-42", end, 450, map[string]string{"source": "liftlog"})
	if err != nil {
		t.Fatal(err)
	}
}

// TestClientServerError verifies non-2xx responses surface as errors.
func TestClientServerError(t *testing.T) {
	ts := newTestSink(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"sink down"}`))
		},
	})
	defer ts.Close()

	client := NewClient(ts.URL, "k", 5*time.Second)
	if _, err := client.StartSession(context.Background(), "Legs", time.Now()); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

// TestNoop verifies the disabled-sink exporter accepts calls without effect.
func TestNoop(t *testing.T) {
	var n Noop
	id, err := n.StartSession(context.Background(), "Legs", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if id != "" {
		t.Errorf("correlation id=%q, want empty", id)
	}
	if err := n.EndSession(context.Background(), "", time.Now(), 0, nil); err != nil {
		t.Fatal(err)
	}
}
