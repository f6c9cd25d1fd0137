// Package export mirrors workout session boundaries to an external health
// sink over HTTP. The engine treats the sink as best-effort: every method here
// may fail without affecting session state.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/session"
)

// Client talks to a health sink's workout API. Mutations carry the sink's
// API key in the X-API-Key header.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: Client satisfies the engine's exporter interface.
var _ session.HealthExporter = (*Client)(nil)

// NewClient creates a client targeting the given sink base URL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type startRequest struct {
	WorkoutType string    `json:"workout_type"`
	Start       time.Time `json:"start"`
}

type startResponse struct {
	CorrelationID string `json:"correlation_id"`
}

type endRequest struct {
	End        time.Time         `json:"end"`
	EnergyKcal float64           `json:"active_energy_kcal"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// StartSession announces a new workout to the sink and returns its
// correlation id.
func (c *Client) StartSession(ctx context.Context, workoutType string, start time.Time) (string, error) {
	body, err := c.post(ctx, "/api/v1/workouts", startRequest{
		WorkoutType: workoutType,
		Start:       start,
	})
	if err != nil {
		return "", err
	}

	var resp startResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("export: decode start response: %w", err)
	}
	if resp.CorrelationID == "" {
		return "", fmt.Errorf("export: sink returned no correlation id")
	}
	return resp.CorrelationID, nil
}

// EndSession closes out a previously announced workout.
func (c *Client) EndSession(ctx context.Context, correlationID string, end time.Time, energyKcal float64, metadata map[string]string) error {
	_, err := c.post(ctx, "/api/v1/workouts/"+correlationID+"/end", endRequest{
		End:        end,
		EnergyKcal: energyKcal,
		Metadata:   metadata,
	})
	return err
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("export: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("export: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("export: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("export: %s returned %d: %s", path, resp.StatusCode, body)
	}
	return body, nil
}
