package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

// HTTPClient implements DataSource by calling the LiftLog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. The API
// key rides along on every request; the server only checks it on mutations.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError inverts the server's status mapping so callers can keep using
// errors.Is against the engine sentinels regardless of transport.
func apiError(path string, status int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %s: %w", path, detail, session.ErrSessionNotFound)
	case http.StatusConflict:
		if strings.Contains(detail, "active session already exists") {
			return fmt.Errorf("httpclient: %s: %w", path, session.ErrActiveSessionExists)
		}
		return fmt.Errorf("httpclient: %s: %s: %w", path, detail, session.ErrInvalidOperation)
	case http.StatusBadRequest:
		return fmt.Errorf("httpclient: %s: %s: %w", path, detail, session.ErrInvalidInput)
	default:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, status, detail)
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, payload any) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("httpclient: marshal payload: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apiError(path, resp.StatusCode, body)
	}

	return body, nil
}

// getSession runs a request whose response is a full session aggregate.
func (c *HTTPClient) getSession(ctx context.Context, method, path string, payload any) (*models.WorkoutSession, error) {
	body, err := c.do(ctx, method, path, nil, payload)
	if err != nil {
		return nil, err
	}

	var sess models.WorkoutSession
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("httpclient: decode session: %w", err)
	}
	return &sess, nil
}

func (c *HTTPClient) Active(ctx context.Context, _ int) (*models.WorkoutSession, error) {
	return c.getSession(ctx, http.MethodGet, "/api/v1/sessions/active", nil)
}

func (c *HTTPClient) Start(ctx context.Context, _ int, templateID uuid.UUID) (*models.WorkoutSession, error) {
	return c.getSession(ctx, http.MethodPost, "/api/v1/sessions", map[string]any{
		"template_id": templateID,
	})
}

func (c *HTTPClient) End(ctx context.Context, id uuid.UUID) (*models.WorkoutSession, error) {
	return c.getSession(ctx, http.MethodPost, "/api/v1/sessions/"+id.String()+"/end", nil)
}

func (c *HTTPClient) Cancel(ctx context.Context, id uuid.UUID) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/sessions/"+id.String(), nil, nil)
	return err
}

func (c *HTTPClient) AddSet(ctx context.Context, sessionID, exerciseID uuid.UUID, weightKg float64, reps int, isWarmup bool) (*models.WorkoutSession, error) {
	path := fmt.Sprintf("/api/v1/sessions/%s/exercises/%s/sets", sessionID, exerciseID)
	return c.getSession(ctx, http.MethodPost, path, map[string]any{
		"weight_kg": weightKg,
		"reps":      reps,
		"warmup":    isWarmup,
	})
}

func (c *HTTPClient) ToggleSet(ctx context.Context, sessionID, exerciseID, setID uuid.UUID) (*models.WorkoutSession, error) {
	path := fmt.Sprintf("/api/v1/sessions/%s/exercises/%s/sets/%s/toggle", sessionID, exerciseID, setID)
	return c.getSession(ctx, http.MethodPost, path, nil)
}

func (c *HTTPClient) CompleteGroupSet(ctx context.Context, sessionID, groupID, exerciseID, setID uuid.UUID) (*models.WorkoutSession, error) {
	path := fmt.Sprintf("/api/v1/sessions/%s/groups/%s/exercises/%s/sets/%s/complete", sessionID, groupID, exerciseID, setID)
	return c.getSession(ctx, http.MethodPost, path, nil)
}

func (c *HTTPClient) AdvanceGroupRound(ctx context.Context, sessionID, groupID uuid.UUID) (*models.WorkoutSession, error) {
	path := fmt.Sprintf("/api/v1/sessions/%s/groups/%s/advance", sessionID, groupID)
	return c.getSession(ctx, http.MethodPost, path, nil)
}

func (c *HTTPClient) InsertWarmup(ctx context.Context, sessionID, exerciseID uuid.UUID, strategyName string) (*models.WorkoutSession, error) {
	path := fmt.Sprintf("/api/v1/sessions/%s/exercises/%s/warmup", sessionID, exerciseID)
	return c.getSession(ctx, http.MethodPost, path, map[string]string{"strategy": strategyName})
}

func (c *HTTPClient) InsertWarmupAll(ctx context.Context, sessionID uuid.UUID, strategyName string) (*models.WorkoutSession, error) {
	path := fmt.Sprintf("/api/v1/sessions/%s/warmup", sessionID)
	return c.getSession(ctx, http.MethodPost, path, map[string]string{"strategy": strategyName})
}

func (c *HTTPClient) Templates(ctx context.Context, _ int) ([]models.WorkoutTemplate, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/templates", nil, nil)
	if err != nil {
		return nil, err
	}

	var templates []models.WorkoutTemplate
	if err := json.Unmarshal(body, &templates); err != nil {
		return nil, fmt.Errorf("httpclient: decode templates: %w", err)
	}
	return templates, nil
}

func (c *HTTPClient) History(ctx context.Context, _ int, start, end time.Time) ([]models.WorkoutSession, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))

	body, err := c.do(ctx, http.MethodGet, "/api/v1/sessions", params, nil)
	if err != nil {
		return nil, err
	}

	var sessions []models.WorkoutSession
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, fmt.Errorf("httpclient: decode sessions: %w", err)
	}
	return sessions, nil
}
