// Package api is the HTTP client for the project-management backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/crewclock/internal/models"
	"go.uber.org/zap"
)

// DefaultTimeout is the default timeout for API requests.
const DefaultTimeout = 10 * time.Second

// timestampLayout is what the backend's datetime fields accept.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Client wraps HTTP calls to the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new API client. A non-positive timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the backend address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks that the backend answers GET /.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/", nil, nil)
}

// Login authenticates a user.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	req := map[string]string{"username": username, "password": password}
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/login", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListProjects fetches projects, optionally filtered by status.
func (c *Client) ListProjects(ctx context.Context, status string) ([]models.Project, error) {
	path := "/projects/"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var projects []models.Project
	if err := c.do(ctx, http.MethodGet, path, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project. An empty status defaults to Planned.
func (c *Client) CreateProject(ctx context.Context, name, description, status string) (*models.Project, error) {
	if status == "" {
		status = models.ProjectPlanned
	}
	req := map[string]string{"name": name, "status": status}
	if description != "" {
		req["description"] = description
	}
	var project models.Project
	if err := c.do(ctx, http.MethodPost, "/projects/", req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// AssignWorker assigns a worker to a project.
func (c *Client) AssignWorker(ctx context.Context, projectID, workerID int) error {
	path := fmt.Sprintf("/projects/%d/assign", projectID)
	return c.do(ctx, http.MethodPost, path, map[string]int{"worker_id": workerID}, nil)
}

// EnsureWorkerAssigned assigns the worker to the project, treating a 400
// (already assigned) as success.
func (c *Client) EnsureWorkerAssigned(ctx context.Context, projectID, workerID int) error {
	err := c.AssignWorker(ctx, projectID, workerID)
	if IsStatus(err, http.StatusBadRequest) {
		c.logger.Debug("worker already assigned",
			zap.Int("worker_id", workerID),
			zap.Int("project_id", projectID))
		return nil
	}
	return err
}

// ListWorkers fetches workers, optionally only those assigned to projectID.
func (c *Client) ListWorkers(ctx context.Context, projectID int) ([]models.Worker, error) {
	path := "/workers/"
	if projectID > 0 {
		path += "?project_id=" + strconv.Itoa(projectID)
	}
	var workers []models.Worker
	if err := c.do(ctx, http.MethodGet, path, nil, &workers); err != nil {
		return nil, err
	}
	return workers, nil
}

// CreateWorker creates a worker.
func (c *Client) CreateWorker(ctx context.Context, name, role string, projectID *int) (*models.Worker, error) {
	req := struct {
		Name              string `json:"name"`
		Role              string `json:"role"`
		AssignedProjectID *int   `json:"assigned_project_id,omitempty"`
	}{name, role, projectID}
	var worker models.Worker
	if err := c.do(ctx, http.MethodPost, "/workers/", req, &worker); err != nil {
		return nil, err
	}
	return &worker, nil
}

// ListClockEntries fetches server-confirmed entries. Zero ids mean no filter.
func (c *Client) ListClockEntries(ctx context.Context, workerID, projectID int) ([]models.ClockEntry, error) {
	q := url.Values{}
	if workerID > 0 {
		q.Set("worker_id", strconv.Itoa(workerID))
	}
	if projectID > 0 {
		q.Set("project_id", strconv.Itoa(projectID))
	}
	path := "/clock_entries/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var entries []models.ClockEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ClockIn opens a clock entry at ts. A zero ts lets the backend stamp it.
func (c *Client) ClockIn(ctx context.Context, workerID, projectID int, ts time.Time) (*models.ClockEntry, error) {
	return c.clock(ctx, "/clockin/", workerID, projectID, ts)
}

// ClockOut closes the worker's open clock entry at ts.
func (c *Client) ClockOut(ctx context.Context, workerID, projectID int, ts time.Time) (*models.ClockEntry, error) {
	return c.clock(ctx, "/clockout/", workerID, projectID, ts)
}

func (c *Client) clock(ctx context.Context, path string, workerID, projectID int, ts time.Time) (*models.ClockEntry, error) {
	req := struct {
		WorkerID  int     `json:"worker_id"`
		ProjectID int     `json:"project_id"`
		Timestamp *string `json:"timestamp,omitempty"`
	}{WorkerID: workerID, ProjectID: projectID}
	if !ts.IsZero() {
		s := ts.UTC().Format(timestampLayout)
		req.Timestamp = &s
	}

	var entry models.ClockEntry
	if err := c.do(ctx, http.MethodPost, path, req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListQueries fetches query tickets, newest first.
func (c *Client) ListQueries(ctx context.Context) ([]models.QueryTicket, error) {
	var queries []models.QueryTicket
	if err := c.do(ctx, http.MethodGet, "/queries/", nil, &queries); err != nil {
		return nil, err
	}
	return queries, nil
}

// CreateQuery raises a query ticket.
func (c *Client) CreateQuery(ctx context.Context, q models.QueryTicket) (*models.QueryTicket, error) {
	req := map[string]string{
		"title":        q.Title,
		"description":  q.Description,
		"worker_name":  q.WorkerName,
		"project_name": q.ProjectName,
		"priority":     q.Priority,
	}
	var created models.QueryTicket
	if err := c.do(ctx, http.MethodPost, "/queries/", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// do sends a JSON request and decodes the JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return &Error{StatusCode: resp.StatusCode, Detail: detail(data)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// detail extracts FastAPI's {"detail": ...} message, falling back to the raw body.
func detail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return s
		}
		return string(payload.Detail)
	}
	return strings.TrimSpace(string(body))
}
