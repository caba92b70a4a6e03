// Package remote talks to the time tracker API that owns employees,
// projects, tasks and time entries.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"timetracker/internal/models"
)

// DefaultBaseURL matches the API's local development address.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
	// FailureThreshold is the number of consecutive transport or server
	// failures that opens the breaker. Zero means 5.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open. Zero means 10s.
	OpenTimeout time.Duration
}

// Client is a JSON client for the remote API. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// New validates opts and returns a ready client.
func New(opts Options) (*Client, error) {
	raw := strings.TrimRight(opts.BaseURL, "/")
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", raw)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	threshold := opts.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := opts.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-api",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &Client{
		base:    base,
		token:   opts.Token,
		http:    httpClient,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// countsAsSuccess keeps client mistakes and caller cancellations from
// tripping the breaker; only transport failures and 5xx count.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status < http.StatusInternalServerError
	}
	return false
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// ListEmployees returns the global employee roster.
func (c *Client) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var out []models.Employee
	if err := c.do(ctx, http.MethodGet, "/employees", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetEmployee fetches one employee.
func (c *Client) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	var out models.Employee
	err := c.do(ctx, http.MethodGet, "/employees/"+itoa(id), nil, nil, &out)
	return out, err
}

// CreateEmployee registers a new employee; the API emails a verification link.
func (c *Client) CreateEmployee(ctx context.Context, in models.EmployeeCreate) (models.Employee, error) {
	var out models.Employee
	err := c.do(ctx, http.MethodPost, "/employees", nil, in, &out)
	return out, err
}

// VerifyEmployee confirms an employee's email with the emailed token.
func (c *Client) VerifyEmployee(ctx context.Context, id int64, token string) (models.Employee, error) {
	var out models.Employee
	err := c.do(ctx, http.MethodPost, "/employees/"+itoa(id)+"/verify", nil, models.EmployeeVerify{Token: token}, &out)
	return out, err
}

// ListProjects returns every project with its embedded employee roster.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	if err := c.do(ctx, http.MethodGet, "/projects/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProject fetches one project with its roster.
func (c *Client) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var out models.Project
	err := c.do(ctx, http.MethodGet, "/projects/"+itoa(id), nil, nil, &out)
	return out, err
}

// CreateProject creates a project; the API assigns the id.
func (c *Client) CreateProject(ctx context.Context, in models.ProjectCreate) (models.Project, error) {
	var out models.Project
	err := c.do(ctx, http.MethodPost, "/projects/", nil, in, &out)
	return out, err
}

// UpdateProject applies a partial update. A non-nil EmployeeIDs replaces the
// membership entirely.
func (c *Client) UpdateProject(ctx context.Context, id int64, in models.ProjectUpdate) (models.Project, error) {
	var out models.Project
	err := c.do(ctx, http.MethodPatch, "/projects/"+itoa(id), nil, in, &out)
	return out, err
}

// ListTasks returns the tasks of one project.
func (c *Client) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	q := url.Values{}
	q.Set("project_id", itoa(projectID))
	var out []models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTask adds a task to in.ProjectID.
func (c *Client) CreateTask(ctx context.Context, in models.TaskCreate) (models.Task, error) {
	var out models.Task
	err := c.do(ctx, http.MethodPost, "/projects/"+itoa(in.ProjectID)+"/tasks/", nil, in, &out)
	return out, err
}

// ListTimeEntries returns the most recent entries, newest first.
func (c *Client) ListTimeEntries(ctx context.Context, limit int) ([]models.TimeEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []models.TimeEntry
	if err := c.do(ctx, http.MethodGet, "/time-entries", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveTimeEntries returns entries that have not been stopped.
func (c *Client) ListActiveTimeEntries(ctx context.Context) ([]models.TimeEntry, error) {
	var out []models.TimeEntry
	if err := c.do(ctx, http.MethodGet, "/time-entries/active", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health checks the API's root health endpoint, which lives outside the
// versioned prefix.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "../health", nil, nil, nil)
}

func (c *Client) resolve(path string, query url.Values) string {
	var u *url.URL
	if strings.HasPrefix(path, "../") {
		u = c.base.ResolveReference(&url.URL{Path: path})
	} else {
		clone := *c.base
		clone.Path = strings.TrimRight(c.base.Path, "/") + path
		u = &clone
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, query, in, out)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s %s: remote api unavailable: %w", method, path, err)
		}
		return err
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path, query), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{Status: resp.StatusCode, Detail: parseDetail(raw), Method: method, Path: path}
		c.logger.Debug("remote api error",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode))
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
