package toggl

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
)

// NewClient creates a Toggl client authenticated with an API token.
func NewClient(token string) *Client {
	return &Client{
		Token:      token,
		BaseURL:    DefaultAPIEndpoint,
		HTTPClient: &http.Client{},
	}
}

// WithHTTPClient returns a new client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	return &Client{Token: c.Token, BaseURL: c.BaseURL, HTTPClient: httpClient}
}

// WithBaseURL returns a new client with a custom base URL (for testing).
func (c *Client) WithBaseURL(baseURL string) *Client {
	return &Client{Token: c.Token, BaseURL: strings.TrimSuffix(baseURL, "/"), HTTPClient: c.HTTPClient}
}

func (c *Client) buildURL(path string, params url.Values) string {
	u := c.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// doRequest sends one request. Toggl wraps single objects in {"data": ...}
// but returns lists bare; both shapes decode into out.
func (c *Client) doRequest(ctx context.Context, method, urlStr string, body, out interface{}) error {
	if c.Token == "" {
		return fmt.Errorf("toggl API token not configured")
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.Token, "api_token")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 || string(bytes.TrimSpace(respBody)) == "null" {
		return nil
	}
	return decodeData(respBody, out)
}

func decodeData(body []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Data) > 0 {
			if string(envelope.Data) == "null" {
				return nil
			}
			trimmed = envelope.Data
		}
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL("/me", nil), nil, &u); err != nil {
		return nil, fmt.Errorf("failed to fetch toggl user: %w", err)
	}
	return &u, nil
}

// Workspaces lists the user's workspaces.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var ws []Workspace
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL("/workspaces", nil), nil, &ws); err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return ws, nil
}

// Projects lists the projects of a workspace.
func (c *Client) Projects(ctx context.Context, workspaceID int64) ([]Project, error) {
	var ps []Project
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL("/workspaces/"+id(workspaceID)+"/projects", nil), nil, &ps); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return ps, nil
}

// Tags lists the tags of a workspace.
func (c *Client) Tags(ctx context.Context, workspaceID int64) ([]Tag, error) {
	var ts []Tag
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL("/workspaces/"+id(workspaceID)+"/tags", nil), nil, &ts); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return ts, nil
}

// ProjectTasks lists the tasks of a project.
func (c *Client) ProjectTasks(ctx context.Context, projectID int64) ([]Task, error) {
	var ts []Task
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL("/projects/"+id(projectID)+"/tasks", nil), nil, &ts); err != nil {
		return nil, fmt.Errorf("failed to list project tasks: %w", err)
	}
	return ts, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, task Task) (*Task, error) {
	if task.Name == "" || task.ProjectID == 0 {
		return nil, fmt.Errorf("task name and project id are required")
	}
	var t Task
	if err := c.doRequest(ctx, http.MethodPost, c.buildURL("/tasks", nil), map[string]Task{"task": task}, &t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &t, nil
}

// Task fetches a task by id.
func (c *Client) Task(ctx context.Context, taskID int64) (*Task, error) {
	var t Task
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL("/tasks/"+id(taskID), nil), nil, &t); err != nil {
		return nil, fmt.Errorf("failed to fetch task %d: %w", taskID, err)
	}
	return &t, nil
}

// UpdateTask replaces a task's mutable fields.
func (c *Client) UpdateTask(ctx context.Context, taskID int64, task Task) (*Task, error) {
	var t Task
	if err := c.doRequest(ctx, http.MethodPut, c.buildURL("/tasks/"+id(taskID), nil), map[string]Task{"task": task}, &t); err != nil {
		return nil, fmt.Errorf("failed to update task %d: %w", taskID, err)
	}
	return &t, nil
}

func checkEntryTarget(e TimeEntry) error {
	if e.WorkspaceID == 0 && e.ProjectID == 0 && e.TaskID == 0 {
		return fmt.Errorf("one of workspace, project or task id is required")
	}
	return nil
}

// CreateTimeEntry records a completed time entry.
func (c *Client) CreateTimeEntry(ctx context.Context, entry TimeEntry) (*TimeEntry, error) {
	if entry.Description == "" || entry.Start.IsZero() || entry.CreatedWith == "" {
		return nil, fmt.Errorf("time entry description, start and created_with are required")
	}
	if err := checkEntryTarget(entry); err != nil {
		return nil, err
	}
	var e TimeEntry
	if err := c.doRequest(ctx, http.MethodPost, c.buildURL("/time_entries", nil), map[string]TimeEntry{"time_entry": entry}, &e); err != nil {
		return nil, fmt.Errorf("failed to create time entry: %w", err)
	}
	return &e, nil
}

// StartTimeEntry starts a running time entry.
func (c *Client) StartTimeEntry(ctx context.Context, entry TimeEntry) (*TimeEntry, error) {
	if err := checkEntryTarget(entry); err != nil {
		return nil, err
	}
	var e TimeEntry
	if err := c.doRequest(ctx, http.MethodPost, c.buildURL("/time_entries/start", nil), map[string]TimeEntry{"time_entry": entry}, &e); err != nil {
		return nil, fmt.Errorf("failed to start time entry: %w", err)
	}
	return &e, nil
}

// StopTimeEntry stops a running time entry.
func (c *Client) StopTimeEntry(ctx context.Context, entryID int64) (*TimeEntry, error) {
	var e TimeEntry
	if err := c.doRequest(ctx, http.MethodPut, c.buildURL("/time_entries/"+id(entryID)+"/stop", nil), struct{}{}, &e); err != nil {
		return nil, fmt.Errorf("failed to stop time entry %d: %w", entryID, err)
	}
	return &e, nil
}

// TimeEntry fetches a time entry by id.
func (c *Client) TimeEntry(ctx context.Context, entryID int64) (*TimeEntry, error) {
	var e TimeEntry
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL("/time_entries/"+id(entryID), nil), nil, &e); err != nil {
		return nil, fmt.Errorf("failed to fetch time entry %d: %w", entryID, err)
	}
	return &e, nil
}

// UpdateTimeEntry replaces a time entry's fields.
func (c *Client) UpdateTimeEntry(ctx context.Context, entryID int64, entry TimeEntry) (*TimeEntry, error) {
	var e TimeEntry
	if err := c.doRequest(ctx, http.MethodPut, c.buildURL("/time_entries/"+id(entryID), nil), map[string]TimeEntry{"time_entry": entry}, &e); err != nil {
		return nil, fmt.Errorf("failed to update time entry %d: %w", entryID, err)
	}
	return &e, nil
}

// TimeEntries lists time entries between start and end. Zero times are omitted.
func (c *Client) TimeEntries(ctx context.Context, start, end time.Time) ([]TimeEntry, error) {
	params := url.Values{}
	if !start.IsZero() {
		params.Set("start_date", start.Format(time.RFC3339))
	}
	if !end.IsZero() {
		params.Set("end_date", end.Format(time.RFC3339))
	}
	var es []TimeEntry
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL("/time_entries", params), nil, &es); err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	return es, nil
}
