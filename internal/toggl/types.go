// Package toggl provides a client for the Toggl v8 time-tracking API and
// the bookkeeping used to log time spent on a story.
package toggl

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultAPIEndpoint is the Toggl v8 API root.
const DefaultAPIEndpoint = "https://www.toggl.com/api/v8"

// CreatedWith identifies this tool on time entries.
const CreatedWith = "v2gpti"

// Client provides methods to interact with the Toggl REST API.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// User is the authenticated Toggl user.
type User struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	Fullname         string `json:"fullname"`
	DefaultWorkspace int64  `json:"default_wid"`
}

// Workspace is a Toggl workspace.
type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Project is a Toggl project.
type Project struct {
	ID          int64  `json:"id"`
	WorkspaceID int64  `json:"wid"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
}

// Tag is a Toggl tag.
type Tag struct {
	ID          int64  `json:"id"`
	WorkspaceID int64  `json:"wid"`
	Name        string `json:"name"`
}

// Task is a Toggl task inside a project.
type Task struct {
	ID               int64  `json:"id,omitempty"`
	Name             string `json:"name"`
	ProjectID        int64  `json:"pid"`
	WorkspaceID      int64  `json:"wid,omitempty"`
	UserID           int64  `json:"uid,omitempty"`
	EstimatedSeconds int64  `json:"estimated_seconds,omitempty"`
	Active           bool   `json:"active"`
	DoneSeconds      int64  `json:"done_seconds,omitempty"`
}

// TimeEntry is a Toggl time entry.
type TimeEntry struct {
	ID          int64      `json:"id,omitempty"`
	Description string     `json:"description"`
	WorkspaceID int64      `json:"wid,omitempty"`
	ProjectID   int64      `json:"pid,omitempty"`
	TaskID      int64      `json:"tid,omitempty"`
	Billable    bool       `json:"billable,omitempty"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop,omitempty"`
	// Duration is in seconds; negative while the entry is running.
	Duration    int64    `json:"duration"`
	CreatedWith string   `json:"created_with,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	DurOnly     bool     `json:"duronly,omitempty"`
}

// Running reports whether the entry is still being timed.
func (e *TimeEntry) Running() bool {
	return e.Duration < 0
}

// APIError is a non-2xx response from Toggl.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("toggl API error (status %d): %s", e.StatusCode, e.Body)
}
