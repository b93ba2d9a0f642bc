package pivotal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// APIError is a non-2xx response from Tracker.
type APIError struct {
	StatusCode  int
	Code        string `json:"code"`
	Kind        string `json:"kind"`
	Message     string `json:"error"`
	Requirement string `json:"requirement"`
	Problem     string `json:"general_problem"`
	PossibleFix string `json:"possible_fix"`
	Body        string `json:"-"`
}

func (e *APIError) Error() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{e.Message, e.Requirement, e.Problem, e.PossibleFix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("tracker API error (status %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("tracker API error (status %d): %s", e.StatusCode, strings.Join(parts, " "))
}

// NewClient creates a new Tracker client authenticated with token.
func NewClient(token string) *Client {
	return &Client{
		Token:      token,
		BaseURL:    DefaultAPIEndpoint,
		HTTPClient: &http.Client{},
	}
}

// WithHTTPClient returns a new client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	return &Client{
		Token:      c.Token,
		BaseURL:    c.BaseURL,
		HTTPClient: httpClient,
	}
}

// WithBaseURL returns a new client with a custom base URL (for testing).
func (c *Client) WithBaseURL(baseURL string) *Client {
	return &Client{
		Token:      c.Token,
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: c.HTTPClient,
	}
}

// buildURL constructs a full API URL.
func (c *Client) buildURL(path string, params url.Values) string {
	u := c.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// doRequest performs one authenticated JSON round trip and decodes the
// response into out (when non-nil).
func (c *Client) doRequest(ctx context.Context, method, urlStr string, body, out interface{}) error {
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
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	if c.Token == "" {
		return fmt.Errorf("tracker API token not configured")
	}
	req.Header.Set("X-TrackerToken", c.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		_ = json.Unmarshal(respBody, apiErr)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func projectPath(projectID int64) string {
	return "/projects/" + strconv.FormatInt(projectID, 10)
}

func storyPath(projectID, storyID int64) string {
	return projectPath(projectID) + "/stories/" + strconv.FormatInt(storyID, 10)
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*Person, error) {
	var me Person
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL("/me", nil), nil, &me); err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}
	return &me, nil
}

// Projects lists the projects visible to the authenticated user.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	params := url.Values{"fields": {"id,name"}}
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL("/projects", params), nil, &projects); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Project fetches one project.
func (c *Client) Project(ctx context.Context, projectID int64) (*Project, error) {
	var p Project
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL(projectPath(projectID), nil), nil, &p); err != nil {
		return nil, fmt.Errorf("failed to fetch project %d: %w", projectID, err)
	}
	return &p, nil
}

// Memberships lists the members of a project.
func (c *Client) Memberships(ctx context.Context, projectID int64) ([]Membership, error) {
	var members []Membership
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL(projectPath(projectID)+"/memberships", nil), nil, &members); err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return members, nil
}

// Stories lists the stories of a project matching q.
func (c *Client) Stories(ctx context.Context, projectID int64, q StoryQuery) ([]Story, error) {
	params := url.Values{}
	if q.Filter != "" {
		params.Set("filter", q.Filter)
	}
	if q.WithState != "" {
		params.Set("with_state", q.WithState)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Fields != "" {
		params.Set("fields", q.Fields)
	}

	var stories []Story
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL(projectPath(projectID)+"/stories", params), nil, &stories); err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return stories, nil
}

// storyFields includes labels and comments, which Tracker omits by default.
const storyFields = ":default,labels,comments"

// Story fetches a single story by id.
func (c *Client) Story(ctx context.Context, projectID, storyID int64) (*Story, error) {
	var s Story
	params := url.Values{"fields": {storyFields}}
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL(storyPath(projectID, storyID), params), nil, &s); err != nil {
		return nil, fmt.Errorf("failed to fetch story %d: %w", storyID, err)
	}
	return &s, nil
}

// CreateStory creates a story.
func (c *Client) CreateStory(ctx context.Context, projectID int64, params StoryParams) (*Story, error) {
	var s Story
	if err := c.doRequest(ctx, http.MethodPost, c.buildURL(projectPath(projectID)+"/stories", nil), params, &s); err != nil {
		return nil, fmt.Errorf("failed to create story: %w", err)
	}
	return &s, nil
}

// UpdateStory applies update to a story and returns the updated story.
func (c *Client) UpdateStory(ctx context.Context, projectID, storyID int64, update StoryUpdate) (*Story, error) {
	var s Story
	if err := c.doRequest(ctx, http.MethodPut, c.buildURL(storyPath(projectID, storyID), nil), update, &s); err != nil {
		return nil, fmt.Errorf("failed to update story %d: %w", storyID, err)
	}
	return &s, nil
}

// Comments lists the comments on a story.
func (c *Client) Comments(ctx context.Context, projectID, storyID int64) ([]Comment, error) {
	var comments []Comment
	if err := c.doRequest(ctx, http.MethodGet, c.buildURL(storyPath(projectID, storyID)+"/comments", nil), nil, &comments); err != nil {
		return nil, fmt.Errorf("failed to list comments on story %d: %w", storyID, err)
	}
	return comments, nil
}

// AddComment posts a comment, optionally carrying previously uploaded attachments.
func (c *Client) AddComment(ctx context.Context, projectID, storyID int64, text string, attachments ...FileAttachment) (*Comment, error) {
	body := map[string]interface{}{"text": text}
	if len(attachments) > 0 {
		body["file_attachments"] = attachments
	}
	var comment Comment
	if err := c.doRequest(ctx, http.MethodPost, c.buildURL(storyPath(projectID, storyID)+"/comments", nil), body, &comment); err != nil {
		return nil, fmt.Errorf("failed to comment on story %d: %w", storyID, err)
	}
	return &comment, nil
}

// AddLabel attaches a label (creating it in the project when needed).
func (c *Client) AddLabel(ctx context.Context, projectID, storyID int64, name string) (*Label, error) {
	var label Label
	if err := c.doRequest(ctx, http.MethodPost, c.buildURL(storyPath(projectID, storyID)+"/labels", nil), Label{Name: name}, &label); err != nil {
		return nil, fmt.Errorf("failed to add label %q to story %d: %w", name, storyID, err)
	}
	return &label, nil
}

// RemoveLabel detaches a label from a story.
func (c *Client) RemoveLabel(ctx context.Context, projectID, storyID, labelID int64) error {
	path := storyPath(projectID, storyID) + "/labels/" + strconv.FormatInt(labelID, 10)
	if err := c.doRequest(ctx, http.MethodDelete, c.buildURL(path, nil), nil, nil); err != nil {
		return fmt.Errorf("failed to remove label %d from story %d: %w", labelID, storyID, err)
	}
	return nil
}

// UploadAttachment uploads a local file so it can be attached to a comment.
func (c *Client) UploadAttachment(ctx context.Context, projectID int64, path, contentType string) (*FileAttachment, error) {
	data, err := os.ReadFile(path) // #nosec G304 - caller-chosen upload
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(projectPath(projectID)+"/uploads", nil), &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var att FileAttachment
	if err := c.send(req, &att); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", filepath.Base(path), err)
	}
	if att.ContentType == "" {
		att.ContentType = contentType
	}
	return &att, nil
}
