// Package pivotal provides client and data types for the Pivotal Tracker v5 REST API.
package pivotal

import (
	"net/http"
	"slices"
	"time"
)

// DefaultAPIEndpoint is the Tracker REST API root.
const DefaultAPIEndpoint = "https://www.pivotaltracker.com/services/v5"

// Story types.
const (
	TypeFeature = "feature"
	TypeBug     = "bug"
	TypeChore   = "chore"
	TypeRelease = "release"
)

// Story states.
const (
	StateUnscheduled = "unscheduled"
	StateUnstarted   = "unstarted"
	StateStarted     = "started"
	StateFinished    = "finished"
	StateDelivered   = "delivered"
	StateRejected    = "rejected"
	StateAccepted    = "accepted"
)

// StoryTypes lists the types a developer can start.
var StoryTypes = []string{TypeFeature, TypeBug, TypeChore}

// States lists every story state in workflow order.
var States = []string{StateUnscheduled, StateUnstarted, StateStarted, StateFinished, StateDelivered, StateRejected, StateAccepted}

// Client provides methods to interact with the Tracker REST API.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// Project is a Tracker project.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Person is a Tracker user.
type Person struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Initials string `json:"initials"`
}

// Membership links a person to a project.
type Membership struct {
	ID     int64  `json:"id"`
	Role   string `json:"role"`
	Person Person `json:"person"`
}

// Label is a story label.
type Label struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Comment is a note on a story.
type Comment struct {
	ID              int64            `json:"id"`
	Text            string           `json:"text"`
	PersonID        int64            `json:"person_id"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	FileAttachments []FileAttachment `json:"file_attachments,omitempty"`
}

// FileAttachment is an uploaded file that can be attached to a comment.
type FileAttachment struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind,omitempty"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// Story is a Tracker story.
type Story struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"project_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	StoryType    string    `json:"story_type"`
	CurrentState string    `json:"current_state"`
	Estimate     *int      `json:"estimate,omitempty"`
	OwnerIDs     []int64   `json:"owner_ids,omitempty"`
	Labels       []Label   `json:"labels,omitempty"`
	Comments     []Comment `json:"comments,omitempty"`
	URL          string    `json:"url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsEstimated reports whether the story carries a usable (non-negative) estimate.
func (s Story) IsEstimated() bool {
	return s.Estimate != nil && *s.Estimate >= 0
}

// LabelNames returns the story's label names in order.
func (s Story) LabelNames() []string {
	names := make([]string, 0, len(s.Labels))
	for _, l := range s.Labels {
		names = append(names, l.Name)
	}
	return names
}

// HasLabel reports whether the story carries the named label.
func (s Story) HasLabel(name string) bool {
	return slices.Contains(s.LabelNames(), name)
}

// StoryQuery narrows a story listing.
type StoryQuery struct {
	// Filter uses Tracker search syntax, e.g. "state:unstarted type:bug".
	Filter    string
	WithState string
	Limit     int
	Fields    string
}

// StoryParams is the body of a create request.
type StoryParams struct {
	Name         string  `json:"name"`
	StoryType    string  `json:"story_type,omitempty"`
	CurrentState string  `json:"current_state,omitempty"`
	Description  string  `json:"description,omitempty"`
	Estimate     *int    `json:"estimate,omitempty"`
	OwnerIDs     []int64 `json:"owner_ids,omitempty"`
	Labels       []Label `json:"labels,omitempty"`
	BeforeID     *int64  `json:"before_id,omitempty"`
	AfterID      *int64  `json:"after_id,omitempty"`
}

// StoryUpdate is the body of an update request. Nil fields are left unchanged.
type StoryUpdate struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	CurrentState *string `json:"current_state,omitempty"`
	Estimate     *int    `json:"estimate,omitempty"`
	OwnerIDs     []int64 `json:"owner_ids,omitempty"`
	Labels       []Label `json:"labels,omitempty"`
	BeforeID     *int64  `json:"before_id,omitempty"`
	AfterID      *int64  `json:"after_id,omitempty"`
}

// Ptr returns a pointer to v, for StoryUpdate fields.
func Ptr[T any](v T) *T {
	return &v
}
