package toggl

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Work describes time spent on one story.
type Work struct {
	StoryID   int64
	StoryName string
	StoryType string
	Estimate  *int
	CommitSHA string
	Spent     time.Duration
	// Start defaults to now minus Spent.
	Start time.Time
}

// TaskName is the Toggl task name used for a story.
func (w Work) TaskName() string {
	return fmt.Sprintf("%d - %s", w.StoryID, w.StoryName)
}

// Description is the time entry description for this piece of work.
func (w Work) Description() string {
	return fmt.Sprintf("%d commit:%s", w.StoryID, w.CommitSHA)
}

// TimeLogger records story work against one Toggl project.
type TimeLogger struct {
	client    *Client
	projectID int64
	log       *slog.Logger
	now       func() time.Time
}

// NewTimeLogger returns a logger that books time in projectID.
func NewTimeLogger(client *Client, projectID int64, log *slog.Logger) *TimeLogger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &TimeLogger{client: client, projectID: projectID, log: log, now: time.Now}
}

// findStoryTask returns the task previously created for the story, if any.
// A rejected story that is worked on again reuses its task.
func (l *TimeLogger) findStoryTask(ctx context.Context, storyID int64) (*Task, error) {
	tasks, err := l.client.ProjectTasks(ctx, l.projectID)
	if err != nil {
		return nil, err
	}
	prefix := strconv.FormatInt(storyID, 10)
	for i := range tasks {
		name := tasks[i].Name
		if name == prefix || strings.HasPrefix(name, prefix+" ") {
			return &tasks[i], nil
		}
	}
	return nil, nil
}

// Log books w. Task lookup and creation failures are logged and the entry is
// still recorded against the project; only the time entry itself can fail.
func (l *TimeLogger) Log(ctx context.Context, w Work) (*TimeEntry, error) {
	if l.projectID == 0 {
		return nil, fmt.Errorf("toggl project id not set")
	}

	var userID int64
	if me, err := l.client.Me(ctx); err != nil {
		l.log.Warn("toggl user lookup failed", "error", err)
	} else {
		userID = me.ID
	}

	task, err := l.findStoryTask(ctx, w.StoryID)
	if err != nil {
		l.log.Warn("toggl task lookup failed", "story", w.StoryID, "error", err)
	}
	if task == nil {
		task, err = l.client.CreateTask(ctx, Task{
			Name:             w.TaskName(),
			ProjectID:        l.projectID,
			UserID:           userID,
			EstimatedSeconds: EstimatedSeconds(w.Estimate),
			Active:           false,
		})
		if err != nil {
			l.log.Warn("toggl task creation failed", "story", w.StoryID, "error", err)
		}
	}

	start := w.Start
	if start.IsZero() {
		start = l.now().Add(-w.Spent)
	}
	entry := TimeEntry{
		Description: w.Description(),
		ProjectID:   l.projectID,
		Start:       start.UTC().Truncate(time.Second),
		Duration:    int64(w.Spent / time.Second),
		CreatedWith: CreatedWith,
	}
	if w.StoryType != "" {
		entry.Tags = []string{w.StoryType}
	}
	if task != nil {
		entry.TaskID = task.ID
	}

	created, err := l.client.CreateTimeEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	l.log.Info("time logged", "story", w.StoryID, "seconds", entry.Duration, "task", entry.TaskID)
	return created, nil
}
