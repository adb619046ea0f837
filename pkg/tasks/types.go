package tasks

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type TaskState string

const (
	StateInitialized TaskState = "INITIALIZED"
	StateRunning     TaskState = "RUNNING"
	StateSucceeded   TaskState = "SUCCEEDED"
	StateFailed      TaskState = "FAILED"
	StateTimedOut    TaskState = "TIMEDOUT"
	StatePaused      TaskState = "PAUSED"
)

var knownStates = map[TaskState]bool{
	StateInitialized: true,
	StateRunning:     true,
	StateSucceeded:   true,
	StateFailed:      true,
	StateTimedOut:    true,
	StatePaused:      true,
}

// ParseTaskState accepts the state names case-insensitively.
func ParseTaskState(s string) (TaskState, error) {
	state := TaskState(strings.ToUpper(strings.TrimSpace(s)))
	if !knownStates[state] {
		return "", fmt.Errorf("unknown task state %q", s)
	}
	return state, nil
}

func (s TaskState) InProgress() bool {
	return s == StateInitialized || s == StateRunning
}

func (s TaskState) Terminal() bool {
	return knownStates[s] && !s.InProgress()
}

func (s TaskState) String() string {
	return string(s)
}

type ResourceRef struct {
	Name        string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	ResourceURI string `json:"resourceUri,omitempty"`
}

// ID returns the trailing segment of the resource URI.
func (r ResourceRef) ID() string {
	return lastSegment(r.ResourceURI)
}

type TaskRef struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	ResourceURI string `json:"resourceUri,omitempty"`
}

type LogMessage struct {
	Message     string    `json:"message"`
	TimestampAt time.Time `json:"timestampAt"`
}

type TaskError struct {
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}

type Task struct {
	ID                string        `json:"id"`
	Type              string        `json:"type,omitempty"`
	Name              string        `json:"name"`
	DisplayName       string        `json:"displayName"`
	State             TaskState     `json:"state"`
	ProgressPercent   int           `json:"progressPercent"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
	UserID            string        `json:"userId,omitempty"`
	CustomerID        string        `json:"customerId,omitempty"`
	ResourceURI       string        `json:"resourceUri,omitempty"`
	SourceResource    *ResourceRef  `json:"sourceResource,omitempty"`
	SourceResourceURI string        `json:"sourceResourceUri,omitempty"`
	Parent            *TaskRef      `json:"parent,omitempty"`
	ParentTask        *TaskRef      `json:"parentTask,omitempty"`
	RootTask          *TaskRef      `json:"rootTask,omitempty"`
	RootOperation     *TaskRef      `json:"rootOperation,omitempty"`
	ChildTasks        []ResourceRef `json:"childTasks,omitempty"`
	LogMessages       []LogMessage  `json:"logMessages,omitempty"`
	Error             *TaskError    `json:"error,omitempty"`
}

// SourceURI prefers sourceResource.resourceUri over the flat sourceResourceUri.
func (t *Task) SourceURI() string {
	if t.SourceResource != nil && t.SourceResource.ResourceURI != "" {
		return t.SourceResource.ResourceURI
	}
	return t.SourceResourceURI
}

// RootID returns rootTask.id, falling back to rootOperation.id.
func (t *Task) RootID() string {
	if t.RootTask != nil && t.RootTask.ID != "" {
		return t.RootTask.ID
	}
	if t.RootOperation != nil {
		return t.RootOperation.ID
	}
	return ""
}

// ParentName returns parentTask.name, falling back to parent.name.
func (t *Task) ParentName() string {
	if t.ParentTask != nil && t.ParentTask.Name != "" {
		return t.ParentTask.Name
	}
	if t.Parent != nil {
		return t.Parent.Name
	}
	return ""
}

func (t *Task) ErrorMessage() string {
	if t.Error == nil {
		return ""
	}
	return t.Error.Error
}

func (t *Task) ErrorCode() int {
	if t.Error == nil || t.Error.ErrorCode == "" {
		return 0
	}
	code, err := strconv.Atoi(t.Error.ErrorCode)
	if err != nil {
		return 0
	}
	return code
}

func (t *Task) Logs() []string {
	lines := make([]string, 0, len(t.LogMessages))
	for _, l := range t.LogMessages {
		lines = append(lines, l.Message)
	}
	return lines
}

// Ref returns the task as a child reference.
func (t *Task) Ref(tasksPath string) ResourceRef {
	uri := t.ResourceURI
	if uri == "" {
		uri = strings.TrimRight(tasksPath, "/") + "/" + t.ID
	}
	return ResourceRef{Name: t.Name, Type: t.Type, ResourceURI: uri}
}

type TaskList struct {
	Items      []Task `json:"items"`
	PageLimit  int    `json:"pageLimit"`
	PageOffset int    `json:"pageOffset"`
	Total      int    `json:"total"`
}

func (l *TaskList) add(t Task) {
	l.Items = append(l.Items, t)
	l.Total++
}

func lastSegment(uri string) string {
	uri = strings.TrimRight(uri, "/")
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// lastSegments keeps the trailing n path segments, so old and new URI styles compare equal.
func lastSegments(uri string, n int) string {
	parts := strings.Split(strings.TrimRight(uri, "/"), "/")
	if len(parts) <= n {
		return strings.Join(parts, "/")
	}
	return strings.Join(parts[len(parts)-n:], "/")
}
