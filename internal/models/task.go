package models

import (
	"time"
)

type TaskState string

const (
	TaskStateInitialized TaskState = "INITIALIZED"
	TaskStateRunning     TaskState = "RUNNING"
	TaskStateSucceeded   TaskState = "SUCCEEDED"
	TaskStateFailed      TaskState = "FAILED"
	TaskStateTimedOut    TaskState = "TIMEDOUT"
	TaskStatePaused      TaskState = "PAUSED"
)

func (s TaskState) Done() bool {
	return s != TaskStateInitialized && s != TaskStateRunning
}

type ResourceRef struct {
	ID   string
	Name string
	Kind string
	URI  string
}

type LogEntry struct {
	Message string
	At      time.Time
}

// Task is a simulated backend task held by the mock control plane.
type Task struct {
	ID          string
	Name        string
	DisplayName string
	State       TaskState
	Progress    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserID      string
	CustomerID  string
	Source      *ResourceRef
	ParentID    string
	ParentName  string
	RootID      string
	ChildIDs    []string
	Logs        []LogEntry
	Error       string
	ErrorCode   int
}

func (t *Task) Log(at time.Time, msg string) {
	t.Logs = append(t.Logs, LogEntry{Message: msg, At: at})
}

// TaskFilter selects tasks; zero fields match everything.
type TaskFilter struct {
	CreatedAfter   *time.Time
	UserID         string
	CustomerID     string
	Name           string
	DisplayName    string
	ParentID       string
	RootID         string
	SourceURI      string
	SortDescending bool
	Offset         int
	Limit          int
}

func (f TaskFilter) Match(t *Task) bool {
	if f.CreatedAfter != nil && !t.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if f.CustomerID != "" && t.CustomerID != f.CustomerID {
		return false
	}
	if f.Name != "" && t.Name != f.Name {
		return false
	}
	if f.DisplayName != "" && t.DisplayName != f.DisplayName {
		return false
	}
	if f.ParentID != "" && t.ParentID != f.ParentID {
		return false
	}
	if f.RootID != "" && t.RootID != f.RootID {
		return false
	}
	if f.SourceURI != "" && (t.Source == nil || t.Source.URI != f.SourceURI) {
		return false
	}
	return true
}
