package tasks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/pkg/client"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/scheduler"
)

// Manager reads and awaits control plane tasks.
type Manager struct {
	client    *client.Client
	path      string
	scheduler *scheduler.Scheduler
	userID    string
	now       func() time.Time
}

type ManagerOption func(*Manager)

// WithScheduler sets the worker pool used by WaitAll.
func WithScheduler(s *scheduler.Scheduler) ManagerOption {
	return func(m *Manager) {
		m.scheduler = s
	}
}

// WithUserID scopes List to tasks created by the given user.
func WithUserID(id string) ManagerOption {
	return func(m *Manager) {
		m.userID = id
	}
}

func WithTasksPath(p string) ManagerOption {
	return func(m *Manager) {
		m.path = p
	}
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(c *client.Client, opts ...ManagerOption) *Manager {
	m := &Manager{
		client: c,
		path:   client.TasksPath,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Get(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := m.client.GetJSON(ctx, m.path+"/"+url.PathEscape(id), nil, &t); err != nil {
		if srvErrors.IsResourceNotFoundError(err) {
			return nil, srvErrors.NewResourceNotFoundError("task", id)
		}
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return &t, nil
}

// State returns the validated state of the task.
func (m *Manager) State(ctx context.Context, id string) (TaskState, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return stateOf(t)
}

func (m *Manager) Progress(ctx context.Context, id string) (int, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return t.ProgressPercent, nil
}

// ErrorMessage returns the task error, or "" unless the task FAILED.
func (m *Manager) ErrorMessage(ctx context.Context, id string) (string, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if state, _ := stateOf(t); state != StateFailed {
		return "", nil
	}
	return t.ErrorMessage(), nil
}

// ErrorCode returns the task error code, or 0 unless the task FAILED.
func (m *Manager) ErrorCode(ctx context.Context, id string) (int, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if state, _ := stateOf(t); state != StateFailed {
		return 0, nil
	}
	return t.ErrorCode(), nil
}

func (m *Manager) Logs(ctx context.Context, id string) ([]LogMessage, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.LogMessages, nil
}

// SourceResourceUUID returns the trailing UUID of the task's source resource.
// Both the resource type and the URI prefix must mention resourceType, which
// tolerates "csp-account" as well as "hybrid-cloud/csp-account".
func (m *Manager) SourceResourceUUID(ctx context.Context, id, resourceType string) (string, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if t.SourceResource == nil {
		return "", fmt.Errorf("task %s has no source resource", id)
	}
	if !strings.Contains(t.SourceResource.Type, resourceType) {
		return "", fmt.Errorf("task %s source resource type %q does not contain %q", id, t.SourceResource.Type, resourceType)
	}
	uri := t.SourceResource.ResourceURI
	i := strings.LastIndex(uri, "/")
	if i == -1 {
		return "", fmt.Errorf("task %s source resource uri %q has no path", id, uri)
	}
	if prefix := uri[:i+1]; !strings.Contains(prefix, resourceType) {
		return "", fmt.Errorf("task %s source resource prefix %q does not contain %q", id, prefix, resourceType)
	}
	return uri[i+1:], nil
}

func (m *Manager) SourceResourceName(ctx context.Context, id string) (string, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if t.SourceResource == nil {
		return "", fmt.Errorf("task %s has no source resource", id)
	}
	return t.SourceResource.Name, nil
}

func stateOf(t *Task) (TaskState, error) {
	state, err := ParseTaskState(string(t.State))
	if err != nil {
		return "", srvErrors.NewUnknownTaskStateError(t.ID, string(t.State))
	}
	zap.S().Named("tasks").Debugw("task state", "id", t.ID, "state", state)
	return state, nil
}
