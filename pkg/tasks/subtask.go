package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/pkg/client"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

// SubtaskLookback bounds the createdAt window of subtask searches.
const SubtaskLookback = 90 * time.Minute

// FindSubtask polls the tasks sharing rootID as root task until one whose
// display name contains name shows up, and returns it. The root itself never matches.
func (m *Manager) FindSubtask(ctx context.Context, rootID, name string, opts WaitOptions) (*Task, error) {
	opts = opts.withDefaults()

	params := client.Page(0, pageSize)
	params.Sort = sortDescending
	params.Filter = CreatedAfterFilter(m.now().Add(-SubtaskLookback), eq("rootTask.id", rootID))

	sub, err := poll(ctx, NewBackOff(opts.Interval), opts.Timeout, func(ctx context.Context) (*Task, bool, error) {
		tl, err := m.page(ctx, params)
		if err != nil {
			return nil, false, err
		}
		for i := range tl.Items {
			t := &tl.Items[i]
			if t.ID != rootID && strings.Contains(t.DisplayName, name) {
				return t, true, nil
			}
		}
		return nil, false, nil
	})
	if err != nil {
		if timedOut(ctx, err) {
			msg := fmt.Sprintf("subtask %q did not start", name)
			if opts.Message != "" {
				msg = opts.Message + ": " + msg
			}
			return nil, srvErrors.NewTaskTimeoutError(rootID, opts.Timeout, "", msg)
		}
		return nil, err
	}
	zap.S().Named("tasks").Infow("subtask started", "root", rootID, "subtask", sub.ID, "name", sub.DisplayName)
	return sub, nil
}

// WaitForSubtask finds the subtask of rootID named name and waits for it to
// reach a terminal state. Both steps share opts.Timeout. The final subtask is
// returned; a FAILED subtask is not an error.
func (m *Manager) WaitForSubtask(ctx context.Context, rootID, name string, opts WaitOptions) (*Task, error) {
	opts = opts.withDefaults()
	deadline := time.Now().Add(opts.Timeout)

	sub, err := m.FindSubtask(ctx, rootID, name, opts)
	if err != nil {
		return nil, err
	}

	remaining := opts
	remaining.Timeout = max(time.Until(deadline), time.Millisecond)
	if _, err := m.Wait(ctx, sub.ID, remaining); err != nil {
		return nil, err
	}
	return m.Get(ctx, sub.ID)
}

// WaitStarted polls until the task is visible and INITIALIZED, RUNNING or
// SUCCEEDED. A task that ends in any other terminal state fails at once with
// TaskFailedError instead of waiting out the timeout.
func (m *Manager) WaitStarted(ctx context.Context, id string, opts WaitOptions) (TaskState, error) {
	opts = opts.withDefaults()

	var last *Task
	state, err := poll(ctx, NewBackOff(opts.Interval), opts.Timeout, func(ctx context.Context) (TaskState, bool, error) {
		t, err := m.Get(ctx, id)
		if err != nil {
			if srvErrors.IsResourceNotFoundError(err) {
				return "", false, nil
			}
			return "", false, err
		}
		last = t
		s, err := stateOf(t)
		if err != nil {
			return "", false, err
		}
		return s, true, nil
	})
	if err != nil {
		if timedOut(ctx, err) {
			return "", srvErrors.NewTaskTimeoutError(id, opts.Timeout, "", opts.Message)
		}
		return "", err
	}

	if state.InProgress() || state == StateSucceeded {
		if opts.LogResult {
			zap.S().Named("tasks").Infow("task started", "id", id, "name", last.DisplayName, "state", state)
		}
		return state, nil
	}
	return state, srvErrors.NewTaskFailedError(id, string(state), last.ErrorMessage(), last.Logs())
}
