package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"

	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

const (
	DefaultRootPollInterval = time.Minute
	DefaultRootTimeout      = time.Hour
	DefaultChildTimeout     = time.Hour
	defaultMaxChildRounds   = 50
)

// RootQuery locates the task tree that a backend workflow started for a resource.
type RootQuery struct {
	// Name is a substring of the task display name.
	Name string
	// ResourceID is a substring of the task source resource URI.
	ResourceID string
	// ParentName, when set, selects the matching task itself if its parent name contains it.
	ParentName string
	Since      time.Time

	PollInterval time.Duration
	Timeout      time.Duration
}

// FindRootTask polls the task list until a task for the resource shows up and
// returns its root task id (or its own id when ParentName matches).
func (m *Manager) FindRootTask(ctx context.Context, q RootQuery) (string, error) {
	if q.PollInterval <= 0 {
		q.PollInterval = DefaultRootPollInterval
	}
	if q.Timeout <= 0 {
		q.Timeout = DefaultRootTimeout
	}
	log := zap.S().Named("tasks")

	id, err := poll(ctx, backoff.NewConstantBackOff(q.PollInterval), q.Timeout, func(ctx context.Context) (string, bool, error) {
		tl, err := m.List(ctx, q.Since, ListOptions{})
		if err != nil {
			return "", false, err
		}
		id := matchRoot(tl.Items, q)
		return id, id != "", nil
	})
	if err == nil {
		log.Infow("root task found", "name", q.Name, "resource_id", q.ResourceID, "id", id)
		return id, nil
	}
	if !timedOut(ctx, err) {
		return "", err
	}

	if recent, lerr := m.List(ctx, q.Since, ListOptions{Offset: 5 * time.Minute}); lerr == nil {
		for _, t := range recent.Items {
			log.Infow("recent task", "id", t.ID, "name", t.DisplayName, "state", t.State, "source", t.SourceURI())
		}
	}
	log.Errorw("root task not found", "name", q.Name, "resource_id", q.ResourceID, "parent_name", q.ParentName)
	return "", srvErrors.NewRootTaskNotFoundError(q.Name, q.ResourceID, q.ParentName)
}

func matchRoot(items []Task, q RootQuery) string {
	log := zap.S().Named("tasks")
	for i := range items {
		t := &items[i]
		if !strings.Contains(t.DisplayName, q.Name) {
			continue
		}
		src := t.SourceURI()
		if src == "" {
			log.Debugw("candidate task has no source resource uri", "id", t.ID, "name", t.DisplayName)
			continue
		}
		if !strings.Contains(src, q.ResourceID) {
			continue
		}
		if q.ParentName != "" {
			if parentMatches(t.ParentTask, q.ParentName) || parentMatches(t.Parent, q.ParentName) {
				return t.ID
			}
			continue
		}
		if root := t.RootID(); root != "" {
			return root
		}
		log.Debugw("candidate task has no root reference", "id", t.ID)
	}
	return ""
}

func parentMatches(ref *TaskRef, name string) bool {
	return ref != nil && strings.Contains(ref.Name, name)
}

type ChildOptions struct {
	// FailOnError aborts on the first child that does not end SUCCEEDED.
	FailOnError bool
	// KnownCount is the child count already awaited by a previous call.
	KnownCount   int
	ChildTimeout time.Duration
	// MaxRounds bounds the re-scans for late children.
	MaxRounds int
}

func DefaultChildOptions() ChildOptions {
	return ChildOptions{
		FailOnError:  true,
		ChildTimeout: DefaultChildTimeout,
		MaxRounds:    defaultMaxChildRounds,
	}
}

// WaitForChildren waits for the children of rootID, re-scanning after each
// round until no new children appear.
func (m *Manager) WaitForChildren(ctx context.Context, rootID string, opts ChildOptions) error {
	if opts.ChildTimeout <= 0 {
		opts.ChildTimeout = DefaultChildTimeout
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = defaultMaxChildRounds
	}
	log := zap.S().Named("tasks")

	known := opts.KnownCount
	for round := 0; round < opts.MaxRounds; round++ {
		log.Infow("waiting for child tasks", "root", rootID, "round", round)

		root, err := m.Get(ctx, rootID)
		if err != nil {
			return err
		}
		refs, err := m.Children(ctx, root)
		if err != nil {
			return err
		}

		seen := sets.New[string]()
		ids := make([]string, 0, len(refs))
		for _, ref := range refs {
			id := ref.ID()
			if id == "" || seen.Has(id) {
				continue
			}
			seen.Insert(id)
			ids = append(ids, id)
		}

		if len(ids) == known {
			return nil
		}

		for _, id := range ids {
			state, err := m.Wait(ctx, id, WaitOptions{Timeout: opts.ChildTimeout})
			if err != nil {
				return err
			}
			if state == StateSucceeded || !opts.FailOnError {
				continue
			}
			child, err := m.Get(ctx, id)
			if err != nil {
				return srvErrors.NewTaskFailedError(id, string(state), "", nil)
			}
			return srvErrors.NewTaskFailedError(id, string(state), child.ErrorMessage(), child.Logs())
		}
		known = len(ids)
	}
	return fmt.Errorf("children of task %s kept changing after %d rounds", rootID, opts.MaxRounds)
}

// WaitForResource finds the root task for the resource, waits its children and,
// when waitCompleted is set, waits the root itself to succeed.
func (m *Manager) WaitForResource(ctx context.Context, q RootQuery, waitCompleted bool) (string, error) {
	rootID, err := m.FindRootTask(ctx, q)
	if err != nil {
		return "", err
	}
	if err := m.WaitForChildren(ctx, rootID, DefaultChildOptions()); err != nil {
		return rootID, err
	}
	if !waitCompleted {
		return rootID, nil
	}
	if err := m.WaitSucceeded(ctx, rootID, WaitOptions{Timeout: DefaultRootTimeout}); err != nil {
		var failed *srvErrors.TaskFailedError
		if errors.As(err, &failed) {
			return rootID, fmt.Errorf("root task %s failed, check the task logs: %w", rootID, err)
		}
		return rootID, err
	}
	return rootID, nil
}
