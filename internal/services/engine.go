package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/pkg/scheduler"
)

const failedTaskErrorCode = 500

// TaskSpec describes a simulated task and its children.
type TaskSpec struct {
	Name        string
	DisplayName string
	UserID      string
	CustomerID  string
	Source      *models.ResourceRef
	Children    []TaskSpec
	// OnSuccess runs before the task is marked SUCCEEDED; an error fails the task.
	OnSuccess func() error
	// OnFailure runs after the task is marked FAILED.
	OnFailure func(err error)
}

// Engine drives simulated tasks through their lifecycle on the scheduler.
type Engine struct {
	tasks  *TaskService
	sched  *scheduler.Scheduler
	faults *FaultInjector
}

func NewEngine(tasks *TaskService, sched *scheduler.Scheduler, faults *FaultInjector) *Engine {
	return &Engine{tasks: tasks, sched: sched, faults: faults}
}

// Start records the root task and queues its execution.
func (e *Engine) Start(spec TaskSpec) models.Task {
	root := e.create(spec, nil)

	e.sched.AddNamedWork("task "+root.ID, func(ctx context.Context) (any, error) {
		return nil, e.run(ctx, root.ID, spec)
	})

	zap.S().Named("engine").Debugw("task queued", "id", root.ID, "name", root.Name)
	return root
}

func (e *Engine) create(spec TaskSpec, parent *models.Task) models.Task {
	t := models.Task{
		Name:        spec.Name,
		DisplayName: spec.DisplayName,
		UserID:      spec.UserID,
		CustomerID:  spec.CustomerID,
		Source:      spec.Source,
	}
	if parent != nil {
		t.ParentID = parent.ID
		t.ParentName = parent.Name
		t.RootID = parent.RootID
		if t.UserID == "" {
			t.UserID = parent.UserID
		}
		if t.CustomerID == "" {
			t.CustomerID = parent.CustomerID
		}
		if t.Source == nil {
			t.Source = parent.Source
		}
	}
	return e.tasks.Create(t)
}

// run executes one task. Children are created once the parent is RUNNING and
// executed inline so a task never waits on a worker it cannot get.
func (e *Engine) run(ctx context.Context, id string, spec TaskSpec) error {
	log := zap.S().Named("engine")

	task, err := e.tasks.Update(id, func(t *models.Task) {
		t.State = models.TaskStateRunning
		t.Progress = 0
		t.Log(time.Now().UTC(), t.DisplayName+" started")
	})
	if err != nil {
		return err
	}

	steps, latency := e.faults.Steps()
	var runErr error
	for i := 1; i <= steps && runErr == nil; i++ {
		select {
		case <-ctx.Done():
			runErr = fmt.Errorf("task cancelled: %w", ctx.Err())
			continue
		case <-time.After(latency):
		}
		progress := i * 100 / (steps + 1)
		_, runErr = e.tasks.Update(id, func(t *models.Task) {
			t.Progress = progress
		})

		// children start half way through
		if i == (steps+1)/2 && runErr == nil {
			runErr = e.runChildren(ctx, &task, spec.Children)
		}
	}

	if runErr == nil && e.faults.ShouldFail(task.DisplayName) {
		runErr = fmt.Errorf("%s failed: injected failure", task.DisplayName)
	}
	if runErr == nil && spec.OnSuccess != nil {
		runErr = spec.OnSuccess()
	}

	if runErr != nil {
		e.finish(id, models.TaskStateFailed, runErr)
		if spec.OnFailure != nil {
			spec.OnFailure(runErr)
		}
		log.Infow("task failed", "id", id, "name", task.Name, "error", runErr)
		return runErr
	}

	e.finish(id, models.TaskStateSucceeded, nil)
	log.Debugw("task succeeded", "id", id, "name", task.Name)
	return nil
}

func (e *Engine) runChildren(ctx context.Context, parent *models.Task, children []TaskSpec) error {
	// children need the parent as created, with RootID set
	p, err := e.tasks.Get(parent.ID)
	if err != nil {
		return err
	}
	for _, childSpec := range children {
		child := e.create(childSpec, &p)
		if err := e.run(ctx, child.ID, childSpec); err != nil {
			return fmt.Errorf("child task %s: %w", child.Name, err)
		}
	}
	return nil
}

func (e *Engine) finish(id string, state models.TaskState, err error) {
	_, _ = e.tasks.Update(id, func(t *models.Task) {
		now := time.Now().UTC()
		t.State = state
		if err != nil {
			t.Error = err.Error()
			t.ErrorCode = failedTaskErrorCode
			t.Log(now, t.DisplayName+" failed")
			return
		}
		t.Progress = 100
		t.Log(now, t.DisplayName+" completed")
	})
}
