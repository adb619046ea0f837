package operation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/pkg/client"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
)

// Recorder persists awaited outcomes (the run ledger).
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

type Accepted struct {
	TaskID     string
	Location   string
	StatusCode int
	Body       []byte
}

type Outcome struct {
	TaskID   string
	Task     *tasks.Task
	Started  time.Time
	Finished time.Time
	Err      error
}

func (o Outcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}

// Runner submits asynchronous operations and awaits their tasks.
type Runner struct {
	client   *client.Client
	tasks    *tasks.Manager
	recorder Recorder
}

type RunnerOption func(*Runner)

func WithRecorder(r Recorder) RunnerOption {
	return func(rn *Runner) {
		rn.recorder = r
	}
}

func NewRunner(c *client.Client, m *tasks.Manager, opts ...RunnerOption) *Runner {
	r := &Runner{client: c, tasks: m}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Tasks() *tasks.Manager {
	return r.tasks
}

func (r *Runner) Client() *client.Client {
	return r.client
}

type taskReference struct {
	TaskURI string `json:"taskUri"`
}

// TaskID reads the task id from the Location header, falling back to the body taskUri.
func TaskID(resp *client.Response) (string, error) {
	if loc := strings.TrimRight(resp.Header.Get("Location"), "/"); loc != "" {
		return loc[strings.LastIndex(loc, "/")+1:], nil
	}
	var ref taskReference
	if len(resp.Body) > 0 && resp.Decode(&ref) == nil && ref.TaskURI != "" {
		uri := strings.TrimRight(ref.TaskURI, "/")
		return uri[strings.LastIndex(uri, "/")+1:], nil
	}
	return "", srvErrors.NewMissingTaskReferenceError(resp.Header.Get("Location"))
}

// Submit sends the request and requires 202 Accepted with a task reference.
func (r *Runner) Submit(ctx context.Context, method, path string, body any) (*Accepted, error) {
	return r.submit(ctx, client.Request{Method: method, Path: path, Body: body})
}

func (r *Runner) submit(ctx context.Context, req client.Request) (*Accepted, error) {
	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	if err := resp.Expect(http.StatusAccepted); err != nil {
		return nil, err
	}
	id, err := TaskID(resp)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	zap.S().Named("operation").Infow("operation accepted", "method", req.Method, "path", req.Path, "task_id", id)
	return &Accepted{
		TaskID:     id,
		Location:   resp.Header.Get("Location"),
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}, nil
}

// Run submits the operation and waits for its task to succeed.
func (r *Runner) Run(ctx context.Context, method, path string, body any, opts tasks.WaitOptions) (*Outcome, error) {
	return r.run(ctx, client.Request{Method: method, Path: path, Body: body}, opts)
}

func (r *Runner) run(ctx context.Context, req client.Request, opts tasks.WaitOptions) (*Outcome, error) {
	acc, err := r.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return r.Await(ctx, acc.TaskID, opts)
}

// Await waits for an already accepted task and records the outcome.
func (r *Runner) Await(ctx context.Context, taskID string, opts tasks.WaitOptions) (*Outcome, error) {
	out := &Outcome{TaskID: taskID, Started: time.Now()}
	out.Err = r.tasks.WaitSucceeded(ctx, taskID, opts)
	out.Finished = time.Now()
	if t, err := r.tasks.Get(ctx, taskID); err == nil {
		out.Task = t
	}

	if r.recorder != nil {
		if err := r.recorder.Record(ctx, *out); err != nil {
			zap.S().Named("operation").Warnw("failed to record outcome", "task_id", taskID, "error", err)
		}
	}
	return out, out.Err
}
