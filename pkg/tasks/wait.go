package tasks

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/metrics"
	"github.com/dscc-qa/backup-harness/pkg/scheduler"
)

const (
	DefaultInterval    = 100 * time.Millisecond
	DefaultMaxInterval = 10 * time.Second
	DefaultTimeout     = time.Hour
)

type WaitOptions struct {
	// Timeout bounds the whole wait. Zero means DefaultTimeout.
	Timeout time.Duration
	// Interval is the first sleep. Later sleeps double up to max(10s, Interval).
	Interval time.Duration
	// Message prefixes the timeout error.
	Message   string
	LogResult bool
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// NewBackOff returns the polling cadence: Interval doubling each poll,
// capped at max(10s, Interval), without jitter.
func NewBackOff(interval time.Duration) backoff.BackOff {
	if interval <= 0 {
		interval = DefaultInterval
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = max(DefaultMaxInterval, interval)
	b.Reset()
	return b
}

var errPending = errors.New("condition not met yet")

// deadlineBackOff shortens the last sleep so the final check runs at the
// deadline, then stops.
type deadlineBackOff struct {
	backoff.BackOff
	deadline time.Time
}

func (d *deadlineBackOff) NextBackOff() time.Duration {
	remaining := time.Until(d.deadline)
	if remaining <= 0 {
		return backoff.Stop
	}
	next := d.BackOff.NextBackOff()
	if next == backoff.Stop || next > remaining {
		return remaining
	}
	return next
}

// poll evaluates check until it reports done, the timeout expires or ctx is cancelled.
// The last check runs at the timeout. Transient errors are retried and consume
// the timeout; any other error aborts.
func poll[T any](ctx context.Context, b backoff.BackOff, timeout time.Duration, check func(ctx context.Context) (T, bool, error)) (T, error) {
	op := func() (T, error) {
		metrics.TaskPolls.Inc()
		v, done, err := check(ctx)
		if err != nil {
			if isTransient(err) {
				return v, err
			}
			return v, backoff.Permanent(err)
		}
		if !done {
			return v, errPending
		}
		return v, nil
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(&deadlineBackOff{BackOff: b, deadline: time.Now().Add(timeout)}),
		backoff.WithMaxElapsedTime(0),
	)
}

// timedOut reports whether err came from an expired poll rather than a hard failure.
func timedOut(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.Is(err, errPending) || isTransient(err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch srvErrors.StatusCode(err) {
	case 403, 429, 500, 502, 503, 504:
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Wait polls the task until it leaves INITIALIZED/RUNNING and returns the terminal state.
func (m *Manager) Wait(ctx context.Context, id string, opts WaitOptions) (TaskState, error) {
	opts = opts.withDefaults()
	log := zap.S().Named("tasks")
	start := time.Now()

	if t, err := m.Get(ctx, id); err == nil {
		log.Infow("waiting for task", "id", id, "name", t.DisplayName, "timeout", opts.Timeout)
	}

	var last *Task
	state, err := poll(ctx, NewBackOff(opts.Interval), opts.Timeout, func(ctx context.Context) (TaskState, bool, error) {
		t, err := m.Get(ctx, id)
		if err != nil {
			return "", false, err
		}
		last = t
		s, err := stateOf(t)
		if err != nil {
			return "", false, err
		}
		return s, !s.InProgress(), nil
	})
	if err != nil {
		if timedOut(ctx, err) {
			lastState := ""
			if last != nil {
				lastState = string(last.State)
			}
			metrics.ObserveWait("timeout", time.Since(start))
			return "", srvErrors.NewTaskTimeoutError(id, opts.Timeout, lastState, opts.Message)
		}
		metrics.ObserveWait("error", time.Since(start))
		return "", err
	}

	metrics.ObserveWait(string(state), time.Since(start))
	if opts.LogResult && last != nil {
		log.Infow("task completed", "id", id, "name", last.DisplayName, "state", state, "task", last)
	}
	return state, nil
}

// WaitSucceeded waits for the task and fails unless it ends SUCCEEDED.
func (m *Manager) WaitSucceeded(ctx context.Context, id string, opts WaitOptions) error {
	state, err := m.Wait(ctx, id, opts)
	if err != nil {
		return err
	}
	if state == StateSucceeded {
		return nil
	}
	t, err := m.Get(ctx, id)
	if err != nil {
		return srvErrors.NewTaskFailedError(id, string(state), "", nil)
	}
	return srvErrors.NewTaskFailedError(id, string(state), t.ErrorMessage(), t.Logs())
}

// WaitForError polls until the task exposes a non-empty error message.
func (m *Manager) WaitForError(ctx context.Context, id string, opts WaitOptions) (string, error) {
	opts = opts.withDefaults()
	msg, err := poll(ctx, NewBackOff(opts.Interval), opts.Timeout, func(ctx context.Context) (string, bool, error) {
		t, err := m.Get(ctx, id)
		if err != nil {
			return "", false, err
		}
		return t.ErrorMessage(), t.ErrorMessage() != "", nil
	})
	if err != nil {
		if timedOut(ctx, err) {
			return "", srvErrors.NewTaskTimeoutError(id, opts.Timeout, "", opts.Message)
		}
		return "", err
	}
	if opts.LogResult {
		zap.S().Named("tasks").Infow("task reported error", "id", id, "error", msg)
	}
	return msg, nil
}

// WaitForPercentComplete polls until progressPercent reaches percent.
func (m *Manager) WaitForPercentComplete(ctx context.Context, id string, percent int, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	_, err := poll(ctx, NewBackOff(DefaultInterval), timeout, func(ctx context.Context) (int, bool, error) {
		p, err := m.Progress(ctx, id)
		if err != nil {
			return 0, false, err
		}
		return p, p >= percent, nil
	})
	if err != nil {
		if timedOut(ctx, err) {
			return srvErrors.NewTaskTimeoutError(id, timeout, "", fmt.Sprintf("task %s did not reach %d percent complete", id, percent))
		}
		return err
	}
	zap.S().Named("tasks").Infow("task reached progress", "id", id, "percent", percent)
	return nil
}

// WaitAll waits for every task concurrently and returns the terminal state of each.
// Errors of individual waits are combined.
func (m *Manager) WaitAll(ctx context.Context, ids []string, opts WaitOptions) (map[string]TaskState, error) {
	sched := m.scheduler
	if sched == nil {
		sched = newPool(len(ids))
		defer sched.Close()
	}

	states := make(map[string]TaskState, len(ids))
	var errs error

	futures := make(map[string]*scheduler.Future[scheduler.Result[any]], len(ids))
	for _, id := range ids {
		if _, ok := futures[id]; ok {
			continue
		}
		futures[id] = sched.AddNamedWork("wait "+id, m.waitWork(ctx, id, opts))
	}

	for id, f := range futures {
		select {
		case <-ctx.Done():
			for _, other := range futures {
				other.Stop()
			}
			return states, multierr.Append(errs, ctx.Err())
		case r := <-f.C():
			if r.Err != nil {
				errs = multierr.Append(errs, fmt.Errorf("task %s: %w", id, r.Err))
				continue
			}
			states[id] = r.Data.(TaskState)
		}
	}
	return states, errs
}
