package tasks

import (
	"context"

	"github.com/dscc-qa/backup-harness/pkg/scheduler"
)

const maxPoolWorkers = 16

func newPool(n int) *scheduler.Scheduler {
	return scheduler.NewScheduler(min(max(n, 1), maxPoolWorkers))
}

// waitWork runs Wait on the pool; it stops when either the pool or the caller context ends.
func (m *Manager) waitWork(ctx context.Context, id string, opts WaitOptions) scheduler.Work[any] {
	return func(wctx context.Context) (any, error) {
		wctx, cancel := context.WithCancel(wctx)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		return m.Wait(wctx, id, opts)
	}
}
