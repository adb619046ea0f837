package vmware

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/pkg/scheduler"
)

const DefaultSweepWorkers = 4

type SweepOptions struct {
	DryRun  bool
	Workers int
	// CheckPrivileges validates SweepPrivileges on each VM before destroying it.
	CheckPrivileges bool
}

type SweepReport struct {
	Matched   []string
	Destroyed []string
}

// Sweep destroys every VM matching pattern on a worker pool. Failures do not
// stop the sweep; they are aggregated into the returned error.
func (m *VMManager) Sweep(ctx context.Context, pattern string, opts SweepOptions) (*SweepReport, error) {
	log := zap.S().Named("vmware")

	vms, err := m.ListVMs(ctx, pattern)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{}
	for _, vm := range vms {
		report.Matched = append(report.Matched, vm.Name)
	}

	if opts.DryRun {
		log.Infow("dry run: vms would be destroyed", "pattern", pattern, "vms", report.Matched)
		return report, nil
	}
	if len(vms) == 0 {
		return report, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultSweepWorkers
	}
	sched := scheduler.NewScheduler(workers)
	defer sched.Close()

	futures := make([]*scheduler.Future[scheduler.Result[any]], 0, len(vms))
	for _, vm := range vms {
		futures = append(futures, sched.AddNamedWork("destroy "+vm.Name, m.destroyWork(vm, opts)))
	}

	var errs error
	for i, f := range futures {
		if _, err := scheduler.Await(ctx, f); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", vms[i].Name, err))
			continue
		}
		report.Destroyed = append(report.Destroyed, vms[i].Name)
	}

	log.Infow("sweep finished", "pattern", pattern, "matched", len(report.Matched), "destroyed", len(report.Destroyed))
	return report, errs
}

func (m *VMManager) destroyWork(vm VM, opts SweepOptions) scheduler.Work[any] {
	return func(ctx context.Context) (any, error) {
		if opts.CheckPrivileges {
			if err := m.ValidatePrivileges(ctx, vm.MOID, SweepPrivileges); err != nil {
				return nil, err
			}
		}
		return nil, m.Destroy(ctx, vm.Name)
	}
}
