// Package scheduler is the worker pool behind concurrent task waits and
// fixture sweeps.
//
// A Scheduler owns N workers. Work submitted with AddWork or AddNamedWork is
// queued and handed to the next idle worker; the caller receives a Future
// carrying exactly one Result.
//
//	 AddNamedWork("wait 3f2c…", fn)
//	            │
//	            ▼
//	   ┌─────────────────┐   dispatch()   ┌──────────┐
//	   │   work queue    │ ─────────────► │ worker k │──► Result{Data, Err}
//	   └─────────────────┘                └────┬─────┘          │
//	            ▲                              │ idle           ▼
//	            └──────────── run() ◄──────────┘           future.C()
//
// # Consumers
//
//	┌──────────────────────┬────────────────────────────────────────────┐
//	│ Caller               │ Work item                                  │
//	├──────────────────────┼────────────────────────────────────────────┤
//	│ tasks.WaitAll        │ one Manager.Wait per task id               │
//	│ VMManager.Sweep      │ power off + destroy one matching VM        │
//	│ server task engine   │ advance one simulated task to completion   │
//	└──────────────────────┴────────────────────────────────────────────┘
//
// # Cancellation
//
// Every work item runs with a context derived from the scheduler context:
//
//   - Future.Stop cancels one item.
//   - Await stops the item when the caller context ends first.
//   - Close cancels everything, answers queued items with context.Canceled
//     and returns once running workers are back. Close is idempotent.
//
// # Panics
//
// A panicking work item is logged and reported as an error result; the
// worker goes back to the pool.
//
// # Usage
//
//	sched := scheduler.NewScheduler(4)
//	defer sched.Close()
//
//	f := sched.AddNamedWork("wait "+id, func(ctx context.Context) (any, error) {
//	    return manager.Wait(ctx, id, tasks.WaitOptions{Timeout: time.Hour})
//	})
//	state, err := scheduler.Await(ctx, f)
package scheduler
