// Package tasks implements the asynchronous task-polling protocol of the
// backup control plane.
//
// Every mutating call on the control plane answers 202 Accepted and points
// at a task. The harness then polls the task until it reaches a terminal
// state, optionally following the task tree (root, parent, children) that
// the backend workflow spawned.
//
// # States
//
//	┌──────────────┬─────────────┐
//	│ State        │ Class       │
//	├──────────────┼─────────────┤
//	│ INITIALIZED  │ in progress │
//	│ RUNNING      │ in progress │
//	│ SUCCEEDED    │ terminal    │
//	│ FAILED       │ terminal    │
//	│ TIMEDOUT     │ terminal    │
//	│ PAUSED       │ terminal    │
//	└──────────────┴─────────────┘
//
// Anything else is rejected with UnknownTaskStateError.
//
// # Polling cadence
//
// Wait, WaitForError and WaitForPercentComplete share one backoff:
//
//	sleep(n) = min(Interval * 2^n, max(10s, Interval))
//	Interval = 100ms  →  0.1 0.2 0.4 0.8 1.6 3.2 6.4 10 10 10 …
//
// The first poll is immediate. The whole wait is bounded by Timeout; on
// expiry a TaskTimeoutError carries the caller's Message and the last state
// seen. Transient HTTP failures (403, 429, 5xx, network) keep the wait
// alive and consume the timeout. Other errors, and context cancellation,
// end it at once.
//
// # Listing
//
//	List              createdAt gt <since-offset> [and userId eq '<user>']
//	                  sort=createdAt, limit=100, offset 0..10000, stop on empty page,
//	                  result sorted newest first
//	ByNameAndResource createdAt desc scan, display name + trailing 2 URI segments
//	ByNameAndResourceExact / ByNameAndCustomer / DeleteIndexedFilesTasks
//	                  single page, server side filter, display name substring
//
// # Task trees
//
//	FindRootTask ──► poll List every 60s (1h) ──► candidate by display name
//	                                              and source resource URI
//	                                                   │
//	                      ParentName set & matches ────┤──► candidate id
//	                                                   └──► rootTask.id | rootOperation.id
//
//	WaitForChildren(root)
//	   round n: children = childTasks | filter parent/id eq root
//	            len == previous round ──► done
//	            else wait each child (1h); FailOnError ──► TaskFailedError(logs)
//	            previous = len; next round (bounded by MaxRounds)
//
// WaitForResource chains FindRootTask, WaitForChildren and, optionally, a
// WaitSucceeded on the root.
//
// # Usage
//
//	m := tasks.NewManager(c, tasks.WithUserID(claims.Subject))
//
//	state, err := m.Wait(ctx, id, tasks.WaitOptions{
//	    Timeout: 30 * time.Minute,
//	    Message: "protection store was not created",
//	})
package tasks
