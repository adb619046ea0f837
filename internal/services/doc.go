// Package services implements the mock backup control plane behind the HTTP
// handlers.
//
// The services keep all state in memory. They exist so the harness can be
// exercised end to end without a real backend: every asynchronous write is
// acknowledged with a task that moves through the same states a real backend
// reports.
//
// # Service Dependency Graph
//
//	Handlers (HTTP endpoints)
//	    │
//	    ▼
//	Services Layer
//	    ├── TaskService ───────► in-memory task table
//	    ├── Engine ────────────► TaskService, Scheduler, FaultInjector
//	    ├── ResourceService ───► Engine
//	    ├── BackupScheduler ───► Engine, ResourceService, robfig/cron
//	    └── TokenIssuer ───────► RSA key, golang-jwt
//
// # Task lifecycle
//
//	┌─────────────┐    ┌─────────┐    ┌───────────┐
//	│ INITIALIZED │───►│ RUNNING │───►│ SUCCEEDED │
//	└─────────────┘    └─────────┘    └───────────┘
//	                        │
//	                        │ injected failure, child failure,
//	                        │ OnSuccess error, cancellation
//	                        ▼
//	                   ┌────────┐
//	                   │ FAILED │
//	                   └────────┘
//
// The Engine runs each root task as one unit of scheduler work. Progress moves
// in FaultConfig.Steps steps of FaultConfig.StepLatency each. Half way through,
// the children are created with parent and root links and run inline, so the
// parent is RUNNING while its children exist. A failed child fails the parent.
//
// # TaskService
//
// Tasks are kept in creation order. List applies a models.TaskFilter, usually
// parsed from the filter grammar by ParseTaskFilter:
//
//	createdAt gt 2024-05-30T10:00:00Z and userId eq 'harness'
//
// Supported clauses are createdAt gt, and eq on userId, customerId, name,
// displayName, parent/id, rootTask.id and sourceResource.resourceUri.
// Creation times are kept strictly increasing so createdAt paging is stable.
//
// # ResourceService
//
// Generic collections (protection policies, stores, gateways, CSP accounts,
// backups). Create inserts the resource in CREATING state and starts a task
// whose success flips it to OK; Delete marks it DELETING and removes it on
// success. A protection policy referenced by a protection job is only deleted
// with force.
//
// # BackupScheduler
//
// Protection jobs bind a policy schedule to an asset. Each schedule is turned
// into a cron schedule by pkg/schedule and registered with robfig/cron. Every
// tick, or an explicit Trigger, starts a backup task with snapshot and copy
// children and records a backup resource when it succeeds.
//
// # FaultInjector
//
// Answers a configurable fraction of API requests with 503 and fails any task
// whose display name contains the failure pattern ("fail" by default).
package services
