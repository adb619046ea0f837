// Package handlers implements the HTTP API of the mock control plane.
//
// Handlers delegate to the services layer and focus on request validation,
// response formatting and the HTTP semantics the harness relies on: writes
// answer 202 Accepted with a Location header naming the task.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     HTTP Request (Gin)                          │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│  InjectFaults (503)  →  Authenticate (bearer JWT → Caller)      │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Handler (this package)                     │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Services Layer                             │
//	│  TaskService │ ResourceService │ BackupScheduler │ TokenIssuer  │
//	└─────────────────────────────────────────────────────────────────┘
//
// # API Endpoints
//
//	┌────────┬──────────────────────────────────────────────┬──────────────────────────────┐
//	│ Method │ Endpoint                                     │ Description                  │
//	├────────┼──────────────────────────────────────────────┼──────────────────────────────┤
//	│ POST   │ /oauth2/token                                │ client-credentials grant     │
//	│ GET    │ /oauth2/jwks                                 │ token verification key       │
//	│ GET    │ /version                                     │ backend version              │
//	│ GET    │ /data-services/v1beta1/async-operations      │ list tasks (filter, sort)    │
//	│ GET    │ /data-services/v1beta1/async-operations/{id} │ task document                │
//	│ GET    │ {group}/{kind}                               │ list (offset, limit, name)   │
//	│ GET    │ {group}/{kind}/{id}                          │ get                          │
//	│ POST   │ {group}/{kind}                               │ create, 202 + task           │
//	│ PATCH  │ {group}/{kind}/{id}                          │ update, 202 + task           │
//	│ DELETE │ {group}/{kind}/{id}?force=true               │ delete, 202 + task           │
//	│ POST   │ .../protection-jobs                          │ register a scheduled job     │
//	│ POST   │ .../protection-jobs/{id}/run                 │ start a backup, 202 + task   │
//	└────────┴──────────────────────────────────────────────┴──────────────────────────────┘
//
// Kinds are protection-policies, protection-stores, protection-store-gateways
// and backups under /backup-recovery/v1beta1, csp-accounts under
// /hybrid-cloud/v1beta1.
//
// # Error Handling
//
//	┌──────────────────────────────┬────────┐
//	│ Error Type                   │ Status │
//	├──────────────────────────────┼────────┤
//	│ InvalidConfigurationError    │ 400    │
//	│ UnauthorizedError            │ 401    │
//	│ ResourceNotFoundError        │ 404    │
//	│ ErrResourceInUse             │ 409    │
//	│ anything else                │ 500    │
//	└──────────────────────────────┴────────┘
//
// Errors are returned as {"error": "..."}.
package handlers
