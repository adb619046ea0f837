/*
Package main provides the end-to-end suite of the backup harness.

# Package Structure

	test/e2e/
	├── main.go          Entry point: flags, config, InfraManager setup, ledger, Ginkgo runner
	├── tests.go         Ginkgo specs (store lifecycle, gateway workflow, bulk waits, jobs, faults)
	├── doc.go           This file
	├── infra/           Infrastructure management
	│   ├── infra.go     InfraManager interface + Endpoints
	│   ├── mock.go      MockInfraManager (in-process control plane)
	│   └── remote.go    RemoteInfraManager (no-op, externally managed)
	└── service/
	    └── service.go   BackupSvc: authenticated client, task manager, collections

# InfraManager

InfraManager is the central abstraction for the control plane under test:

	type InfraManager interface {
	    Start() / Stop()
	    Endpoints()              backend url, token url, credentials
	    SetErrorRate(rate)       503 injection, mock only
	    Local()                  whether mock-only specs may run
	}

Two implementations:
  - MockInfraManager: starts the mock control plane on a random port (default).
  - RemoteInfraManager: no-op; the backend is managed externally.

Selected via the -infra-mode flag ("mock" or "remote"). Specs that need
failure injection skip themselves against a remote backend.

# Flow

	┌──────────┐  Submit / Create   ┌───────────────┐
	│  specs   │───────────────────▶│ control plane │
	│          │◀───── 202 + task ──│ (mock/remote) │
	└────┬─────┘                    └───────▲───────┘
	     │ Wait / FindRootTask / WaitForChildren   │
	     └─────────────────────────────────────────┘
	     │
	     ▼ every awaited task
	┌──────────┐
	│  ledger  │  -ledger path.duckdb, then `harness report ...`
	└──────────┘

# Running

	go run ./test/e2e                                     mock control plane
	go run ./test/e2e -infra-mode remote \
	    -backend-url https://... -token-url https://.../oauth2/token \
	    -client-id ... -client-secret ... -ledger e2e.duckdb
*/
package main
