// Package config defines the configuration structure of the backup harness.
//
// Configuration is organized into sections, one per concern, and uses code
// generation via optgen to create functional option helpers for the
// Configuration, Polling and Timeouts structs.
//
// # Configuration Structure
//
//	Configuration
//	├── Backend     - control plane url, version constraint, user filter
//	├── Auth        - OAuth2 client credentials or a static token
//	├── Polling     - task wait intervals, timeouts and workers
//	├── Transport   - request retry, timeout and rate limit
//	├── Ledger      - DuckDB run ledger
//	├── Report      - summary size and TestRail publishing
//	├── VSphere     - leaked gateway VM sweeper
//	├── AWS         - stale EC2 instance sweeper
//	├── Log         - level, format, rotating file
//	├── Mock        - in-process control plane
//	└── Timeouts    - per-operation scenario waits
//
// # Polling Configuration
//
//	┌───────────────┬─────────┬──────────────────────────────────────────┐
//	│ Field         │ Default │ Description                              │
//	├───────────────┼─────────┼──────────────────────────────────────────┤
//	│ Interval      │ 100ms   │ First poll interval, doubled up to 5s    │
//	│ Timeout       │ 1h      │ Wait timeout of a single task            │
//	│ RootInterval  │ 1m      │ Interval between root task searches      │
//	│ RootTimeout   │ 1h      │ Root task search timeout                 │
//	│ ChildTimeout  │ 1h      │ Wait timeout of each child task          │
//	│ Lookback      │ 24h     │ Default --since of task searches         │
//	│ Workers       │ 8       │ Concurrent task waits                    │
//	└───────────────┴─────────┴──────────────────────────────────────────┘
//
// # Transport Configuration
//
//	┌────────────────┬─────────┬─────────────────────────────────────────┐
//	│ Field          │ Default │ Description                             │
//	├────────────────┼─────────┼─────────────────────────────────────────┤
//	│ MaxTries       │ 10      │ Attempts on 5xx, 429 and network errors │
//	│ RetryInterval  │ 5s      │ Delay between attempts                  │
//	│ RetryElapsed   │ 10m     │ Upper bound of all attempts             │
//	│ RequestTimeout │ 60s     │ Timeout of a single request             │
//	│ QPS / Burst    │ 10 / 20 │ Client side rate limit                  │
//	└────────────────┴─────────┴─────────────────────────────────────────┘
//
// # Resolution Order
//
// Every field is bound to a flag. PreRunE resolves the flags of a command in
// this order, the first source that sets a flag wins:
//
//	command line  →  environment (HARNESS_<FLAG>)  →  --config file  →  default
//	                      ▲
//	                      └── --env-file is exported first, without
//	                          overriding variables already set
//
// The --config file may be yaml, json or toml; its keys are flag names.
//
// # Validation
//
// Validate checks the sections every command needs (backend, polling,
// transport, log). Commands that use the vSphere, AWS, TestRail or mock
// sections call the matching Validate* method. All failures are
// InvalidConfigurationError values combined with multierr.
//
// # Secrets
//
// Auth, Report and VSphere are tagged sensitive, DebugMap never prints them.
package config
