// Package server provides the HTTP server of the mock control plane.
//
// NewServer binds the listener up front, so an Addr of "127.0.0.1:0" yields a
// free port whose URL is known before Start is called.
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                         HTTP Server                           │
//	├───────────────────────────────────────────────────────────────┤
//	│  ginzap.Ginzap           request logging ("http" logger)      │
//	│  ginzap.RecoveryWithZap  panic recovery                       │
//	│  RequestMetrics          prometheus request counter/latency   │
//	├───────────────────────────────────────────────────────────────┤
//	│  GET /metrics            promhttp                             │
//	│  /...                    handlers registered via callback     │
//	└───────────────────────────────────────────────────────────────┘
//
// Dev mode runs gin in debug mode, prod mode in release mode.
//
// # Lifecycle
//
//	srv, err := server.NewServer(cfg, func(router *gin.RouterGroup) {
//	    handlers.RegisterHandlers(router, h, server.InjectFaults(faults))
//	})
//	go srv.Start(ctx) // blocks, nil after a graceful Stop
//	srv.Stop(ctx)     // waits for in-flight requests
package server
