package mock

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/internal/handlers"
	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/server"
	"github.com/dscc-qa/backup-harness/internal/services"
	"github.com/dscc-qa/backup-harness/pkg/scheduler"
)

const (
	DefaultVersion    = "2.4.0"
	DefaultCustomerID = "c0ffee00-0000-4000-8000-000000000001"
	DefaultWorkers    = 16

	Issuer = "backup-harness-mock"
)

type Options struct {
	Addr       string
	Mode       string
	Version    string
	CustomerID string
	// Clients maps client ids to secrets accepted by the token endpoint.
	Clients map[string]string
	Workers int
	Faults  services.FaultConfig
}

func DefaultOptions() Options {
	return Options{
		Addr:       "127.0.0.1:0",
		Mode:       server.ModeDev,
		Version:    DefaultVersion,
		CustomerID: DefaultCustomerID,
		Clients:    map[string]string{"harness": "harness-secret"},
		Workers:    DefaultWorkers,
		Faults:     services.DefaultFaultConfig(),
	}
}

// ControlPlane is an in-process backend serving the token, task and collection APIs.
type ControlPlane struct {
	Tasks     *services.TaskService
	Resources *services.ResourceService
	Backups   *services.BackupScheduler
	Faults    *services.FaultInjector
	Issuer    *services.TokenIssuer

	sched  *scheduler.Scheduler
	server  *server.Server
	done    chan error
	started bool
}

func New(opts Options) (*ControlPlane, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}

	cp := &ControlPlane{
		Tasks:  services.NewTaskService(),
		Faults: services.NewFaultInjector(opts.Faults),
		sched:  scheduler.NewScheduler(opts.Workers),
		done:   make(chan error, 1),
	}
	engine := services.NewEngine(cp.Tasks, cp.sched, cp.Faults)
	cp.Resources = services.NewResourceService(engine)
	cp.Backups = services.NewBackupScheduler(engine, cp.Resources)

	issuer, err := services.NewTokenIssuer(Issuer, opts.CustomerID, opts.Clients, 0)
	if err != nil {
		cp.sched.Close()
		return nil, fmt.Errorf("creating token issuer: %w", err)
	}
	cp.Issuer = issuer

	h := handlers.New(cp.Tasks, cp.Resources, cp.Backups, issuer, opts.Version)
	srv, err := server.NewServer(server.Config{Addr: opts.Addr, Mode: opts.Mode}, func(router *gin.RouterGroup) {
		handlers.RegisterHandlers(router, h, server.InjectFaults(cp.Faults))
	})
	if err != nil {
		cp.sched.Close()
		return nil, err
	}
	cp.server = srv

	return cp, nil
}

// URL is the base URL of the control plane.
func (cp *ControlPlane) URL() string {
	return cp.server.URL()
}

func (cp *ControlPlane) TokenURL() string {
	return cp.server.URL() + handlers.TokenPath
}

// Start serves in the background and starts the backup scheduler.
func (cp *ControlPlane) Start() {
	cp.Backups.Start()
	cp.started = true
	go func() {
		cp.done <- cp.server.Start(context.Background())
	}()
}

// Stop shuts the server down, then cancels running tasks.
func (cp *ControlPlane) Stop(ctx context.Context) error {
	cp.Backups.Stop()
	err := cp.server.Stop(ctx)
	cp.sched.Close()
	if err != nil || !cp.started {
		return err
	}
	select {
	case err := <-cp.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Seed stores resources in state OK, for tests that need existing fixtures.
func (cp *ControlPlane) Seed(kind models.ResourceKind, names ...string) []models.Resource {
	out := make([]models.Resource, 0, len(names))
	for _, n := range names {
		out = append(out, cp.Resources.Put(kind, n, nil))
	}
	zap.S().Named("mock").Debugw("seeded resources", "kind", kind, "count", len(out))
	return out
}
