package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	v1 "github.com/dscc-qa/backup-harness/api/v1"
	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/pkg/auth"
	"github.com/dscc-qa/backup-harness/pkg/client"
	"github.com/dscc-qa/backup-harness/pkg/operation"
	"github.com/dscc-qa/backup-harness/pkg/scheduler"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
	"github.com/dscc-qa/backup-harness/test/e2e/infra"
)

// BackupSvc groups the control plane collections the specs drive.
type BackupSvc struct {
	Runner   *operation.Runner
	Tasks    *tasks.Manager
	Stores   *operation.Collection[v1.Resource]
	Gateways *operation.Collection[v1.Resource]
	Policies *operation.Collection[v1.Resource]
	Accounts *operation.Collection[v1.Resource]
	Backups  *operation.Collection[v1.Resource]
	Jobs     *operation.Collection[v1.ProtectionJob]

	pool *scheduler.Scheduler
}

// NewBackupService builds an authenticated client for the endpoints. A nil
// recorder disables ledger recording.
func NewBackupService(ctx context.Context, e infra.Endpoints, workers int, recorder operation.Recorder, opts ...client.Option) (*BackupSvc, error) {
	zap.S().Named("e2e").Infow("initializing backup service", "backend", e.BackendURL)

	var source = auth.NewStaticSource(e.StaticToken)
	if e.StaticToken == "" {
		source = auth.NewClientCredentialsSource(ctx, auth.ClientCredentials{
			ClientID:     e.ClientID,
			ClientSecret: e.ClientSecret,
			TokenURL:     e.TokenURL,
		})
	}
	c, err := client.NewClient(e.BackendURL, append(opts, client.WithAuthorizer(auth.NewAuthorizer(source)))...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backup service client: %w", err)
	}

	pool := scheduler.NewScheduler(workers)
	m := tasks.NewManager(c, tasks.WithScheduler(pool))

	var runnerOpts []operation.RunnerOption
	if recorder != nil {
		runnerOpts = append(runnerOpts, operation.WithRecorder(recorder))
	}
	r := operation.NewRunner(c, m, runnerOpts...)

	return &BackupSvc{
		Runner:   r,
		Tasks:    m,
		Stores:   collection[v1.Resource](r, models.KindProtectionStore),
		Gateways: collection[v1.Resource](r, models.KindProtectionStoreGW),
		Policies: collection[v1.Resource](r, models.KindProtectionPolicy),
		Accounts: collection[v1.Resource](r, models.KindCSPAccount),
		Backups:  collection[v1.Resource](r, models.KindBackup),
		Jobs:     collection[v1.ProtectionJob](r, models.KindProtectionJob),
		pool:     pool,
	}, nil
}

func collection[T any](r *operation.Runner, kind models.ResourceKind) *operation.Collection[T] {
	return operation.NewCollection[T](r, kind.Group()+"/"+string(kind))
}

// RunJob triggers a protection job and waits for its backup task.
func (s *BackupSvc) RunJob(ctx context.Context, id string, opts tasks.WaitOptions) (*operation.Outcome, error) {
	return s.Runner.Run(ctx, http.MethodPost, s.Jobs.Path()+"/"+url.PathEscape(id)+"/run", nil, opts)
}

// CreateJob registers a protection job. Job creation is synchronous.
func (s *BackupSvc) CreateJob(ctx context.Context, req v1.ProtectionJobRequest) (*v1.ProtectionJob, error) {
	resp, err := s.Runner.Client().Do(ctx, client.Request{Method: http.MethodPost, Path: s.Jobs.Path(), Body: req})
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(http.StatusCreated); err != nil {
		return nil, err
	}
	var job v1.ProtectionJob
	if err := resp.Decode(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *BackupSvc) Close() {
	s.pool.Close()
}
