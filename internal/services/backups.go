package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/internal/models"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/schedule"
)

const backupTaskName = "ScheduledBackup"

type ProtectionJobRequest struct {
	PolicyID  string
	AssetURI  string
	AssetName string
	Schedule  schedule.Schedule
}

// BackupScheduler runs protection jobs on their policy schedule and spawns a
// backup task for each tick.
type BackupScheduler struct {
	mu        sync.Mutex
	cron      *cron.Cron
	engine    *Engine
	resources *ResourceService
	jobs      map[string]*models.ProtectionJob
	entries   map[string]cron.EntryID
	order     []string
}

func NewBackupScheduler(engine *Engine, resources *ResourceService) *BackupScheduler {
	b := &BackupScheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		engine:    engine,
		resources: resources,
		jobs:      make(map[string]*models.ProtectionJob),
		entries:   make(map[string]cron.EntryID),
	}
	resources.SetInUse(b.policyInUse)
	return b
}

func (b *BackupScheduler) Start() {
	b.cron.Start()
}

// Stop halts the cron loop. Backup tasks already queued keep running.
func (b *BackupScheduler) Stop() {
	<-b.cron.Stop().Done()
}

// Create validates the schedule and registers the job with the cron loop.
func (b *BackupScheduler) Create(req ProtectionJobRequest) (models.ProtectionJob, error) {
	if _, err := b.resources.Get(models.KindProtectionPolicy, req.PolicyID); err != nil {
		return models.ProtectionJob{}, err
	}
	if req.AssetURI == "" {
		return models.ProtectionJob{}, srvErrors.NewInvalidConfigurationError("assetUri", "must not be empty")
	}
	cs, err := schedule.Parse(req.Schedule)
	if err != nil {
		return models.ProtectionJob{}, srvErrors.NewInvalidConfigurationError("schedule", err.Error())
	}

	job := &models.ProtectionJob{
		ID:        uuid.NewString(),
		PolicyID:  req.PolicyID,
		AssetURI:  req.AssetURI,
		AssetName: req.AssetName,
		Schedule:  req.Schedule,
		NextRunAt: cs.Next(time.Now().UTC()),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := job.ID
	b.entries[id] = b.cron.Schedule(cs, cron.FuncJob(func() {
		if _, err := b.Trigger(Caller{}, id); err != nil {
			zap.S().Named("backup_scheduler").Warnw("scheduled backup not started", "job", id, "error", err)
		}
	}))
	b.jobs[id] = job
	b.order = append(b.order, id)

	zap.S().Named("backup_scheduler").Infow("protection job created", "job", id, "asset", job.AssetURI, "next", job.NextRunAt)
	return *job, nil
}

func (b *BackupScheduler) Get(id string) (models.ProtectionJob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[id]
	if !ok {
		return models.ProtectionJob{}, srvErrors.NewResourceNotFoundError(string(models.KindProtectionJob), id)
	}
	return *j, nil
}

func (b *BackupScheduler) List() []models.ProtectionJob {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.ProtectionJob, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.jobs[id])
	}
	return out
}

func (b *BackupScheduler) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.jobs[id]; !ok {
		return srvErrors.NewResourceNotFoundError(string(models.KindProtectionJob), id)
	}
	b.cron.Remove(b.entries[id])
	delete(b.entries, id)
	delete(b.jobs, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

// Trigger starts a backup task for the job immediately. The backup resource is
// recorded when the task succeeds.
func (b *BackupScheduler) Trigger(caller Caller, id string) (models.Task, error) {
	b.mu.Lock()
	job, ok := b.jobs[id]
	if !ok {
		b.mu.Unlock()
		return models.Task{}, srvErrors.NewResourceNotFoundError(string(models.KindProtectionJob), id)
	}
	job.Runs++
	if cs, err := schedule.Parse(job.Schedule); err == nil {
		job.NextRunAt = cs.Next(time.Now().UTC())
	}
	snapshot := *job
	b.mu.Unlock()

	asset := snapshot.AssetName
	if asset == "" {
		asset = snapshot.AssetURI
	}
	source := &models.ResourceRef{Name: snapshot.AssetName, Kind: "asset", URI: snapshot.AssetURI}

	spec := TaskSpec{
		Name:        backupTaskName,
		DisplayName: fmt.Sprintf("Scheduled backup of %s", asset),
		UserID:      caller.UserID,
		CustomerID:  caller.CustomerID,
		Source:      source,
		Children: []TaskSpec{
			{Name: "CreateSnapshot", DisplayName: "Create snapshot of " + asset},
			{Name: "CopyToStore", DisplayName: "Copy snapshot of " + asset + " to protection store"},
		},
		OnSuccess: func() error {
			b.resources.Put(models.KindBackup, fmt.Sprintf("%s-%d", asset, snapshot.Runs), map[string]any{
				"protectionJobId": snapshot.ID,
				"assetUri":        snapshot.AssetURI,
				"policyId":        snapshot.PolicyID,
			})
			return nil
		},
	}
	return b.engine.Start(spec), nil
}

func (b *BackupScheduler) policyInUse(kind models.ResourceKind, id string) bool {
	if kind != models.KindProtectionPolicy {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, j := range b.jobs {
		if j.PolicyID == id {
			return true
		}
	}
	return false
}
