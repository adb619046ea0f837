package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/dscc-qa/backup-harness/internal/config"
	"github.com/dscc-qa/backup-harness/internal/log"
	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/store"
	"github.com/dscc-qa/backup-harness/pkg/auth"
	"github.com/dscc-qa/backup-harness/pkg/client"
	"github.com/dscc-qa/backup-harness/pkg/operation"
	"github.com/dscc-qa/backup-harness/pkg/scheduler"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
)

// buildVersion is set with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

// harness holds the resolved configuration and everything built from it for
// the lifetime of one command.
type harness struct {
	cfg     *config.Configuration
	closers []func() error
}

func newHarness() *harness {
	return &harness{cfg: config.NewConfigurationWithOptionsAndDefaults()}
}

func (h *harness) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "harness",
		Short:             "QA harness for the backup control plane",
		Long:              "Awaits control plane tasks, serves a mock control plane, sweeps leaked fixtures and publishes run results.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cobrautil.CommandStack(config.PreRunE(h.cfg), h.setup),
	}
	config.RegisterGlobalFlags(root.PersistentFlags(), h.cfg)

	root.AddCommand(
		newTaskCommand(h),
		newMockCommand(h),
		newSweepCommand(h),
		newReportCommand(h),
		newVersionCommand(h),
	)
	return root
}

func (h *harness) setup(cmd *cobra.Command, _ []string) error {
	if err := h.cfg.Validate(); err != nil {
		return err
	}
	undo, err := log.Setup(h.cfg.Log)
	if err != nil {
		return err
	}
	h.onClose(func() error {
		undo()
		return nil
	})
	zap.S().Named("harness").Debugw("configuration resolved", "command", cmd.CommandPath(), "config", h.cfg.DebugMap())
	return nil
}

func (h *harness) onClose(fn func() error) {
	h.closers = append(h.closers, fn)
}

// Close releases everything in reverse creation order.
func (h *harness) Close() {
	var errs error
	for i := len(h.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, h.closers[i]())
	}
	h.closers = nil
	if errs != nil {
		zap.S().Named("harness").Warnw("cleanup failed", "error", errs)
	}
}

func (h *harness) tokenSource(ctx context.Context) oauth2.TokenSource {
	a := h.cfg.Auth
	switch {
	case a.StaticToken != "":
		return auth.NewStaticSource(a.StaticToken)
	case a.ClientID != "":
		return auth.NewClientCredentialsSource(ctx, auth.ClientCredentials{
			ClientID:     a.ClientID,
			ClientSecret: a.ClientSecret,
			TokenURL:     a.TokenURL,
			Scopes:       a.Scopes,
		})
	default:
		return nil
	}
}

// Client builds the REST client and checks the backend version constraint.
func (h *harness) Client(ctx context.Context) (*client.Client, error) {
	t := h.cfg.Transport
	opts := []client.Option{
		client.WithHTTPClient(&http.Client{Timeout: t.RequestTimeout}),
		client.WithRateLimit(t.QPS, t.Burst),
		client.WithRetryPolicy(client.RetryPolicy{MaxTries: t.MaxTries, Interval: t.RetryInterval, MaxElapsed: t.RetryElapsed}),
	}
	if src := h.tokenSource(ctx); src != nil {
		opts = append(opts, client.WithAuthorizer(auth.NewAuthorizer(src)))
	}

	c, err := client.NewClient(h.cfg.Backend.URL, opts...)
	if err != nil {
		return nil, err
	}
	if constraint := h.cfg.Backend.VersionConstraint; constraint != "" {
		if _, err := c.RequireVersion(ctx, constraint); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (h *harness) Tasks(c *client.Client) *tasks.Manager {
	pool := scheduler.NewScheduler(h.cfg.Polling.Workers)
	h.onClose(func() error {
		pool.Close()
		return nil
	})
	return tasks.NewManager(c, tasks.WithScheduler(pool), tasks.WithUserID(h.cfg.Backend.UserID))
}

func (h *harness) WaitOptions(timeout time.Duration) tasks.WaitOptions {
	if timeout <= 0 {
		timeout = h.cfg.Polling.Timeout
	}
	return tasks.WaitOptions{
		Timeout:   timeout,
		Interval:  h.cfg.Polling.Interval,
		LogResult: h.cfg.Polling.LogTaskResult,
	}
}

// Ledger opens the run ledger, or returns nil when recording is disabled.
func (h *harness) Ledger(ctx context.Context) (*store.Store, error) {
	if h.cfg.Ledger.Path == "" {
		return nil, nil
	}
	s, err := store.Open(ctx, h.cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", h.cfg.Ledger.Path, err)
	}
	h.onClose(s.Close)
	return s, nil
}

// Runner builds an operation runner recording into a new ledger run. The
// returned finish func closes the run with the status of err.
func (h *harness) Runner(ctx context.Context, caseID int) (*operation.Runner, func(err error), error) {
	c, err := h.Client(ctx)
	if err != nil {
		return nil, nil, err
	}
	m := h.Tasks(c)

	s, err := h.Ledger(ctx)
	if err != nil {
		return nil, nil, err
	}
	if s == nil {
		return operation.NewRunner(c, m), func(error) {}, nil
	}

	run, err := s.Runs().Start(ctx, models.Run{
		Name:     h.cfg.Ledger.RunName,
		Backend:  h.cfg.Backend.URL,
		BuildURL: h.cfg.Ledger.BuildURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start ledger run: %w", err)
	}
	zap.S().Named("harness").Infow("ledger run started", "run_id", run.ID, "name", run.Name)

	finish := func(err error) {
		status := models.RunStatusPassed
		switch {
		case ctx.Err() != nil:
			status = models.RunStatusAborted
		case err != nil:
			status = models.RunStatusFailed
		}
		// ctx may be cancelled already
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if ferr := s.Runs().Finish(finishCtx, run.ID, status); ferr != nil {
			zap.S().Named("harness").Warnw("failed to finish ledger run", "run_id", run.ID, "error", ferr)
		}
	}

	rec := store.NewRecorder(s, run.ID).WithCaseID(caseID)
	return operation.NewRunner(c, m, operation.WithRecorder(rec)), finish, nil
}
