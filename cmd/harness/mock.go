package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/internal/config"
	"github.com/dscc-qa/backup-harness/internal/mock"
	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/services"
)

const mockShutdownTimeout = 10 * time.Second

func newMockCommand(h *harness) *cobra.Command {
	c := &cobra.Command{
		Use:   "mock",
		Short: "Serve the mock control plane until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := h.cfg.ValidateMock(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveMock(ctx, h.cfg)
		},
	}
	config.RegisterMockFlags(c.Flags(), h.cfg)
	return c
}

func mockOptions(cfg *config.Configuration) mock.Options {
	opts := mock.DefaultOptions()
	opts.Addr = cfg.Mock.Addr
	opts.Mode = cfg.Mock.Mode
	opts.Version = cfg.Mock.Version
	opts.Workers = cfg.Mock.Workers
	opts.Faults = services.FaultConfig{
		ErrorRate:   cfg.Mock.ErrorRate,
		FailPattern: cfg.Mock.FailPattern,
		StepLatency: cfg.Mock.StepLatency,
		Steps:       cfg.Mock.Steps,
	}
	if cfg.Auth.ClientID != "" {
		opts.Clients[cfg.Auth.ClientID] = cfg.Auth.ClientSecret
	}
	return opts
}

func serveMock(ctx context.Context, cfg *config.Configuration) error {
	log := zap.S().Named("mock")

	cp, err := mock.New(mockOptions(cfg))
	if err != nil {
		return err
	}
	if cfg.Mock.Seed {
		cp.Seed(models.KindProtectionPolicy, "sample-policy")
		cp.Seed(models.KindProtectionStore, "sample-store")
	}
	cp.Start()
	log.Infow("mock control plane serving", "url", cp.URL(), "token_url", cp.TokenURL(), "error_rate", cfg.Mock.ErrorRate)

	<-ctx.Done()
	log.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mockShutdownTimeout)
	defer cancel()
	return cp.Stop(stopCtx)
}
