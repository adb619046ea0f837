package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/services"
	"github.com/dscc-qa/backup-harness/internal/store"
	"github.com/dscc-qa/backup-harness/pkg/client"
	"github.com/dscc-qa/backup-harness/pkg/operation"
	"github.com/dscc-qa/backup-harness/test/e2e/infra"
)

type configuration struct {
	InfraMode    string // "mock" or "remote"
	BackendURL   string
	TokenURL     string
	ClientID     string
	ClientSecret string
	StaticToken  string
	Workers      int
	TaskTimeout  time.Duration
	LedgerPath   string
	RunName      string
	BuildURL     string
}

var (
	cfg          configuration
	infraManager infra.InfraManager
	recorder     operation.Recorder
)

func (c configuration) Validate() error {
	if c.InfraMode != "mock" && c.InfraMode != "remote" {
		return fmt.Errorf("invalid infra-mode %q: must be 'mock' or 'remote'", c.InfraMode)
	}
	if c.InfraMode == "remote" {
		if _, err := url.ParseRequestURI(c.BackendURL); err != nil {
			return fmt.Errorf("failed to parse backend url: %v", err)
		}
		if c.StaticToken == "" && (c.ClientID == "" || c.ClientSecret == "" || c.TokenURL == "") {
			return errors.New("remote mode needs a static token or client credentials with a token url")
		}
	}
	if c.Workers < 1 {
		return errors.New("workers must be positive")
	}
	return nil
}

// clientOptions shortens retries against the in-process control plane.
func (c configuration) clientOptions() []client.Option {
	if c.InfraMode != "mock" {
		return nil
	}
	return []client.Option{client.WithRetryPolicy(client.RetryPolicy{MaxTries: 20, Interval: 20 * time.Millisecond, MaxElapsed: time.Minute})}
}

func main() {
	flag.StringVar(&cfg.InfraMode, "infra-mode", "mock", "Infrastructure mode: 'mock' (in-process control plane) or 'remote' (externally managed)")
	flag.StringVar(&cfg.BackendURL, "backend-url", "", "Control plane url (remote mode)")
	flag.StringVar(&cfg.TokenURL, "token-url", "", "OAuth2 token endpoint (remote mode)")
	flag.StringVar(&cfg.ClientID, "client-id", os.Getenv("HARNESS_CLIENT_ID"), "OAuth2 client id (remote mode)")
	flag.StringVar(&cfg.ClientSecret, "client-secret", os.Getenv("HARNESS_CLIENT_SECRET"), "OAuth2 client secret (remote mode)")
	flag.StringVar(&cfg.StaticToken, "static-token", os.Getenv("HARNESS_STATIC_TOKEN"), "Pre-issued bearer token (remote mode)")
	flag.IntVar(&cfg.Workers, "workers", 8, "Concurrent task waits")
	flag.DurationVar(&cfg.TaskTimeout, "task-timeout", 2*time.Minute, "Wait timeout per task")
	flag.StringVar(&cfg.LedgerPath, "ledger", "", "DuckDB ledger recording every awaited task; disabled when empty")
	flag.StringVar(&cfg.RunName, "run-name", "e2e", "Ledger run name")
	flag.StringVar(&cfg.BuildURL, "build-url", "", "CI build url stored with the ledger run")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("failed to validate configuration: %v", err)
	}

	switch cfg.InfraMode {
	case "mock":
		infraManager = infra.NewMockInfraManager(services.FaultConfig{
			FailPattern: services.DefaultFailPattern,
			StepLatency: 10 * time.Millisecond,
			Steps:       3,
		})
	case "remote":
		infraManager = infra.NewRemoteInfraManager(infra.Endpoints{
			BackendURL:   cfg.BackendURL,
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			StaticToken:  cfg.StaticToken,
		})
	}

	finish := func(bool) {}
	if cfg.LedgerPath != "" {
		finish = openLedger()
	}

	RegisterFailHandler(Fail)
	passed := RunSpecs(&testing.T{}, "E2E Suite")
	finish(passed)
	if !passed {
		os.Exit(1)
	}
}

// openLedger starts a ledger run and installs its recorder. The returned func
// closes the run.
func openLedger() func(passed bool) {
	ctx := context.Background()
	s, err := store.Open(ctx, cfg.LedgerPath)
	if err != nil {
		log.Fatalf("failed to open ledger: %v", err)
	}
	run, err := s.Runs().Start(ctx, models.Run{Name: cfg.RunName, Backend: cfg.BackendURL, BuildURL: cfg.BuildURL})
	if err != nil {
		log.Fatalf("failed to start ledger run: %v", err)
	}
	recorder = store.NewRecorder(s, run.ID)

	return func(passed bool) {
		status := models.RunStatusPassed
		if !passed {
			status = models.RunStatusFailed
		}
		if err := s.Runs().Finish(ctx, run.ID, status); err != nil {
			zap.S().Errorw("failed to finish ledger run", "run_id", run.ID, "error", err)
		}
		_ = s.Close()
	}
}
