package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/dscc-qa/backup-harness/internal/config"
	"github.com/dscc-qa/backup-harness/internal/report"
	"github.com/dscc-qa/backup-harness/internal/store"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

func newReportCommand(h *harness) *cobra.Command {
	var runID string
	c := &cobra.Command{
		Use:   "report",
		Short: "Report a ledger run",
	}
	c.PersistentFlags().StringVar(&runID, "run", "", "ledger run id; the latest run when empty")
	config.RegisterReportFlags(c.PersistentFlags(), h.cfg)
	c.AddCommand(
		newReportSummaryCommand(h, &runID),
		newReportExcelCommand(h, &runID),
		newReportTestRailCommand(h, &runID),
	)
	return c
}

// openRun opens the ledger and resolves the run id.
func openRun(ctx context.Context, h *harness, runID string) (*store.Store, string, error) {
	s, err := h.Ledger(ctx)
	if err != nil {
		return nil, "", err
	}
	if s == nil {
		return nil, "", srvErrors.NewInvalidConfigurationError("ledger", "a ledger path is required to report")
	}
	if runID != "" {
		return s, runID, nil
	}
	run, err := s.Runs().Latest(ctx)
	if err != nil {
		return nil, "", err
	}
	return s, run.ID, nil
}

func newReportSummaryCommand(h *harness, runID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print pass/fail counts, the slowest tasks and the failures of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, id, err := openRun(cmd.Context(), h, *runID)
			if err != nil {
				return err
			}
			sum, err := report.Summarize(cmd.Context(), s, id, h.cfg.Report.Slowest)
			if err != nil {
				return err
			}
			return sum.Write(cmd.OutOrStdout())
		},
	}
}

func newReportExcelCommand(h *harness, runID *string) *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:   "excel",
		Short: "Export the observations and task statistics of a run to xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, id, err := openRun(cmd.Context(), h, *runID)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("run-%s.xlsx", id)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, f.Close()) }()

			if err := report.ExportRun(cmd.Context(), s, id, f); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	c.Flags().StringVarP(&output, "output", "o", "", "xlsx path; run-<id>.xlsx when empty")
	return c
}

func newReportTestRailCommand(h *harness, runID *string) *cobra.Command {
	var name string
	c := &cobra.Command{
		Use:   "testrail",
		Short: "Publish the case results of a run to TestRail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := h.cfg.ValidateTestRail(); err != nil {
				return err
			}
			ctx := cmd.Context()
			s, id, err := openRun(ctx, h, *runID)
			if err != nil {
				return err
			}
			run, err := s.Runs().Get(ctx, id)
			if err != nil {
				return err
			}
			obs, err := s.Observations().List(ctx, store.ByRun(id), store.WithDefaultSort())
			if err != nil {
				return err
			}
			results := report.ResultsFromObservations(obs)
			if len(results) == 0 {
				return errors.New("run has no observations with a TestRail case id")
			}

			tr := h.cfg.Report.TestRail
			buildURL := run.BuildURL
			if buildURL == "" {
				buildURL = h.cfg.Ledger.BuildURL
			}
			if name == "" {
				name = run.Name
			}
			p := report.NewPublisher(report.TestRailConfig{
				Host:      tr.Host,
				Username:  tr.Username,
				Password:  tr.Password,
				ProjectID: tr.ProjectID,
				SuiteID:   tr.SuiteID,
				Milestone: tr.Milestone,
				BuildURL:  buildURL,
				BetaAPI:   tr.BetaAPI,
			}, &http.Client{Timeout: h.cfg.Transport.RequestTimeout})

			trRun, err := p.Publish(ctx, name, results)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d results to TestRail run %d\n", len(results), trRun)
			return nil
		},
	}
	c.Flags().StringVar(&name, "name", "", "TestRail run name; the ledger run name when empty")
	return c
}
