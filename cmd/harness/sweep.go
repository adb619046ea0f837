package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/internal/config"
	"github.com/dscc-qa/backup-harness/pkg/aws"
	"github.com/dscc-qa/backup-harness/pkg/vmware"
)

func newSweepCommand(h *harness) *cobra.Command {
	var dryRun bool
	c := &cobra.Command{
		Use:   "sweep",
		Short: "Remove fixtures leaked by earlier runs",
	}
	c.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "only list what would be removed")
	c.AddCommand(newSweepVSphereCommand(h, &dryRun), newSweepAWSCommand(h, &dryRun))
	return c
}

func newSweepVSphereCommand(h *harness, dryRun *bool) *cobra.Command {
	var checkPrivileges bool
	c := &cobra.Command{
		Use:   "vsphere",
		Short: "Power off and destroy gateway VMs matching --vsphere-pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := h.cfg.ValidateVSphere(); err != nil {
				return err
			}
			v := h.cfg.VSphere
			ctx := cmd.Context()

			m, err := vmware.NewVMManager(ctx, vmware.Config{
				URL:        v.URL,
				Username:   v.Username,
				Password:   v.Password,
				Insecure:   v.Insecure,
				Datacenter: v.Datacenter,
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := m.Logout(ctx); err != nil {
					zap.S().Named("sweep").Warnw("vCenter logout failed", "error", err)
				}
			}()

			report, err := m.Sweep(ctx, v.Pattern, vmware.SweepOptions{
				DryRun:          *dryRun,
				Workers:         v.Workers,
				CheckPrivileges: checkPrivileges,
			})
			if report != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "matched %d, destroyed %d\n", len(report.Matched), len(report.Destroyed))
				for _, name := range report.Matched {
					fmt.Fprintln(cmd.OutOrStdout(), "  "+name)
				}
			}
			return err
		},
	}
	config.RegisterVSphereFlags(c.Flags(), h.cfg)
	c.Flags().BoolVar(&checkPrivileges, "check-privileges", false, "verify power off and delete privileges before destroying")
	return c
}

func newSweepAWSCommand(h *harness, dryRun *bool) *cobra.Command {
	var (
		wait        bool
		waitTimeout time.Duration
	)
	c := &cobra.Command{
		Use:   "aws",
		Short: "Terminate stale EC2 instances tagged by this environment and requester",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := h.cfg.ValidateAWS(); err != nil {
				return err
			}
			a := h.cfg.AWS
			cfg := aws.Config{
				Region:       a.Region,
				Profile:      a.Profile,
				Endpoint:     a.Endpoint,
				CreatorTag:   a.CreatorTag,
				RequesterTag: a.RequesterTag,
				Env:          a.Env,
				Requester:    a.Requester,
				MinAge:       a.MinAge,
			}
			api, err := aws.NewEC2Client(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			report, err := aws.NewSweeper(api, cfg).Sweep(cmd.Context(), aws.SweepOptions{
				DryRun:      *dryRun,
				Wait:        wait,
				WaitTimeout: waitTimeout,
			})
			if report != nil {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "INSTANCE\tNAME\tSTATE\tLAUNCHED")
				for _, i := range report.Stale {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", i.ID, i.Name, i.State, i.LaunchTime.UTC().Format(time.RFC3339))
				}
				if ferr := w.Flush(); ferr != nil && err == nil {
					err = ferr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stale %d, terminated %d\n", len(report.Stale), len(report.Terminated))
			}
			return err
		},
	}
	config.RegisterAWSFlags(c.Flags(), h.cfg)
	c.Flags().BoolVar(&wait, "wait", false, "wait until the instances are terminated")
	c.Flags().DurationVar(&waitTimeout, "wait-timeout", aws.DefaultWaitTimeout, "termination wait timeout")
	return c
}
