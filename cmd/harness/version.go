package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCommand(h *harness) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the harness version and the backend version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "harness: %s\n", buildVersion)

			c, err := h.Client(cmd.Context())
			if err != nil {
				return err
			}
			v, err := c.ServerVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backend: %s (%s)\n", v, c.BaseURL())
			if constraint := h.cfg.Backend.VersionConstraint; constraint != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "constraint %q satisfied\n", constraint)
			}
			return nil
		},
	}
}
