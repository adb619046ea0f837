package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dscc-qa/backup-harness/pkg/operation"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
)

func newTaskCommand(h *harness) *cobra.Command {
	c := &cobra.Command{
		Use:   "task",
		Short: "Inspect and await control plane tasks",
	}
	c.AddCommand(
		newTaskGetCommand(h),
		newTaskWaitCommand(h),
		newTaskLogsCommand(h),
		newTaskChildrenCommand(h),
		newTaskRootCommand(h),
		newTaskListCommand(h),
	)
	return c
}

func newTaskGetCommand(h *harness) *cobra.Command {
	return &cobra.Command{
		Use:   "get TASK_ID",
		Short: "Print a task document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := h.Client(cmd.Context())
			if err != nil {
				return err
			}
			t, err := h.Tasks(c).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(t)
		},
	}
}

type waitFlags struct {
	timeout     time.Duration
	caseID      int
	expectError bool
	percent     int
}

func newTaskWaitCommand(h *harness) *cobra.Command {
	var f waitFlags
	c := &cobra.Command{
		Use:   "wait TASK_ID...",
		Short: "Wait for tasks to succeed and record them in the ledger",
		Long: `Wait polls every task until it leaves INITIALIZED/RUNNING and fails unless
all of them end SUCCEEDED. With --expect-error it waits for a failure and
prints its message. With --percent it only waits for the progress threshold.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case f.expectError:
				return waitForError(cmd, h, args, f)
			case f.percent > 0:
				return waitForPercent(cmd, h, args, f)
			default:
				return waitSucceeded(cmd, h, args, f)
			}
		},
	}
	c.Flags().DurationVar(&f.timeout, "timeout", 0, "wait timeout per task; defaults to --poll-timeout")
	c.Flags().IntVar(&f.caseID, "case-id", 0, "TestRail case id stored with the observations")
	c.Flags().BoolVar(&f.expectError, "expect-error", false, "wait for the tasks to fail and print their error")
	c.Flags().IntVar(&f.percent, "percent", 0, "wait until progress reaches this percentage")
	c.MarkFlagsMutuallyExclusive("expect-error", "percent")
	return c
}

func waitSucceeded(cmd *cobra.Command, h *harness, ids []string, f waitFlags) (err error) {
	ctx := cmd.Context()
	runner, finish, err := h.Runner(ctx, f.caseID)
	if err != nil {
		return err
	}
	defer func() { finish(err) }()

	outcomes := make([]*operation.Outcome, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(h.cfg.Polling.Workers)
	for i, id := range ids {
		g.Go(func() error {
			outcomes[i], errs[i] = runner.Await(ctx, id, h.WaitOptions(f.timeout))
			return nil
		})
	}
	_ = g.Wait()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tDURATION\tNAME\tSTATE")
	for i, o := range outcomes {
		name, state := "", "UNKNOWN"
		if o.Task != nil {
			name, state = o.Task.DisplayName, o.Task.State.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ids[i], o.Duration().Round(time.Millisecond), name, colorState(state))
	}
	if werr := w.Flush(); werr != nil {
		errs = append(errs, werr)
	}
	return multierr.Combine(errs...)
}

func waitForError(cmd *cobra.Command, h *harness, ids []string, f waitFlags) error {
	c, err := h.Client(cmd.Context())
	if err != nil {
		return err
	}
	m := h.Tasks(c)

	var errs error
	for _, id := range ids {
		msg, err := m.WaitForError(cmd.Context(), id, h.WaitOptions(f.timeout))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, msg)
	}
	return errs
}

func waitForPercent(cmd *cobra.Command, h *harness, ids []string, f waitFlags) error {
	c, err := h.Client(cmd.Context())
	if err != nil {
		return err
	}
	m := h.Tasks(c)

	g, ctx := errgroup.WithContext(cmd.Context())
	for _, id := range ids {
		g.Go(func() error {
			return m.WaitForPercentComplete(ctx, id, f.percent, h.WaitOptions(f.timeout).Timeout)
		})
	}
	return g.Wait()
}

func newTaskLogsCommand(h *harness) *cobra.Command {
	return &cobra.Command{
		Use:   "logs TASK_ID",
		Short: "Print the log messages of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := h.Client(cmd.Context())
			if err != nil {
				return err
			}
			logs, err := h.Tasks(c).Logs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, l := range logs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", l.TimestampAt.UTC().Format(time.RFC3339), l.Message)
			}
			return nil
		},
	}
}

func newTaskChildrenCommand(h *harness) *cobra.Command {
	var (
		wait bool
		opts = tasks.DefaultChildOptions()
	)
	c := &cobra.Command{
		Use:   "children TASK_ID",
		Short: "List or wait for the child tasks of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := h.Client(cmd.Context())
			if err != nil {
				return err
			}
			m := h.Tasks(c)
			if wait {
				if !cmd.Flags().Changed("child-timeout") {
					opts.ChildTimeout = h.cfg.Polling.ChildTimeout
				}
				return m.WaitForChildren(cmd.Context(), args[0], opts)
			}

			t, err := m.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			refs, err := m.Children(cmd.Context(), t)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tNAME")
			for _, r := range refs {
				fmt.Fprintf(w, "%s\t%s\n", r.ID(), r.Name)
			}
			return w.Flush()
		},
	}
	c.Flags().BoolVar(&wait, "wait", false, "wait for every child, re-scanning for late children")
	c.Flags().BoolVar(&opts.FailOnError, "fail-on-error", opts.FailOnError, "stop at the first child that does not succeed")
	c.Flags().IntVar(&opts.MaxRounds, "max-rounds", opts.MaxRounds, "re-scans for late children")
	c.Flags().DurationVar(&opts.ChildTimeout, "child-timeout", opts.ChildTimeout, "wait timeout per child")
	return c
}

func newTaskRootCommand(h *harness) *cobra.Command {
	var (
		q             tasks.RootQuery
		since         time.Duration
		waitChildren  bool
		waitCompleted bool
	)
	c := &cobra.Command{
		Use:   "root",
		Short: "Find the root task a backend workflow started for a resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := h.Client(cmd.Context())
			if err != nil {
				return err
			}
			m := h.Tasks(c)

			if since <= 0 {
				since = h.cfg.Polling.Lookback
			}
			q.Since = time.Now().Add(-since)
			q.PollInterval = h.cfg.Polling.RootInterval
			q.Timeout = h.cfg.Polling.RootTimeout

			var id string
			if waitChildren || waitCompleted {
				id, err = m.WaitForResource(cmd.Context(), q, waitCompleted)
			} else {
				id, err = m.FindRootTask(cmd.Context(), q)
			}
			if id != "" {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return err
		},
	}
	c.Flags().StringVar(&q.Name, "name", "", "substring of the task display name")
	c.Flags().StringVar(&q.ResourceID, "resource-id", "", "substring of the task source resource uri")
	c.Flags().StringVar(&q.ParentName, "parent-name", "", "select the task itself when its parent name contains this")
	c.Flags().DurationVar(&since, "since", 0, "search tasks created this long ago; defaults to --lookback")
	c.Flags().BoolVar(&waitChildren, "wait-children", false, "wait for the children of the root task")
	c.Flags().BoolVar(&waitCompleted, "wait-completed", false, "also wait for the root task to succeed")
	_ = c.MarkFlagRequired("name")
	return c
}

func newTaskListCommand(h *harness) *cobra.Command {
	var (
		since   time.Duration
		pattern string
		filter  string
		mine    bool
	)
	c := &cobra.Command{
		Use:   "list",
		Short: "List recent tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := h.Client(cmd.Context())
			if err != nil {
				return err
			}
			m := h.Tasks(c)
			if since <= 0 {
				since = h.cfg.Polling.Lookback
			}
			from := time.Now().Add(-since)

			var items []tasks.Task
			switch {
			case filter != "":
				tl, err := m.Filtered(cmd.Context(), filter)
				if err != nil {
					return err
				}
				items = tl.Items
			case pattern != "":
				items, err = m.ByDisplayNamePattern(cmd.Context(), pattern, from)
				if err != nil {
					return err
				}
			default:
				tl, err := m.List(cmd.Context(), from, tasks.ListOptions{IncludeUser: mine})
				if err != nil {
					return err
				}
				items = tl.Items
			}
			return writeTasks(cmd.OutOrStdout(), items)
		},
	}
	c.Flags().DurationVar(&since, "since", 0, "list tasks created this long ago; defaults to --lookback")
	c.Flags().StringVar(&pattern, "pattern", "", "glob the display names must match")
	c.Flags().StringVar(&filter, "filter", "", "raw filter expression, e.g. \"state eq 'FAILED'\"")
	c.Flags().BoolVar(&mine, "mine", false, "only tasks of --user-id")
	c.MarkFlagsMutuallyExclusive("pattern", "filter")
	return c
}

func writeTasks(out io.Writer, items []tasks.Task) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tCREATED\tPROGRESS\tNAME\tSTATE")
	for _, t := range items {
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\t%s\n", t.ID, t.CreatedAt.UTC().Format(time.RFC3339), t.ProgressPercent, t.DisplayName, colorState(t.State.String()))
	}
	return w.Flush()
}

func colorState(state string) string {
	switch tasks.TaskState(state) {
	case tasks.StateSucceeded:
		return color.GreenString(state)
	case tasks.StateFailed, tasks.StateTimedOut:
		return color.RedString(state)
	case tasks.StateRunning, tasks.StateInitialized:
		return color.YellowString(state)
	default:
		return state
	}
}
