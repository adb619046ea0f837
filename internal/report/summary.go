package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/store"
)

const DefaultSlowest = 5

// Summary is the condensed view of one ledger run.
type Summary struct {
	Run      models.Run
	Total    int
	Passed   int
	Failed   int
	Slowest  []models.TaskStats
	Failures []models.Observation
}

// Summarize reads the run and its observations from the ledger.
// top bounds the slowest-task table; zero means DefaultSlowest.
func Summarize(ctx context.Context, s *store.Store, runID string, top int) (*Summary, error) {
	if top <= 0 {
		top = DefaultSlowest
	}

	run, err := s.Runs().Get(ctx, runID)
	if err != nil {
		return nil, err
	}

	total, err := s.Observations().Count(ctx, store.ByRun(runID))
	if err != nil {
		return nil, fmt.Errorf("failed to count observations: %w", err)
	}

	failures, err := s.Observations().List(ctx, store.ByRun(runID), store.Failed(), store.WithDefaultSort())
	if err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}

	stats, err := s.Observations().Stats(ctx, store.ByRun(runID))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	if len(stats) > top {
		stats = stats[:top]
	}

	return &Summary{
		Run:      *run,
		Total:    total,
		Passed:   total - len(failures),
		Failed:   len(failures),
		Slowest:  stats,
		Failures: failures,
	}, nil
}

func (s *Summary) Write(w io.Writer) error {
	var (
		bold  = color.New(color.Bold)
		green = color.New(color.FgGreen, color.Bold)
		red   = color.New(color.FgRed, color.Bold)
		faint = color.New(color.Faint)
	)

	status := green
	if s.Failed > 0 || s.Run.Status == models.RunStatusFailed {
		status = red
	}

	if _, err := bold.Fprintf(w, "Run %s (%s)\n", s.Run.Name, s.Run.ID); err != nil {
		return err
	}
	if s.Run.BuildURL != "" {
		faint.Fprintf(w, "  build:   %s\n", s.Run.BuildURL)
	}
	if s.Run.Backend != "" {
		faint.Fprintf(w, "  backend: %s\n", s.Run.Backend)
	}
	status.Fprintf(w, "  status:  %s\n", s.Run.Status)
	fmt.Fprintf(w, "  tasks:   %d total, ", s.Total)
	green.Fprintf(w, "%d passed", s.Passed)
	fmt.Fprint(w, ", ")
	if s.Failed > 0 {
		red.Fprintf(w, "%d failed\n", s.Failed)
	} else {
		fmt.Fprintf(w, "%d failed\n", s.Failed)
	}

	if len(s.Slowest) > 0 {
		bold.Fprintln(w, "\nSlowest tasks")
		for _, st := range s.Slowest {
			fmt.Fprintf(w, "  %-48s n=%-4d avg=%-10s max=%s\n",
				st.DisplayName,
				st.Count,
				ms(int64(st.AvgDurationMs)),
				ms(st.MaxDurationMs),
			)
		}
	}

	if len(s.Failures) > 0 {
		red.Fprintln(w, "\nFailures")
		for _, o := range s.Failures {
			fmt.Fprintf(w, "  %s [%s] %s\n", o.DisplayName, o.State, o.TaskID)
			if o.Error != "" {
				faint.Fprintf(w, "      %s\n", o.Error)
			}
		}
	}
	return nil
}

func ms(v int64) string {
	return (time.Duration(v) * time.Millisecond).String()
}
