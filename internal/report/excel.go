package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/store"
)

const (
	ObservationsSheet = "Observations"
	StatsSheet        = "Stats"
)

var (
	observationHeader = []any{"Task ID", "Display name", "State", "Started", "Finished", "Duration (ms)", "Error", "Case ID"}
	statsHeader       = []any{"Display name", "Count", "Failed", "Avg (ms)", "Max (ms)"}
)

// ExportRun writes the run's observations and per-task stats as an xlsx workbook.
func ExportRun(ctx context.Context, s *store.Store, runID string, w io.Writer) error {
	if _, err := s.Runs().Get(ctx, runID); err != nil {
		return err
	}

	obs, err := s.Observations().List(ctx, store.ByRun(runID), store.WithDefaultSort())
	if err != nil {
		return fmt.Errorf("failed to list observations: %w", err)
	}

	stats, err := s.Observations().Stats(ctx, store.ByRun(runID))
	if err != nil {
		return fmt.Errorf("failed to aggregate stats: %w", err)
	}

	return WriteWorkbook(w, obs, stats)
}

func WriteWorkbook(w io.Writer, obs []models.Observation, stats []models.TaskStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ObservationsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(StatsSheet); err != nil {
		return err
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	failed, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	if err != nil {
		return err
	}

	if err := writeRow(f, ObservationsSheet, 1, observationHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(ObservationsSheet, "A1", "H1", header); err != nil {
		return err
	}
	for i, o := range obs {
		row := i + 2
		values := []any{
			o.TaskID,
			o.DisplayName,
			o.State,
			o.StartedAt.UTC().Format(time.RFC3339),
			o.FinishedAt.UTC().Format(time.RFC3339),
			o.DurationMs,
			o.Error,
			o.CaseID,
		}
		if err := writeRow(f, ObservationsSheet, row, values); err != nil {
			return err
		}
		if !o.Passed() {
			if err := f.SetCellStyle(ObservationsSheet, cell(1, row), cell(len(values), row), failed); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(ObservationsSheet, "A", "B", 40); err != nil {
		return err
	}

	if err := writeRow(f, StatsSheet, 1, statsHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(StatsSheet, "A1", "E1", header); err != nil {
		return err
	}
	for i, st := range stats {
		values := []any{st.DisplayName, st.Count, st.Failed, st.AvgDurationMs, st.MaxDurationMs}
		if err := writeRow(f, StatsSheet, i+2, values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(StatsSheet, "A", "A", 48); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	return f.SetSheetRow(sheet, cell(1, row), &values)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
