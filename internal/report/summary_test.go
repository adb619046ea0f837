package report_test

import (
	"bytes"
	"context"
	"time"

	"github.com/fatih/color"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/report"
	"github.com/dscc-qa/backup-harness/internal/store"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

var base = time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC)

func seedLedger(ctx context.Context) (*store.Store, string) {
	s, err := store.Open(ctx, ":memory:")
	Expect(err).NotTo(HaveOccurred())

	run, err := s.Runs().Start(ctx, models.Run{Name: "nightly", Backend: "mock", BuildURL: "https://ci/42", StartedAt: base})
	Expect(err).NotTo(HaveOccurred())

	fixtures := []models.Observation{
		{TaskID: "t1", DisplayName: "Create protection store", State: "SUCCEEDED", DurationMs: 4000, CaseID: 101},
		{TaskID: "t2", DisplayName: "Create protection store", State: "SUCCEEDED", DurationMs: 2000, CaseID: 101},
		{TaskID: "t3", DisplayName: "Create protection store gateway", State: "FAILED", DurationMs: 9000, Error: "DeployVirtualMachine failed", CaseID: 102},
		{TaskID: "t4", DisplayName: "Delete protection policy", State: "SUCCEEDED", DurationMs: 500},
	}
	for i, o := range fixtures {
		o.RunID = run.ID
		o.StartedAt = base.Add(time.Duration(i) * time.Minute)
		o.FinishedAt = o.StartedAt.Add(time.Duration(o.DurationMs) * time.Millisecond)
		_, err := s.Observations().Record(ctx, o)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(s.Runs().Finish(ctx, run.ID, models.RunStatusFailed)).To(Succeed())

	return s, run.ID
}

var _ = Describe("Summary", func() {
	var (
		ctx   context.Context
		s     *store.Store
		runID string
	)

	BeforeEach(func() {
		color.NoColor = true
		ctx = context.Background()
		s, runID = seedLedger(ctx)
	})

	AfterEach(func() {
		s.Close()
	})

	It("should count passed and failed tasks", func() {
		// Act
		sum, err := report.Summarize(ctx, s, runID, 2)

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.Total).To(Equal(4))
		Expect(sum.Passed).To(Equal(3))
		Expect(sum.Failed).To(Equal(1))
		Expect(sum.Failures[0].TaskID).To(Equal("t3"))
		Expect(sum.Slowest).To(HaveLen(2))
		Expect(sum.Slowest[0].DisplayName).To(Equal("Create protection store gateway"))
	})

	It("should render a readable summary", func() {
		sum, err := report.Summarize(ctx, s, runID, 0)
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		Expect(sum.Write(&buf)).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring("Run nightly"))
		Expect(out).To(ContainSubstring("build:   https://ci/42"))
		Expect(out).To(ContainSubstring("4 total, 3 passed, 1 failed"))
		Expect(out).To(ContainSubstring("Slowest tasks"))
		Expect(out).To(ContainSubstring("max=9s"))
		Expect(out).To(ContainSubstring("DeployVirtualMachine failed"))
	})

	It("should fail for unknown runs", func() {
		_, err := report.Summarize(ctx, s, "missing", 0)
		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
	})
})

var _ = Describe("ExportRun", func() {
	It("should write observations and stats sheets", func() {
		// Given
		ctx := context.Background()
		s, runID := seedLedger(ctx)
		defer s.Close()

		// When
		var buf bytes.Buffer
		err := report.ExportRun(ctx, s, runID, &buf)
		Expect(err).NotTo(HaveOccurred())

		// Then
		f, err := excelize.OpenReader(&buf)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		Expect(f.GetSheetList()).To(Equal([]string{report.ObservationsSheet, report.StatsSheet}))

		rows, err := f.GetRows(report.ObservationsSheet)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(5))
		Expect(rows[0][0]).To(Equal("Task ID"))
		Expect(rows[3][0]).To(Equal("t3"))
		Expect(rows[3][2]).To(Equal("FAILED"))
		Expect(rows[3][6]).To(Equal("DeployVirtualMachine failed"))

		stats, err := f.GetRows(report.StatsSheet)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats).To(HaveLen(4))
		Expect(stats[1][0]).To(Equal("Create protection store gateway"))
		Expect(stats[2][1]).To(Equal("2"))
	})

	It("should refuse unknown runs", func() {
		ctx := context.Background()
		s, _ := seedLedger(ctx)
		defer s.Close()

		var buf bytes.Buffer
		err := report.ExportRun(ctx, s, "missing", &buf)
		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
		Expect(buf.Len()).To(BeZero())
	})
})
