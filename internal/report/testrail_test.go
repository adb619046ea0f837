package report_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/educlos/testrail"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/report"
)

// fakeTestRail serves the subset of the TestRail v2 API used by Publisher.
type fakeTestRail struct {
	mu         sync.Mutex
	milestones []testrail.Milestone
	runs       []testrail.Run
	tests      map[int][]testrail.Test
	results    map[int]testrail.SendableResult
	updates    int
	nextID     int
}

func newFakeTestRail() *fakeTestRail {
	return &fakeTestRail{
		tests:   map[int][]testrail.Test{},
		results: map[int]testrail.SendableResult{},
		nextID:  1000,
	}
}

func (f *fakeTestRail) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeTestRail) setCases(runID int, caseIDs []int) {
	var tests []testrail.Test
	for _, c := range caseIDs {
		tests = append(tests, testrail.Test{ID: runID*100 + c, CaseID: c, RunID: runID})
	}
	f.tests[runID] = tests
}

func (f *fakeTestRail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u, p, ok := r.BasicAuth(); !ok || u != "qa" || p != "key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	endpoint := strings.SplitN(strings.TrimPrefix(r.URL.RawQuery, "/api/v2/"), "&", 2)[0]
	parts := strings.Split(endpoint, "/")
	arg, _ := strconv.Atoi(parts[len(parts)-1])

	var out any
	switch parts[0] {
	case "get_milestones":
		out = f.milestones
	case "add_milestone":
		var in testrail.SendableMilestone
		_ = json.NewDecoder(r.Body).Decode(&in)
		ms := testrail.Milestone{ID: f.id(), Name: in.Name, ProjectID: arg}
		f.milestones = append(f.milestones, ms)
		out = ms
	case "get_runs":
		out = f.runs
	case "add_run":
		var in testrail.SendableRun
		_ = json.NewDecoder(r.Body).Decode(&in)
		run := testrail.Run{ID: f.id(), Name: in.Name, MilestoneID: in.MilestoneID, SuiteID: in.SuiteID, ProjectID: arg}
		f.runs = append(f.runs, run)
		f.setCases(run.ID, in.CaseIDs)
		out = run
	case "update_run":
		var in testrail.UpdatableRun
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.updates++
		f.setCases(arg, in.CaseIDs)
		out = testrail.Run{ID: arg}
	case "get_tests":
		out = f.tests[arg]
	case "add_result":
		var in testrail.SendableResult
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.results[arg] = in
		out = map[string]int{"id": f.id(), "test_id": arg, "status_id": in.StatusID}
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if out == nil {
		out = []any{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

var _ = Describe("Publisher", func() {
	var (
		ctx    context.Context
		fake   *fakeTestRail
		server *httptest.Server
		cfg    report.TestRailConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = newFakeTestRail()
		server = httptest.NewServer(fake)
		cfg = report.TestRailConfig{
			Host:      server.URL,
			Username:  "qa",
			Password:  "key",
			ProjectID: 1,
			SuiteID:   7,
			Milestone: "2.4.0",
			BuildURL:  "https://ci/42",
		}
	})

	AfterEach(func() {
		server.Close()
	})

	It("should create the milestone and run then post results", func() {
		// Arrange
		p := report.NewPublisher(cfg, server.Client())

		// Act
		runID, err := p.Publish(ctx, "nightly", []report.Result{
			{CaseID: 101, Passed: true},
			{CaseID: 102, Passed: false, Comment: "gateway deploy failed"},
		})

		// Assert
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.milestones).To(HaveLen(1))
		Expect(fake.milestones[0].Name).To(Equal("2.4.0"))
		Expect(fake.runs).To(HaveLen(1))
		Expect(fake.runs[0].ID).To(Equal(runID))
		Expect(fake.runs[0].MilestoneID).To(Equal(fake.milestones[0].ID))
		Expect(fake.runs[0].SuiteID).To(Equal(7))

		passed := fake.results[runID*100+101]
		Expect(passed.StatusID).To(Equal(report.TestRailPassStatus))
		Expect(passed.Comment).To(ContainSubstring("Build: https://ci/42"))

		failed := fake.results[runID*100+102]
		Expect(failed.StatusID).To(Equal(report.TestRailFailStatus))
		Expect(failed.Comment).To(ContainSubstring("gateway deploy failed"))
	})

	It("should reuse an existing run and add missing cases", func() {
		// Given a milestone and a run that only holds case 101
		fake.milestones = []testrail.Milestone{{ID: 5, Name: "2.4.0"}}
		fake.runs = []testrail.Run{{ID: 9, Name: "nightly", MilestoneID: 5}}
		fake.setCases(9, []int{101})

		// When
		p := report.NewPublisher(cfg, server.Client())
		runID, err := p.Publish(ctx, "nightly", []report.Result{
			{CaseID: 101, Passed: true},
			{CaseID: 103, Passed: true},
		})

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(runID).To(Equal(9))
		Expect(fake.milestones).To(HaveLen(1))
		Expect(fake.runs).To(HaveLen(1))
		Expect(fake.updates).To(Equal(1))
		Expect(fake.tests[9]).To(HaveLen(2))
		Expect(fake.results).To(HaveKey(9*100 + 103))
	})

	It("should not update the run when all cases are present", func() {
		fake.milestones = []testrail.Milestone{{ID: 5, Name: "2.4.0"}}
		fake.runs = []testrail.Run{{ID: 9, Name: "nightly", MilestoneID: 5}}
		fake.setCases(9, []int{101})

		p := report.NewPublisher(cfg, server.Client())
		_, err := p.Publish(ctx, "nightly", []report.Result{{CaseID: 101, Passed: false}})

		Expect(err).NotTo(HaveOccurred())
		Expect(fake.updates).To(BeZero())
		Expect(fake.results[9*100+101].StatusID).To(Equal(report.TestRailFailStatus))
	})

	It("should surface authentication failures", func() {
		cfg.Password = "wrong"
		p := report.NewPublisher(cfg, server.Client())

		_, err := p.Publish(ctx, "nightly", []report.Result{{CaseID: 101, Passed: true}})

		Expect(err).To(HaveOccurred())
		Expect(fake.runs).To(BeEmpty())
	})

	It("should do nothing without results", func() {
		p := report.NewPublisher(cfg, server.Client())

		runID, err := p.Publish(ctx, "nightly", nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(runID).To(BeZero())
		Expect(fake.milestones).To(BeEmpty())
	})
})

var _ = Describe("ResultsFromObservations", func() {
	It("should fold observations into one result per case", func() {
		obs := []models.Observation{
			{TaskID: "t1", DisplayName: "Create store", State: "SUCCEEDED", CaseID: 101},
			{TaskID: "t2", DisplayName: "Create gateway", State: "FAILED", Error: "boom", CaseID: 102},
			{TaskID: "t3", DisplayName: "Delete store", State: "SUCCEEDED", CaseID: 101},
			{TaskID: "t4", DisplayName: "Untracked", State: "FAILED"},
			{TaskID: "t5", DisplayName: "Delete gateway", State: "TIMEDOUT", CaseID: 102},
		}

		results := report.ResultsFromObservations(obs)

		Expect(results).To(HaveLen(2))
		Expect(results[0]).To(Equal(report.Result{CaseID: 101, Passed: true}))
		Expect(results[1].CaseID).To(Equal(102))
		Expect(results[1].Passed).To(BeFalse())
		Expect(results[1].Comment).To(Equal("Create gateway (t2): FAILED: boom\nDelete gateway (t5): TIMEDOUT"))
	})
})
