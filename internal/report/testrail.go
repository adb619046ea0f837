package report

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/educlos/testrail"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/internal/models"
)

const (
	TestRailPassStatus = 1
	TestRailFailStatus = 5
)

type TestRailConfig struct {
	Host      string
	Username  string
	Password  string
	ProjectID int
	SuiteID   int
	Milestone string
	BuildURL  string
	// BetaAPI enables the paginated bulk endpoints of TestRail 6.7+.
	BetaAPI bool
}

// Result is the outcome of one TestRail case.
type Result struct {
	CaseID  int
	Passed  bool
	Comment string
}

type Publisher struct {
	client *testrail.Client
	cfg    TestRailConfig
}

func NewPublisher(cfg TestRailConfig, httpClient *http.Client) *Publisher {
	return &Publisher{
		client: testrail.NewCustomClient(cfg.Host, cfg.Username, cfg.Password, httpClient, cfg.BetaAPI),
		cfg:    cfg,
	}
}

// Publish ensures the milestone and the named run exist, adds cases missing
// from the run and posts one result per case. It returns the run id.
func (p *Publisher) Publish(ctx context.Context, runName string, results []Result) (int, error) {
	log := zap.S().Named("testrail")

	if len(results) == 0 {
		log.Infow("no results to publish", "run", runName)
		return 0, nil
	}

	milestoneID, err := p.ensureMilestone()
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	caseIDs := make([]int, 0, len(results))
	for _, r := range results {
		caseIDs = append(caseIDs, r.CaseID)
	}

	runID, err := p.ensureRun(runName, milestoneID, caseIDs)
	if err != nil {
		return 0, err
	}

	tests, err := p.client.GetTests(runID)
	if err != nil {
		return runID, fmt.Errorf("failed to get tests of run %d: %w", runID, err)
	}
	testByCase := make(map[int]int, len(tests))
	for _, t := range tests {
		testByCase[t.CaseID] = t.ID
	}

	var errs error
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return runID, multierr.Append(errs, err)
		}

		testID, ok := testByCase[r.CaseID]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("case %d is not part of run %d", r.CaseID, runID))
			continue
		}

		status := TestRailFailStatus
		if r.Passed {
			status = TestRailPassStatus
		}
		_, err := p.client.AddResult(testID, testrail.SendableResult{
			StatusID: status,
			Comment:  p.comment(runName, r),
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to add result for case %d: %w", r.CaseID, err))
			continue
		}
		log.Debugw("result published", "case", r.CaseID, "test", testID, "status", status)
	}

	log.Infow("results published", "run", runName, "run_id", runID, "count", len(results))
	return runID, errs
}

func (p *Publisher) ensureMilestone() (int, error) {
	if p.cfg.Milestone == "" {
		return 0, nil
	}

	milestones, err := p.client.GetMilestones(p.cfg.ProjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to get milestones: %w", err)
	}
	for _, ms := range milestones {
		if ms.Name == p.cfg.Milestone {
			return ms.ID, nil
		}
	}

	created, err := p.client.AddMilestone(p.cfg.ProjectID, testrail.SendableMilestone{
		Name:        p.cfg.Milestone,
		Description: "Created by backup-harness",
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create milestone %q: %w", p.cfg.Milestone, err)
	}
	zap.S().Named("testrail").Infow("milestone created", "name", p.cfg.Milestone, "id", created.ID)
	return created.ID, nil
}

func (p *Publisher) ensureRun(name string, milestoneID int, caseIDs []int) (int, error) {
	var filter testrail.RequestFilterForRun
	if milestoneID != 0 {
		filter.MilestoneID = []int{milestoneID}
	}

	runs, err := p.client.GetRuns(p.cfg.ProjectID, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to get runs: %w", err)
	}

	for _, run := range runs {
		if run.Name != name || run.IsCompleted {
			continue
		}
		return run.ID, p.addMissingCases(run.ID, caseIDs)
	}

	includeAll := false
	created, err := p.client.AddRun(p.cfg.ProjectID, testrail.SendableRun{
		SuiteID:     p.cfg.SuiteID,
		Name:        name,
		Description: p.description(),
		MilestoneID: milestoneID,
		CaseIDs:     uniqueSorted(caseIDs),
		IncludeAll:  &includeAll,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create run %q: %w", name, err)
	}
	zap.S().Named("testrail").Infow("run created", "name", name, "id", created.ID)
	return created.ID, nil
}

// addMissingCases rewrites the case selection of an existing run. TestRail
// replaces the whole list on update so existing cases are carried over.
func (p *Publisher) addMissingCases(runID int, caseIDs []int) error {
	tests, err := p.client.GetTests(runID)
	if err != nil {
		return fmt.Errorf("failed to get tests of run %d: %w", runID, err)
	}

	existing := make([]int, 0, len(tests))
	present := make(map[int]bool, len(tests))
	for _, t := range tests {
		existing = append(existing, t.CaseID)
		present[t.CaseID] = true
	}

	missing := false
	for _, id := range caseIDs {
		if !present[id] {
			existing = append(existing, id)
			present[id] = true
			missing = true
		}
	}
	if !missing {
		return nil
	}

	if _, err := p.client.UpdateRun(runID, testrail.UpdatableRun{CaseIDs: uniqueSorted(existing)}); err != nil {
		return fmt.Errorf("failed to add cases to run %d: %w", runID, err)
	}
	return nil
}

func (p *Publisher) description() string {
	if p.cfg.BuildURL == "" {
		return "Created by backup-harness"
	}
	return "Created by backup-harness from " + p.cfg.BuildURL
}

func (p *Publisher) comment(runName string, r Result) string {
	c := fmt.Sprintf("Run: %s\nBuild: %s", runName, p.cfg.BuildURL)
	if r.Comment != "" {
		c += "\n" + r.Comment
	}
	return c
}

// ResultsFromObservations folds observations carrying a case id into one
// result per case. A case fails when any of its observations failed.
func ResultsFromObservations(obs []models.Observation) []Result {
	byCase := map[int]*Result{}
	var order []int
	for _, o := range obs {
		if o.CaseID <= 0 {
			continue
		}
		r, ok := byCase[o.CaseID]
		if !ok {
			r = &Result{CaseID: o.CaseID, Passed: true}
			byCase[o.CaseID] = r
			order = append(order, o.CaseID)
		}
		if !o.Passed() {
			r.Passed = false
			line := fmt.Sprintf("%s (%s): %s", o.DisplayName, o.TaskID, o.State)
			if o.Error != "" {
				line += ": " + o.Error
			}
			if r.Comment != "" {
				r.Comment += "\n"
			}
			r.Comment += line
		}
	}

	out := make([]Result, 0, len(order))
	for _, id := range order {
		out = append(out, *byCase[id])
	}
	return out
}

func uniqueSorted(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}
