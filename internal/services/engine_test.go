package services_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/services"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/scheduler"
)

func fastFaults() services.FaultConfig {
	return services.FaultConfig{FailPattern: "fail", Steps: 2, StepLatency: time.Millisecond}
}

func stateOf(ts *services.TaskService, id string) func() models.TaskState {
	return func() models.TaskState {
		t, err := ts.Get(id)
		Expect(err).NotTo(HaveOccurred())
		return t.State
	}
}

var _ = Describe("TaskService", func() {
	var ts *services.TaskService

	BeforeEach(func() {
		ts = services.NewTaskService()
	})

	It("should create tasks as their own root", func() {
		t := ts.Create(models.Task{Name: "CreateProtectionStore"})

		Expect(t.ID).NotTo(BeEmpty())
		Expect(t.State).To(Equal(models.TaskStateInitialized))
		Expect(t.RootID).To(Equal(t.ID))
		Expect(t.DisplayName).To(Equal("CreateProtectionStore"))
	})

	It("should link children to their parent", func() {
		parent := ts.Create(models.Task{Name: "parent"})
		child := ts.Create(models.Task{Name: "child", ParentID: parent.ID, RootID: parent.ID})

		got, err := ts.Get(parent.ID)

		Expect(err).NotTo(HaveOccurred())
		Expect(got.ChildIDs).To(ConsistOf(child.ID))
	})

	It("should return ResourceNotFound for unknown ids", func() {
		_, err := ts.Get("missing")

		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
	})

	It("should keep creation times strictly increasing", func() {
		a := ts.Create(models.Task{Name: "a"})
		b := ts.Create(models.Task{Name: "b"})

		Expect(b.CreatedAt.After(a.CreatedAt)).To(BeTrue())
	})

	It("should page and sort filtered results", func() {
		for _, n := range []string{"a", "b", "c", "d"} {
			ts.Create(models.Task{Name: "backup", DisplayName: n})
		}
		ts.Create(models.Task{Name: "other"})

		page, total := ts.List(models.TaskFilter{Name: "backup", Offset: 1, Limit: 2})
		Expect(total).To(Equal(4))
		Expect(page).To(HaveLen(2))
		Expect(page[0].DisplayName).To(Equal("b"))
		Expect(page[1].DisplayName).To(Equal("c"))

		page, _ = ts.List(models.TaskFilter{Name: "backup", SortDescending: true, Limit: 1})
		Expect(page[0].DisplayName).To(Equal("d"))

		page, total = ts.List(models.TaskFilter{Name: "backup", Offset: 10})
		Expect(total).To(Equal(4))
		Expect(page).To(BeEmpty())
	})

	It("should hand out copies", func() {
		t := ts.Create(models.Task{Name: "a"})
		t.Logs[0].Message = "changed"

		got, _ := ts.Get(t.ID)
		Expect(got.Logs[0].Message).NotTo(Equal("changed"))
	})
})

var _ = Describe("Engine", func() {
	var (
		ts     *services.TaskService
		sched  *scheduler.Scheduler
		engine *services.Engine
	)

	BeforeEach(func() {
		ts = services.NewTaskService()
		sched = scheduler.NewScheduler(4)
		engine = services.NewEngine(ts, sched, services.NewFaultInjector(fastFaults()))
	})

	AfterEach(func() {
		sched.Close()
	})

	It("should drive a task to SUCCEEDED", func() {
		// Arrange
		called := make(chan struct{}, 1)
		spec := services.TaskSpec{
			Name:      "CreateProtectionStore",
			OnSuccess: func() error { called <- struct{}{}; return nil },
		}

		// Act
		t := engine.Start(spec)

		// Assert
		Eventually(stateOf(ts, t.ID)).Should(Equal(models.TaskStateSucceeded))
		Eventually(called).Should(Receive())

		got, _ := ts.Get(t.ID)
		Expect(got.Progress).To(Equal(100))
		Expect(got.Logs).NotTo(BeEmpty())
	})

	It("should spawn children with parent and root links", func() {
		spec := services.TaskSpec{
			Name:     "CreateProtectionStoreGateway",
			Source:   &models.ResourceRef{Name: "psgw-1", URI: "/backup-recovery/v1beta1/protection-store-gateways/g1"},
			Children: []services.TaskSpec{{Name: "DeployVirtualMachine"}, {Name: "RegisterGateway"}},
		}

		root := engine.Start(spec)
		Eventually(stateOf(ts, root.ID)).Should(Equal(models.TaskStateSucceeded))

		got, _ := ts.Get(root.ID)
		Expect(got.ChildIDs).To(HaveLen(2))
		for _, id := range got.ChildIDs {
			child, err := ts.Get(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(child.ParentID).To(Equal(root.ID))
			Expect(child.ParentName).To(Equal("CreateProtectionStoreGateway"))
			Expect(child.RootID).To(Equal(root.ID))
			Expect(child.Source.URI).To(Equal(spec.Source.URI))
			Expect(child.State).To(Equal(models.TaskStateSucceeded))
		}
	})

	It("should fail tasks matching the failure pattern", func() {
		failed := make(chan error, 1)
		t := engine.Start(services.TaskSpec{
			Name:        "CreateProtectionStore",
			DisplayName: "Create protection-stores fail-store",
			OnFailure:   func(err error) { failed <- err },
		})

		Eventually(stateOf(ts, t.ID)).Should(Equal(models.TaskStateFailed))
		Eventually(failed).Should(Receive())

		got, _ := ts.Get(t.ID)
		Expect(got.Error).To(ContainSubstring("injected failure"))
		Expect(got.ErrorCode).To(Equal(500))
	})

	It("should fail the parent when a child fails", func() {
		t := engine.Start(services.TaskSpec{
			Name:     "Parent",
			Children: []services.TaskSpec{{Name: "Child", DisplayName: "child that will fail"}},
		})

		Eventually(stateOf(ts, t.ID)).Should(Equal(models.TaskStateFailed))
		got, _ := ts.Get(t.ID)
		Expect(got.Error).To(ContainSubstring("child task Child"))
	})

	It("should fail the task when OnSuccess errors", func() {
		t := engine.Start(services.TaskSpec{
			Name:      "Update",
			OnSuccess: func() error { return errors.New("conflict") },
		})

		Eventually(stateOf(ts, t.ID)).Should(Equal(models.TaskStateFailed))
		got, _ := ts.Get(t.ID)
		Expect(got.Error).To(Equal("conflict"))
	})
})
