package services_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/internal/services"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/schedule"
	"github.com/dscc-qa/backup-harness/pkg/scheduler"
)

var _ = Describe("ResourceService", func() {
	var (
		ts        *services.TaskService
		sched     *scheduler.Scheduler
		resources *services.ResourceService
		backups   *services.BackupScheduler
		caller    = services.Caller{UserID: "harness", CustomerID: "c1"}
	)

	BeforeEach(func() {
		ts = services.NewTaskService()
		sched = scheduler.NewScheduler(4)
		engine := services.NewEngine(ts, sched, services.NewFaultInjector(fastFaults()))
		resources = services.NewResourceService(engine)
		backups = services.NewBackupScheduler(engine, resources)
	})

	AfterEach(func() {
		sched.Close()
	})

	resourceState := func(kind models.ResourceKind, id string) func() models.ResourceState {
		return func() models.ResourceState {
			r, err := resources.Get(kind, id)
			if err != nil {
				return ""
			}
			return r.State
		}
	}

	Context("Create", func() {
		It("should create the resource through a task", func() {
			// Act
			task, err := resources.Create(caller, models.KindProtectionStoreGW, "psgw-1", map[string]any{"size": 2})
			Expect(err).NotTo(HaveOccurred())

			// Assert
			Expect(task.Name).To(Equal("CreateProtectionStoreGateway"))
			Expect(task.UserID).To(Equal("harness"))
			Expect(task.Source).NotTo(BeNil())
			Expect(task.Source.Kind).To(Equal("backup-recovery/protection-store-gateways"))

			id := task.Source.URI[len(task.Source.URI)-36:]
			Eventually(stateOf(ts, task.ID)).Should(Equal(models.TaskStateSucceeded))
			Expect(resourceState(models.KindProtectionStoreGW, id)()).To(Equal(models.ResourceStateOK))

			got, _ := ts.Get(task.ID)
			Expect(got.ChildIDs).To(HaveLen(2))
		})

		It("should leave the resource in ERROR when the task fails", func() {
			task, err := resources.Create(caller, models.KindProtectionStore, "fail-store", nil)
			Expect(err).NotTo(HaveOccurred())

			id := task.Source.URI[len(task.Source.URI)-36:]
			Eventually(stateOf(ts, task.ID)).Should(Equal(models.TaskStateFailed))
			Expect(resourceState(models.KindProtectionStore, id)()).To(Equal(models.ResourceStateError))
		})

		It("should reject an empty name", func() {
			_, err := resources.Create(caller, models.KindProtectionStore, " ", nil)

			Expect(srvErrors.IsInvalidConfigurationError(err)).To(BeTrue())
		})

		It("should reject unknown collections", func() {
			_, err := resources.Create(caller, "widgets", "w", nil)

			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
		})
	})

	Context("List", func() {
		It("should filter by name and page", func() {
			resources.Put(models.KindCSPAccount, "aws-1", nil)
			resources.Put(models.KindCSPAccount, "aws-2", nil)
			resources.Put(models.KindCSPAccount, "aws-3", nil)

			items, total, err := resources.List(models.KindCSPAccount, services.ResourceListParams{Offset: 1, Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(3))
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("aws-2"))

			items, total, err = resources.List(models.KindCSPAccount, services.ResourceListParams{Name: "aws-3"})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(1))
			Expect(items[0].Name).To(Equal("aws-3"))
		})
	})

	Context("Update", func() {
		It("should merge attributes and bump the generation", func() {
			r := resources.Put(models.KindProtectionPolicy, "gold", map[string]any{"retention": 7})

			task, err := resources.Update(caller, models.KindProtectionPolicy, r.ID, "", map[string]any{"retention": 30, "copies": 2})
			Expect(err).NotTo(HaveOccurred())
			Eventually(stateOf(ts, task.ID)).Should(Equal(models.TaskStateSucceeded))

			got, _ := resources.Get(models.KindProtectionPolicy, r.ID)
			Expect(got.Generation).To(Equal(2))
			Expect(got.Attributes).To(HaveKeyWithValue("retention", 30))
			Expect(got.Attributes).To(HaveKeyWithValue("copies", 2))
			Expect(got.Name).To(Equal("gold"))
		})
	})

	Context("Delete", func() {
		It("should remove the resource once the task succeeds", func() {
			r := resources.Put(models.KindProtectionStore, "store-1", nil)

			task, err := resources.Delete(caller, models.KindProtectionStore, r.ID, false)
			Expect(err).NotTo(HaveOccurred())

			Eventually(stateOf(ts, task.ID)).Should(Equal(models.TaskStateSucceeded))
			_, err = resources.Get(models.KindProtectionStore, r.ID)
			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
		})

		It("should refuse to delete a policy used by a protection job unless forced", func() {
			// Given a policy with a protection job
			policy := resources.Put(models.KindProtectionPolicy, "gold", nil)
			_, err := backups.Create(services.ProtectionJobRequest{
				PolicyID: policy.ID,
				AssetURI: "/virtualization/v1beta1/virtual-machines/vm1",
				Schedule: schedule.Schedule{Recurrence: schedule.Daily, StartTime: "02:00"},
			})
			Expect(err).NotTo(HaveOccurred())

			// When deleting without force
			_, err = resources.Delete(caller, models.KindProtectionPolicy, policy.ID, false)

			// Then the deletion is refused
			Expect(errors.Is(err, services.ErrResourceInUse)).To(BeTrue())

			// And a forced deletion is accepted
			task, err := resources.Delete(caller, models.KindProtectionPolicy, policy.ID, true)
			Expect(err).NotTo(HaveOccurred())
			Eventually(stateOf(ts, task.ID)).Should(Equal(models.TaskStateSucceeded))
		})
	})
})

var _ = Describe("BackupScheduler", func() {
	var (
		ts        *services.TaskService
		sched     *scheduler.Scheduler
		resources *services.ResourceService
		backups   *services.BackupScheduler
		policy    models.Resource
	)

	BeforeEach(func() {
		ts = services.NewTaskService()
		sched = scheduler.NewScheduler(4)
		engine := services.NewEngine(ts, sched, services.NewFaultInjector(fastFaults()))
		resources = services.NewResourceService(engine)
		backups = services.NewBackupScheduler(engine, resources)
		policy = resources.Put(models.KindProtectionPolicy, "gold", nil)
	})

	AfterEach(func() {
		backups.Stop()
		sched.Close()
	})

	It("should compute the next run from the schedule", func() {
		s := schedule.Schedule{Recurrence: schedule.Hourly, RepeatInterval: schedule.RepeatInterval{Every: 1}, StartTime: "00:15"}
		before := time.Now().UTC()

		job, err := backups.Create(services.ProtectionJobRequest{PolicyID: policy.ID, AssetURI: "/vm/1", Schedule: s})

		Expect(err).NotTo(HaveOccurred())
		expected, _ := schedule.Next(s, before)
		Expect(job.NextRunAt).To(BeTemporally("~", expected, time.Minute))
		Expect(job.NextRunAt.Minute()).To(Equal(15))
	})

	It("should reject invalid schedules and unknown policies", func() {
		_, err := backups.Create(services.ProtectionJobRequest{PolicyID: policy.ID, AssetURI: "/vm/1", Schedule: schedule.Schedule{Recurrence: "YEARLY"}})
		Expect(srvErrors.IsInvalidConfigurationError(err)).To(BeTrue())

		_, err = backups.Create(services.ProtectionJobRequest{PolicyID: "missing", AssetURI: "/vm/1", Schedule: schedule.Schedule{Recurrence: schedule.Daily}})
		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
	})

	It("should record a backup when a triggered run succeeds", func() {
		job, err := backups.Create(services.ProtectionJobRequest{
			PolicyID:  policy.ID,
			AssetURI:  "/virtualization/v1beta1/virtual-machines/vm1",
			AssetName: "vm1",
			Schedule:  schedule.Schedule{Recurrence: schedule.Daily},
		})
		Expect(err).NotTo(HaveOccurred())

		task, err := backups.Trigger(services.Caller{UserID: "harness"}, job.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(task.DisplayName).To(Equal("Scheduled backup of vm1"))

		Eventually(stateOf(ts, task.ID)).Should(Equal(models.TaskStateSucceeded))
		items, total, err := resources.List(models.KindBackup, services.ResourceListParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(1))
		Expect(items[0].Name).To(Equal("vm1-1"))
		Expect(items[0].Attributes).To(HaveKeyWithValue("protectionJobId", job.ID))

		got, _ := backups.Get(job.ID)
		Expect(got.Runs).To(Equal(1))
	})

	It("should stop tracking deleted jobs", func() {
		job, err := backups.Create(services.ProtectionJobRequest{PolicyID: policy.ID, AssetURI: "/vm/1", Schedule: schedule.Schedule{Recurrence: schedule.Daily}})
		Expect(err).NotTo(HaveOccurred())

		Expect(backups.Delete(job.ID)).To(Succeed())

		Expect(backups.List()).To(BeEmpty())
		_, err = backups.Trigger(services.Caller{}, job.ID)
		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
	})
})
