package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/dscc-qa/backup-harness/api/v1"
	"github.com/dscc-qa/backup-harness/internal/models"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/schedule"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
	"github.com/dscc-qa/backup-harness/test/e2e/service"
)

var svc *service.BackupSvc

var _ = BeforeSuite(func() {
	Expect(infraManager.Start()).To(Succeed())

	var err error
	svc, err = service.NewBackupService(context.Background(), infraManager.Endpoints(), cfg.Workers, recorder, cfg.clientOptions()...)
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if svc != nil {
		svc.Close()
	}
	Expect(infraManager.Stop()).To(Succeed())
})

// uniqueName keeps names apart between runs against a shared backend.
func uniqueName(prefix string) string {
	return fmt.Sprintf("e2e-%s-%s", prefix, uuid.NewString()[:8])
}

func waitOptions() tasks.WaitOptions {
	return tasks.WaitOptions{Timeout: cfg.TaskTimeout, Interval: 20 * time.Millisecond}
}

func displayName(verb string, kind models.ResourceKind, name string) string {
	return fmt.Sprintf("%s %s %s", verb, kind, name)
}

var _ = Describe("Protection store lifecycle", Ordered, func() {
	var (
		ctx   context.Context
		name  string
		store *v1.Resource
	)

	BeforeAll(func() {
		ctx = context.Background()
		name = uniqueName("store")
	})

	It("creates the store through a task", func() {
		// When
		out, err := svc.Stores.Create(ctx, v1.ResourceRequest{Name: name}, waitOptions())

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Task.State).To(Equal(tasks.StateSucceeded))
		Expect(out.Task.ProgressPercent).To(Equal(100))

		store, err = svc.Stores.FindByName(ctx, "name", name)
		Expect(err).NotTo(HaveOccurred())
	})

	It("finds the root task of the store and waits its children", func() {
		rootID, err := svc.Tasks.FindRootTask(ctx, tasks.RootQuery{
			Name:         displayName("Create", models.KindProtectionStore, name),
			ResourceID:   store.Id,
			Since:        time.Now().Add(-time.Hour),
			PollInterval: 50 * time.Millisecond,
			Timeout:      30 * time.Second,
		})
		Expect(err).NotTo(HaveOccurred())

		opts := tasks.DefaultChildOptions()
		opts.ChildTimeout = cfg.TaskTimeout
		Expect(svc.Tasks.WaitForChildren(ctx, rootID, opts)).To(Succeed())

		logs, err := svc.Tasks.Logs(ctx, rootID)
		Expect(err).NotTo(HaveOccurred())
		Expect(logs).NotTo(BeEmpty())
	})

	It("deletes the store", func() {
		_, err := svc.Stores.Delete(ctx, store.Id, true, waitOptions())
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Stores.Get(ctx, store.Id)
		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
	})
})

var _ = Describe("Gateway deployment", func() {
	It("waits for a workflow started by an accepted request", func() {
		ctx := context.Background()
		name := uniqueName("psgw")

		// Given the create request is only accepted
		_, err := svc.Runner.Submit(ctx, http.MethodPost, svc.Gateways.Path(), v1.ResourceRequest{Name: name})
		Expect(err).NotTo(HaveOccurred())

		// When the harness looks the workflow up by name
		rootID, err := svc.Tasks.WaitForResource(ctx, tasks.RootQuery{
			Name:         displayName("Create", models.KindProtectionStoreGW, name),
			Since:        time.Now().Add(-time.Hour),
			PollInterval: 50 * time.Millisecond,
			Timeout:      30 * time.Second,
		}, true)

		// Then the root and both deployment steps succeeded
		Expect(err).NotTo(HaveOccurred())
		root, err := svc.Tasks.Get(ctx, rootID)
		Expect(err).NotTo(HaveOccurred())
		Expect(root.State).To(Equal(tasks.StateSucceeded))

		children, err := svc.Tasks.Children(ctx, root)
		Expect(err).NotTo(HaveOccurred())
		Expect(children).To(HaveLen(2))

		gw, err := svc.Gateways.FindByName(ctx, "name", name)
		Expect(err).NotTo(HaveOccurred())
		_, err = svc.Gateways.Delete(ctx, gw.Id, true, waitOptions())
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("Concurrent operations", func() {
	It("waits for many tasks at once and deletes in bulk", func() {
		ctx := context.Background()

		// Given
		ids := make([]string, 0, 5)
		for range 5 {
			acc, err := svc.Runner.Submit(ctx, http.MethodPost, svc.Stores.Path(), v1.ResourceRequest{Name: uniqueName("bulk")})
			Expect(err).NotTo(HaveOccurred())
			ids = append(ids, acc.TaskID)
		}

		// When
		states, err := svc.Tasks.WaitAll(ctx, ids, waitOptions())

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(states).To(HaveLen(5))
		for _, s := range states {
			Expect(s).To(Equal(tasks.StateSucceeded))
		}

		storeIDs := make([]string, 0, len(ids))
		for _, id := range ids {
			t, err := svc.Tasks.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			storeIDs = append(storeIDs, t.SourceResource.ID())
		}
		outcomes, err := svc.Stores.DeleteAll(ctx, storeIDs, true, cfg.Workers, waitOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(outcomes).To(HaveLen(len(storeIDs)))
	})
})

var _ = Describe("Scheduled backups", func() {
	It("runs a protection job on demand and records the backup", func() {
		ctx := context.Background()
		asset := uniqueName("vm")

		policyName := uniqueName("policy")
		_, err := svc.Policies.Create(ctx, v1.ResourceRequest{Name: policyName}, waitOptions())
		Expect(err).NotTo(HaveOccurred())
		policy, err := svc.Policies.FindByName(ctx, "name", policyName)
		Expect(err).NotTo(HaveOccurred())

		job, err := svc.CreateJob(ctx, v1.ProtectionJobRequest{
			PolicyId:  policy.Id,
			AssetUri:  "/virtualization/v1beta1/virtual-machines/" + asset,
			AssetName: asset,
			Schedule:  schedule.Schedule{Recurrence: schedule.Daily, RepeatInterval: schedule.RepeatInterval{Every: 1}, StartTime: "03:00"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(job.NextRunAt).To(BeTemporally(">", time.Now()))

		out, err := svc.RunJob(ctx, job.Id, waitOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Task.DisplayName).To(ContainSubstring(asset))

		Eventually(func() ([]v1.Resource, error) {
			return svc.Backups.All(ctx)
		}).WithTimeout(10 * time.Second).Should(ContainElement(HaveField("Name", asset+"-1")))
	})
})

var _ = Describe("Fault handling", func() {
	BeforeEach(func() {
		if !infraManager.Local() {
			Skip("fault injection needs the mock control plane")
		}
	})

	It("surfaces failed tasks with their error", func() {
		ctx := context.Background()
		name := uniqueName("fail")

		acc, err := svc.Runner.Submit(ctx, http.MethodPost, svc.Stores.Path(), v1.ResourceRequest{Name: name})
		Expect(err).NotTo(HaveOccurred())

		msg, err := svc.Tasks.WaitForError(ctx, acc.TaskID, waitOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(ContainSubstring("injected failure"))

		err = svc.Tasks.WaitSucceeded(ctx, acc.TaskID, waitOptions())
		Expect(srvErrors.IsTaskFailedError(err)).To(BeTrue())
	})

	It("retries through transient 503 responses", func() {
		ctx := context.Background()
		Expect(infraManager.SetErrorRate(0.3)).To(Succeed())
		DeferCleanup(func() {
			Expect(infraManager.SetErrorRate(0)).To(Succeed())
		})

		out, err := svc.Stores.Create(ctx, v1.ResourceRequest{Name: uniqueName("flaky")}, waitOptions())

		Expect(err).NotTo(HaveOccurred())
		Expect(out.Task.State).To(Equal(tasks.StateSucceeded))
	})
})
