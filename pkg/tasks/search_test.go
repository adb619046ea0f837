package tasks_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dscc-qa/backup-harness/pkg/client"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
)

var _ = Describe("Manager search", func() {
	var (
		ctx     context.Context
		backend *fakeBackend
		srv     *httptest.Server
		m       *tasks.Manager
		now     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, 5, 30, 18, 0, 0, 0, time.UTC)
		backend = newFakeBackend()
		srv = httptest.NewServer(backend)

		c, err := client.NewClient(srv.URL, client.WithRetryPolicy(client.RetryPolicy{MaxTries: 1}))
		Expect(err).NotTo(HaveOccurred())
		m = tasks.NewManager(c, tasks.WithUserID("qa-user"), tasks.WithClock(func() time.Time { return now }))
	})

	AfterEach(func() {
		srv.Close()
	})

	Context("List", func() {
		// Given 150 tasks split over two pages
		// When we list them
		// Then all pages are read oldest first and returned newest first
		It("should page ascending and return newest first", func() {
			// Arrange
			backend.list = func(q url.Values) tasks.TaskList {
				offset, _ := strconv.Atoi(q.Get("offset"))
				var items []tasks.Task
				for i := offset; i < min(offset+100, 150); i++ {
					items = append(items, tasks.Task{
						ID:        fmt.Sprintf("t%03d", i),
						CreatedAt: now.Add(time.Duration(i) * time.Second),
					})
				}
				return tasks.TaskList{Items: items}
			}

			// Act
			tl, err := m.List(ctx, now.Add(-time.Hour), tasks.ListOptions{IncludeUser: true, Offset: 10 * time.Minute})

			// Assert
			Expect(err).NotTo(HaveOccurred())
			Expect(tl.Items).To(HaveLen(150))
			Expect(tl.Total).To(Equal(150))
			Expect(tl.Items[0].ID).To(Equal("t149"))
			Expect(tl.Items[149].ID).To(Equal("t000"))

			qs := backend.queries()
			Expect(qs).To(HaveLen(3))
			Expect(qs[0].Get("sort")).To(Equal("createdAt"))
			Expect(qs[0].Get("limit")).To(Equal("100"))
			Expect(qs[2].Get("offset")).To(Equal("200"))
			Expect(qs[0].Get("filter")).To(Equal("createdAt gt 2024-05-30T16:50:00Z and userId eq 'qa-user'"))
		})

		It("should omit the user clause unless asked", func() {
			_, err := m.List(ctx, now, tasks.ListOptions{})
			Expect(err).NotTo(HaveOccurred())

			Expect(backend.queries()[0].Get("filter")).To(Equal("createdAt gt 2024-05-30T18:00:00Z"))
		})
	})

	Context("ByNameAndResource", func() {
		It("should match on display name and the trailing resource segments", func() {
			backend.list = firstPage(
				tasks.Task{ID: "new-style", DisplayName: "Trigger Cloud Backup for csp-volume [vol-1]",
					SourceResource: &tasks.ResourceRef{ResourceURI: "/backup-recovery/v1beta1/csp-volumes/vol-1"}},
				tasks.Task{ID: "other-volume", DisplayName: "Trigger Cloud Backup for csp-volume [vol-2]",
					SourceResource: &tasks.ResourceRef{ResourceURI: "/backup-recovery/v1beta1/csp-volumes/vol-2"}},
				tasks.Task{ID: "no-source", DisplayName: "Trigger Cloud Backup"},
			)

			tl, err := m.ByNameAndResource(ctx, "Trigger Cloud Backup", "/api/v1/csp-volumes/vol-1", 30*time.Minute)

			Expect(err).NotTo(HaveOccurred())
			Expect(tl.Items).To(HaveLen(1))
			Expect(tl.Items[0].ID).To(Equal("new-style"))
			Expect(backend.queries()[0].Get("sort")).To(Equal("createdAt desc"))
		})
	})

	Context("single page lookups", func() {
		It("should filter server side on the exact resource uri", func() {
			backend.list = firstPage(
				tasks.Task{ID: "a", DisplayName: "Delete protection store"},
				tasks.Task{ID: "b", DisplayName: "Create protection store"},
			)

			tl, err := m.ByNameAndResourceExact(ctx, "Create", "/backup-recovery/v1beta1/protection-stores/ps-1", 10*time.Minute)

			Expect(err).NotTo(HaveOccurred())
			Expect(tl.Items).To(HaveLen(1))
			q := backend.queries()[0]
			Expect(q.Get("limit")).To(Equal("10"))
			Expect(q.Get("filter")).To(HaveSuffix("and sourceResource.resourceUri eq '/backup-recovery/v1beta1/protection-stores/ps-1'"))
		})

		It("should look up by customer", func() {
			backend.list = firstPage(tasks.Task{ID: "a", DisplayName: "Register account"})

			items, err := m.ByNameAndCustomer(ctx, "Register", "cust-1", 10*time.Minute)

			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(backend.queries()[0].Get("filter")).To(HaveSuffix("and customerId eq 'cust-1'"))
		})

		It("should find index cleanup workflows", func() {
			backend.list = firstPage(tasks.Task{ID: "a", Name: "DeleteIndexDataWorkflow", DisplayName: "Delete indexed files for vm-7"})

			items, err := m.DeleteIndexedFilesTasks(ctx, "vm-7", 10*time.Minute)

			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(backend.queries()[0].Get("filter")).To(HaveSuffix("and name eq 'DeleteIndexDataWorkflow'"))
		})

		It("should match display names against a glob", func() {
			backend.list = firstPage(
				tasks.Task{ID: "a", DisplayName: "Create protection store psgw-01"},
				tasks.Task{ID: "b", DisplayName: "Delete protection store psgw-01"},
			)

			items, err := m.ByDisplayNamePattern(ctx, "Create * psgw-*", now.Add(-time.Hour))

			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].ID).To(Equal("a"))
		})
	})

	Context("children", func() {
		It("should prefer embedded child references", func() {
			root := &tasks.Task{ID: "r", ChildTasks: []tasks.ResourceRef{{ResourceURI: client.TasksPath + "/c1"}}}

			refs, err := m.Children(ctx, root)

			Expect(err).NotTo(HaveOccurred())
			Expect(refs).To(HaveLen(1))
			Expect(refs[0].ID()).To(Equal("c1"))
			Expect(backend.queries()).To(BeEmpty())
		})

		It("should fall back to the parent filter", func() {
			backend.list = firstPage(tasks.Task{ID: "c9"})

			refs, err := m.Children(ctx, &tasks.Task{ID: "r"})

			Expect(err).NotTo(HaveOccurred())
			Expect(refs).To(HaveLen(1))
			Expect(refs[0].ID()).To(Equal("c9"))
			Expect(backend.queries()[0].Get("filter")).To(Equal("parent/id eq 'r'"))

			id, err := m.ChildTaskID(ctx, "r")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("c9"))
		})

		It("should fail when there is no child", func() {
			_, err := m.ChildTaskID(ctx, "lonely")
			Expect(err).To(MatchError(ContainSubstring("no child task")))
		})
	})

	Context("FindRootTask", func() {
		candidate := func(parent string) tasks.Task {
			return tasks.Task{
				ID:             "child-1",
				DisplayName:    "Create protection store for vol-1",
				SourceResource: &tasks.ResourceRef{ResourceURI: "/backup-recovery/v1beta1/volumes/vol-1"},
				ParentTask:     &tasks.TaskRef{ID: "parent-1", Name: parent},
				RootTask:       &tasks.TaskRef{ID: "root-1"},
			}
		}

		// Given a task that shows up on the second poll
		// When we look for the root task
		// Then its root id is returned
		It("should return the root id once the task appears", func() {
			// Arrange
			var polls atomic.Int32
			backend.list = func(q url.Values) tasks.TaskList {
				if q.Get("offset") != "0" {
					return tasks.TaskList{}
				}
				if polls.Add(1) == 1 {
					return tasks.TaskList{Items: []tasks.Task{{ID: "noise", DisplayName: "Unrelated"}}}
				}
				return tasks.TaskList{Items: []tasks.Task{candidate("Backup workflow")}}
			}

			// Act
			id, err := m.FindRootTask(ctx, tasks.RootQuery{
				Name:         "Create protection store",
				ResourceID:   "vol-1",
				Since:        now.Add(-time.Minute),
				PollInterval: 10 * time.Millisecond,
				Timeout:      5 * time.Second,
			})

			// Assert
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("root-1"))
			Expect(polls.Load()).To(BeNumerically(">=", 2))
		})

		It("should fall back to the root operation", func() {
			t := candidate("")
			t.RootTask = nil
			t.RootOperation = &tasks.TaskRef{ID: "op-1"}
			backend.list = firstPage(t)

			id, err := m.FindRootTask(ctx, tasks.RootQuery{Name: "Create", ResourceID: "vol-1", PollInterval: 10 * time.Millisecond, Timeout: time.Second})

			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("op-1"))
		})

		It("should return the matching task itself when the parent name matches", func() {
			backend.list = firstPage(candidate("Backup workflow"))

			id, err := m.FindRootTask(ctx, tasks.RootQuery{
				Name: "Create", ResourceID: "vol-1", ParentName: "Backup",
				PollInterval: 10 * time.Millisecond, Timeout: time.Second,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("child-1"))
		})

		It("should give up with RootTaskNotFoundError", func() {
			backend.list = firstPage(candidate("Restore workflow"))

			_, err := m.FindRootTask(ctx, tasks.RootQuery{
				Name: "Create", ResourceID: "vol-1", ParentName: "Backup",
				PollInterval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond,
			})

			Expect(srvErrors.IsRootTaskNotFoundError(err)).To(BeTrue())
		})
	})

	Context("WaitForChildren", func() {
		BeforeEach(func() {
			backend.script("r", tasks.Task{State: tasks.StateRunning, ChildTasks: []tasks.ResourceRef{
				{ResourceURI: client.TasksPath + "/c1"},
				{ResourceURI: client.TasksPath + "/c2"},
				{ResourceURI: client.TasksPath + "/c2"},
			}})
			backend.script("c1", succeeded())
		})

		It("should wait every child and stop once no new children appear", func() {
			backend.script("c2", running(), succeeded())

			Expect(m.WaitForChildren(ctx, "r", tasks.DefaultChildOptions())).To(Succeed())
		})

		It("should fail with the logs of a failed child", func() {
			backend.script("c2", tasks.Task{State: tasks.StateFailed, LogMessages: []tasks.LogMessage{{Message: "snapshot quota reached"}}})

			err := m.WaitForChildren(ctx, "r", tasks.DefaultChildOptions())

			Expect(srvErrors.IsTaskFailedError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("snapshot quota reached"))
		})

		It("should tolerate failed children when asked", func() {
			backend.script("c2", tasks.Task{State: tasks.StateFailed})
			opts := tasks.DefaultChildOptions()
			opts.FailOnError = false

			Expect(m.WaitForChildren(ctx, "r", opts)).To(Succeed())
		})

		It("should return immediately when the known count is unchanged", func() {
			opts := tasks.DefaultChildOptions()
			opts.KnownCount = 2

			Expect(m.WaitForChildren(ctx, "r", opts)).To(Succeed())
		})
	})

	Context("WaitForResource", func() {
		It("should find the root, wait the children and the root", func() {
			backend.list = firstPage(tasks.Task{
				ID:             "c1",
				DisplayName:    "Create protection store",
				SourceResource: &tasks.ResourceRef{ResourceURI: "/backup-recovery/v1beta1/protection-stores/ps-1"},
				RootTask:       &tasks.TaskRef{ID: "r"},
			})
			backend.script("r", tasks.Task{State: tasks.StateSucceeded, ChildTasks: []tasks.ResourceRef{{ResourceURI: client.TasksPath + "/c1"}}})
			backend.script("c1", succeeded())

			id, err := m.WaitForResource(ctx, tasks.RootQuery{
				Name: "Create protection store", ResourceID: "ps-1",
				PollInterval: 10 * time.Millisecond, Timeout: time.Second,
			}, true)

			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("r"))
		})
	})
})
