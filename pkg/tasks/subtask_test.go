package tasks_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dscc-qa/backup-harness/pkg/client"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
)

var _ = Describe("Subtasks", func() {
	var (
		ctx     context.Context
		backend *fakeBackend
		srv     *httptest.Server
		m       *tasks.Manager
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = newFakeBackend()
		srv = httptest.NewServer(backend)

		c, err := client.NewClient(srv.URL, client.WithRetryPolicy(client.RetryPolicy{MaxTries: 1}))
		Expect(err).NotTo(HaveOccurred())
		m = tasks.NewManager(c)
	})

	AfterEach(func() {
		srv.Close()
	})

	Context("FindSubtask", func() {
		// Given a backup whose copy step shows up after a few polls
		// When we look for the copy step under the backup's root task
		// Then it is returned and the root task itself is skipped
		It("should poll the root task's tree until the subtask appears", func() {
			// Arrange
			var polls atomic.Int32
			root := tasks.Task{ID: "root", DisplayName: "Copy backup to cloud"}
			backend.list = func(url.Values) tasks.TaskList {
				if polls.Add(1) < 3 {
					return tasks.TaskList{Items: []tasks.Task{root}}
				}
				return tasks.TaskList{Items: []tasks.Task{
					root,
					{ID: "snap", DisplayName: "Take snapshot", State: tasks.StateSucceeded},
					{ID: "copy", DisplayName: "Copy backup to cloud store", State: tasks.StateRunning},
				}}
			}

			// Act
			sub, err := m.FindSubtask(ctx, "root", "Copy backup", fast(5*time.Second))

			// Assert
			Expect(err).NotTo(HaveOccurred())
			Expect(sub.ID).To(Equal("copy"))
			Expect(polls.Load()).To(BeNumerically(">=", 3))

			q := backend.queries()[0]
			Expect(q.Get("filter")).To(HavePrefix("createdAt gt "))
			Expect(q.Get("filter")).To(HaveSuffix(" and rootTask.id eq 'root'"))
			Expect(q.Get("sort")).To(Equal("createdAt desc"))
			Expect(q.Get("limit")).To(Equal("100"))
		})

		It("should time out naming the missing subtask", func() {
			_, err := m.FindSubtask(ctx, "root", "Copy backup", tasks.WaitOptions{
				Timeout:  50 * time.Millisecond,
				Interval: 5 * time.Millisecond,
				Message:  "cloud copy",
			})

			Expect(srvErrors.IsTaskTimeoutError(err)).To(BeTrue())
			Expect(err.Error()).To(HavePrefix(`cloud copy: subtask "Copy backup" did not start`))
		})
	})

	Context("WaitForSubtask", func() {
		It("should wait for the subtask and return its final document", func() {
			backend.list = firstPage(tasks.Task{ID: "copy", DisplayName: "Copy backup to cloud store", State: tasks.StateRunning})
			backend.script("copy",
				tasks.Task{State: tasks.StateRunning, DisplayName: "Copy backup to cloud store"},
				tasks.Task{State: tasks.StateRunning, DisplayName: "Copy backup to cloud store"},
				tasks.Task{State: tasks.StateFailed, DisplayName: "Copy backup to cloud store"},
			)

			sub, err := m.WaitForSubtask(ctx, "root", "Copy backup", fast(5*time.Second))

			Expect(err).NotTo(HaveOccurred())
			Expect(sub.ID).To(Equal("copy"))
			Expect(sub.State).To(Equal(tasks.StateFailed))
		})
	})

	Context("WaitStarted", func() {
		It("should return as soon as the task is running", func() {
			backend.script("t1", tasks.Task{State: tasks.StateInitialized}, running(), succeeded())

			state, err := m.WaitStarted(ctx, "t1", fast(time.Second))

			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(tasks.StateInitialized))
		})

		It("should keep polling while the task is not visible yet", func() {
			var gets atomic.Int32
			late := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if gets.Add(1) < 3 {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"t1","state":"RUNNING"}`))
			}))
			defer late.Close()
			c, err := client.NewClient(late.URL, client.WithRetryPolicy(client.RetryPolicy{MaxTries: 1}))
			Expect(err).NotTo(HaveOccurred())

			state, err := tasks.NewManager(c).WaitStarted(ctx, "t1", fast(time.Second))

			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(tasks.StateRunning))
			Expect(gets.Load()).To(BeNumerically(">=", 3))
		})

		It("should fail at once when the task failed before starting", func() {
			backend.script("t1", tasks.Task{
				State:       tasks.StateFailed,
				Error:       &tasks.TaskError{Error: "gateway unreachable"},
				LogMessages: []tasks.LogMessage{{Message: "validation failed"}},
			})
			start := time.Now()

			state, err := m.WaitStarted(ctx, "t1", fast(time.Minute))

			Expect(state).To(Equal(tasks.StateFailed))
			Expect(srvErrors.IsTaskFailedError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("gateway unreachable"))
			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
		})
	})
})
