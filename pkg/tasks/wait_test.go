package tasks_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dscc-qa/backup-harness/pkg/client"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
)

func running() tasks.Task   { return tasks.Task{State: tasks.StateRunning, DisplayName: "Create protection store"} }
func succeeded() tasks.Task { return tasks.Task{State: tasks.StateSucceeded, ProgressPercent: 100} }

func fast(timeout time.Duration) tasks.WaitOptions {
	return tasks.WaitOptions{Timeout: timeout, Interval: 2 * time.Millisecond}
}

var _ = Describe("Backoff cadence", func() {
	It("should double from the interval and cap at ten seconds", func() {
		b := tasks.NewBackOff(100 * time.Millisecond)

		var got []time.Duration
		for range 10 {
			got = append(got, b.NextBackOff())
		}

		Expect(got).To(Equal([]time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			800 * time.Millisecond,
			1600 * time.Millisecond,
			3200 * time.Millisecond,
			6400 * time.Millisecond,
			10 * time.Second,
			10 * time.Second,
			10 * time.Second,
		}))
	})

	It("should cap at the interval when it exceeds ten seconds", func() {
		b := tasks.NewBackOff(30 * time.Second)

		Expect(b.NextBackOff()).To(Equal(30 * time.Second))
		Expect(b.NextBackOff()).To(Equal(30 * time.Second))
	})
})

var _ = Describe("Task states", func() {
	It("should classify in-progress and terminal states", func() {
		for _, s := range []tasks.TaskState{tasks.StateInitialized, tasks.StateRunning} {
			Expect(s.InProgress()).To(BeTrue())
			Expect(s.Terminal()).To(BeFalse())
		}
		for _, s := range []tasks.TaskState{tasks.StateSucceeded, tasks.StateFailed, tasks.StateTimedOut, tasks.StatePaused} {
			Expect(s.Terminal()).To(BeTrue())
		}
	})

	It("should parse lowercase states and reject unknown ones", func() {
		s, err := tasks.ParseTaskState("succeeded")
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(tasks.StateSucceeded))

		_, err = tasks.ParseTaskState("EXPLODED")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Manager waits", func() {
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

	Context("Wait", func() {
		// Given a task that runs for a few polls
		// When we wait for it
		// Then the terminal state is returned
		It("should return the terminal state", func() {
			// Arrange
			backend.script("t1", running(), running(), running(), succeeded())

			// Act
			state, err := m.Wait(ctx, "t1", fast(5*time.Second))

			// Assert
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(tasks.StateSucceeded))
		})

		It("should return FAILED as a state, not an error", func() {
			backend.script("t1", running(), tasks.Task{State: tasks.StateFailed})

			state, err := m.Wait(ctx, "t1", fast(5*time.Second))

			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(tasks.StateFailed))
		})

		It("should time out with the caller message", func() {
			backend.script("t1", running())

			_, err := m.Wait(ctx, "t1", tasks.WaitOptions{
				Timeout:  100 * time.Millisecond,
				Interval: 5 * time.Millisecond,
				Message:  "protection store was not created",
			})

			Expect(srvErrors.IsTaskTimeoutError(err)).To(BeTrue())
			Expect(err.Error()).To(HavePrefix("protection store was not created"))
			Expect(err.Error()).To(ContainSubstring(`last state "RUNNING"`))
		})

		// Given a task that succeeds shortly before the timeout, between two
		// doubling sleeps
		// When we wait for it
		// Then the last poll lands on the deadline and sees it succeed
		It("should poll once more at the deadline", func() {
			start := time.Now()
			late := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				doc := `{"id":"t1","state":"RUNNING"}`
				if time.Since(start) >= 900*time.Millisecond {
					doc = `{"id":"t1","state":"SUCCEEDED","progressPercent":100}`
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(doc))
			}))
			defer late.Close()
			c, err := client.NewClient(late.URL, client.WithRetryPolicy(client.RetryPolicy{MaxTries: 1}))
			Expect(err).NotTo(HaveOccurred())

			// sleeps 100ms, 200ms, 400ms, then 300ms instead of 800ms
			state, err := tasks.NewManager(c).Wait(ctx, "t1", tasks.WaitOptions{Timeout: time.Second, Interval: 100 * time.Millisecond})

			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(tasks.StateSucceeded))
		})

		It("should not give up before the timeout", func() {
			backend.script("t1", running())
			start := time.Now()

			_, err := m.Wait(ctx, "t1", tasks.WaitOptions{Timeout: 300 * time.Millisecond, Interval: 100 * time.Millisecond})

			Expect(srvErrors.IsTaskTimeoutError(err)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically(">=", 300*time.Millisecond))
		})

		It("should fail on an unknown state", func() {
			backend.script("t1", tasks.Task{State: "EXPLODED"})

			_, err := m.Wait(ctx, "t1", fast(time.Second))

			Expect(srvErrors.IsUnknownTaskStateError(err)).To(BeTrue())
		})

		It("should abort on a missing task", func() {
			start := time.Now()
			_, err := m.Wait(ctx, "missing", fast(5*time.Second))

			Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		})

		// Given a backend that answers 503 during the first polls
		// When we wait for the task
		// Then the wait keeps polling and completes
		It("should ride out transient failures", func() {
			backend.script("t1", running(), succeeded())
			backend.failures["t1"] = []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable}

			state, err := m.Wait(ctx, "t1", fast(5*time.Second))

			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(tasks.StateSucceeded))
		})

		It("should abort promptly when the context is cancelled", func() {
			backend.script("t1", running())
			cctx, cancel := context.WithCancel(ctx)
			time.AfterFunc(50*time.Millisecond, cancel)

			start := time.Now()
			_, err := m.Wait(cctx, "t1", tasks.WaitOptions{Timeout: time.Minute, Interval: 10 * time.Millisecond})

			Expect(err).To(MatchError(context.Canceled))
			Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
		})
	})

	Context("WaitSucceeded", func() {
		It("should carry the error and logs of a failed task", func() {
			backend.script("t1", tasks.Task{
				State: tasks.StateFailed,
				Error: &tasks.TaskError{Error: "quota exceeded", ErrorCode: "409"},
				LogMessages: []tasks.LogMessage{
					{Message: "allocating capacity"},
					{Message: "quota exceeded"},
				},
			})

			err := m.WaitSucceeded(ctx, "t1", fast(time.Second))

			Expect(srvErrors.IsTaskFailedError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("quota exceeded"))
			Expect(err.Error()).To(ContainSubstring("allocating capacity quota exceeded"))
		})
	})

	Context("WaitForError", func() {
		It("should return once an error message shows up", func() {
			backend.script("t1", running(), running(), tasks.Task{State: tasks.StateRunning, Error: &tasks.TaskError{Error: "invalid input"}})

			msg, err := m.WaitForError(ctx, "t1", fast(5*time.Second))

			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal("invalid input"))
		})
	})

	Context("WaitForPercentComplete", func() {
		It("should return when progress reaches the target", func() {
			backend.script("t1",
				tasks.Task{State: tasks.StateRunning, ProgressPercent: 10},
				tasks.Task{State: tasks.StateRunning, ProgressPercent: 40},
				tasks.Task{State: tasks.StateRunning, ProgressPercent: 60},
			)

			Expect(m.WaitForPercentComplete(ctx, "t1", 50, 5*time.Second)).To(Succeed())
		})

		It("should time out below the target", func() {
			backend.script("t1", tasks.Task{State: tasks.StateRunning, ProgressPercent: 10})

			err := m.WaitForPercentComplete(ctx, "t1", 50, 150*time.Millisecond)

			Expect(srvErrors.IsTaskTimeoutError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("did not reach 50 percent complete"))
		})
	})

	Context("WaitAll", func() {
		It("should wait for every task concurrently", func() {
			backend.script("a", running(), succeeded())
			backend.script("b", running(), running(), tasks.Task{State: tasks.StateFailed})
			backend.script("c", succeeded())

			states, err := m.WaitAll(ctx, []string{"a", "b", "c"}, fast(5*time.Second))

			Expect(err).NotTo(HaveOccurred())
			Expect(states).To(Equal(map[string]tasks.TaskState{
				"a": tasks.StateSucceeded,
				"b": tasks.StateFailed,
				"c": tasks.StateSucceeded,
			}))
		})

		It("should combine individual errors", func() {
			backend.script("a", succeeded())

			states, err := m.WaitAll(ctx, []string{"a", "missing"}, fast(time.Second))

			Expect(err).To(MatchError(ContainSubstring("task missing")))
			Expect(states).To(HaveKeyWithValue("a", tasks.StateSucceeded))
		})
	})

	Context("accessors", func() {
		It("should only report errors of failed tasks", func() {
			backend.script("t1", tasks.Task{State: tasks.StateRunning, Error: &tasks.TaskError{Error: "transient", ErrorCode: "5"}})
			backend.script("t2", tasks.Task{State: tasks.StateFailed, Error: &tasks.TaskError{Error: "boom", ErrorCode: "500"}})

			msg, err := m.ErrorMessage(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(BeEmpty())

			msg, err = m.ErrorMessage(ctx, "t2")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal("boom"))

			code, err := m.ErrorCode(ctx, "t2")
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(500))
		})

		It("should extract the source resource uuid", func() {
			backend.script("t1", tasks.Task{
				State: tasks.StateSucceeded,
				SourceResource: &tasks.ResourceRef{
					Name:        "qa account",
					Type:        "hybrid-cloud/csp-account",
					ResourceURI: "/hybrid-cloud/v1beta1/csp-accounts/6c1d2a0e-7f5b-4b1e-9a55-2f0c1e0d4c11",
				},
			})

			id, err := m.SourceResourceUUID(ctx, "t1", "csp-account")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("6c1d2a0e-7f5b-4b1e-9a55-2f0c1e0d4c11"))

			_, err = m.SourceResourceUUID(ctx, "t1", "protection-group")
			Expect(err).To(HaveOccurred())

			name, err := m.SourceResourceName(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("qa account"))
		})
	})
})
