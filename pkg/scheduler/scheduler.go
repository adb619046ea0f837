package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type queue[T any] []T

func (wq *queue[T]) Len() int { return len(*wq) }

func (wq *queue[T]) Pop() T {
	old := *wq
	x := old[0]
	*wq = old[1:]
	return x
}

func (wq *queue[T]) Push(t T) {
	*wq = append(*wq, t)
}

type workRequest struct {
	name string
	fn   Work[any]
	c    chan Result[any]
	ctx  context.Context
}

type worker struct {
	idle chan worker
	wg   *sync.WaitGroup
}

func (w worker) Work(r workRequest) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.S().Named("scheduler").Errorw("work panicked", "work", r.name, "panic", rec)
			r.c <- Result[any]{Err: fmt.Errorf("worker panicked: %v", rec)}
		}
		w.idle <- w
		w.wg.Done()
	}()

	if r.ctx.Err() != nil {
		r.c <- Result[any]{Err: r.ctx.Err()}
		return
	}
	v, err := r.fn(r.ctx)
	r.c <- Result[any]{Data: v, Err: err}
}

// Scheduler runs work on a fixed pool of workers.
type Scheduler struct {
	workers    *queue[worker]
	workQueue  *queue[workRequest]
	close      chan any
	stopped    chan any
	idle       chan worker
	work       chan workRequest
	mainCtx    context.Context
	mainCancel context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	pending    atomic.Int64
}

func NewScheduler(nbWorkers int) *Scheduler {
	if nbWorkers < 1 {
		nbWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		workers:    &queue[worker]{},
		workQueue:  &queue[workRequest]{},
		close:      make(chan any),
		stopped:    make(chan any),
		idle:       make(chan worker, nbWorkers),
		work:       make(chan workRequest),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	for range nbWorkers {
		s.workers.Push(worker{idle: s.idle, wg: &s.wg})
	}
	go s.run()
	return s
}

func (s *Scheduler) AddWork(w Work[any]) *Future[Result[any]] {
	return s.AddNamedWork("", w)
}

// AddNamedWork submits work labelled for logs.
func (s *Scheduler) AddNamedWork(name string, w Work[any]) *Future[Result[any]] {
	c := make(chan Result[any], 1)
	ctx, cancel := context.WithCancel(s.mainCtx)

	select {
	case <-s.mainCtx.Done():
		// closing: answer without running
		c <- Result[any]{Err: context.Canceled}
	case s.work <- workRequest{name: name, fn: w, c: c, ctx: ctx}:
		s.pending.Add(1)
	}

	return newFuture(name, c, cancel)
}

// Pending returns the number of submitted work items that have not finished.
func (s *Scheduler) Pending() int {
	return int(s.pending.Load())
}

// Close cancels all work and waits for running workers to return.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		s.mainCancel()
		s.close <- struct{}{}
		<-s.stopped
	})
}

func (s *Scheduler) run() {
	defer close(s.stopped)
	for {
		select {
		case w := <-s.work:
			s.workQueue.Push(w)
			s.dispatch()
		case w := <-s.idle:
			s.pending.Add(-1)
			s.workers.Push(w)
			s.dispatch()
		case <-s.close:
			s.drain()
			return
		}
	}
}

// drain answers queued work and waits for in-flight work.
func (s *Scheduler) drain() {
	for s.workQueue.Len() > 0 {
		r := s.workQueue.Pop()
		r.c <- Result[any]{Err: context.Canceled}
		s.pending.Add(-1)
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-s.idle:
			s.pending.Add(-1)
		case <-done:
			return
		}
	}
}

// dispatch drains the workQueue as much as possible
// based on available workers
func (s *Scheduler) dispatch() {
	for s.workers.Len() > 0 && s.workQueue.Len() > 0 {
		r := s.workQueue.Pop()
		worker := s.workers.Pop()
		s.wg.Add(1)
		go worker.Work(r)
	}
}
