package scheduler

import (
	"context"
)

// Work is a unit executed by a pool worker. ctx ends when the future is
// stopped or the scheduler closes.
type Work[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Data T
	Err  error
}

// Future delivers exactly one Result of a submitted Work.
type Future[T any] struct {
	name   string
	result chan T
	stop   context.CancelFunc
}

func newFuture[T any](name string, result chan T, stop context.CancelFunc) *Future[T] {
	return &Future[T]{name: name, result: result, stop: stop}
}

// Name is the label given to AddNamedWork, empty for AddWork.
func (f *Future[T]) Name() string { return f.name }

func (f *Future[T]) C() <-chan T { return f.result }

// Stop cancels the work context. The result is still delivered.
func (f *Future[T]) Stop() { f.stop() }

// Await blocks until the result arrives or ctx ends, in which case the work is stopped.
func Await[T any](ctx context.Context, f *Future[Result[T]]) (T, error) {
	select {
	case r := <-f.C():
		return r.Data, r.Err
	case <-ctx.Done():
		f.Stop()
		var zero T
		return zero, ctx.Err()
	}
}
