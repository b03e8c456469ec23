package parchan

import "context"

// Callback reports the outcome of a task. It must be called exactly once.
type Callback[T any] func(value T, err error)

// Task is a unit of asynchronous work. The channel runs each task on its own
// goroutine and hands it the callback through which it reports its outcome.
// The task may return before calling done, and may call it from any
// goroutine.
type Task[T any] func(done Callback[T])

// Work is anything that can be pushed to a Channel: a Task, or the
// end-of-work marker returned by EndOfWork.
type Work[T any] interface {
	work()
}

func (Task[T]) work() {}

type endOfWork[T any] struct{}

func (endOfWork[T]) work() {}

// EndOfWork returns the marker that, when pushed, closes the channel.
func EndOfWork[T any]() Work[T] {
	return endOfWork[T]{}
}

// Func adapts a blocking function into a Task.
func Func[T any](f func() (T, error)) Task[T] {
	return func(done Callback[T]) {
		done(f())
	}
}

// Go adapts a blocking, context-aware function into a Task. If ctx is already
// done when the task is admitted, f is not called and the task fails with the
// context error.
func Go[T any](ctx context.Context, f func(ctx context.Context) (T, error)) Task[T] {
	return func(done Callback[T]) {
		if err := ctx.Err(); err != nil {
			var zero T
			done(zero, err)
			return
		}
		done(f(ctx))
	}
}
