package core

import (
	"context"
	"sync"

	"github.com/ib-77/parchan/pkg/rop"
)

// Sink accepts submitted work and can be told that no more is coming.
type Sink[W any] interface {
	Push(w W) (int, error)
	Close()
}

// Source hands out outcomes one at a time. ok is false once the source is
// exhausted.
type Source[T any] interface {
	ReadResult(ctx context.Context) (res rop.Result[T], ok bool)
}

func ToChanFromArgs[T any](ctx context.Context, values ...T) <-chan T {
	in := make(chan T)

	go func() {
		defer close(in)

		for _, v := range values {
			if ctx.Err() != nil {
				return
			}

			select {
			case in <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	return in
}

func ToChanMany[T any](ctx context.Context, values []T) <-chan T {
	return ToChanFromArgs[T](ctx, values...)
}

// Feed pushes everything received from in to sink, then closes sink once in
// is closed or ctx is done. The returned channel yields at most one error (a
// rejected push or the context error) and is closed when feeding stops.
func Feed[W any](ctx context.Context, sink Sink[W], in <-chan W) <-chan error {
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer sink.Close()

		for {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case w, ok := <-in:
				if !ok {
					return
				}
				if _, err := sink.Push(w); err != nil {
					errs <- err
					return
				}
			}
		}
	}()

	return errs
}

// Stream reads src until it is exhausted and forwards each outcome, in the
// order src produces them. A cancelled result is forwarded and ends the
// stream.
func Stream[T any](ctx context.Context, src Source[T]) <-chan rop.Result[T] {
	out := make(chan rop.Result[T])

	go func() {
		defer close(out)

		for {
			res, ok := src.ReadResult(ctx)
			if !ok {
				return
			}

			select {
			case out <- res:
			case <-ctx.Done():
				return
			}

			if res.IsCancel() {
				return
			}
		}
	}()

	return out
}

func FromChanMany[T any](ctx context.Context, out <-chan T) []T {
	res := make([]T, 0)
	wg := &sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			select {
			case v, ok := <-out:
				if !ok {
					return
				}
				res = append(res, v)
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return res
}
