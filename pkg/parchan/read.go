package parchan

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ib-77/parchan/pkg/rop"
)

// Read returns the next outcome in submission order, waiting for it if the
// task has not finished yet. A failed task's error is returned as a
// *TaskError. On a channel that discards values, Read returns the zero value
// for each successful completion and the errors of failed ones in the order
// they finished.
//
// Read on an open channel with nothing left waits for a push or Close. Once
// the channel is closed and drained, Read returns ErrDrained. If ctx is done
// first, Read returns ctx.Err() and nothing is consumed.
func (c *Channel[T]) Read(ctx context.Context) (T, error) {
	res, err := c.read(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return res.Unwrap()
}

// ReadResult is Read returning the outcome as a rop.Result. ok is false once
// the channel is drained. A done ctx yields a cancelled result.
func (c *Channel[T]) ReadResult(ctx context.Context) (res rop.Result[T], ok bool) {
	res, err := c.read(ctx)
	switch {
	case errors.Is(err, ErrDrained):
		return res, false
	case err != nil:
		var zero T
		return rop.Of(zero, err), true
	}
	return res, true
}

// Flush reads until the channel is no longer readable and returns the values
// in submission order, or nil on a channel that discards values. The first
// task failure stops the drain: Flush returns the values read so far together
// with the error, and the rest stays in the channel.
func (c *Channel[T]) Flush(ctx context.Context) ([]T, error) {
	var values []T
	discard := c.Discard()
	if !discard {
		values = make([]T, 0, c.Queue())
	}

	for c.Readable() {
		v, err := c.Read(ctx)
		if errors.Is(err, ErrDrained) {
			break
		}
		if err != nil {
			return values, err
		}
		if !discard {
			values = append(values, v)
		}
	}
	return values, nil
}

// Pushed waits until the channel has work to read (true) or is closed with
// nothing left (false). It returns immediately when either already holds.
func (c *Channel[T]) Pushed(ctx context.Context) (bool, error) {
	c.mu.Lock()
	for {
		if c.outstanding() > 0 {
			c.mu.Unlock()
			return true, nil
		}
		if c.closed {
			c.mu.Unlock()
			return false, nil
		}

		w := make(chan struct{})
		c.lifecycle = append(c.lifecycle, w)
		c.mu.Unlock()

		if err := c.await(ctx, w); err != nil {
			return false, err
		}
		c.mu.Lock()
	}
}

func (c *Channel[T]) read(ctx context.Context) (rop.Result[T], error) {
	c.mu.Lock()
	for {
		// another reader may have taken the last failure while this one slept
		c.resume()
		res, w, err := c.take()
		if w == nil {
			if err == nil {
				c.observer.ResultRead(res.Index(), res.Err())
			}
			c.mu.Unlock()
			return res, err
		}
		c.mu.Unlock()

		if err := c.await(ctx, w); err != nil {
			return rop.Result[T]{}, err
		}
		c.mu.Lock()
	}
}

// resume lifts the halt once every buffered failure has been read. Callers
// hold c.mu.
func (c *Channel[T]) resume() {
	if !c.halted || c.errors > 0 {
		return
	}
	c.halted = false
	c.observer.Halted(false)
	c.logger.WithField("queued", len(c.queue)).Debug("failures acknowledged, resuming admission")
	c.admit()
}

// take consumes the next outcome. When none is ready it registers and returns
// a one-shot wakeup instead. Callers hold c.mu.
func (c *Channel[T]) take() (rop.Result[T], chan struct{}, error) {
	if c.discard {
		return c.takeAny()
	}

	idx := c.next
	if res, ok := c.results[idx]; ok {
		delete(c.results, idx)
		c.next++
		if res.IsFailure() {
			c.errors--
			c.logger.WithFields(logrus.Fields{"index": idx, "errors": c.errors}).Debug("failure read")
		}
		return res, nil, nil
	}

	w := make(chan struct{})
	switch {
	case idx < c.length:
		c.waiting[idx] = append(c.waiting[idx], w)
	case c.closed:
		return rop.Result[T]{}, nil, ErrDrained
	default:
		c.lifecycle = append(c.lifecycle, w)
	}
	return rop.Result[T]{}, w, nil
}

func (c *Channel[T]) takeAny() (rop.Result[T], chan struct{}, error) {
	if len(c.failures) > 0 {
		res := c.failures[0]
		c.failures[0] = rop.Result[T]{}
		c.failures = c.failures[1:]
		c.errors--
		return res, nil, nil
	}
	if c.successes > 0 {
		c.successes--
		return rop.Result[T]{}, nil, nil
	}

	w := make(chan struct{})
	switch {
	case len(c.queue)+c.pending > 0:
		c.anyWaiting = append(c.anyWaiting, w)
	case c.closed:
		return rop.Result[T]{}, nil, ErrDrained
	default:
		c.lifecycle = append(c.lifecycle, w)
	}
	return rop.Result[T]{}, w, nil
}

// await blocks until w fires or ctx is done. On cancellation the registration
// is withdrawn so a later wakeup does not leak.
func (c *Channel[T]) await(ctx context.Context, w chan struct{}) error {
	select {
	case <-w:
		return nil
	case <-ctx.Done():
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lifecycle = withdraw(c.lifecycle, w)
	c.anyWaiting = withdraw(c.anyWaiting, w)
	for idx, ws := range c.waiting {
		if ws = withdraw(ws, w); len(ws) == 0 {
			delete(c.waiting, idx)
		} else {
			c.waiting[idx] = ws
		}
	}
	return ctx.Err()
}

func withdraw(waiters []chan struct{}, w chan struct{}) []chan struct{} {
	for i, x := range waiters {
		if x == w {
			return append(waiters[:i], waiters[i+1:]...)
		}
	}
	return waiters
}
