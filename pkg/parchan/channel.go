package parchan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ib-77/parchan/pkg/rop"
)

// Channel runs pushed tasks with bounded concurrency and hands their outcomes
// to readers in submission order.
//
// A task failure halts admission: tasks already running finish, but no queued
// task starts until every buffered failure has been read. The read after the
// last failure resumes admission.
//
// A Channel is safe for concurrent use by producers and consumers.
type Channel[T any] struct {
	mu sync.Mutex

	concurrency int
	closed      bool
	discard     bool

	queue    []queued[T]
	length   int
	pending  int
	finished int
	halted   bool
	errors   int

	// ordered mode: outcomes keyed by submission index, read from next.
	next    int
	results map[int]rop.Result[T]
	waiting map[int][]chan struct{}

	// discard mode: failures in completion order and a tally of successes
	// nobody has read yet.
	failures   []rop.Result[T]
	successes  int
	anyWaiting []chan struct{}

	// woken by push, open and close.
	lifecycle []chan struct{}

	logger   logrus.FieldLogger
	observer Observer
}

type queued[T any] struct {
	index int
	id    uuid.UUID
	task  Task[T]
}

// New creates a channel. Unless overridden by options, concurrency and discard
// mode come from the worker options carried by ctx (see core.WithWorkerOptions),
// and the channel starts closed.
func New[T any](ctx context.Context, opts ...Option) *Channel[T] {
	s := newSettings(ctx, opts)
	if s.open {
		s.observer.Lifecycle(true)
	}
	return &Channel[T]{
		concurrency: s.concurrency,
		closed:      !s.open,
		discard:     s.discard,
		results:     make(map[int]rop.Result[T]),
		waiting:     make(map[int][]chan struct{}),
		logger:      s.logger,
		observer:    s.observer,
	}
}

// Push submits work. A Task is queued, started as soon as admission allows,
// and its outcome will be read at the returned position: the total number of
// tasks pushed so far. Pushing EndOfWork closes the channel.
func (c *Channel[T]) Push(w Work[T]) (int, error) {
	var task Task[T]
	switch v := w.(type) {
	case endOfWork[T]:
		c.Close()
		return c.Len(), nil
	case Task[T]:
		task = v
	}
	if task == nil {
		return 0, ErrInvalidTask
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	q := queued[T]{index: c.length, id: uuid.New(), task: task}
	c.queue = append(c.queue, q)
	c.length++
	c.observer.TaskSubmitted(q.index)
	c.logger.WithFields(logrus.Fields{"index": q.index, "task_id": q.id}).Debug("task pushed")

	c.admit()
	c.lifecycle = wake(c.lifecycle)
	return c.length, nil
}

// Open marks the channel as expecting more work. Readers of an open channel
// wait for pushes instead of stopping at an empty queue.
func (c *Channel[T]) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		return
	}
	c.closed = false
	c.observer.Lifecycle(true)
	c.logger.Debug("channel opened")
	c.lifecycle = wake(c.lifecycle)
}

// Close marks the end of submissions. Queued and running tasks still complete
// and their outcomes remain readable.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.observer.Lifecycle(false)
	c.logger.Debug("channel closed")
	c.lifecycle = wake(c.lifecycle)
}

// SetConcurrency changes the in-flight limit. Zero or negative means
// Unbounded. Raising the limit starts queued tasks immediately; lowering it
// never interrupts running ones.
func (c *Channel[T]) SetConcurrency(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.concurrency = normalizeConcurrency(n)
	c.admit()
}

func (c *Channel[T]) Concurrency() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.concurrency
}

// SetDiscard switches discard mode. It is only allowed before the first push.
func (c *Channel[T]) SetDiscard(discard bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.length > 0 && c.discard != discard {
		return ErrDiscardLocked
	}
	c.discard = discard
	return nil
}

func (c *Channel[T]) Discard() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discard
}

// Len is the total number of tasks ever pushed.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.length
}

// Queue is the amount of work not yet consumed by readers: queued, running,
// and finished but unread.
func (c *Channel[T]) Queue() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding()
}

// Pending is the number of tasks currently running.
func (c *Channel[T]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Errors is the number of failures buffered and not yet read.
func (c *Channel[T]) Errors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}

// Halted reports whether admission is paused by a failure.
func (c *Channel[T]) Halted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halted
}

func (c *Channel[T]) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Readable reports whether a reader may still get something: there is
// unconsumed work, or the channel is open.
func (c *Channel[T]) Readable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding() > 0 || !c.closed
}

// Progress is the fraction of pushed tasks that have finished, read or not.
// It is 0 for a channel nothing was pushed to.
func (c *Channel[T]) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.length == 0 {
		return 0
	}
	return float64(c.finished) / float64(c.length)
}

func (c *Channel[T]) outstanding() int {
	if c.discard {
		return len(c.queue) + c.pending + c.successes + len(c.failures)
	}
	return c.length - c.next
}

func (c *Channel[T]) pushable() bool {
	return !c.halted && (c.concurrency == Unbounded || c.pending < c.concurrency)
}

// admit starts queued tasks, oldest first, while capacity allows. Callers hold
// c.mu.
func (c *Channel[T]) admit() {
	for len(c.queue) > 0 && c.pushable() {
		q := c.queue[0]
		c.queue[0] = queued[T]{}
		c.queue = c.queue[1:]

		c.pending++
		c.observer.TaskStarted(q.index)
		c.logger.WithFields(logrus.Fields{"index": q.index, "pending": c.pending}).Debug("task started")
		go c.run(q)
	}
}

func (c *Channel[T]) run(q queued[T]) {
	var once sync.Once
	started := time.Now()

	done := func(value T, err error) {
		fired := false
		once.Do(func() {
			fired = true
			c.complete(q, value, err, time.Since(started))
		})
		if !fired {
			c.logger.WithFields(logrus.Fields{"index": q.index, "task_id": q.id}).
				Warn("task reported its outcome more than once; ignoring")
		}
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.WithFields(logrus.Fields{"index": q.index, "panic": r}).Warn("task panicked")
			var zero T
			done(zero, fmt.Errorf("%w: %v", ErrTaskPanicked, r))
		}
	}()

	q.task(done)
}

func (c *Channel[T]) complete(q queued[T], value T, err error, took time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending--
	c.finished++

	var res rop.Result[T]
	if err != nil {
		if !c.halted {
			c.observer.Halted(true)
		}
		c.halted = true
		c.errors++
		res = rop.Fail[T](&TaskError{Index: q.index, ID: q.id, Err: err}).At(q.index, q.id)
	} else {
		res = rop.Success(value).At(q.index, q.id)
	}

	c.observer.TaskFinished(q.index, err, took)
	c.logger.WithFields(logrus.Fields{
		"index":   q.index,
		"took":    took,
		"failed":  err != nil,
		"pending": c.pending,
	}).Debug("task finished")

	if c.discard {
		if err != nil {
			c.failures = append(c.failures, res)
		} else {
			c.successes++
		}
		c.anyWaiting = wake(c.anyWaiting)
	} else {
		c.results[q.index] = res
		if w, ok := c.waiting[q.index]; ok {
			wake(w)
			delete(c.waiting, q.index)
		}
	}

	c.admit()
}

// wake fires every one-shot registration in waiters and returns the emptied
// list.
func wake(waiters []chan struct{}) []chan struct{} {
	for _, w := range waiters {
		close(w)
	}
	return nil
}
