package rop

import (
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of a single unit of work: a value, a failure or a
// cancellation. Results produced by a task channel also carry the submission
// index and id of the task that produced them.
type Result[T any] struct {
	id        uuid.UUID
	index     int
	createdAt time.Time
	result    T
	err       error
	isSuccess bool
	isCancel  bool
}

func Success[T any](r T) Result[T] {
	return Result[T]{
		result:    r,
		isSuccess: true,
		createdAt: time.Now().UTC(),
		index:     -1,
		id:        uuid.New(),
	}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{
		err:       err,
		createdAt: time.Now().UTC(),
		index:     -1,
		id:        uuid.New(),
	}
}

func Cancel[T any](err error) Result[T] {
	return Result[T]{
		err:       err,
		isCancel:  true,
		createdAt: time.Now().UTC(),
		index:     -1,
		id:        uuid.New(),
	}
}

// Of converts a Go (value, error) pair into a Result. A context cancellation
// error produces a cancelled result.
func Of[T any](r T, err error) Result[T] {
	switch {
	case err == nil:
		return Success(r)
	case IsCancellationError(err):
		return Cancel[T](err)
	default:
		return Fail[T](err)
	}
}

// At stamps the result with the submission index and id of the task that
// produced it.
func (r Result[T]) At(index int, id uuid.UUID) Result[T] {
	r.index = index
	r.id = id
	return r
}

func (r Result[T]) Result() T {
	return r.result
}

func (r Result[T]) Err() error {
	return r.err
}

// Unwrap returns the result as a Go (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.result, r.err
}

func (r Result[T]) IsSuccess() bool {
	return r.isSuccess
}

func (r Result[T]) IsFailure() bool {
	return !r.isSuccess && !r.isCancel && r.err != nil
}

func (r Result[T]) IsCancel() bool {
	return r.isCancel
}

// IsEmpty reports a result that carries neither a value nor an error, such as
// a successful completion observed on a channel that discards values.
func (r Result[T]) IsEmpty() bool {
	return r.err == nil && !r.isCancel && !r.isSuccess
}

// Index is the submission index of the producing task, or -1 if unknown.
func (r Result[T]) Index() int {
	if r.IsEmpty() && r.id == uuid.Nil {
		return -1
	}
	return r.index
}

func (r Result[T]) CreatedAt() time.Time {
	return r.createdAt
}

func (r Result[T]) Id() uuid.UUID {
	return r.id
}
