package parchan

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInvalidTask is returned by Push for a nil task.
	ErrInvalidTask = errors.New("parchan: you may only push tasks")
	// ErrDrained is returned by Read once the channel is closed and every
	// outcome has been read.
	ErrDrained = errors.New("parchan: channel drained")
	// ErrTaskPanicked wraps the value recovered from a panicking task.
	ErrTaskPanicked = errors.New("parchan: task panicked")
	// ErrDiscardLocked is returned when switching discard mode after tasks
	// have been pushed.
	ErrDiscardLocked = errors.New("parchan: discard mode is fixed once tasks are pushed")
)

// TaskError is the failure a task reported, tagged with the task's submission
// index and id.
type TaskError struct {
	Index int
	ID    uuid.UUID
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d: %v", e.Index, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
