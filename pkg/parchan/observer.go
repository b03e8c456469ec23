package parchan

import "time"

// Observer is notified of channel events. Methods are called while the
// channel's lock is held: they must be fast and must not call back into the
// channel.
type Observer interface {
	TaskSubmitted(index int)
	TaskStarted(index int)
	TaskFinished(index int, err error, took time.Duration)
	ResultRead(index int, err error)
	// Halted reports whether admission is paused by an unread failure.
	Halted(halted bool)
	// Lifecycle reports whether the channel is open to more submissions.
	Lifecycle(open bool)
}

type nopObserver struct{}

func (nopObserver) TaskSubmitted(int)                      {}
func (nopObserver) TaskStarted(int)                        {}
func (nopObserver) TaskFinished(int, error, time.Duration) {}
func (nopObserver) ResultRead(int, error)                  {}
func (nopObserver) Halted(bool)                            {}
func (nopObserver) Lifecycle(bool)                         {}
