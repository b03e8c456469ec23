package parchan

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ib-77/parchan/pkg/rop/core"
)

// Unbounded is the concurrency of a channel that admits every task as soon as
// it is pushed.
const Unbounded = -1

type settings struct {
	concurrency int
	open        bool
	discard     bool
	logger      logrus.FieldLogger
	observer    Observer
}

// Option configures a Channel.
type Option func(*settings)

// WithConcurrency limits the number of tasks in flight. Zero or negative means
// Unbounded.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		s.concurrency = normalizeConcurrency(n)
	}
}

// WithOpen creates the channel open: consumers wait for more work until Close
// is called.
func WithOpen() Option {
	return func(s *settings) {
		s.open = true
	}
}

// WithDiscard drops successful values; only failures are kept for readers.
func WithDiscard() Option {
	return func(s *settings) {
		s.discard = true
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

// Config is the plain-data form of the channel options, as loaded from a
// configuration file.
type Config struct {
	Concurrency int
	Open        bool
	Discard     bool
}

// Options converts the config into options. A zero Concurrency leaves the
// default in place.
func (c Config) Options() []Option {
	var opts []Option
	if c.Concurrency != 0 {
		opts = append(opts, WithConcurrency(c.Concurrency))
	}
	if c.Open {
		opts = append(opts, WithOpen())
	}
	if c.Discard {
		opts = append(opts, WithDiscard())
	}
	return opts
}

func newSettings(ctx context.Context, opts []Option) settings {
	s := settings{
		concurrency: normalizeConcurrency(core.GetWorkerMaxCount(ctx, Unbounded)),
		discard:     core.IsDiscardEnabled(ctx, false),
		logger:      discardLogger(),
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func normalizeConcurrency(n int) int {
	if n <= 0 {
		return Unbounded
	}
	return n
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
