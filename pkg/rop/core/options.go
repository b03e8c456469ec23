package core

import "context"

type OptionKey string

const (
	ProcessOptionKey OptionKey = "process_options"
	WorkerOptionKey  OptionKey = "worker_options"
)

type MaxLimitOption struct {
	Value int
}

// WorkerOptions bound how much work a channel built from the context may run
// at once. A MaxCount of zero or less means no limit.
type WorkerOptions struct {
	MaxCount MaxLimitOption
	Discard  bool
}

// ProcessOptions tell consumers whether to keep draining after a task fails.
type ProcessOptions struct {
	ProcessRemaining bool
}

func WithProcessOptions(ctx context.Context, processRemaining bool) context.Context {
	return context.WithValue(ctx, ProcessOptionKey, ProcessOptions{ProcessRemaining: processRemaining})
}

func WithWorkerOptions(ctx context.Context, maxWorkers int) context.Context {
	opts := workerOptions(ctx)
	opts.MaxCount = MaxLimitOption{Value: maxWorkers}
	return context.WithValue(ctx, WorkerOptionKey, opts)
}

// WithDiscardOptions marks channels built from ctx as dropping successful
// values.
func WithDiscardOptions(ctx context.Context, discard bool) context.Context {
	opts := workerOptions(ctx)
	opts.Discard = discard
	return context.WithValue(ctx, WorkerOptionKey, opts)
}

func workerOptions(ctx context.Context) WorkerOptions {
	opts, _ := ctx.Value(WorkerOptionKey).(WorkerOptions)
	return opts
}

func GetWorkerMaxCount(ctx context.Context, defaultMaxWorkers int) int {
	options, ok := ctx.Value(WorkerOptionKey).(WorkerOptions)
	if ok && options.MaxCount.Value != 0 {
		return options.MaxCount.Value
	}
	return defaultMaxWorkers
}

func IsDiscardEnabled(ctx context.Context, defaultDiscard bool) bool {
	options, ok := ctx.Value(WorkerOptionKey).(WorkerOptions)
	if ok {
		return options.Discard
	}
	return defaultDiscard
}

func IsProcessRemainingEnabled(ctx context.Context, defaultProcessRemaining bool) bool {
	options, ok := ctx.Value(ProcessOptionKey).(ProcessOptions)
	if ok {
		return options.ProcessRemaining
	}
	return defaultProcessRemaining
}
