// Package parchan implements a bounded-concurrency task channel.
//
// Producers push tasks; at most Concurrency of them run at once. Consumers
// read the outcomes strictly in the order the tasks were pushed, whatever
// order they finish in. A channel created with WithDiscard drops successful
// values and only surfaces failures.
//
// A failing task halts admission of new tasks until a reader has read every
// buffered failure; tasks already running are never interrupted. Reading the
// failure is how a consumer acknowledges it.
//
// Channels start closed, meaning the producer pushes everything up front and
// readers stop once the outcomes are drained. An open channel (WithOpen or
// Open) keeps readers waiting for more pushes until Close is called or
// EndOfWork is pushed.
//
//	ch := parchan.New[int](ctx, parchan.WithConcurrency(2))
//	for i := range 10 {
//		ch.Push(parchan.Func(func() (int, error) { return i, nil }))
//	}
//	values, err := ch.Flush(ctx) // [0 1 2 ... 9]
package parchan
