// Package core contains the plumbing around task channels: worker and process
// options carried through a context, and adapters that connect a channel to
// ordinary Go channels (Feed on the producer side, Stream on the consumer
// side).
package core
