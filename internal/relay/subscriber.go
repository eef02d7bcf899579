package relay

import "context"

// Subscriber is an interface that provides a stream of queue events to be processed.
type Subscriber interface {
	// Subscribe writes observed events to tasks until ctx is cancelled.
	Subscribe(ctx context.Context, tasks chan<- QueueEvent) error
}
