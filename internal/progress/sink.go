package progress

import "context"

// Sink consumes batches of events. Implementations must tolerate batches
// arriving from a single background goroutine and should return quickly;
// the hub applies a per-flush timeout.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}
