package output

import "context"

// SinkPort receives human-readable run output. Calls are fire-and-forget;
// failures are never propagated into the run.
type SinkPort interface {
	Status(ctx context.Context, text string)
	Message(ctx context.Context, text string)
}
