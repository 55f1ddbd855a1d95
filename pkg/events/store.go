package events

import "context"

// Store persists ActionEvents. Append must complete (or fail loudly) before
// the triggering HTTP response is sent; the pipeline awaits it. List results
// are ordered oldest first by event time.
type Store interface {
	Append(ctx context.Context, event *ActionEvent) error
	ListForService(ctx context.Context, serviceKey string) ([]ActionEvent, error)
	ListAll(ctx context.Context) ([]ActionEvent, error)

	// PurgeOldest removes every event beyond the keep most recent ones
	// (by event time) and returns the number removed.
	PurgeOldest(ctx context.Context, keep int) (int, error)
}
