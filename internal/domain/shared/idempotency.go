package shared

import (
	"context"
	"time"
)

// IdempotencyStore records processed event fingerprints so a replayed
// webhook does not apply its state changes twice
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL
	// Returns true if the event was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// NoopIdempotencyStore never reports an event as processed
type NoopIdempotencyStore struct{}

// MarkProcessed always reports the event as new
func (NoopIdempotencyStore) MarkProcessed(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

// IsProcessed always returns false
func (NoopIdempotencyStore) IsProcessed(context.Context, string) (bool, error) {
	return false, nil
}

// Close is a no-op
func (NoopIdempotencyStore) Close() error { return nil }
