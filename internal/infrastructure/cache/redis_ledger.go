package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/eca/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultLedgerKeyPrefix namespaces event fingerprints in Redis
const DefaultLedgerKeyPrefix = "eca:event:"

// RedisEventLedger shares processed event fingerprints between instances
type RedisEventLedger struct {
	client    redis.UniversalClient
	keyPrefix string
	ownClient bool
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewOwnedRedisEventLedger creates a ledger that closes client on Close
func NewOwnedRedisEventLedger(client redis.UniversalClient, keyPrefix string) *RedisEventLedger {
	if keyPrefix == "" {
		keyPrefix = DefaultLedgerKeyPrefix
	}
	return &RedisEventLedger{client: client, keyPrefix: keyPrefix, ownClient: true}
}

// MarkProcessed records eventID with SET NX so concurrent instances agree
// on a single first writer
func (l *RedisEventLedger) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+eventID, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record event %s: %w", eventID, err)
	}
	return ok, nil
}

// IsProcessed reports whether eventID is recorded
func (l *RedisEventLedger) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// Close releases the client if the ledger owns it
func (l *RedisEventLedger) Close() error {
	if l.ownClient {
		return l.client.Close()
	}
	return nil
}

var _ shared.IdempotencyStore = (*RedisEventLedger)(nil)
