package tracking

import (
	"context"
	"time"

	"github.com/clicksand/clicksand/internal/infrastructure/driver"
	"github.com/clicksand/clicksand/internal/infrastructure/logging"
	"go.uber.org/zap"
)

const snapshotKeyPrefix = "snapshot:"

// SnapshotCache write-through KV cache in front of a durable snapshot
// repository. Loads hit the hot copy first; saves refresh both. KV
// failures are logged and absorbed, the durable store stays authoritative
type SnapshotCache struct {
	kv   driver.KeyValueDB
	next SnapshotRepository
	ttl  time.Duration
}

var _ SnapshotRepository = &SnapshotCache{}

// NewSnapshotCache wrap next with a KV hot cache
func NewSnapshotCache(kv driver.KeyValueDB, next SnapshotRepository, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SnapshotCache{kv: kv, next: next, ttl: ttl}
}

// Load implement SnapshotRepository
func (c *SnapshotCache) Load(ctx context.Context, userID string) (*UserTimeStore, error) {
	logger := logging.ExtractLoggerFromContext(ctx)
	if raw, err := c.kv.Get(snapshotKeyPrefix + userID); err == nil && raw != "" {
		if store, err := DecodeSnapshot([]byte(raw)); err == nil {
			return store, nil
		}
		logger.Warn("Evicting unparseable cached snapshot", zap.String("user.id", userID))
	}

	store, err := c.next.Load(ctx, userID)
	if err != nil || store == nil {
		return store, err
	}
	c.warm(logger, userID, store)
	return store, nil
}

// Save implement SnapshotRepository
func (c *SnapshotCache) Save(ctx context.Context, userID string, store *UserTimeStore) error {
	c.warm(logging.ExtractLoggerFromContext(ctx), userID, store)
	return c.next.Save(ctx, userID, store)
}

func (c *SnapshotCache) warm(logger *zap.Logger, userID string, store *UserTimeStore) {
	raw, err := EncodeSnapshot(store)
	if err != nil {
		return
	}
	if err := c.kv.SetEX(snapshotKeyPrefix+userID, string(raw), c.ttl); err != nil {
		logger.Warn("Failed to warm snapshot cache",
			zap.String("user.id", userID), zap.Error(err))
	}
}
