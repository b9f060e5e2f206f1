package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "graph:" // graph:<fingerprint>

// CacheRepository implements the domain.CacheRepository interface using
// Redis. It stores serialized documents keyed by request fingerprint; the
// extraction core never sees it.
type CacheRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewCacheRepository creates a new Redis result cache
func NewCacheRepository(client *redis.Client, logger *slog.Logger) *CacheRepository {
	return &CacheRepository{
		client: client,
		logger: logger,
	}
}

// Get retrieves the serialized document for a fingerprint. A miss is not
// an error.
func (r *CacheRepository) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	value, err := r.client.Get(ctx, cacheKeyPrefix+fingerprint).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read cached graph: %w", err)
	}

	r.logger.Debug("Cache hit", "fingerprint", fingerprint)
	return value, true, nil
}

// Set stores the serialized document for a fingerprint with a TTL
func (r *CacheRepository) Set(ctx context.Context, fingerprint, serialized string, ttl time.Duration) error {
	if err := r.client.Set(ctx, cacheKeyPrefix+fingerprint, serialized, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache graph: %w", err)
	}

	r.logger.Debug("Cached graph",
		"fingerprint", fingerprint,
		"ttl", ttl,
		"size", len(serialized),
	)
	return nil
}
