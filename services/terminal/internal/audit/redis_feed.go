package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parkgate/services/terminal/internal/models"
)

// DefaultKey holds the shared feed list.
const DefaultKey = "parkgate:audit:recent"

// RedisFeed shares the feed between consoles through a capped redis list. The key expires so
// the feed never outlives an idle host for long.
type RedisFeed struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisFeed returns a redis-backed feed.
func NewRedisFeed(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *RedisFeed {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisFeed{client: client, key: key, ttl: ttl, logger: logger}
}

// Append pushes entry to the head of the list and trims it to MaxEntries.
func (f *RedisFeed) Append(ctx context.Context, entry models.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}

	pipe := f.client.TxPipeline()
	pipe.LPush(ctx, f.key, data)
	pipe.LTrim(ctx, f.key, 0, MaxEntries-1)
	pipe.Expire(ctx, f.key, f.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// Recent returns up to n entries; n <= 0 returns all of them. Entries that fail to decode
// are skipped.
func (f *RedisFeed) Recent(ctx context.Context, n int) ([]models.AuditEntry, error) {
	stop := int64(n - 1)
	if n <= 0 || n > MaxEntries {
		stop = MaxEntries - 1
	}
	raw, err := f.client.LRange(ctx, f.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("audit: read: %w", err)
	}

	out := make([]models.AuditEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.AuditEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			f.logger.Warn("skipping unreadable audit entry", zap.String("key", f.key), zap.Error(err))
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// Clear deletes the shared list.
func (f *RedisFeed) Clear(ctx context.Context) error {
	return f.client.Del(ctx, f.key).Err()
}
