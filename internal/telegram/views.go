package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"feestplanner/internal/catalog"
)

// viewStore keeps the browse filters of each user for a limited time. They
// are never written to the client's persistent state.
type viewStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func newViewStore(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *viewStore {
	return &viewStore{redis: rdb, ttl: ttl, logger: logger}
}

func (v *viewStore) key(userID int64) string {
	return fmt.Sprintf("feestplanner:view:%d", userID)
}

// Get returns the stored query, or the default one when nothing usable is
// stored.
func (v *viewStore) Get(ctx context.Context, userID int64) catalog.Query {
	raw, err := v.redis.Get(ctx, v.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return catalog.DefaultQuery()
	}
	if err != nil {
		v.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to read view state")
		return catalog.DefaultQuery()
	}
	q := catalog.DefaultQuery()
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		v.logger.Warn().Err(err).Int64("user_id", userID).Msg("discarding corrupt view state")
		return catalog.DefaultQuery()
	}
	if q.Category == "" {
		q.Category = catalog.AllCategories
	}
	return q
}

func (v *viewStore) Set(ctx context.Context, userID int64, q catalog.Query) error {
	b, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return v.redis.Set(ctx, v.key(userID), string(b), v.ttl).Err()
}

// Update applies fn to the stored query and saves the result.
func (v *viewStore) Update(ctx context.Context, userID int64, fn func(q *catalog.Query)) (catalog.Query, error) {
	q := v.Get(ctx, userID)
	fn(&q)
	return q, v.Set(ctx, userID, q)
}

func (v *viewStore) Clear(ctx context.Context, userID int64) error {
	return v.redis.Del(ctx, v.key(userID)).Err()
}
