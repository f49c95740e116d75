package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseIfOwnerScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// BusyGate is the per-client "assistant is answering" flag shared by every
// process. A held gate expires after ttl so a crashed worker cannot block a
// client forever.
type BusyGate struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewBusyGate(rdb *redis.Client, ttl time.Duration) *BusyGate {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &BusyGate{redis: rdb, ttl: ttl}
}

func (g *BusyGate) key(clientID string) string {
	return "feestplanner:busy:" + clientID
}

// Acquire takes the gate for clientID. It returns the owner token, or ""
// when another turn holds the gate.
func (g *BusyGate) Acquire(ctx context.Context, clientID string) (string, error) {
	token := uuid.NewString()
	ok, err := g.redis.SetNX(ctx, g.key(clientID), token, g.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("busy gate acquire: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Release frees the gate when token still owns it.
func (g *BusyGate) Release(ctx context.Context, clientID, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseIfOwnerScript.Run(ctx, g.redis, []string{g.key(clientID)}, token).Err(); err != nil {
		return fmt.Errorf("busy gate release: %w", err)
	}
	return nil
}

func (g *BusyGate) Busy(ctx context.Context, clientID string) (bool, error) {
	n, err := g.redis.Exists(ctx, g.key(clientID)).Result()
	if err != nil {
		return false, fmt.Errorf("busy gate check: %w", err)
	}
	return n > 0, nil
}
