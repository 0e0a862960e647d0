package cache

import (
	"context"
	"fmt"
	"time"

	"aegis/internal/domain/entity"
	"aegis/internal/domain/repository"
	"aegis/internal/errors"

	"github.com/redis/go-redis/v9"
)

// incrWithWindow bumps the counter and starts the fixed window only on the
// first failure, so later failures never extend it.
var incrWithWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// attemptCounter implements repository.AttemptCounter on Redis. Counters
// live under {flow_prefix}_{tenantId}_{userIdentifier}.
type attemptCounter struct {
	client *redis.Client
}

// NewAttemptCounter is the constructor for attemptCounter.
func NewAttemptCounter(client *redis.Client) repository.AttemptCounter {
	return &attemptCounter{
		client: client,
	}
}

func counterKey(tenantID, userIdentifier string, flow entity.BlockFlow) string {
	return fmt.Sprintf("%s_%s_%s", flow.CounterPrefix(), tenantID, userIdentifier)
}

// Increment bumps the counter for the key and returns the new count.
func (c *attemptCounter) Increment(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow, window time.Duration) (int64, error) {
	key := counterKey(tenantID, userIdentifier, flow)

	count, err := incrWithWindow.Run(ctx, c.client, []string{key}, int64(window.Seconds())).Int64()
	if err != nil {
		return 0, errors.Wrap(err, "failed to increment attempt counter")
	}

	return count, nil
}

// Reset removes the counter for the key.
func (c *attemptCounter) Reset(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow) error {
	if err := c.client.Del(ctx, counterKey(tenantID, userIdentifier, flow)).Err(); err != nil {
		return errors.Wrap(err, "failed to reset attempt counter")
	}

	return nil
}
