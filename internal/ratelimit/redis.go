package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const windowKeyPrefix = "ratelimit:"

// admitScript increments the window counter and stamps its TTL atomically.
// Returns {count, remaining-ms}. Running it server-side keeps counting
// correct when multiple service instances share one Redis.
var admitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RedisGate is a fixed-window counter gate shared across service instances.
type RedisGate struct {
	client  redis.UniversalClient
	budgets Budgets
}

var _ Gate = (*RedisGate)(nil)

// NewRedisGate constructs a Redis-backed gate.
func NewRedisGate(client redis.UniversalClient, budgets Budgets) *RedisGate {
	return &RedisGate{client: client, budgets: budgets}
}

// Admit counts the request against the shared (identity, endpoint) window.
func (g *RedisGate) Admit(ctx context.Context, identity, endpoint string) (Decision, error) {
	budget, ok := g.budgets[endpoint]
	if !ok || budget.Requests <= 0 {
		return Decision{Allowed: true}, nil
	}

	key := windowKeyPrefix + endpoint + ":" + identity
	res, err := admitScript.Run(ctx, g.client, []string{key}, budget.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit admit: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit admit: unexpected script reply")
	}

	count, remainingMS := res[0], res[1]
	if count > int64(budget.Requests) {
		retry := time.Duration(remainingMS) * time.Millisecond
		if retry <= 0 {
			retry = budget.Window
		}
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}
	return Decision{Allowed: true}, nil
}
