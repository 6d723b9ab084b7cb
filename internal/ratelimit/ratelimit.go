package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPattern = "rate_limit:%s:%s" // rate_limit:action:client

// takeScript refills the bucket for the elapsed time, then tries to take one
// token. It returns {allowed, remaining}.
var takeScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])
	local take = tonumber(ARGV[5])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local tokens_to_add = math.floor(((now - last_refill) / window) * refill_rate)
	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
		last_refill = now
	end

	local allowed = 0
	if take == 1 and tokens > 0 then
		tokens = tokens - 1
		allowed = 1
	end

	if take == 1 then
		redis.call('HSET', key, 'tokens', tokens, 'last_refill', last_refill)
		redis.call('EXPIRE', key, window * 2)
	end

	return {allowed, tokens}
`)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Remaining int64
	Limit     int64
}

// TokenBucket is a per-client, per-action token bucket kept in Redis so that
// every replica shares the same budget.
type TokenBucket struct {
	redis    *redis.Client
	capacity int64
	refill   int64 // tokens added per window
	window   time.Duration
}

// NewTokenBucket creates a limiter allowing perMinute requests a minute with an
// equal burst.
func NewTokenBucket(redisClient *redis.Client, perMinute int64) *TokenBucket {
	return &TokenBucket{
		redis:    redisClient,
		capacity: perMinute,
		refill:   perMinute,
		window:   time.Minute,
	}
}

func (tb *TokenBucket) Allow(ctx context.Context, client, action string) (Result, error) {
	return tb.run(ctx, client, action, true)
}

// remaining reports the tokens left without consuming one.
func (tb *TokenBucket) remaining(ctx context.Context, client, action string) (int64, error) {
	res, err := tb.run(ctx, client, action, false)
	return res.Remaining, err
}

// reset clears the bucket for client and action.
func (tb *TokenBucket) reset(ctx context.Context, client, action string) error {
	return tb.redis.Del(ctx, fmt.Sprintf(keyPattern, action, client)).Err()
}

func (tb *TokenBucket) run(ctx context.Context, client, action string, take bool) (Result, error) {
	key := fmt.Sprintf(keyPattern, action, client)
	takeArg := 0
	if take {
		takeArg = 1
	}

	raw, err := takeScript.Run(ctx, tb.redis, []string{key},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), time.Now().Unix(), takeArg).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 2 {
		return Result{}, fmt.Errorf("unexpected result type from rate limit script")
	}
	allowed, _ := vals[0].(int64)
	remaining, _ := vals[1].(int64)

	return Result{Allowed: allowed == 1, Remaining: remaining, Limit: tb.capacity}, nil
}
