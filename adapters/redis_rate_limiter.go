package adapters

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	securebridge "github.com/opengovern/secure-bridge"
)

// RedisRateLimiter is a sliding-window log kept in a Redis sorted set, so
// several client processes share one budget per key.
type RedisRateLimiter struct {
	client      *redis.Client
	prefix      string
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

var errUnexpectedReply = errors.New("unexpected reply from rate limit script")

func NewRedisRateLimiter(client *redis.Client, prefix string, maxAttempts int, window time.Duration) *RedisRateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = securebridge.DefaultMaxAttempts
	}
	if window <= 0 {
		window = securebridge.DefaultWindow
	}
	return &RedisRateLimiter{
		client:      client,
		prefix:      prefix,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (securebridge.RateLimitDecision, error) {
	nowMs := r.now().UnixMilli()
	base := r.prefix + "rl:" + key
	res, err := slidingLogScript.Run(ctx, r.client, []string{base, base + ":seq"}, r.maxAttempts, r.window.Milliseconds(), nowMs).Result()
	if err != nil {
		return securebridge.RateLimitDecision{}, err
	}

	items, ok := res.([]interface{})
	if !ok || len(items) < 3 {
		return securebridge.RateLimitDecision{}, errUnexpectedReply
	}
	decision := securebridge.RateLimitDecision{
		Allowed:   toInt64(items[0]) == 1,
		Remaining: int(toInt64(items[1])),
	}
	if !decision.Allowed {
		decision.RetryAfter = time.Duration(toInt64(items[2])) * time.Millisecond
	}
	return decision, nil
}

func toInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}

// Entries at or before now-window are dropped, matching the in-process limiter.
var slidingLogScript = redis.NewScript(`
local key = KEYS[1]
local seq_key = KEYS[2]
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])

local cutoff = now_ms - window_ms
redis.call("ZREMRANGEBYSCORE", key, "-inf", cutoff)
local count = redis.call("ZCARD", key)

local allowed = 0
if count < limit then
	allowed = 1
	local seq = redis.call("INCR", seq_key)
	redis.call("ZADD", key, now_ms, now_ms .. ":" .. seq)
	count = count + 1
end

redis.call("PEXPIRE", key, window_ms + 1000)
redis.call("PEXPIRE", seq_key, window_ms + 1000)

local retry_after = 0
if allowed == 0 then
	local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
	if oldest[2] ~= nil then
		retry_after = tonumber(oldest[2]) + window_ms - now_ms
	end
end

return {allowed, limit - count, retry_after}
`)
