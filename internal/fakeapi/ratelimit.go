package fakeapi

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ticketbooth/internal/config"
)

// bucketScript refills the bucket at KEYS[1] and takes one token.
// ARGV: now (ms), capacity, tokens per refill, refill interval (ms), ttl (s).
// The reply is {allowed, left, wait_ms}.
var bucketScript = redis.NewScript(`
local now, cap, per, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local b = redis.call('HMGET', KEYS[1], 'left', 'at')
local left, at = tonumber(b[1]) or cap, tonumber(b[2]) or now
local n = math.floor(math.max(0, now - at) / every)
if n > 0 then
  left = math.min(cap, left + n * per)
  at = at + n * every
end
local ok, wait = 0, 0
if left >= 1 then
  ok, left = 1, left - 1
else
  wait = math.max(0, every - (now - at))
end
redis.call('HSET', KEYS[1], 'left', left, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, left, wait}
`)

// TokenBucket limits requests per user and route with a Redis-backed
// token bucket.  It must run after jwtAuth.  Redis errors let the request
// through.
func TokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, _ := c.Get(userIDKey).(int64)
			key := fmt.Sprintf("%s:%d:%s %s", cfg.Prefix, uid, c.Request().Method, c.Path())
			vals, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(vals) != 3 {
				c.Logger().Warnf("booking limiter skipped for %s: %v", key, err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))
			if vals[0] == 0 {
				wait := time.Duration(vals[2]) * time.Millisecond
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				return c.JSON(http.StatusTooManyRequests, errBody("TOO_MANY_REQUESTS", "Too many booking attempts, try again shortly"))
			}
			return next(c)
		}
	}
}
