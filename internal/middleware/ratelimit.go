package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/festplanner/internal/config"
	"github.com/iliyamo/festplanner/internal/metrics"
)

// tokenBucketScript keeps {tokens, refilled_at} per key.  Whole refill
// intervals since refilled_at are credited before one token is taken.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local now, cap, step, every, ttl =
  tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local at = tonumber(redis.call('HGET', KEYS[1], 'refilled_at'))
if not tokens or not at then
  tokens, at = cap, now
end
if every > 0 and step > 0 and now > at then
  local n = math.floor((now - at) / every)
  if n > 0 then
    tokens = math.min(cap, tokens + n * step)
    at = at + n * every
  end
end
local ok, wait = 0, 0
if tokens >= 1 then
  ok, tokens = 1, tokens - 1
else
  wait = math.max(0, every - (now - at))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'refilled_at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, tokens, wait}
`)

var clock = time.Now

// maxPeekBytes bounds how much of a request body the email key strategy
// reads.
const maxPeekBytes = 8 << 10

type bucketState struct {
	allowed    bool
	remaining  int64
	retryAfter time.Duration
}

// take spends one token from key's bucket.
func take(ctx context.Context, rdb *redis.Client, key string, cfg config.RateLimitConfig) (bucketState, error) {
	vals, err := tokenBucketScript.Run(ctx, rdb, []string{key}, limiterArgs(cfg, clock())...).Result()
	if err != nil {
		return bucketState{}, err
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return bucketState{}, fmt.Errorf("unexpected script result %#v", vals)
	}
	return bucketState{
		allowed:    fmt.Sprint(arr[0]) == "1",
		remaining:  asInt64(arr[1]),
		retryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests per key with a Redis token bucket.  Redis
// errors let the request through.  A disabled config or nil client yields
// a pass-through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			st, err := take(c.Request().Context(), rdb, key, cfg)
			if err != nil {
				if cfg.Debug {
					c.Logger().Warnf("[ratelimit] key=%s: %v", key, err)
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(st.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if st.allowed {
				return next(c)
			}

			secs := int(math.Ceil(st.retryAfter.Seconds()))
			if secs < 0 {
				secs = 0
			}
			metrics.TrackThrottled(c.Path())
			h.Set("Retry-After", strconv.Itoa(secs))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

func limiterArgs(cfg config.RateLimitConfig, now time.Time) []interface{} {
	return []interface{}{
		now.UnixMilli(),
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		int64(cfg.TTL / time.Second),
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// bodyEmail returns the lower-cased "email" field of a JSON body and puts
// the body back for the handler.  It returns "" when there is none.
func bodyEmail(c echo.Context) string {
	req := c.Request()
	if req.Body == nil || !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(req.Body, maxPeekBytes))
	rest := req.Body
	req.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(data), rest), rest}
	if err != nil {
		return ""
	}
	var v struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(data, &v) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(v.Email))
}

// buildRateKey joins the prefix with the parts named by the key strategy.
// Strategies are "ip", "user", "email" and "route" or an underscore-joined
// combination such as "ip_route"; anything else keys on ip, user and
// route.  "email" falls back to the client IP when the body carries no
// address.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := strings.Split(strings.ToLower(cfg.KeyStrategy), "_")
	known := len(parts) > 0
	for _, p := range parts {
		switch p {
		case "ip", "user", "email", "route":
		default:
			known = false
		}
	}
	if !known {
		parts = []string{"ip", "user", "route"}
	}

	out := []string{cfg.Prefix}
	for _, p := range parts {
		switch p {
		case "ip":
			out = append(out, "ip", clientIP(c))
		case "user":
			out = append(out, "user", identity(c))
		case "email":
			if email := bodyEmail(c); email != "" {
				out = append(out, "email", email)
			} else {
				out = append(out, "ip", clientIP(c))
			}
		case "route":
			out = append(out, "route", c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(out, ":")
}

func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}
