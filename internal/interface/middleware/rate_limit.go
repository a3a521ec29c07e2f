package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/oksasatya/go-adoptme/pkg/response"
)

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request.
type KeyFunc func(c *gin.Context) string

// KeyByIP limits by client IP only.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath limits by client IP and route pattern.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// KeyBySubject limits authenticated callers by user id and anonymous ones by IP.
func KeyBySubject() KeyFunc {
	return func(c *gin.Context) string {
		if s := Subject(c); s.ID != "" {
			return "rl:user:" + s.ID
		}
		return "rl:user:anon:ip:" + ipFromCtx(c)
	}
}

// Limiter counts hits for a key within a window.
type Limiter interface {
	// Hit records one request against a budget of max and returns the count
	// so far and the time until the window resets.
	Hit(ctx context.Context, key string, max int) (count int, reset time.Duration, err error)
}

// Lua script: atomic INCR + PEXPIRE when the key is new
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RedisLimiter is a fixed-window counter shared by every API instance.
type RedisLimiter struct {
	rdb    *redis.Client
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, window: window}
}

func (l *RedisLimiter) Hit(ctx context.Context, key string, _ int) (int, time.Duration, error) {
	res, err := incrExpireScript.Run(ctx, l.rdb, []string{key}, l.window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, redis.Nil
	}
	return toInt(res[0]), time.Duration(toInt(res[1])) * time.Millisecond, nil
}

// LocalLimiter is a per-process token bucket per key, used when Redis is not
// configured. max tokens refill evenly over the window.
type LocalLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	buckets map[string]*rate.Limiter
}

func NewLocalLimiter(window time.Duration) *LocalLimiter {
	return &LocalLimiter{window: window, buckets: map[string]*rate.Limiter{}}
}

func (l *LocalLimiter) Hit(_ context.Context, key string, max int) (int, time.Duration, error) {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Every(l.window/time.Duration(max)), max)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	now := time.Now()
	refill := l.window / time.Duration(max)
	if !b.AllowN(now, 1) {
		return max + 1, refill, nil
	}
	return max - int(b.TokensAt(now)), refill, nil
}

// RateLimit enforces max requests per key using limiter:
// - standard headers (limit/remaining/reset)
// - optional allowlist bypass
// - OPTIONS is never counted
// - limiter errors fail open
func RateLimit(limiter Limiter, max int, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if limiter == nil || max <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		count, reset, err := limiter.Hit(c.Request.Context(), keyFn(c), max)
		if err != nil {
			c.Next()
			return
		}
		resetSec := int((reset + time.Second - 1) / time.Second)
		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}

		// https://datatracker.ietf.org/doc/html/rfc6585#section-4
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > max {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Abort(c, http.StatusTooManyRequests, "rate limit exceeded", "RATE_LIMITED")
			return
		}
		c.Next()
	}
}

func toInt(v interface{}) int {
	switch x := v.(type) {
	case int64:
		return int(x)
	case int:
		return x
	case string:
		i, _ := strconv.Atoi(x)
		return i
	}
	return 0
}
