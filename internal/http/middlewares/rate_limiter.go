package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed window per derived key. When a Redis client is
// provided the counters live there so the limit holds across replicas;
// otherwise an in-process map is used.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	rdb     *redis.Client
	clients map[string]*clientBucket
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limit int, window time.Duration, rdb *redis.Client) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		rdb:     rdb,
		clients: make(map[string]*clientBucket),
	}
}

// RateLimiterMiddleware returns a gin.HandlerFunc that enforces the limit for
// a derived key.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		var (
			allowed    bool
			retryAfter int
		)

		if rl.rdb != nil {
			allowed, retryAfter = rl.allowRedis(c, key)
		} else {
			allowed, retryAfter = rl.allowLocal(key)
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests. Please try again shortly.",
				},
			})
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allowLocal(key string) (bool, int) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[key]

	if !ok || now.After(b.windowEnd) {
		rl.clients[key] = &clientBucket{
			count:     1,
			windowEnd: now.Add(rl.window),
		}
		return true, 0
	}

	if b.count >= rl.limit {
		retryAfter := int(time.Until(b.windowEnd).Seconds())

		if retryAfter < 0 {
			retryAfter = 0
		}

		return false, retryAfter
	}

	b.count++
	return true, 0
}

func (rl *RateLimiter) allowRedis(c *gin.Context, key string) (bool, int) {
	ctx := c.Request.Context()

	count, err := rl.rdb.Incr(ctx, "ratelimit:"+key).Result()

	if err != nil {
		// Redis being down should not lock everyone out
		return rl.allowLocal(key)
	}

	if count == 1 {
		rl.rdb.Expire(ctx, "ratelimit:"+key, rl.window)
	}

	if count > int64(rl.limit) {
		ttl, err := rl.rdb.TTL(ctx, "ratelimit:"+key).Result()

		retryAfter := int(rl.window.Seconds())

		if err == nil && ttl > 0 {
			retryAfter = int(ttl.Seconds())
		}

		return false, retryAfter
	}

	return true, 0
}

// KeyByIP rate limits unauthenticated endpoints by client IP.
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	// Normalize an ip:port form if one slips through
	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
