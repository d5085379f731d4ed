package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v3"
)

type window struct {
	start time.Time
	count int
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	windows *xsync.MapOf[string, window]
	limit   int
	period  time.Duration
	now     func() time.Time
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: xsync.NewMapOf[string, window](),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow records one request for key. When denied it returns how long until
// the window resets.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := r.now()
	w, _ := r.windows.Compute(key, func(old window, loaded bool) (window, bool) {
		if !loaded || now.Sub(old.start) >= r.period {
			return window{start: now, count: 1}, false
		}
		old.count++
		return old, false
	})
	if w.count > r.limit {
		return false, w.start.Add(r.period).Sub(now)
	}
	return true, 0
}

// Sweep drops windows that have expired.
func (r *RateLimiter) Sweep() {
	now := r.now()
	r.windows.Range(func(key string, w window) bool {
		if now.Sub(w.start) >= r.period {
			r.windows.Delete(key)
		}
		return true
	})
}

// RateLimit limits by authenticated user when known, else by client IP.
// limit <= 0 disables it.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limiter.limit <= 0 {
			c.Next()
			return
		}
		key := c.ClientIP()
		if id := GetUserID(c); id != 0 {
			key = "u:" + strconv.FormatUint(uint64(id), 10)
		}
		ok, wait := limiter.Allow(key)
		if !ok {
			secs := int(wait.Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"code":    "REQUEST_RATE_LIMITED",
				"details": gin.H{"retry_after_seconds": secs},
			})
			return
		}
		c.Next()
	}
}
