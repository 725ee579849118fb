package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/newsboard/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// ipLimiters keeps one token bucket per client IP, dropping idle ones.
type ipLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rateLimiter
	limit    rate.Limit
	burst    int
}

// RateLimit applies a per-IP token bucket of perMinute requests with a burst of half that.
func RateLimit(perMinute int) gin.HandlerFunc {
	perMinute = max(perMinute, 1)
	l := &ipLimiters{
		limiters: map[string]*rateLimiter{},
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/2, 1),
	}
	return func(ctx *gin.Context) {
		if !l.allow(ctx.ClientIP()) {
			utils.Error(ctx, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		ctx.Next()
	}
}

func (l *ipLimiters) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for k, v := range l.limiters {
		if now.After(v.expires) {
			delete(l.limiters, k)
		}
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &rateLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.expires = now.Add(5 * time.Minute)
	return entry.limiter.Allow()
}
