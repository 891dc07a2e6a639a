package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/devloops/devloops/config"
	"github.com/devloops/devloops/utils"
)

// An IP that has been quiet this long gets its bucket dropped.
const limiterIdleTTL = 5 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	limiters   = map[string]*clientLimiter{}
	limitersMu sync.Mutex
)

// RateLimitMiddleware throttles write traffic per client IP with a token
// bucket refilled at the configured per-minute rate. The burst stays small:
// this guards login and the mutation routes, where a legitimate client
// sends a handful of requests, not a stream.
func RateLimitMiddleware() gin.HandlerFunc {
	perMinute := max(config.Get().RateLimitPerMinute, 1)
	refill := rate.Every(time.Minute / time.Duration(perMinute))
	burst := max(perMinute/6, 3)

	return func(ctx *gin.Context) {
		if !limiterFor(ctx.ClientIP(), refill, burst).Allow() {
			ctx.Header("Retry-After", "60")
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// limiterFor returns the bucket for key, creating it on first sight and
// evicting buckets idle past limiterIdleTTL.
func limiterFor(key string, refill rate.Limit, burst int) *rate.Limiter {
	limitersMu.Lock()
	defer limitersMu.Unlock()

	now := time.Now()
	for k, cl := range limiters {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(limiters, k)
		}
	}

	cl, ok := limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(refill, burst)}
		limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}
