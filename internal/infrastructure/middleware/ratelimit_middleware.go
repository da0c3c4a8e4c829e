package middleware

import (
	"net/http"
	"sync"
	"time"

	"chat_fanout_server/internal/config"
	"chat_fanout_server/internal/metrics"
	"chat_fanout_server/pkg/constants"
	"chat_fanout_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按用户令牌桶限流，需放在 JWTAuth 之后
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[int64]*userLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

// NewRateLimiter 每个用户一个令牌桶，RPS<=0 时不限流
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters:  make(map[int64]*userLimiter),
		limit:     rate.Limit(cfg.RPS),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// Allow limit<=0 表示不限流
func (l *RateLimiter) Allow(userID int64) bool {
	if l.limit <= 0 {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for id, ul := range l.limiters {
			if now.Sub(ul.lastSeen) > limiterIdleTTL {
				delete(l.limiters, id)
			}
		}
		l.lastSweep = now
	}

	ul, ok := l.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = ul
	}
	ul.lastSeen = now
	return ul.limiter.AllowN(now, 1)
}

// Middleware 需挂在 JWTAuth 之后，按 user_id 计数
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get(constants.CTX_USER_ID)
		id, _ := userID.(int64)
		if !l.Allow(id) {
			metrics.RateLimitHits.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": errorx.ErrTooManyRequests.Code,
				"msg":  errorx.ErrTooManyRequests.Msg,
			})
			return
		}
		c.Next()
	}
}
