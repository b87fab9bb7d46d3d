// internal/middleware/rate_limit.go
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/i18n"
	"github.com/javajoker/distro-backend/internal/utils"
)

const (
	visitorIdleTTL  = 3 * time.Minute
	cleanupInterval = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	visitors map[string]*visitor
	mtx      sync.Mutex
	rate     rate.Limit
	burst    int
	done     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
		done:     make(chan struct{}),
	}
	go rl.cleanupVisitors()
	return rl
}

// Stop ends the idle-visitor sweep.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mtx.Lock()
			for ip, v := range rl.visitors {
				if now.Sub(v.lastSeen) > visitorIdleTTL {
					delete(rl.visitors, ip)
				}
			}
			rl.mtx.Unlock()
		}
	}
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// retryAfter is the wait, in whole seconds, for the next token.
func (rl *RateLimiter) retryAfter() int {
	if rl.rate <= 0 || rl.rate == rate.Inf {
		return 1
	}
	return int(math.Ceil(1/float64(rl.rate) - 1e-9))
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getVisitor(c.ClientIP()).Allow() {
			c.Header("Retry-After", strconv.Itoa(rl.retryAfter()))
			utils.ErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED",
				i18n.T(utils.GetLangFromContext(c), i18n.KeyRateLimited), nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

// Limits groups the limiters mounted by the router.
type Limits struct {
	General *RateLimiter
	Login   *RateLimiter
	Upload  *RateLimiter
}

func perMinute(n int) rate.Limit {
	return rate.Every(time.Minute / time.Duration(n))
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// NewLimits builds the general, login and receipt upload limiters. Login and upload
// buckets hold one minute's allowance.
func NewLimits(cfg config.RateLimitConfig) *Limits {
	perSecond := positiveOr(cfg.GeneralPerSecond, 10)
	login := positiveOr(cfg.LoginPerMinute, 5)
	upload := positiveOr(cfg.UploadPerMinute, 10)

	return &Limits{
		General: NewRateLimiter(rate.Limit(perSecond), positiveOr(cfg.GeneralBurst, 2*perSecond)),
		Login:   NewRateLimiter(perMinute(login), login),
		Upload:  NewRateLimiter(perMinute(upload), upload),
	}
}

func (l *Limits) Stop() {
	l.General.Stop()
	l.Login.Stop()
	l.Upload.Stop()
}
