package webhandler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterStaleAfter = 10 * time.Minute

type clientLimiter struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

type limiterPool struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     int
	burst   int
}

func (p *limiterPool) get(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.clients[ip]
	if !ok {
		l = &clientLimiter{bucket: rate.NewLimiter(rate.Limit(p.rps), p.burst)}
		p.clients[ip] = l
	}
	l.lastSeen = time.Now()
	return l.bucket
}

func (p *limiterPool) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		p.mu.Lock()
		for ip, l := range p.clients {
			if time.Since(l.lastSeen) > limiterStaleAfter {
				delete(p.clients, ip)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimiter returns a Gin middleware that enforces per-IP token-bucket
// rate limiting. rps is the steady-state requests per second; burst is the
// maximum burst size. Idle client entries are swept periodically.
func RateLimiter(rps, burst int) gin.HandlerFunc {
	pool := &limiterPool{
		clients: make(map[string]*clientLimiter),
		rps:     rps,
		burst:   burst,
	}
	go pool.sweep()

	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
