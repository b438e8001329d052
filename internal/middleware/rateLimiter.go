package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/metrics"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
	"golang.org/x/time/rate"
)

var limiterLog = logger_i.NewLogger("RateLimiter")

var limiterInstance = NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client ip; idle buckets are dropped by Prune
type IPRateLimiter struct {
	visitors  map[string]*visitor
	mu        sync.Mutex
	rateLimit rate.Limit
	burstRate int
	now       func() time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{visitors: make(map[string]*visitor), rateLimit: r, burstRate: b, now: time.Now}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, exists := i.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.visitors[ip] = v
	}
	v.lastSeen = i.now()
	return v.limiter
}

// Prune forgets ips not seen for idleFor and returns how many went
func (i *IPRateLimiter) Prune(idleFor time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	cutoff := i.now().Add(-idleFor)
	removed := 0
	for ip, v := range i.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(i.visitors, ip)
			removed++
		}
	}
	return removed
}

func (i *IPRateLimiter) Size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.visitors)
}

// StartLimiterJanitor prunes the shared limiter every interval until ctx is done
func StartLimiterJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := limiterInstance.Prune(config.RateLimiterIdleTTL); removed > 0 {
					limiterLog.Debug("Pruned idle rate limiters", "removed", removed)
				}
				metrics.SetRateLimitedClients(limiterInstance.Size())
			case <-ctx.Done():
				return
			}
		}
	}()
}

//TODO: keep buckets in redis so limits hold across replicas
