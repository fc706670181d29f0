package api

import (
	"net"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// maxLimiters bounds the number of tracked keys before the table is reset.
const maxLimiters = 10000

// rateLimiter is a per-key token bucket.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	log      *logrus.Entry
}

func newRateLimiter(r rate.Limit, burst int, log *logrus.Entry) *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
		log:      log,
	}
}

func (rl *rateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.limiters) >= maxLimiters {
		rl.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

// allow reports whether key may proceed now.
func (rl *rateLimiter) allow(key string) bool {
	if rl.rate == rate.Inf {
		return true
	}
	return rl.limiter(key).Allow()
}

// middleware limits by remote address. Penalty requests are additionally
// limited per caller in the handler once the body is decoded.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !rl.allow("addr:" + host) {
			rl.log.WithFields(logrus.Fields{
				"remote": r.RemoteAddr,
				"path":   r.URL.Path,
			}).Warn("rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			_ = writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: kindRateLimited, Retryable: true})
			return
		}
		next.ServeHTTP(w, r)
	})
}
