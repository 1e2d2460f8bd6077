package server

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter keeps one token bucket per client address. Buckets that have
// refilled completely are dropped, since a fresh one behaves the same.
type clientLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*rate.Limiter
	calls    int
}

const clientSweepEvery = 256

// newClientLimiter returns nil, which admits everything, when rps is not
// positive.
func newClientLimiter(rps float64, burst int) *clientLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*rate.Limiter),
	}
}

func (l *clientLimiter) Allow(client string) bool {
	return l.allowAt(client, time.Now())
}

func (l *clientLimiter) allowAt(client string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.visitors[client]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.visitors[client] = limiter
	}
	allowed := limiter.AllowN(now, 1)
	l.sweepLocked(now)
	return allowed
}

func (l *clientLimiter) sweepLocked(now time.Time) {
	l.calls++
	if l.calls%clientSweepEvery != 0 {
		return
	}
	for client, limiter := range l.visitors {
		if limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.visitors, client)
		}
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" && !s.limiter.Allow(clientKey(r)) {
			err := apiError{
				status:  http.StatusTooManyRequests,
				code:    "resource_exhausted",
				errCode: ErrCodeResourceExhausted,
				err:     fmt.Errorf("rate limit exceeded"),
			}
			s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
