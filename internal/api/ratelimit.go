package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures per-client request throttling.
type RateLimitConfig struct {
	RequestsPerMinute int
	BanDuration       time.Duration
	CleanupInterval   time.Duration
}

// DefaultRateLimitConfig returns sane defaults for a small internal API.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 120,
		BanDuration:       5 * time.Minute,
		CleanupInterval:   time.Minute,
	}
}

type clientState struct {
	windowStart time.Time
	count       int
	bannedUntil time.Time
}

// RateLimiter tracks per-client-IP request rates and rejects clients that
// exceed RequestsPerMinute with a temporary ban.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientState
	cfg     RateLimitConfig
	done    chan struct{}
}

// NewRateLimiter starts a RateLimiter with a background cleanup loop.
// Call Shutdown to stop it.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg = DefaultRateLimitConfig()
	}
	rl := &RateLimiter{
		clients: make(map[string]*clientState),
		cfg:     cfg,
		done:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Shutdown stops the background cleanup goroutine.
func (rl *RateLimiter) Shutdown() { close(rl.done) }

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, st := range rl.clients {
				if now.Sub(st.windowStart) > 2*time.Minute && now.After(st.bannedUntil) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow reports whether ip may proceed, advancing its request count.
func (rl *RateLimiter) Allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	st, ok := rl.clients[ip]
	if !ok {
		st = &clientState{windowStart: now}
		rl.clients[ip] = st
	}
	if now.Before(st.bannedUntil) {
		return false
	}
	if now.Sub(st.windowStart) >= time.Minute {
		st.windowStart = now
		st.count = 0
	}
	st.count++
	if st.count > rl.cfg.RequestsPerMinute {
		st.bannedUntil = now.Add(rl.cfg.BanDuration)
		return false
	}
	return true
}

// Middleware wraps next, rejecting throttled clients with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r), time.Now()) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the caller's address, preferring a proxy header over
// the raw connection when present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
