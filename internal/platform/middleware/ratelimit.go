// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/respond"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

// # Rate Limiting

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

/*
RateLimiter is a token bucket per caller.

Description: Callers presenting an API key share one bucket per key, wherever
they connect from. Everyone else is bucketed by IP.
*/
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu      sync.Mutex
	callers map[string]*limiterEntry
}

// NewRateLimiter returns a limiter allowing rps requests per second with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     constants.RateLimitClientTTL,
		callers: make(map[string]*limiterEntry),
	}
}

// Run evicts idle callers until the context is cancelled.
func (limiter *RateLimiter) Run(context context.Context) {
	ticker := time.NewTicker(constants.RateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			limiter.evict(time.Now())
		case <-context.Done():
			return
		}
	}
}

// Handler rejects callers whose bucket is empty with a 429.
func (limiter *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !limiter.allow(callerKey(request), time.Now()) {
			writer.Header().Set("Retry-After", "1")
			respond.Error(writer, request, apperr.RateLimited(1))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func (limiter *RateLimiter) allow(key string, now time.Time) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	entry, found := limiter.callers[key]
	if !found {
		entry = &limiterEntry{limiter: rate.NewLimiter(limiter.limit, limiter.burst)}
		limiter.callers[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (limiter *RateLimiter) evict(now time.Time) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	for key, entry := range limiter.callers {
		if now.Sub(entry.lastSeen) > limiter.ttl {
			delete(limiter.callers, key)
		}
	}
}

// callerKey never holds the raw API key.
func callerKey(request *http.Request) string {
	if key := strings.TrimSpace(request.Header.Get(constants.HeaderAPIKey)); key != "" {
		return "key:" + sec.HashToken(key)
	}
	return "ip:" + RealIP(request)
}
