package dispatcher

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

type RateLimitBucket struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RateLimitMonitor tracks per-route rate-limit buckets from Discord's
// response headers and paces outgoing calls with a global limiter so a
// mass-ban burst never trips the API-wide ceiling.
type RateLimitMonitor struct {
	mu      sync.RWMutex
	buckets map[string]*RateLimitBucket
	pacer   *rate.Limiter
}

func NewRateLimitMonitor() *RateLimitMonitor {
	return &RateLimitMonitor{
		buckets: make(map[string]*RateLimitBucket),
		// 50 requests/second is Discord's global REST ceiling.
		pacer: rate.NewLimiter(rate.Limit(50), 50),
	}
}

// CanExecute reports whether the tracked bucket for a route has quota.
// Unknown routes always pass; the first response fills the bucket.
func (rlm *RateLimitMonitor) CanExecute(route, guildID string) bool {
	key := route + ":" + guildID

	rlm.mu.RLock()
	bucket, exists := rlm.buckets[key]
	rlm.mu.RUnlock()

	if !exists {
		return true
	}
	if time.Now().After(bucket.ResetAt) {
		return true
	}
	return bucket.Remaining > 0
}

// Wait blocks until the global pacer grants a slot or the context ends.
func (rlm *RateLimitMonitor) Wait(ctx context.Context) error {
	return rlm.pacer.Wait(ctx)
}

// UpdateFromResponse refreshes a route bucket from Discord's
// X-RateLimit headers.
func (rlm *RateLimitMonitor) UpdateFromResponse(resp *fasthttp.Response, route, guildID string) {
	key := route + ":" + guildID

	bucket := &RateLimitBucket{}
	if remaining := string(resp.Header.Peek("X-RateLimit-Remaining")); remaining != "" {
		bucket.Remaining, _ = strconv.Atoi(remaining)
	}
	if limit := string(resp.Header.Peek("X-RateLimit-Limit")); limit != "" {
		bucket.Limit, _ = strconv.Atoi(limit)
	}
	if reset := string(resp.Header.Peek("X-RateLimit-Reset")); reset != "" {
		resetUnix, _ := strconv.ParseFloat(reset, 64)
		bucket.ResetAt = time.Unix(int64(resetUnix), 0)
	}

	rlm.mu.Lock()
	rlm.buckets[key] = bucket
	rlm.mu.Unlock()
}

func (rlm *RateLimitMonitor) GetBucket(route, guildID string) *RateLimitBucket {
	rlm.mu.RLock()
	defer rlm.mu.RUnlock()
	return rlm.buckets[route+":"+guildID]
}
