package dispatcher

import (
	"fmt"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
)

func TestCanExecuteUnknownRoute(t *testing.T) {
	rlm := NewRateLimitMonitor()
	if !rlm.CanExecute("ban", "g1") {
		t.Error("unknown route must pass")
	}
}

func TestBucketExhaustionBlocksUntilReset(t *testing.T) {
	rlm := NewRateLimitMonitor()

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)
	resp.Header.Set("X-RateLimit-Remaining", "0")
	resp.Header.Set("X-RateLimit-Limit", "5")
	resp.Header.Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))

	rlm.UpdateFromResponse(resp, "ban", "g1")

	bucket := rlm.GetBucket("ban", "g1")
	if bucket == nil || bucket.Remaining != 0 || bucket.Limit != 5 {
		t.Fatalf("bucket = %+v, want remaining 0 of 5", bucket)
	}
	if rlm.GetBucket("ban", "g2") != nil {
		t.Error("no bucket should exist for an untouched guild")
	}
	if rlm.CanExecute("ban", "g1") {
		t.Error("exhausted bucket must block")
	}
	if !rlm.CanExecute("ban", "g2") {
		t.Error("other guilds are unaffected")
	}
	if !rlm.CanExecute("kick", "g1") {
		t.Error("other routes are unaffected")
	}
}

func TestExpiredBucketPasses(t *testing.T) {
	rlm := NewRateLimitMonitor()

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)
	resp.Header.Set("X-RateLimit-Remaining", "0")
	resp.Header.Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(-time.Minute).Unix()))

	rlm.UpdateFromResponse(resp, "ban", "g1")

	if !rlm.CanExecute("ban", "g1") {
		t.Error("bucket past its reset must pass")
	}
}

func TestHTTPPoolRoundRobin(t *testing.T) {
	pool := NewHTTPPool(3)

	seen := make(map[*fasthttp.Client]bool)
	for i := 0; i < 6; i++ {
		seen[pool.GetClient()] = true
	}
	if len(seen) != 3 {
		t.Errorf("round robin touched %d clients, want 3", len(seen))
	}
}
