package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/bytedacia/guardian/internal/logging"
)

// BanExecutor issues ban and kick calls over the pooled fasthttp
// clients, bypassing the gateway library's REST path for lower latency
// during a mass-ban wave.
type BanExecutor struct {
	httpPool    *HTTPPool
	rateLimiter *RateLimitMonitor
	token       string
	baseURL     string
}

func NewBanExecutor(httpPool *HTTPPool, rateLimiter *RateLimitMonitor, token, baseURL string) *BanExecutor {
	if baseURL == "" {
		baseURL = "https://discord.com/api/v10"
	}
	return &BanExecutor{
		httpPool:    httpPool,
		rateLimiter: rateLimiter,
		token:       token,
		baseURL:     baseURL,
	}
}

func (be *BanExecutor) ExecuteBan(guildID, userID, reason string) error {
	if !be.rateLimiter.CanExecute("ban", guildID) {
		return fmt.Errorf("ban route rate limited for guild %s", guildID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := be.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacer wait: %w", err)
	}

	start := time.Now()

	payload, _ := json.Marshal(map[string]interface{}{
		"delete_message_seconds": 0,
	})

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/guilds/%s/bans/%s", be.baseURL, guildID, userID))
	req.Header.SetMethod(fasthttp.MethodPut)
	req.Header.Set("Authorization", "Bot "+be.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Audit-Log-Reason", reason)
	req.SetBody(payload)

	client := be.httpPool.GetClient()
	if err := client.DoTimeout(req, resp, 2*time.Second); err != nil {
		return fmt.Errorf("ban request: %w", err)
	}

	be.rateLimiter.UpdateFromResponse(resp, "ban", guildID)

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		logging.Info("Ban executed: user %s in guild %s (%d ms, status %d)",
			userID, guildID, time.Since(start).Milliseconds(), status)
		return nil
	}
	return fmt.Errorf("ban failed with status %d", status)
}

func (be *BanExecutor) ExecuteKick(guildID, userID, reason string) error {
	if !be.rateLimiter.CanExecute("kick", guildID) {
		return fmt.Errorf("kick route rate limited for guild %s", guildID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := be.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacer wait: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/guilds/%s/members/%s", be.baseURL, guildID, userID))
	req.Header.SetMethod(fasthttp.MethodDelete)
	req.Header.Set("Authorization", "Bot "+be.token)
	req.Header.Set("X-Audit-Log-Reason", reason)

	client := be.httpPool.GetClient()
	if err := client.DoTimeout(req, resp, 2*time.Second); err != nil {
		return fmt.Errorf("kick request: %w", err)
	}

	be.rateLimiter.UpdateFromResponse(resp, "kick", guildID)

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}
	return fmt.Errorf("kick failed with status %d", status)
}
