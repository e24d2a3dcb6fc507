package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Discord posts events to a webhook URL. Discord rate-limits webhooks
// aggressively, so sends go through a local limiter and over-limit events
// are dropped rather than queued.
type Discord struct {
	webhookURL string
	http       *http.Client
	limiter    *rate.Limiter
}

type DiscordConfig struct {
	WebhookURL string
	RatePerSec int
	Timeout    time.Duration
}

func NewDiscord(cfg DiscordConfig) (*Discord, error) {
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		return nil, errors.New("discord webhook url is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	rps := cfg.RatePerSec
	if rps < 1 {
		rps = 1
	}
	return &Discord{
		webhookURL: cfg.WebhookURL,
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Notify(ctx context.Context, ev Event) error {
	if !d.limiter.Allow() {
		return errors.New("discord rate limit exceeded; event dropped")
	}

	payload := struct {
		Content string `json:"content"`
	}{Content: ev.Text}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned %s", resp.Status)
	}
	return nil
}
