package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// EventRunReport is the event name carried by every webhook payload.
const EventRunReport = "feedbot.run_report"

// WebhookConfig holds webhook configuration.
type WebhookConfig struct {
	URL     string            `yaml:"url" env:"FEEDBOT_WEBHOOK_URL"`
	Headers map[string]string `yaml:"headers"`
	Timeout time.Duration     `yaml:"timeout"`
}

// WebhookPayload is the JSON document posted for a message. Fields are sent
// as one object so receivers can read counts without parsing the text.
type WebhookPayload struct {
	Event  string            `json:"event"`
	Title  string            `json:"title"`
	Text   string            `json:"text"`
	Format string            `json:"format,omitempty"`
	Fields map[string]string `json:"fields"`
	SentAt time.Time         `json:"sent_at"`
}

// WebhookNotifier posts run reports as JSON to a URL.
type WebhookNotifier struct {
	target  string
	headers map[string]string
	http    *http.Client
	now     func() time.Time
}

// NewWebhookNotifier validates cfg and creates a webhook notifier.
func NewWebhookNotifier(cfg WebhookConfig) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("webhook url %q must be an absolute http(s) URL", cfg.URL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		target:  cfg.URL,
		headers: cfg.Headers,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}, nil
}

func (w *WebhookNotifier) Channel() Channel { return ChannelWebhook }

// Send posts msg as a WebhookPayload. Any non-2xx answer is an error.
func (w *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	fields := msg.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	body, err := json.Marshal(WebhookPayload{
		Event:  EventRunReport,
		Title:  msg.Title,
		Text:   msg.Body,
		Format: msg.Format,
		Fields: fields,
		SentAt: w.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("post run report: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s returned status %d", w.target, resp.StatusCode)
	}
	return nil
}
