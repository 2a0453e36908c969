package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookChannel posts a JSON document to an incoming-webhook URL. The payload
// shape is what distinguishes Discord, Slack and plain JSON receivers.
type WebhookChannel struct {
	name    string
	url     string
	headers map[string]string
	payload func(title, body string) any
	client  *http.Client
}

func NewDiscordChannel(webhookURL, proxyURL string) *WebhookChannel {
	return &WebhookChannel{
		name: "discord",
		url:  webhookURL,
		payload: func(title, body string) any {
			return map[string]string{"content": "**" + title + "**\n" + body}
		},
		client: newHTTPClient(proxyURL),
	}
}

func NewSlackChannel(webhookURL, proxyURL string) *WebhookChannel {
	return &WebhookChannel{
		name: "slack",
		url:  webhookURL,
		payload: func(title, body string) any {
			return map[string]string{"text": chatText(title, body)}
		},
		client: newHTTPClient(proxyURL),
	}
}

// NewJSONWebhookChannel posts {"title","message","timestamp"} with optional extra headers.
func NewJSONWebhookChannel(webhookURL string, headers map[string]string, proxyURL string) *WebhookChannel {
	return &WebhookChannel{
		name:    "webhook",
		url:     webhookURL,
		headers: headers,
		payload: func(title, body string) any {
			return map[string]any{
				"title":     title,
				"message":   body,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}
		},
		client: newHTTPClient(proxyURL),
	}
}

func (w *WebhookChannel) Name() string { return w.name }

func (w *WebhookChannel) Send(ctx context.Context, title, body string) error {
	data, err := json.Marshal(w.payload(title, body))
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", w.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build %s request: %w", w.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s webhook: %w", w.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s webhook: status %d, body: %s", w.name, resp.StatusCode, string(respBody))
	}
	return nil
}
