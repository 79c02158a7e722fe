package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jpalmerr/idscout/internal/transport"
)

// Doer performs one HTTP exchange.
type Doer interface {
	Do(ctx context.Context, r transport.Request) transport.Response
}

// WebhookSink posts content to a chat webhook as {"content": "..."}.
type WebhookSink struct {
	url    string
	client Doer
}

// NewWebhookSink creates a [WebhookSink] posting to url.
func NewWebhookSink(url string, client Doer) *WebhookSink {
	return &WebhookSink{url: url, client: client}
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Send posts content once. Any transport failure or non-2xx status is an
// error.
func (s *WebhookSink) Send(ctx context.Context, content string) error {
	body, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	// the caller's context carries the attempt deadline
	timeout := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = max(1, time.Until(deadline))
	}

	resp := s.client.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		URL:     s.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
		Timeout: timeout,
	})
	if resp.Error != nil {
		return fmt.Errorf("posting webhook: %w", resp.Error)
	}
	if !resp.OK() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
