package notification

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

// maxErrorBodySize limits error response body reading
const maxErrorBodySize = 1024

// WebhookProvider POSTs notifications as JSON to an HTTP endpoint.
type WebhookProvider struct {
	name    string
	enabled bool
	url     string
	client  *http.Client
}

// webhookPayload is the JSON body sent to the endpoint.
type webhookPayload struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Priority  string         `json:"priority"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewWebhookProvider creates a webhook provider. A nil client gets a
// default one with the push timeout.
func NewWebhookProvider(name string, enabled bool, endpoint string, client *http.Client) *WebhookProvider {
	if name == "" {
		name = "webhook"
	}
	if client == nil {
		client = &http.Client{Timeout: defaultPushTimeout}
	}
	return &WebhookProvider{
		name:    name,
		enabled: enabled,
		url:     endpoint,
		client:  client,
	}
}

func (w *WebhookProvider) GetName() string          { return w.name }
func (w *WebhookProvider) IsEnabled() bool          { return w.enabled }
func (w *WebhookProvider) SupportsType(t Type) bool { return true }

func (w *WebhookProvider) ValidateConfig() error {
	if !w.enabled {
		return nil
	}
	parsed, err := url.Parse(w.url)
	if err != nil {
		return fmt.Errorf("webhook provider %q: invalid url: %w", w.name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("webhook provider %q: url must be http or https", w.name)
	}
	return nil
}

func (w *WebhookProvider) Send(ctx context.Context, n *Notification) error {
	body, err := json.Marshal(webhookPayload{
		ID:        n.ID,
		Type:      string(n.Type),
		Priority:  string(n.Priority),
		Title:     n.Title,
		Message:   n.Message,
		Component: n.Component,
		Timestamp: n.Timestamp,
		Metadata:  n.Metadata,
	})
	if err != nil {
		return fmt.Errorf("webhook provider %q: marshal: %w", w.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook provider %q: %w", w.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook provider %q: %w", w.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("webhook provider %q: status %d: %s", w.name, resp.StatusCode, snippet)
	}
	return nil
}
