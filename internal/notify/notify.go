// Package notify fans push notifications out to every registered family
// device through an external provider endpoint. Delivery is fire-and-forget:
// failures are logged, never retried, and never shown to the sender.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yangfam/familyhub/internal/family"
	"github.com/yangfam/familyhub/internal/rtdb"
)

type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// payload is the provider's wire format: device tokens plus the
// notification and free-form data fields.
type payload struct {
	Tokens       []string          `json:"tokens"`
	Notification Notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type Client struct {
	endpoint string
	store    rtdb.Store
	http     *http.Client
	logger   *slog.Logger
}

func New(endpoint string, store rtdb.Store, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		store:    store,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// Send runs SendToFamily in the background so a slow or failing provider
// never delays the caller. Failures are logged, not retried.
func (c *Client) Send(ctx context.Context, n Notification, data map[string]string) {
	go func() {
		if err := c.SendToFamily(ctx, n, data); err != nil {
			c.logger.Error("notification failed", "title", n.Title, "error", err)
		}
	}()
}

// SendToFamily pushes one notification to every user with a registered
// device token. A missing endpoint or an empty roster is a silent no-op.
func (c *Client) SendToFamily(ctx context.Context, n Notification, data map[string]string) error {
	if c.endpoint == "" {
		return nil
	}

	raw, _, err := c.store.Read(ctx, "users")
	if err != nil {
		return fmt.Errorf("reading family roster: %w", err)
	}
	var users map[string]family.User
	if raw != nil {
		if err := json.Unmarshal(raw, &users); err != nil {
			return fmt.Errorf("decoding family roster: %w", err)
		}
	}

	var tokens []string
	for _, u := range users {
		if u.FCMToken != "" {
			tokens = append(tokens, u.FCMToken)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	body, err := json.Marshal(payload{Tokens: tokens, Notification: n, Data: data})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification provider returned %s", resp.Status)
	}

	c.logger.Info("notification sent", "title", n.Title, "devices", len(tokens))
	return nil
}
