package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPNotifier posts messages to an external notification gateway with a
// short timeout. Callers are expected to log and swallow its errors.
type HTTPNotifier struct {
	url    string
	client *http.Client
}

// NewHTTPNotifier builds an HTTP notifier.
func NewHTTPNotifier(url string, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPNotifier{url: url, client: &http.Client{Timeout: timeout}}
}

type notifyRequest struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Body        string `json:"body"`
}

// Send posts the message; a non-2xx response is an error.
func (n *HTTPNotifier) Send(ctx context.Context, message Message) error {
	payload, err := json.Marshal(notifyRequest{Kind: message.Kind, Destination: message.Destination, Body: message.Body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notifier call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notifier returned status %d", resp.StatusCode)
	}
	return nil
}
