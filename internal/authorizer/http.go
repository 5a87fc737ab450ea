package authorizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClient calls a remote authorization service over HTTP with a bounded
// per-call timeout. Any transport failure, timeout, non-2xx status or
// malformed body surfaces as an error so the worker treats it as a denial.
type HTTPClient struct {
	url    string
	client *http.Client
}

// NewHTTPClient builds an HTTP authorizer client.
func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{url: url, client: &http.Client{Timeout: timeout}}
}

type authorizeRequest struct {
	TransferID string `json:"transfer_id"`
	PayerID    string `json:"payer_id"`
	PayeeID    string `json:"payee_id"`
	Amount     int64  `json:"amount"`
}

type authorizeResponse struct {
	Authorized bool   `json:"authorized"`
	Reference  string `json:"reference"`
}

// Authorize submits the transfer facts and decodes the decision.
func (c *HTTPClient) Authorize(ctx context.Context, req Request) (Decision, error) {
	payload, err := json.Marshal(authorizeRequest{
		TransferID: req.TransferID.String(),
		PayerID:    req.PayerID.String(),
		PayeeID:    req.PayeeID.String(),
		Amount:     req.Amount,
	})
	if err != nil {
		return Decision{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Decision{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Decision{}, fmt.Errorf("authorizer call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Decision{}, fmt.Errorf("authorizer returned status %d", resp.StatusCode)
	}

	var body authorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Decision{}, fmt.Errorf("decode authorizer response: %w", err)
	}

	return Decision{Authorized: body.Authorized, Reference: body.Reference}, nil
}
