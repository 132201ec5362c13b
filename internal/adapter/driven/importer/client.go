// Package importer implements the ImportClient port against the downstream
// transaction import service.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mfell/hornbill/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ImportClient = (*Client)(nil)

// Client implements the driven.ImportClient port. Failures are surfaced
// verbatim: a connection failure becomes an UnreachableError, a non-2xx
// response becomes a StatusError carrying the downstream status and body.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an import service client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client,
// intended for testing.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// importRequest is the JSON body posted to the import service.
type importRequest struct {
	AccountID    string            `json:"account_id"`
	Transactions []json.RawMessage `json:"transactions"`
}

// Import forwards a batch of transactions for the downstream account and
// returns the service's raw response body.
func (c *Client) Import(ctx context.Context, downstreamAccountID string, transactions []json.RawMessage) (json.RawMessage, error) {
	if transactions == nil {
		transactions = []json.RawMessage{}
	}

	payload, err := json.Marshal(importRequest{
		AccountID:    downstreamAccountID,
		Transactions: transactions,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal import request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/import", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create import request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnreachableError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read import response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	return json.RawMessage(body), nil
}
