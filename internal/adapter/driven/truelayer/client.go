// Package truelayer implements the BankClient port against the TrueLayer
// OAuth and data APIs.
package truelayer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/mfell/hornbill/internal/domain/port/driven"
)

const (
	defaultAuthURL = "https://auth.truelayer.com"
	defaultAPIURL  = "https://api.truelayer.com"

	// redirectURI is the fixed redirect registered with the provider for
	// the one-time authorization-code flow.
	redirectURI = "https://console.truelayer.com/redirect-page"
)

// Compile-time interface satisfaction check.
var _ driven.BankClient = (*Client)(nil)

// Client implements the driven.BankClient port over the TrueLayer REST API.
// Token requests go to the auth host; data requests go to the API host with
// bearer auth and an in-memory conditional-request cache.
type Client struct {
	httpClient   *http.Client
	authURL      string
	apiURL       string
	clientID     string
	clientSecret string
}

// NewClient creates a TrueLayer client with an httpcache memory transport
// and a 30-second timeout as a safety net alongside context cancellation.
func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   30 * time.Second,
		},
		authURL:      defaultAuthURL,
		apiURL:       defaultAPIURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// NewClientWithBaseURLs creates a Client talking to custom auth and API hosts.
// This constructor is intended for testing against httptest servers.
func NewClientWithBaseURLs(httpClient *http.Client, authURL, apiURL, clientID, clientSecret string) *Client {
	return &Client{
		httpClient:   httpClient,
		authURL:      strings.TrimSuffix(authURL, "/"),
		apiURL:       strings.TrimSuffix(apiURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// tokenResponse is the JSON body returned by the token endpoint for both
// grant types. Scope is optional: some grants omit it on refresh.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ExchangeCode swaps a one-time authorization code for a token pair. The code
// is single-use, so a failed exchange is never retried here.
func (c *Client) ExchangeCode(ctx context.Context, code string) (driven.TokenGrant, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
	}
	return c.requestToken(ctx, "exchange authorization code", form)
}

// Refresh obtains a new token pair from a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (driven.TokenGrant, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {refreshToken},
	}
	return c.requestToken(ctx, "refresh token", form)
}

func (c *Client) requestToken(ctx context.Context, op string, form url.Values) (driven.TokenGrant, error) {
	endpoint := c.authURL + "/connect/token"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return driven.TokenGrant{}, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return driven.TokenGrant{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return driven.TokenGrant{}, fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return driven.TokenGrant{}, &TokenError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return driven.TokenGrant{}, fmt.Errorf("%s: decode response: %w", op, err)
	}

	return driven.TokenGrant{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
		ExpiresIn:    tr.ExpiresIn,
	}, nil
}

// ListAccounts returns the provider's raw account listing.
func (c *Client) ListAccounts(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.getRaw(ctx, accessToken, c.apiURL+"/data/v1/accounts", "list accounts")
}

// ListCards returns the provider's raw card listing.
func (c *Client) ListCards(ctx context.Context, accessToken string) (json.RawMessage, error) {
	return c.getRaw(ctx, accessToken, c.apiURL+"/data/v1/cards", "list cards")
}

// ListAccountTransactions fetches transactions for a bank account.
func (c *Client) ListAccountTransactions(ctx context.Context, accessToken, externalID, from, to string) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/data/v1/accounts/%s/transactions", c.apiURL, url.PathEscape(externalID))
	return c.getTransactions(ctx, accessToken, endpoint, from, to, "list account transactions")
}

// ListCardTransactions fetches transactions for a card.
func (c *Client) ListCardTransactions(ctx context.Context, accessToken, externalID, from, to string) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/data/v1/cards/%s/transactions", c.apiURL, url.PathEscape(externalID))
	return c.getTransactions(ctx, accessToken, endpoint, from, to, "list card transactions")
}

// transactionsEnvelope is the JSON envelope wrapping transaction listings.
// Individual transactions stay raw so they can be forwarded verbatim.
type transactionsEnvelope struct {
	Results []json.RawMessage `json:"results"`
}

func (c *Client) getTransactions(ctx context.Context, accessToken, endpoint, from, to, op string) ([]json.RawMessage, error) {
	query := url.Values{"from": {from}, "to": {to}}

	body, err := c.get(ctx, accessToken, endpoint+"?"+query.Encode(), op)
	if err != nil {
		return nil, err
	}

	var envelope transactionsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	if envelope.Results == nil {
		envelope.Results = []json.RawMessage{}
	}

	return envelope.Results, nil
}

func (c *Client) getRaw(ctx context.Context, accessToken, endpoint, op string) (json.RawMessage, error) {
	body, err := c.get(ctx, accessToken, endpoint, op)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, accessToken, endpoint, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
