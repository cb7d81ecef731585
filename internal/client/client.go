// Package client implements the HTTP client for the workflows internal API.
// Every request carries the bearer token, a request ID, and a fixed timeout.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnauthorized is returned when the API rejects the token. The caller
	// treats it as fatal for the whole run.
	ErrUnauthorized = errors.New("unauthorized, the API rejected the token")
	// ErrEmptyToken is returned when the client is constructed without a token.
	ErrEmptyToken = errors.New("token cannot be an empty string")
)

// Client fetches JSON and binary payloads from the workflows API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client

	log *slog.Logger
}

// New returns a Client for the given base URL and bearer token.
func New(l *slog.Logger, baseURL, token string, timeout time.Duration) (*Client, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL %s: %v", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %s must include a scheme and host", baseURL)
	}

	return &Client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: timeout},
		log:   l,
	}, nil
}

// GetJSON fetches p and returns the raw JSON body.
func (c *Client) GetJSON(ctx context.Context, p string) (json.RawMessage, error) {
	body, err := c.get(ctx, p, "application/json")
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("response from %s is not valid JSON", p)
	}
	return json.RawMessage(body), nil
}

// GetBlob fetches p and returns the raw bytes.
func (c *Client) GetBlob(ctx context.Context, p string) ([]byte, error) {
	return c.get(ctx, p, "application/octet-stream")
}

func (c *Client) get(ctx context.Context, p, accept string) ([]byte, error) {
	u := *c.base
	u.Path = path.Join(u.Path, p)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Request-Id", uuid.NewString())

	c.log.Debug("Fetching", "url", u.String())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnauthorized, u.Path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, u.Path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}
	return body, nil
}
