// Package rooms talks to the chat homeserver on the broker's behalf: it
// publishes transfer events into rooms and checks room membership.
package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds every homeserver call.
const DefaultTimeout = 10 * time.Second

// ErrNotConfigured is returned when no homeserver access token is set.
var ErrNotConfigured = errors.New("rooms: homeserver access token not configured")

// StatusError is a non-2xx homeserver response.
type StatusError struct {
	Op      string
	Status  int
	ErrCode string
	Message string
}

func (e *StatusError) Error() string {
	if e.ErrCode != "" {
		return fmt.Sprintf("rooms: %s: HTTP %d %s: %s", e.Op, e.Status, e.ErrCode, e.Message)
	}
	return fmt.Sprintf("rooms: %s: HTTP %d", e.Op, e.Status)
}

type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// Client is safe for concurrent use. Without an access token Publish is a
// no-op and membership checks return ErrNotConfigured.
type Client struct {
	BaseURL     string
	AccessToken string
	HTTPClient  *http.Client

	// NewTxnID returns the transaction id used to make event sends
	// idempotent on the homeserver.
	NewTxnID func() string
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		AccessToken: cfg.AccessToken,
		HTTPClient:  &http.Client{Timeout: timeout},
		NewTxnID:    uuid.NewString,
	}
}

// Enabled reports whether the client can reach the homeserver.
func (c *Client) Enabled() bool { return c.AccessToken != "" && c.BaseURL != "" }

func (c *Client) roomPath(roomID string, parts ...string) string {
	segs := append([]string{"_matrix", "client", "v3", "rooms", url.PathEscape(roomID)}, parts...)
	return c.BaseURL + "/" + strings.Join(segs, "/")
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, in, out any) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("rooms: %s: encode: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("rooms: %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("rooms: %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("rooms: %s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Op: op, Status: resp.StatusCode}
		var mx struct {
			ErrCode string `json:"errcode"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(raw, &mx) == nil {
			se.ErrCode, se.Message = mx.ErrCode, mx.Error
		}
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("rooms: %s: decode: %w", op, err)
	}
	return nil
}
