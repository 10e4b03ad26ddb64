// Package ledger is the client for the wallet service that owns balances and
// P2P transfer state. The broker only forwards intents; the ledger decides.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mona-chen/jean/pkg/breaker"
	"github.com/mona-chen/jean/pkg/slogx"
)

// Breaker families used by the client.
const (
	BreakerBalance      = "wallet_balance"
	BreakerPayments     = "wallet_payments"
	BreakerTransfers    = "wallet_transfers"
	BreakerVerification = "wallet_verification"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultDialTimeout = 5 * time.Second

	// UserHeader carries the acting user to the ledger.
	UserHeader = "X-TMCP-User-ID"

	maxErrorBody = 4 << 10
)

// Config configures a Client.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	DialTimeout time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	apiKey       string
	balance      *breaker.Breaker
	payments     *breaker.Breaker
	transfers    *breaker.Breaker
	verification *breaker.Breaker
}

// New builds a Client whose calls run inside breakers taken from reg.
func New(cfg Config, reg *breaker.Registry) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("ledger: base url not configured")
	}
	if reg == nil {
		return nil, errors.New("ledger: breaker registry required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}

	bcfg := reg.Config()
	bcfg.IsFailure = countsAsFailure

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.DialTimeout}).DialContext

	return &Client{
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient:   &http.Client{Timeout: cfg.Timeout, Transport: transport},
		apiKey:       cfg.APIKey,
		balance:      reg.GetWith(BreakerBalance, bcfg),
		payments:     reg.GetWith(BreakerPayments, bcfg),
		transfers:    reg.GetWith(BreakerTransfers, bcfg),
		verification: reg.GetWith(BreakerVerification, bcfg),
	}, nil
}

// Initiate asks the ledger to create a transfer.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*Transfer, error) {
	return c.transfer(ctx, "initiate", "/api/v1/tmcp/transfers/p2p/initiate", req.ActorID, req)
}

// Confirm forwards the sender's proof of authorization.
func (c *Client) Confirm(ctx context.Context, transferID, actorID string, proof AuthProof) (*Transfer, error) {
	return c.transfer(ctx, "confirm", transferPath(transferID, "confirm"), actorID, confirmBody{AuthProof: proof})
}

// Accept moves a transfer awaiting the recipient to completed.
func (c *Client) Accept(ctx context.Context, transferID, actorID string) (*Transfer, error) {
	return c.transfer(ctx, "accept", transferPath(transferID, "accept"), actorID, nil)
}

// Reject declines a transfer. The ledger refunds the sender.
func (c *Client) Reject(ctx context.Context, transferID, actorID, reason string) (*Transfer, error) {
	return c.transfer(ctx, "reject", transferPath(transferID, "reject"), actorID, rejectBody{Reason: reason})
}

// ExpiredTransfers lists transfers past their acceptance window. Entries the
// ledger does not flag as expired are dropped.
func (c *Client) ExpiredTransfers(ctx context.Context) ([]Transfer, error) {
	list, err := breaker.Call(ctx, c.transfers, func(ctx context.Context) (*expiredList, error) {
		var out expiredList
		if err := c.do(ctx, "expired", http.MethodGet, "/api/v1/tmcp/transfers/p2p/expired", "", "", nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, wrapOpen("expired", err)
	}

	expired := make([]Transfer, 0, len(list.Transfers))
	for _, t := range list.Transfers {
		if t.Expired && t.TransferID != "" {
			expired = append(expired, t)
		}
	}
	return expired, nil
}

// RegisterWallet creates the user's wallet, authenticating with the user's
// chat session token instead of the service key.
func (c *Client) RegisterWallet(ctx context.Context, userID, sessionToken string) error {
	err := c.verification.Do(ctx, func(ctx context.Context) error {
		body := registerBody{UserID: userID, Currency: "USD"}
		return c.do(ctx, "register_wallet", http.MethodPost, "/api/v1/tmcp/wallets/register", sessionToken, userID, body, nil)
	})
	return wrapOpen("register_wallet", err)
}

func (c *Client) transfer(ctx context.Context, op, path, actorID string, body any) (*Transfer, error) {
	t, err := breaker.Call(ctx, c.transfers, func(ctx context.Context) (*Transfer, error) {
		var out Transfer
		if err := c.do(ctx, op, http.MethodPost, path, "", actorID, body, &out); err != nil {
			return nil, err
		}
		if out.TransferID == "" {
			return nil, &Error{Kind: KindMalformed, Op: op, Message: "Invalid wallet service response", Err: errors.New("missing transfer_id")}
		}
		return &out, nil
	})
	if err != nil {
		return nil, wrapOpen(op, err)
	}
	return t, nil
}

// do sends one JSON request. bearer overrides the service API key.
func (c *Client) do(ctx context.Context, op, method, path, bearer, actorID string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ledger: encode %s: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("ledger: build %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := slogx.RequestID(ctx); id != "" {
		req.Header.Set(slogx.RequestIDHeader, id)
	}
	switch {
	case bearer != "":
		req.Header.Set("Authorization", "Bearer "+bearer)
	case c.apiKey != "":
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if actorID != "" {
		req.Header.Set(UserHeader, actorID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slogx.FromContext(ctx).Error("ledger connection error", "op", op, "err", err)
		return &Error{Kind: KindUnavailable, Op: op, Message: "Wallet service unavailable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slogx.FromContext(ctx).Error("ledger error response",
			"op", op, "status", resp.StatusCode, "body", string(raw))
		return statusError(op, resp.StatusCode, raw)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		slogx.FromContext(ctx).Error("ledger response parsing error", "op", op, "err", err)
		return &Error{Kind: KindMalformed, Op: op, Message: "Invalid wallet service response", Err: err}
	}
	return nil
}

func statusError(op string, status int, raw []byte) *Error {
	e := &Error{
		Kind:    KindRejected,
		Op:      op,
		Status:  status,
		Message: fmt.Sprintf("Wallet service unavailable (HTTP %d)", status),
	}
	if status >= 500 || status == http.StatusTooManyRequests {
		e.Kind = KindUnavailable
	}

	var body errorBody
	if json.Unmarshal(raw, &body) != nil {
		return e
	}
	var code string
	var obj struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	switch {
	case json.Unmarshal(body.Error, &code) == nil:
		e.Code = code
	case json.Unmarshal(body.Error, &obj) == nil:
		e.Code = obj.Code
		if body.Message == "" {
			body.Message = obj.Message
		}
	}
	if body.Message != "" && e.Kind == KindRejected {
		e.Message = body.Message
	}
	return e
}

func wrapOpen(op string, err error) error {
	if errors.Is(err, breaker.ErrOpen) {
		return &Error{Kind: KindUnavailable, Op: op, Message: "Wallet service unavailable", Err: err}
	}
	return err
}

func transferPath(id, action string) string {
	return "/api/v1/tmcp/transfers/p2p/" + url.PathEscape(id) + "/" + action
}
