package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mona-chen/jean/pkg/breaker"
)

// Transaction history paging bounds.
const (
	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 100
)

// Payment states as reported by the ledger.
const (
	PaymentPending    = "pending"
	PaymentAuthorized = "authorized"
	PaymentCompleted  = "completed"
	PaymentFailed     = "failed"
)

// Balance is a wallet's balance, limits and verification tier.
type Balance struct {
	WalletID     string           `json:"wallet_id"`
	UserID       string           `json:"user_id"`
	Balance      BalanceAmounts   `json:"balance"`
	Limits       *WalletLimits    `json:"limits,omitempty"`
	Verification *VerificationTier `json:"verification,omitempty"`
	Status       string           `json:"status,omitempty"`
}

type BalanceAmounts struct {
	Available json.Number `json:"available"`
	Pending   json.Number `json:"pending"`
	Currency  string      `json:"currency"`
}

type WalletLimits struct {
	DailyLimit       json.Number `json:"daily_limit"`
	DailyUsed        json.Number `json:"daily_used"`
	TransactionLimit json.Number `json:"transaction_limit"`
}

type VerificationTier struct {
	Level               int      `json:"level"`
	LevelName           string   `json:"level_name,omitempty"`
	Features            []string `json:"features,omitempty"`
	CanUpgrade          bool     `json:"can_upgrade"`
	NextLevel           int      `json:"next_level,omitempty"`
	UpgradeRequirements []string `json:"upgrade_requirements,omitempty"`
}

// Transaction is one entry of a wallet's history.
type Transaction struct {
	TransactionID string      `json:"transaction_id"`
	Type          string      `json:"type"`
	Status        string      `json:"status"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	Description   string      `json:"description,omitempty"`
	Counterparty  string      `json:"counterparty,omitempty"`
	CreatedAt     *time.Time  `json:"created_at,omitempty"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// TransactionPage is one page of history, newest first.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

// PaymentRequest asks the ledger to create a mini-app payment.
type PaymentRequest struct {
	Amount          json.Number `json:"amount"`
	Currency        string      `json:"currency"`
	Description     string      `json:"description"`
	MiniAppID       string      `json:"miniapp_id,omitempty"`
	MerchantOrderID string      `json:"merchant_order_id,omitempty"`
	CallbackURL     string      `json:"callback_url,omitempty"`
	IdempotencyKey  string      `json:"idempotency_key,omitempty"`

	// ActorID is sent as X-TMCP-User-ID.
	ActorID string `json:"-"`
}

// PaymentAuthorization is the user's signature over a pending payment.
type PaymentAuthorization struct {
	Signature  string            `json:"signature"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
}

// Payment is the ledger's view of a mini-app payment.
type Payment struct {
	PaymentID       string      `json:"payment_id"`
	Status          string      `json:"status"`
	Amount          json.Number `json:"amount,omitempty"`
	Currency        string      `json:"currency,omitempty"`
	Description     string      `json:"description,omitempty"`
	MiniAppID       string      `json:"miniapp_id,omitempty"`
	MerchantOrderID string      `json:"merchant_order_id,omitempty"`
	CreatedAt       *time.Time  `json:"created_at,omitempty"`
	ExpiresAt       *time.Time  `json:"expires_at,omitempty"`
	AuthorizedAt    *time.Time  `json:"authorized_at,omitempty"`
}

// Balance reads the wallet of userID.
func (c *Client) Balance(ctx context.Context, userID string) (*Balance, error) {
	b, err := breaker.Call(ctx, c.balance, func(ctx context.Context) (*Balance, error) {
		var out Balance
		if err := c.do(ctx, "balance", http.MethodGet, "/api/v1/tmcp/wallets/balance", "", userID, nil, &out); err != nil {
			return nil, err
		}
		if out.WalletID == "" {
			return nil, &Error{Kind: KindMalformed, Op: "balance", Message: "Invalid wallet service response", Err: errors.New("missing wallet_id")}
		}
		return &out, nil
	})
	if err != nil {
		return nil, wrapOpen("balance", err)
	}
	return b, nil
}

// Transactions reads one page of userID's history. limit is clamped to
// [1, MaxTransactionLimit] and a negative offset is treated as zero.
func (c *Client) Transactions(ctx context.Context, userID string, limit, offset int) (*TransactionPage, error) {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	limit = min(limit, MaxTransactionLimit)
	offset = max(offset, 0)

	q := url.Values{"limit": {strconv.Itoa(limit)}, "offset": {strconv.Itoa(offset)}}
	page, err := breaker.Call(ctx, c.balance, func(ctx context.Context) (*TransactionPage, error) {
		var out TransactionPage
		if err := c.do(ctx, "transactions", http.MethodGet, "/api/v1/tmcp/wallets/transactions?"+q.Encode(), "", userID, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, wrapOpen("transactions", err)
	}
	if page.Transactions == nil {
		page.Transactions = []Transaction{}
	}
	return page, nil
}

// CreatePaymentRequest opens a payment from the acting user to a mini-app.
func (c *Client) CreatePaymentRequest(ctx context.Context, req PaymentRequest) (*Payment, error) {
	return c.payment(ctx, "create_payment", "/api/v1/tmcp/payments/request", req.ActorID, req)
}

// AuthorizePayment submits the user's signature for a pending payment.
func (c *Client) AuthorizePayment(ctx context.Context, paymentID, actorID string, auth PaymentAuthorization) (*Payment, error) {
	path := "/api/v1/tmcp/payments/" + url.PathEscape(paymentID) + "/authorize"
	return c.payment(ctx, "authorize_payment", path, actorID, auth)
}

func (c *Client) payment(ctx context.Context, op, path, actorID string, body any) (*Payment, error) {
	p, err := breaker.Call(ctx, c.payments, func(ctx context.Context) (*Payment, error) {
		var out Payment
		if err := c.do(ctx, op, http.MethodPost, path, "", actorID, body, &out); err != nil {
			return nil, err
		}
		if out.PaymentID == "" {
			return nil, &Error{Kind: KindMalformed, Op: op, Message: "Invalid wallet service response", Err: errors.New("missing payment_id")}
		}
		return &out, nil
	})
	if err != nil {
		return nil, wrapOpen(op, err)
	}
	return p, nil
}
