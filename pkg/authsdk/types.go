package authsdk

import (
	"encoding/json"
	"time"

	"github.com/mona-chen/jean/pkg/jwtx"
)

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse is returned from POST /v1/oauth2/token. The exchange grants
// fill every field; the refresh grant only the first five.
type TokenResponse struct {
	// AccessToken is the "tep."-prefixed delegated token
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// RefreshToken is the opaque refresh handle
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope is the space-delimited list of granted scopes
	Scope string `json:"scope,omitempty"`

	UserID   string `json:"user_id,omitempty"`
	WalletID string `json:"wallet_id,omitempty"`

	// MatrixAccessToken is the short-lived chat session token obtained by
	// exchanging the caller's subject token.
	MatrixAccessToken string `json:"matrix_access_token,omitempty"`
	MatrixExpiresIn   int    `json:"matrix_expires_in,omitempty"`
	DelegatedSession  bool   `json:"delegated_session,omitempty"`
}

// IntrospectionResponse represents the RFC7662 introspection response for a
// TEP token. When the token is inactive only Active is set.
type IntrospectionResponse struct {
	Active bool `json:"active"`

	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Aud       string `json:"aud,omitempty"`
	Iss       string `json:"iss,omitempty"`
	Jti       string `json:"jti,omitempty"`
	WalletID  string `json:"wallet_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ConsentResponse is returned when consent is recorded.
type ConsentResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Wallet P2P Types
// ============================================================================

// InitiateP2PRequest is the body of POST /v1/wallet/p2p/initiate. Amount is
// a decimal string and is never rounded.
type InitiateP2PRequest struct {
	Recipient      string      `json:"recipient"`
	Amount         json.Number `json:"amount"`
	Currency       string      `json:"currency"`
	IdempotencyKey string      `json:"idempotency_key"`
	RoomID         string      `json:"room_id,omitempty"`
	Note           string      `json:"note,omitempty"`
}

// ConfirmP2PRequest is the body of POST /v1/wallet/p2p/{id}/confirm.
// AuthProof carries {"method": ..., ...method fields}.
type ConfirmP2PRequest struct {
	AuthProof      map[string]any `json:"auth_proof"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// RejectP2PRequest is the body of POST /v1/wallet/p2p/{id}/reject.
type RejectP2PRequest struct {
	Reason string `json:"reason,omitempty"`
}

// TransferResponse is the ledger's view of a transfer as relayed by the broker.
type TransferResponse struct {
	TransferID                  string      `json:"transfer_id"`
	Status                      string      `json:"status"`
	Amount                      json.Number `json:"amount,omitempty"`
	Currency                    string      `json:"currency,omitempty"`
	RoomID                      string      `json:"room_id,omitempty"`
	Note                        string      `json:"note,omitempty"`
	RecipientAcceptanceRequired bool        `json:"recipient_acceptance_required"`
	ExpiresAt                   *time.Time  `json:"expires_at,omitempty"`

	// EventID is set on initiate when a room event was published.
	EventID string `json:"event_id,omitempty"`

	// Set on reject.
	RefundInitiated  bool       `json:"refund_initiated,omitempty"`
	RefundExpectedAt *time.Time `json:"refund_expected_at,omitempty"`
}

// FeeQuote is returned by GET /v1/wallet/p2p/fee.
type FeeQuote struct {
	Amount   json.Number `json:"amount"`
	Fee      float64     `json:"fee"`
	Currency string      `json:"currency"`
}

// ============================================================================
// Wallet Balance and Payment Types
// ============================================================================

// WalletBalance is returned by GET /v1/wallet/balance.
type WalletBalance struct {
	WalletID string `json:"wallet_id"`
	UserID   string `json:"user_id"`
	Balance  struct {
		Available json.Number `json:"available"`
		Pending   json.Number `json:"pending"`
		Currency  string      `json:"currency"`
	} `json:"balance"`
	Status string `json:"status,omitempty"`
}

// Transaction is one history entry.
type Transaction struct {
	TransactionID string      `json:"transaction_id"`
	Type          string      `json:"type"`
	Status        string      `json:"status"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	Description   string      `json:"description,omitempty"`
	CreatedAt     *time.Time  `json:"created_at,omitempty"`
}

// TransactionPage is returned by GET /v1/wallet/transactions.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   struct {
		Total   int  `json:"total"`
		Limit   int  `json:"limit"`
		Offset  int  `json:"offset"`
		HasMore bool `json:"has_more"`
	} `json:"pagination"`
}

// CreatePaymentRequest is the body of POST /v1/wallet/payments. The payee is
// the mini-app the session was issued for.
type CreatePaymentRequest struct {
	Amount          json.Number `json:"amount"`
	Currency        string      `json:"currency"`
	Description     string      `json:"description"`
	MerchantOrderID string      `json:"merchant_order_id,omitempty"`
	CallbackURL     string      `json:"callback_url,omitempty"`
	IdempotencyKey  string      `json:"idempotency_key,omitempty"`
}

// AuthorizePaymentRequest is the body of POST /v1/wallet/payments/{id}/authorize.
type AuthorizePaymentRequest struct {
	Signature  string            `json:"signature"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
}

// PaymentResponse is the ledger's view of a payment.
type PaymentResponse struct {
	PaymentID       string      `json:"payment_id"`
	Status          string      `json:"status"`
	Amount          json.Number `json:"amount,omitempty"`
	Currency        string      `json:"currency,omitempty"`
	Description     string      `json:"description,omitempty"`
	MiniAppID       string      `json:"miniapp_id,omitempty"`
	MerchantOrderID string      `json:"merchant_order_id,omitempty"`
	ExpiresAt       *time.Time  `json:"expires_at,omitempty"`
}

// ============================================================================
// Health and Discovery
// ============================================================================

// HealthResponse is returned by /livez and /readyz; only /readyz fills Checks.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is "ok" or "error: ..." per dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the document served at /.well-known/jwks.json. Mini-app
// backends verify TEP tokens offline against it.
type JWKSResponse jwtx.JWKS
