package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mona-chen/jean/pkg/ledger"
	"github.com/mona-chen/jean/pkg/slogx"
)

// WalletLedger is the read and payment half of the ledger client.
type WalletLedger interface {
	Balance(ctx context.Context, userID string) (*ledger.Balance, error)
	Transactions(ctx context.Context, userID string, limit, offset int) (*ledger.TransactionPage, error)
	CreatePaymentRequest(ctx context.Context, req ledger.PaymentRequest) (*ledger.Payment, error)
	AuthorizePayment(ctx context.Context, paymentID, actorID string, auth ledger.PaymentAuthorization) (*ledger.Payment, error)
}

type CreatePayment struct {
	Amount          json.Number `json:"amount"`
	Currency        string      `json:"currency"`
	Description     string      `json:"description"`
	MerchantOrderID string      `json:"merchant_order_id,omitempty"`
	CallbackURL     string      `json:"callback_url,omitempty"`
	IdempotencyKey  string      `json:"idempotency_key"`
}

// WalletService serves balance reads and mini-app payments for the caller.
type WalletService struct {
	Ledger WalletLedger
}

// Balance returns the caller's own wallet.
func (s *WalletService) Balance(ctx context.Context, caller Caller) (*ledger.Balance, error) {
	if !caller.HasScope(ScopeWalletBalance) {
		return nil, describe(ErrInsufficientScope, "wallet:balance scope required")
	}
	return s.Ledger.Balance(ctx, caller.User.MatrixUserID)
}

// Transactions returns a page of the caller's history. Blank paging
// parameters fall back to the ledger defaults.
func (s *WalletService) Transactions(ctx context.Context, caller Caller, limit, offset string) (*ledger.TransactionPage, error) {
	if !caller.HasScope(ScopeWalletHistory) {
		return nil, describe(ErrInsufficientScope, "wallet:history scope required")
	}
	l, err := pagingParam("limit", limit)
	if err != nil {
		return nil, err
	}
	o, err := pagingParam("offset", offset)
	if err != nil {
		return nil, err
	}
	return s.Ledger.Transactions(ctx, caller.User.MatrixUserID, l, o)
}

// CreatePayment opens a payment from the caller to the mini-app the token
// was issued for.
func (s *WalletService) CreatePayment(ctx context.Context, caller Caller, appID string, req CreatePayment) (*ledger.Payment, error) {
	if !caller.HasScope(ScopeWalletPay) {
		return nil, describe(ErrInsufficientScope, "wallet:pay scope required")
	}
	if missing := missingFields("amount", req.Amount.String(), "currency", req.Currency, "description", req.Description); len(missing) > 0 {
		return nil, describe(ErrInvalidRequest, "Missing required parameters: %s", strings.Join(missing, ", "))
	}
	if v, err := req.Amount.Float64(); err != nil || v <= 0 {
		return nil, describe(ErrInvalidRequest, "amount must be a positive number")
	}

	p, err := s.Ledger.CreatePaymentRequest(ctx, ledger.PaymentRequest{
		Amount:          req.Amount,
		Currency:        req.Currency,
		Description:     req.Description,
		MiniAppID:       appID,
		MerchantOrderID: req.MerchantOrderID,
		CallbackURL:     req.CallbackURL,
		IdempotencyKey:  req.IdempotencyKey,
		ActorID:         caller.User.MatrixUserID,
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("payment requested",
		"payment_id", p.PaymentID, "miniapp_id", appID, "status", p.Status)
	return p, nil
}

// AuthorizePayment forwards the caller's signature for a pending payment.
func (s *WalletService) AuthorizePayment(ctx context.Context, caller Caller, paymentID string, auth ledger.PaymentAuthorization) (*ledger.Payment, error) {
	if paymentID == "" {
		return nil, describe(ErrInvalidRequest, "payment_id is required")
	}
	if !caller.HasScope(ScopeWalletPay) {
		return nil, describe(ErrInsufficientScope, "wallet:pay scope required")
	}
	if strings.TrimSpace(auth.Signature) == "" {
		return nil, describe(ErrInvalidRequest, "Missing required parameters: signature")
	}

	p, err := s.Ledger.AuthorizePayment(ctx, paymentID, caller.User.MatrixUserID, auth)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, describe(ErrPaymentNotFound, "Payment not found")
		}
		return nil, err
	}

	slogx.FromContext(ctx).Info("payment authorized", "payment_id", paymentID, "status", p.Status)
	return p, nil
}

func pagingParam(name, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, describe(ErrInvalidRequest, "%s must be a non-negative integer", name)
	}
	return v, nil
}
