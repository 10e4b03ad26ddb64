package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// InitiateP2P starts a transfer to another user. Requires wallet:pay.
// A *RecipientNoWalletError means the recipient must be invited first.
func (s *Session) InitiateP2P(ctx context.Context, req InitiateP2PRequest) (*TransferResponse, error) {
	var out TransferResponse
	if err := s.call(ctx, http.MethodPost, "/v1/wallet/p2p/initiate", req, &out, "wallet:pay"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmP2P forwards the sender's proof of authorization.
func (s *Session) ConfirmP2P(ctx context.Context, transferID string, req ConfirmP2PRequest) (*TransferResponse, error) {
	return s.transferAction(ctx, transferID, "confirm", req)
}

// AcceptP2P accepts a transfer addressed to the session's user.
func (s *Session) AcceptP2P(ctx context.Context, transferID string) (*TransferResponse, error) {
	return s.transferAction(ctx, transferID, "accept", struct{}{})
}

// RejectP2P declines a transfer; the ledger refunds the sender.
func (s *Session) RejectP2P(ctx context.Context, transferID, reason string) (*TransferResponse, error) {
	return s.transferAction(ctx, transferID, "reject", RejectP2PRequest{Reason: reason})
}

// QuoteFee returns the processing fee the ledger would charge.
func (s *Session) QuoteFee(ctx context.Context, amount, currency string) (*FeeQuote, error) {
	q := url.Values{"amount": {amount}}
	if currency != "" {
		q.Set("currency", currency)
	}

	var out FeeQuote
	if err := s.call(ctx, http.MethodGet, "/v1/wallet/p2p/fee?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance reads the session user's wallet. Requires wallet:balance.
func (s *Session) Balance(ctx context.Context) (*WalletBalance, error) {
	var out WalletBalance
	if err := s.call(ctx, http.MethodGet, "/v1/wallet/balance", nil, &out, "wallet:balance"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transactions reads a page of history. Zero limit uses the broker default.
// Requires wallet:history.
func (s *Session) Transactions(ctx context.Context, limit, offset int) (*TransactionPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/v1/wallet/transactions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out TransactionPage
	if err := s.call(ctx, http.MethodGet, path, nil, &out, "wallet:history"); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestPayment opens a payment to the session's mini-app. Requires wallet:pay.
func (s *Session) RequestPayment(ctx context.Context, req CreatePaymentRequest) (*PaymentResponse, error) {
	var out PaymentResponse
	if err := s.call(ctx, http.MethodPost, "/v1/wallet/payments", req, &out, "wallet:pay"); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthorizePayment signs a pending payment.
func (s *Session) AuthorizePayment(ctx context.Context, paymentID string, req AuthorizePaymentRequest) (*PaymentResponse, error) {
	path := "/v1/wallet/payments/" + url.PathEscape(paymentID) + "/authorize"

	var out PaymentResponse
	if err := s.call(ctx, http.MethodPost, path, req, &out, "wallet:pay"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) transferAction(ctx context.Context, transferID, action string, payload any) (*TransferResponse, error) {
	path := "/v1/wallet/p2p/" + url.PathEscape(transferID) + "/" + action

	var out TransferResponse
	if err := s.call(ctx, http.MethodPost, path, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
