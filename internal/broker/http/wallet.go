package http

import (
	"net/http"

	"github.com/mona-chen/jean/internal/broker/service"
	"github.com/mona-chen/jean/pkg/httpx"
	"github.com/mona-chen/jean/pkg/ledger"
)

// HandleBalance godoc
//
//	@Summary		Wallet Balance
//	@Description	Returns the caller's balance, limits and verification tier.
//	@Tags			Wallet
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.WalletBalance
//	@Failure		403	{object}	map[string]string	"insufficient_scope"
//	@Failure		503	{object}	map[string]string	"temporarily_unavailable"
//	@Router			/v1/wallet/balance [get].
func (h *WalletHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	b, err := h.Wallet.Balance(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

// HandleTransactions godoc
//
//	@Summary		Transaction History
//	@Tags			Wallet
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int	false	"Page size (default 50, max 100)"
//	@Param			offset	query		int	false	"Entries to skip"
//	@Success		200		{object}	authsdk.TransactionPage
//	@Failure		400		{object}	map[string]string	"invalid_request"
//	@Failure		403		{object}	map[string]string	"insufficient_scope"
//	@Failure		503		{object}	map[string]string	"temporarily_unavailable"
//	@Router			/v1/wallet/transactions [get].
func (h *WalletHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := h.Wallet.Transactions(r.Context(), caller, q.Get("limit"), q.Get("offset"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

// HandleCreatePayment godoc
//
//	@Summary		Request Payment
//	@Description	Opens a payment from the caller to the mini-app the token was issued for.
//	@Tags			Wallet
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.CreatePaymentRequest	true	"Payment"
//	@Success		200		{object}	authsdk.PaymentResponse
//	@Failure		400		{object}	map[string]string	"invalid_request"
//	@Failure		403		{object}	map[string]string	"insufficient_scope"
//	@Failure		503		{object}	map[string]string	"temporarily_unavailable"
//	@Router			/v1/wallet/payments [post].
func (h *WalletHandler) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req service.CreatePayment
	if !decodeJSON(w, r, &req) {
		return
	}

	claims, _ := httpx.ClaimsFromContext(r.Context())
	p, err := h.Wallet.CreatePayment(r.Context(), caller, claims.MiniAppID(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// HandleAuthorizePayment godoc
//
//	@Summary		Authorize Payment
//	@Tags			Wallet
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string							true	"Payment id"
//	@Param			request	body		authsdk.AuthorizePaymentRequest	true	"Signature"
//	@Success		200		{object}	authsdk.PaymentResponse
//	@Failure		400		{object}	map[string]string	"invalid_request"
//	@Failure		404		{object}	map[string]string	"not_found"
//	@Failure		503		{object}	map[string]string	"temporarily_unavailable"
//	@Router			/v1/wallet/payments/{id}/authorize [post].
func (h *WalletHandler) HandleAuthorizePayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req ledger.PaymentAuthorization
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.Wallet.AuthorizePayment(r.Context(), caller, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}
