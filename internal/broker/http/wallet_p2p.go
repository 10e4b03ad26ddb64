package http

import (
	"errors"
	"net/http"

	"github.com/mona-chen/jean/internal/broker/service"
	"github.com/mona-chen/jean/internal/broker/store"
	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/mona-chen/jean/pkg/breaker"
	"github.com/mona-chen/jean/pkg/httpx"
	"github.com/mona-chen/jean/pkg/ledger"
)

// WalletHandler serves the wallet and P2P transfer endpoints. Every route
// sits behind AuthnMiddleware.
type WalletHandler struct {
	Transfers *service.TransferService
	Wallet    *service.WalletService
	Users     *service.UserService
	Breakers  *breaker.Registry
}

// caller resolves the authenticated TEP subject to a provisioned user. It
// writes the error response itself and reports false on failure.
func (h *WalletHandler) caller(w http.ResponseWriter, r *http.Request) (service.Caller, bool) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		authsdk.ErrMissingToken.WriteError(w)
		return service.Caller{}, false
	}

	user, err := h.Users.Lookup(r.Context(), claims.Subject)
	switch {
	case errors.Is(err, store.ErrNotFound):
		authsdk.ErrInvalidToken.WithDescription("User not found").WriteError(w)
		return service.Caller{}, false
	case err != nil:
		writeError(w, r, err)
		return service.Caller{}, false
	}
	return service.Caller{User: user, Scopes: claims.Scopes()}, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := httpx.DecodeJSON(w, r, v, httpx.DefaultMaxBodyBytes)
	switch {
	case err == nil:
		return true
	case errors.Is(err, httpx.ErrUnsupportedMediaType):
		authsdk.ErrInvalidContentType.WithDescription("Content-Type must be application/json").WriteError(w)
	case errors.Is(err, httpx.ErrBodyTooLarge):
		authsdk.ErrInvalidRequest.WithDescription("request body too large").WriteError(w)
	case errors.Is(err, ledger.ErrInvalidProof):
		authsdk.ErrInvalidRequest.WithDescription("%s", err.Error()).WriteError(w)
	default:
		authsdk.ErrInvalidJSONBody.WriteError(w)
	}
	return false
}

// HandleInitiate godoc
//
//	@Summary		Initiate P2P Transfer
//	@Description	Starts a transfer to another chat user. The idempotency key is claimed for 24 hours; a repeat returns 409.
//	@Description	With room_id both users must share the room and a transfer event is posted to it.
//	@Tags			Wallet
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.InitiateP2PRequest	true	"Transfer"
//	@Success		200		{object}	authsdk.TransferResponse
//	@Failure		400		{object}	map[string]string	"invalid_request"
//	@Failure		403		{object}	map[string]string	"insufficient_scope or forbidden"
//	@Failure		404		{object}	map[string]any		"RECIPIENT_NO_WALLET"
//	@Failure		409		{object}	map[string]string	"duplicate_request"
//	@Failure		503		{object}	map[string]string	"temporarily_unavailable"
//	@Router			/v1/wallet/p2p/initiate [post].
func (h *WalletHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req service.InitiateTransfer
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Transfers.Initiate(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type confirmRequest struct {
	AuthProof      ledger.AuthProof `json:"auth_proof"`
	IdempotencyKey string           `json:"idempotency_key"`
}

// HandleConfirm godoc
//
//	@Summary		Confirm P2P Transfer
//	@Description	Submits the sender's biometric, PIN or OTP proof to the ledger.
//	@Tags			Wallet
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string						true	"Transfer id"
//	@Param			request	body		authsdk.ConfirmP2PRequest	true	"Proof"
//	@Success		200		{object}	authsdk.TransferResponse
//	@Failure		400		{object}	map[string]string	"invalid_request"
//	@Failure		404		{object}	map[string]string	"not_found"
//	@Failure		409		{object}	map[string]string	"duplicate_request"
//	@Failure		503		{object}	map[string]string	"temporarily_unavailable"
//	@Router			/v1/wallet/p2p/{id}/confirm [post].
func (h *WalletHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.Transfers.Confirm(r.Context(), caller, r.PathValue("id"), req.AuthProof, req.IdempotencyKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

// HandleAccept godoc
//
//	@Summary		Accept P2P Transfer
//	@Tags			Wallet
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Transfer id"
//	@Success		200	{object}	authsdk.TransferResponse
//	@Failure		404	{object}	map[string]string	"not_found"
//	@Failure		503	{object}	map[string]string	"temporarily_unavailable"
//	@Router			/v1/wallet/p2p/{id}/accept [post].
func (h *WalletHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	t, err := h.Transfers.Accept(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

// HandleReject godoc
//
//	@Summary		Reject P2P Transfer
//	@Description	Declines an incoming transfer; the sender is refunded.
//	@Tags			Wallet
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string						true	"Transfer id"
//	@Param			request	body		authsdk.RejectP2PRequest	false	"Reason"
//	@Success		200		{object}	authsdk.TransferResponse
//	@Failure		404		{object}	map[string]string	"not_found"
//	@Failure		503		{object}	map[string]string	"temporarily_unavailable"
//	@Router			/v1/wallet/p2p/{id}/reject [post].
func (h *WalletHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req authsdk.RejectP2PRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Transfers.Reject(r.Context(), caller, r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleFee godoc
//
//	@Summary		Quote Transfer Fee
//	@Tags			Wallet
//	@Produce		json
//	@Security		BearerAuth
//	@Param			amount		query		number	true	"Transfer amount"
//	@Param			currency	query		string	true	"Currency code"
//	@Success		200			{object}	authsdk.FeeQuote
//	@Failure		400			{object}	map[string]string	"invalid_request"
//	@Router			/v1/wallet/p2p/fee [get].
func (h *WalletHandler) HandleFee(w http.ResponseWriter, r *http.Request) {
	q, err := h.Transfers.Fee(r.URL.Query().Get("amount"), r.URL.Query().Get("currency"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, q)
}

// HandleBreakers godoc
//
//	@Summary		Circuit Breaker State
//	@Description	Reports the state and counters of every outbound circuit breaker.
//	@Tags			Wallet
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}	breaker.Metrics
//	@Router			/v1/wallet/breakers [get].
func (h *WalletHandler) HandleBreakers(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.Breakers.Metrics())
}
