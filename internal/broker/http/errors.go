package http

import (
	"errors"
	"net/http"

	"github.com/mona-chen/jean/internal/broker/service"
	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/mona-chen/jean/pkg/dasclient"
	"github.com/mona-chen/jean/pkg/ledger"
	"github.com/mona-chen/jean/pkg/slogx"
)

// ConsentUIPath is where clients send the user to approve scopes.
const ConsentUIPath = "/oauth2/consent"

var serviceErrors = []struct {
	sentinel error
	oauth    *authsdk.OAuth2Error
}{
	{service.ErrInvalidRequest, authsdk.ErrInvalidRequest},
	{service.ErrInvalidGrant, authsdk.ErrInvalidGrant},
	{service.ErrInvalidClient, authsdk.ErrInvalidClient},
	{service.ErrInvalidScope, authsdk.ErrInvalidScope},
	{service.ErrUnsupportedGrantType, authsdk.ErrUnsupportedGrantType},
	{service.ErrUnsupportedResponseType, authsdk.ErrUnsupportedResponseType},
	{service.ErrConsentDeclined, authsdk.ErrConsentDeclined},
	{service.ErrInsufficientScope, authsdk.ErrInsufficientScope},
	{service.ErrDuplicateRequest, authsdk.ErrDuplicateRequest},
	{service.ErrNotRoomMember, authsdk.ErrNotRoomMember},
	{service.ErrTransferNotFound, authsdk.ErrTransferNotFound},
	{service.ErrPaymentNotFound, authsdk.ErrPaymentNotFound},
	{service.ErrServiceUnavailable, authsdk.ErrTemporarilyUnavailable},
	{service.ErrServerError, authsdk.ErrServerError},
}

// writeError renders err as the broker's error envelope. Unrecognised
// errors are logged and hidden behind server_error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	toOAuth2(r, err).WriteError(w)
}

type errorWriter interface {
	WriteError(w http.ResponseWriter)
}

func toOAuth2(r *http.Request, err error) errorWriter {
	log := slogx.FromContext(r.Context())

	var (
		consent  *service.ConsentRequiredError
		noWallet *service.RecipientNoWalletError
		das      *dasclient.Error
		led      *ledger.Error
	)
	switch {
	case errors.As(err, &consent):
		return &authsdk.ConsentRequiredError{
			RequiredScopes:    consent.RequiredScopes,
			PreApprovedScopes: consent.PreApprovedScopes,
			SessionID:         consent.SessionID,
			ConsentEndpoint:   ConsentUIPath + "?session=" + consent.SessionID,
		}
	case errors.As(err, &noWallet):
		return &authsdk.RecipientNoWalletError{
			Recipient: noWallet.Recipient,
			CanInvite: true,
			InviteURL: service.InviteURL,
		}
	case errors.As(err, &das):
		return delegationError(r, das)
	case errors.As(err, &led):
		return ledgerError(r, led)
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.sentinel) {
			if desc := service.Description(err); desc != "" {
				return m.oauth.WithDescription("%s", desc)
			}
			return m.oauth
		}
	}

	log.Error("unhandled error", "err", err)
	return authsdk.ErrServerError
}

func delegationError(r *http.Request, e *dasclient.Error) errorWriter {
	switch {
	case e.Kind == dasclient.KindInvalidToken:
		return authsdk.ErrInvalidGrant.WithDescription("%s", orDefault(e.Description, "Subject token is invalid or expired"))
	case e.Kind == dasclient.KindInvalidCredentials:
		slogx.FromContext(r.Context()).Error("delegation service rejected broker credentials", "err", e)
		return authsdk.ErrServerError.WithDescription("Authentication service misconfigured")
	case e.Temporary:
		slogx.FromContext(r.Context()).Warn("delegation service unavailable", "err", e)
		return authsdk.ErrTemporarilyUnavailable.WithDescription("Authentication service temporarily unavailable")
	default:
		return authsdk.ErrInvalidGrant.WithDescription("%s", orDefault(e.Description, "Token validation failed"))
	}
}

func ledgerError(r *http.Request, e *ledger.Error) errorWriter {
	switch e.Kind {
	case ledger.KindRejected:
		code := e.Code
		if code == "" {
			code = authsdk.ErrorCodeInvalidRequest
		}
		return authsdk.NewOAuth2Error(e.Status, code, e.Message)
	case ledger.KindMalformed:
		slogx.FromContext(r.Context()).Error("ledger returned malformed response", "err", e)
		return authsdk.NewOAuth2Error(http.StatusBadGateway, authsdk.ErrorCodeServerError, "Invalid wallet service response")
	default:
		return authsdk.ErrTemporarilyUnavailable.WithDescription("Wallet service unavailable")
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
