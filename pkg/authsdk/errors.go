package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mona-chen/jean/pkg/httpx"
)

const (
	// RFC 6749
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidClient           = "invalid_client"
	ErrorCodeInvalidGrant            = "invalid_grant"
	ErrorCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrorCodeInvalidScope            = "invalid_scope"
	ErrorCodeServerError             = "server_error"
	ErrorCodeTemporarilyUnavailable  = "temporarily_unavailable"
	ErrorCodeAccessDenied            = "access_denied"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"

	// RFC 6750
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeMissingToken      = "missing_token"
	ErrorCodeInsufficientScope = "insufficient_scope"

	// Delegation and wallet errors
	ErrorCodeConsentRequired   = "consent_required"
	ErrorCodeConsentDeclined   = "consent_declined"
	ErrorCodeDuplicateRequest  = "duplicate_request"
	ErrorCodeForbidden         = "forbidden"
	ErrorCodeNotFound          = "not_found"
	ErrorCodeRecipientNoWallet = "RECIPIENT_NO_WALLET"
	ErrorCodeRateLimitExceeded = "rate_limit_exceeded"
)

// OAuth2Error is the {error, error_description} envelope every endpoint
// writes and the SDK decodes.
type OAuth2Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches any OAuth2Error with the same status and code, so a described
// copy still matches its predefined error.
func (e *OAuth2Error) Is(target error) bool {
	t, ok := target.(*OAuth2Error)
	return ok && t.Code == e.Code && t.StatusCode == e.StatusCode
}

// WithDescription returns a copy of e carrying a different description.
func (e *OAuth2Error) WithDescription(format string, args ...any) *OAuth2Error {
	return &OAuth2Error{
		StatusCode:  e.StatusCode,
		Code:        e.Code,
		Description: fmt.Sprintf(format, args...),
	}
}

// WriteError writes this OAuth2Error to an HTTP response writer.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	if e.StatusCode == http.StatusUnauthorized && (e.Code == ErrorCodeInvalidToken || e.Code == ErrorCodeMissingToken) {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	httpx.WriteJSON(w, e.StatusCode, map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

// NewOAuth2Error returns an error written as status with the given code.
func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{StatusCode: statusCode, Code: code, Description: description}
}

// Errors shared by the broker and the SDK. Handlers refine the description
// with WithDescription; errors.Is matches on status and code only.
var (
	ErrInvalidRequest          = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "Missing or malformed parameters")
	ErrInvalidClient           = NewOAuth2Error(http.StatusUnauthorized, ErrorCodeInvalidClient, "Client authentication failed")
	ErrInvalidGrant            = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidGrant, "Grant is invalid, inactive or expired")
	ErrUnsupportedGrantType    = NewOAuth2Error(http.StatusBadRequest, ErrorCodeUnsupportedGrantType, "Unsupported grant_type")
	ErrUnsupportedResponseType = NewOAuth2Error(http.StatusBadRequest, ErrorCodeUnsupportedResponseType, "Unsupported response_type")
	ErrInvalidScope            = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidScope, "Scope not registered for this mini-app")
	ErrServerError             = NewOAuth2Error(http.StatusInternalServerError, ErrorCodeServerError, "Internal server error")

	// ErrTemporarilyUnavailable means an upstream is down or its breaker is
	// open. Callers may retry with backoff.
	ErrTemporarilyUnavailable = NewOAuth2Error(http.StatusServiceUnavailable, ErrorCodeTemporarilyUnavailable, "Service temporarily unavailable")

	ErrMethodNotAllowed   = NewOAuth2Error(http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "Method not allowed")
	ErrInvalidContentType = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "Unsupported Content-Type")
	ErrInvalidFormBody    = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "Malformed form body")
	ErrInvalidJSONBody    = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest, "Malformed JSON body")

	// Bearer failures on wallet routes.
	ErrMissingToken      = NewOAuth2Error(http.StatusUnauthorized, ErrorCodeMissingToken, "TEP token required")
	ErrInvalidToken      = NewOAuth2Error(http.StatusUnauthorized, ErrorCodeInvalidToken, "TEP token is invalid or expired")
	ErrInsufficientScope = NewOAuth2Error(http.StatusForbidden, ErrorCodeInsufficientScope, "Token lacks the required scope")

	ErrConsentDeclined  = NewOAuth2Error(http.StatusBadRequest, ErrorCodeConsentDeclined, "User declined consent")
	ErrDuplicateRequest = NewOAuth2Error(http.StatusConflict, ErrorCodeDuplicateRequest, "Duplicate request with same idempotency key")
	ErrNotRoomMember    = NewOAuth2Error(http.StatusForbidden, ErrorCodeForbidden, "Users do not share a room")
	ErrTransferNotFound = NewOAuth2Error(http.StatusNotFound, ErrorCodeNotFound, "Transfer not found")
	ErrPaymentNotFound  = NewOAuth2Error(http.StatusNotFound, ErrorCodeNotFound, "Payment not found")
)

// ConsentRequiredError is returned from the token endpoint when sensitive
// scopes still need the user's approval. It is written as 403 Forbidden.
type ConsentRequiredError struct {
	RequiredScopes    []string `json:"consent_required_scopes"`
	PreApprovedScopes []string `json:"pre_approved_scopes"`
	SessionID         string   `json:"-"`
	ConsentEndpoint   string   `json:"consent_ui_endpoint"`
}

// Error implements the error interface.
func (e *ConsentRequiredError) Error() string {
	return fmt.Sprintf("consent required: scopes=%v", e.RequiredScopes)
}

// WriteError writes the consent challenge.
func (e *ConsentRequiredError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusForbidden, map[string]any{
		"error":                   ErrorCodeConsentRequired,
		"error_description":       "User must approve sensitive scopes",
		"consent_required_scopes": nonNil(e.RequiredScopes),
		"pre_approved_scopes":     nonNil(e.PreApprovedScopes),
		"consent_ui_endpoint":     e.ConsentEndpoint,
	})
}

// InviteWalletURL is where clients send users to invite a recipient.
const InviteWalletURL = "tween://invite-wallet"

// RecipientNoWalletError is returned when a P2P recipient has no wallet.
// Unlike other errors its body nests the details under "error".
type RecipientNoWalletError struct {
	Recipient string `json:"recipient"`
	CanInvite bool   `json:"can_invite"`
	InviteURL string `json:"invite_url"`
}

// Error implements the error interface.
func (e *RecipientNoWalletError) Error() string {
	return fmt.Sprintf("recipient %s does not have a wallet", e.Recipient)
}

// WriteError writes the 404 response.
func (e *RecipientNoWalletError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusNotFound, map[string]any{
		"error": map[string]any{
			"code":       ErrorCodeRecipientNoWallet,
			"message":    "Recipient does not have a wallet",
			"recipient":  e.Recipient,
			"can_invite": e.CanInvite,
			"invite_url": e.InviteURL,
		},
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// parseErrorResponse turns a non-2xx response into a typed error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var env struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
		ConsentRequired  []string        `json:"consent_required_scopes"`
		PreApproved      []string        `json:"pre_approved_scopes"`
		ConsentEndpoint  string          `json:"consent_ui_endpoint"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Error) > 0 {
		var code string
		if json.Unmarshal(env.Error, &code) == nil {
			if code == ErrorCodeConsentRequired {
				return &ConsentRequiredError{
					RequiredScopes:    env.ConsentRequired,
					PreApprovedScopes: env.PreApproved,
					ConsentEndpoint:   env.ConsentEndpoint,
					SessionID:         consentSession(env.ConsentEndpoint),
				}
			}
			return &OAuth2Error{
				StatusCode:  resp.StatusCode,
				Code:        code,
				Description: env.ErrorDescription,
			}
		}

		var nested struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			Recipient string `json:"recipient"`
			CanInvite bool   `json:"can_invite"`
			InviteURL string `json:"invite_url"`
		}
		if json.Unmarshal(env.Error, &nested) == nil && nested.Code != "" {
			if nested.Code == ErrorCodeRecipientNoWallet {
				return &RecipientNoWalletError{
					Recipient: nested.Recipient,
					CanInvite: nested.CanInvite,
					InviteURL: nested.InviteURL,
				}
			}
			return &OAuth2Error{
				StatusCode:  resp.StatusCode,
				Code:        nested.Code,
				Description: nested.Message,
			}
		}
	}

	// Fallback: create generic error from status code
	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
