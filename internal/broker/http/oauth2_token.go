package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/service"
	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/mona-chen/jean/pkg/httpx"
)

// TokenHandler serves POST /v1/oauth2/token.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Exchanges a chat session token for a TEP token (RFC 8693), completes a browser authorization, or refreshes a TEP token.
//	@Description	When sensitive scopes still need approval the response is 403 consent_required with a consent session.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type			formData	string					true	"Grant type"	Enums(urn:ietf:params:oauth:grant-type:token-exchange, authorization_code, refresh_token)
//	@Param			client_id			formData	string					false	"Mini-app id (required for token exchange)"
//	@Param			client_secret		formData	string					false	"Required for confidential mini-apps"
//	@Param			subject_token		formData	string					false	"Chat session access token (token exchange)"
//	@Param			subject_token_type	formData	string					false	"urn:ietf:params:oauth:token-type:access_token"
//	@Param			scope				formData	string					false	"Space-delimited scopes"
//	@Param			miniapp_context		formData	string					false	"JSON object embedded in the token"
//	@Param			state				formData	string					false	"Authorization request id (authorization_code)"
//	@Param			matrix_access_token	formData	string					false	"Chat session token (authorization_code)"
//	@Param			code_verifier		formData	string					false	"PKCE verifier (authorization_code)"
//	@Param			refresh_token		formData	string					false	"Refresh handle (refresh_token)"
//	@Success		200					{object}	authsdk.TokenResponse
//	@Failure		400					{object}	map[string]string	"error, error_description"
//	@Failure		401					{object}	map[string]string	"error, error_description"
//	@Failure		403					{object}	map[string]any		"consent_required"
//	@Failure		503					{object}	map[string]string	"error, error_description"
//	@Header			200					{string}	Cache-Control		"no-store"
//	@Router			/v1/oauth2/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	switch r.PostForm.Get("grant_type") {
	case service.GrantTypeTokenExchange:
		h.handleTokenExchange(w, r, r.PostForm)
	case service.GrantTypeAuthorizationCode:
		h.handleAuthorizationCode(w, r, r.PostForm)
	case service.GrantTypeRefreshToken:
		h.handleRefresh(w, r, r.PostForm)
	default:
		authsdk.ErrUnsupportedGrantType.WriteError(w)
	}
}

func (h *TokenHandler) handleTokenExchange(w http.ResponseWriter, r *http.Request, form url.Values) {
	var miniAppContext map[string]any
	if raw := strings.TrimSpace(form.Get("miniapp_context")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &miniAppContext); err != nil {
			authsdk.ErrInvalidRequest.WithDescription("Invalid miniapp_context JSON").WriteError(w)
			return
		}
	}

	bundle, err := h.TokenService.Exchange(r.Context(), service.ExchangeRequest{
		ClientID:         strings.TrimSpace(form.Get("client_id")),
		ClientSecret:     form.Get("client_secret"),
		SubjectToken:     strings.TrimSpace(form.Get("subject_token")),
		SubjectTokenType: strings.TrimSpace(form.Get("subject_token_type")),
		Scopes:           httpx.ParseSpaceDelimitedFields(form.Get("scope")),
		MiniAppContext:   miniAppContext,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeBundle(w, bundle)
}

func (h *TokenHandler) handleAuthorizationCode(w http.ResponseWriter, r *http.Request, form url.Values) {
	bundle, err := h.TokenService.ExchangeAuthorizationCode(r.Context(), service.AuthorizationCodeRequest{
		ClientID:          strings.TrimSpace(form.Get("client_id")),
		RequestID:         strings.TrimSpace(form.Get("state")),
		MatrixAccessToken: strings.TrimSpace(form.Get("matrix_access_token")),
		CodeVerifier:      strings.TrimSpace(form.Get("code_verifier")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeBundle(w, bundle)
}

func (h *TokenHandler) handleRefresh(w http.ResponseWriter, r *http.Request, form url.Values) {
	handle := strings.TrimSpace(form.Get("refresh_token"))
	if handle == "" {
		authsdk.ErrInvalidRequest.WithDescription("refresh_token is required").WriteError(w)
		return
	}

	bundle, err := h.TokenService.Refresh(r.Context(), handle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeBundle(w, bundle)
}

func writeBundle(w http.ResponseWriter, b *domain.TokenBundle) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, b)
}
