package http

import (
	"net/http"
	"strings"

	"github.com/mona-chen/jean/internal/broker/service"
	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/mona-chen/jean/pkg/httpx"
)

// RevokeHandler serves POST /v1/oauth2/revoke (RFC 7009). Refresh handles
// are dropped locally; anything else is forwarded to the delegation
// service. Unknown tokens still get 200 so the endpoint cannot be used to
// probe for valid ones.
type RevokeHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Revoke Token
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token			formData	string	true	"Refresh handle or chat session token"
//	@Param			token_type_hint	formData	string	false	"Hint about token type"	Enums(access_token, refresh_token)
//	@Success		200
//	@Failure		400	{object}	map[string]string	"error, error_description"
//	@Router			/v1/oauth2/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	token := strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		authsdk.ErrInvalidRequest.WithDescription("token is required").WriteError(w)
		return
	}
	h.TokenService.Revoke(r.Context(), token, r.PostForm.Get("token_type_hint"))

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}
