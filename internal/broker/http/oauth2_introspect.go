package http

import (
	"net/http"
	"strings"

	"github.com/mona-chen/jean/internal/broker/service"
	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/mona-chen/jean/pkg/httpx"
)

// IntrospectHandler serves POST /v1/oauth2/introspect (RFC 7662) for TEP
// tokens. Invalid tokens are reported as inactive, never as errors.
type IntrospectHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Introspect TEP Token
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			token	formData	string	true	"TEP token"
//	@Success		200		{object}	authsdk.IntrospectionResponse
//	@Failure		400		{object}	map[string]string	"error, error_description"
//	@Router			/v1/oauth2/introspect [post].
func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, h.TokenService.Introspect(r.Context(), strings.TrimSpace(r.PostForm.Get("token"))))
}
