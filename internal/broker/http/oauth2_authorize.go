package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mona-chen/jean/internal/broker/service"
	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/mona-chen/jean/pkg/httpx"
)

// AuthorizeHandler serves GET /v1/oauth2/authorize.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
}

// ServeHTTP godoc
//
//	@Summary		Start Browser Authorization
//	@Description	Validates the request, remembers it for 15 minutes and redirects the browser to the delegation service. The delegation service calls back with the request id as state.
//	@Tags			OAuth2
//	@Param			response_type			query	string	true	"Must be code"
//	@Param			client_id				query	string	true	"Mini-app id"
//	@Param			redirect_uri			query	string	true	"Registered redirect URI"
//	@Param			scope					query	string	true	"Space-delimited scopes"
//	@Param			state					query	string	true	"Opaque client state"
//	@Param			code_challenge			query	string	true	"PKCE challenge"
//	@Param			code_challenge_method	query	string	true	"Must be S256"
//	@Success		302
//	@Failure		400	{object}	map[string]string	"error, error_description"
//	@Router			/v1/oauth2/authorize [get].
func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	location, err := h.AuthorizeService.Begin(r.Context(), service.AuthorizeRequest{
		ResponseType:        strings.TrimSpace(q.Get("response_type")),
		ClientID:            strings.TrimSpace(q.Get("client_id")),
		RedirectURI:         strings.TrimSpace(q.Get("redirect_uri")),
		Scope:               httpx.ParseSpaceDelimitedFields(q.Get("scope")),
		State:               q.Get("state"),
		CodeChallenge:       strings.TrimSpace(q.Get("code_challenge")),
		CodeChallengeMethod: strings.TrimSpace(q.Get("code_challenge_method")),
	})
	if err != nil {
		// The browser is not an authenticated client here, so an unknown
		// mini-app is a bad request rather than 401.
		if errors.Is(err, service.ErrInvalidClient) {
			authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidClient, orDefault(service.Description(err), "Unknown client_id")).WriteError(w)
			return
		}
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	http.Redirect(w, r, location, http.StatusFound)
}
