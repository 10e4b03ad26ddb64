package http

import (
	"net/http"
	"time"

	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/mona-chen/jean/pkg/httpx"
	"github.com/mona-chen/jean/pkg/jwtx"
)

// JWKSHandler publishes the TEP verification keys.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set mini-app backends use to verify TEP tokens offline.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.CacheFor(w, 5*time.Minute)
		httpx.WriteJSON(w, http.StatusOK, authsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
