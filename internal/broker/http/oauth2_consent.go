package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mona-chen/jean/internal/broker/service"
	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/mona-chen/jean/pkg/httpx"
)

// ConsentHandler serves POST /v1/oauth2/consent.
type ConsentHandler struct {
	Consent *service.ConsentResolver
}

type consentRequest struct {
	Session  string `json:"session"`
	Approved *bool  `json:"approved"`
}

// ServeHTTP godoc
//
//	@Summary		Record Consent
//	@Description	Records the user's decision for a consent session opened by the token endpoint. Approval stores one approval per scope; the client then repeats the token exchange.
//	@Tags			OAuth2
//	@Accept			json,application/x-www-form-urlencoded
//	@Produce		json
//	@Param			session		formData	string	true	"Consent session id"
//	@Param			approved	formData	bool	true	"User decision"
//	@Success		200			{object}	authsdk.ConsentResponse
//	@Failure		400			{object}	map[string]string	"invalid_request or consent_declined"
//	@Router			/v1/oauth2/consent [post].
func (h *ConsentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, ok := parseConsent(r)
	if !ok || req.Approved == nil {
		authsdk.ErrInvalidRequest.WithDescription("session and approved are required").WriteError(w)
		return
	}

	if _, err := h.Consent.Submit(r.Context(), req.Session, *req.Approved); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.ConsentResponse{Message: "Consent recorded successfully"})
}

func parseConsent(r *http.Request) (consentRequest, bool) {
	var req consentRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, false
		}
		return req, true
	}

	if err := r.ParseForm(); err != nil {
		return req, false
	}
	req.Session = r.PostForm.Get("session")
	switch strings.ToLower(r.PostForm.Get("approved")) {
	case "true", "1", "yes":
		req.Approved = ptr(true)
	case "false", "0", "no":
		req.Approved = ptr(false)
	}
	return req, true
}

func ptr[T any](v T) *T { return &v }
