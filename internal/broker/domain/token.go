package domain

// TokenBundle is what the token endpoint returns after an exchange. The
// refresh grant returns only the first five fields.
type TokenBundle struct {
	AccessToken       string `json:"access_token"`
	TokenType         string `json:"token_type"`
	ExpiresIn         int64  `json:"expires_in"`
	RefreshToken      string `json:"refresh_token"`
	Scope             string `json:"scope"`
	UserID            string `json:"user_id,omitempty"`
	WalletID          string `json:"wallet_id,omitempty"`
	MatrixAccessToken string `json:"matrix_access_token,omitempty"`
	MatrixExpiresIn   int64  `json:"matrix_expires_in,omitempty"`
	DelegatedSession  bool   `json:"delegated_session,omitempty"`
}
