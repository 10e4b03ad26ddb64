/*
Package authsdk is the client SDK for the delegation broker.

# Overview

Mini-app backends use SDKClient to exchange a user's chat session token for
a TEP token, and Session to call the wallet API with it:

	client := authsdk.NewSDKClient("https://broker.example.com")

	session, err := client.AuthenticateWithMatrixToken(ctx, authsdk.ExchangeRequest{
		ClientID:     "ma_shop",
		SubjectToken: matrixToken,
		Scopes:       []string{"user:read", "wallet:pay"},
	})

# Consent

Sensitive scopes need the user's approval once per mini-app. Until then the
exchange fails with a *ConsentRequiredError:

	var consent *authsdk.ConsentRequiredError
	if errors.As(err, &consent) {
		// show consent.RequiredScopes to the user, then
		_, err = client.SubmitConsent(ctx, consent.SessionID, true)
		// and retry the exchange
	}

# Browser Authorization

	pkce, _ := authsdk.GeneratePKCEChallenge()
	location, err := client.StartAuthorization(ctx, "ma_shop", redirectURI, state, scopes, pkce)
	// send the browser to location; the callback carries the request id as state
	_, requestID, err := authsdk.ParseAuthorizationCallback(callbackURL)
	session, err := client.AuthenticateWithCode(ctx, "ma_shop", requestID, matrixToken, pkce.Verifier)

# Wallet Transfers

	tr, err := session.InitiateP2P(ctx, authsdk.InitiateP2PRequest{
		Recipient:      "@bob:tween.example",
		Amount:         "5000.00",
		Currency:       "USD",
		IdempotencyKey: "idem-1",
		RoomID:         "!room:tween.example",
	})

	var noWallet *authsdk.RecipientNoWalletError
	if errors.As(err, &noWallet) {
		// offer noWallet.InviteURL
	}

# Automatic Token Refresh

Sessions refresh the TEP token RefreshSkew before it expires, and once more
if the broker answers invalid_token. The refresh grant rotates the refresh
handle; the session stores the new one. Revoke ends the session.

# Thread Safety

Sessions are safe for concurrent use.
*/
package authsdk
