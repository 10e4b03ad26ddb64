package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// UserAgent is sent on every request the SDK makes.
const UserAgent = "tep-authsdk/1"

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

// newRequest builds a broker request. body may be nil.
func (c *SDKClient) newRequest(ctx context.Context, method, path, contentType string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", UserAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *SDKClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// postForm sends an unauthenticated form POST and decodes a 200 response
// into out.
func (c *SDKClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, contentTypeForm, []byte(form.Encode()))
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, http.StatusOK)
}

// call sends an authenticated request on behalf of the session and decodes
// a 200 response into out. payload, when non-nil, is sent as JSON. A 401
// invalid_token triggers one refresh and one retry.
func (s *Session) call(ctx context.Context, method, path string, payload, out any, requiredScopes ...string) error {
	if err := s.checkScopes(requiredScopes...); err != nil {
		return err
	}

	var (
		body        []byte
		contentType string
	)
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body, contentType = b, contentTypeJSON
	}

	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		req, err := s.client.newRequest(ctx, method, path, contentType, body)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := s.client.send(req)
		if err != nil {
			return err
		}
		err = decodeJSON(resp, out, http.StatusOK)
		if attempt > 0 || !errors.Is(err, ErrInvalidToken) || s.RefreshToken() == "" {
			return err
		}

		token, err = s.forceRefresh(ctx, token)
		if err != nil {
			return err
		}
	}
}

// decodeJSON reads resp and decodes it into target when the status matches.
// Other statuses become an *OAuth2Error, *ConsentRequiredError or
// *RecipientNoWalletError.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, body)
	}
	if target == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
