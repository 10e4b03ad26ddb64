package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/mona-chen/jean/internal/broker/cache"
	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/store"
	"github.com/mona-chen/jean/pkg/cryptox"
	"github.com/mona-chen/jean/pkg/idx"
	"github.com/mona-chen/jean/pkg/jwtx"
	"github.com/mona-chen/jean/pkg/slogx"
)

// DefaultConsentTTL is how long a user has to answer a consent prompt.
const DefaultConsentTTL = 15 * time.Minute

// SensitiveScopes need explicit user approval before they are granted
// silently.
var SensitiveScopes = []string{
	"wallet:pay",
	"wallet:request",
	"wallet:history",
	"messaging:send",
	"room:create",
	"room:invite",
}

func IsSensitive(scope string) bool { return slices.Contains(SensitiveScopes, scope) }

// ConsentDecision is the outcome of ConsentResolver.Resolve.
type ConsentDecision struct {
	AuthorizedScopes      []string
	PreApprovedScopes     []string
	ConsentRequiredScopes []string
	ConsentRequired       bool
	SessionID             string
}

// ConsentResolver decides which requested scopes the user has already
// approved and runs the consent sessions for the rest.
type ConsentResolver struct {
	Store      store.Store
	Cache      cache.KV
	SessionTTL time.Duration
	Now        func() time.Time
}

func (r *ConsentResolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve partitions scopes. Every call evaluates from the approval records
// alone and opens a fresh session when consent is needed.
func (r *ConsentResolver) Resolve(ctx context.Context, userID, appID string, scopes []string) (*ConsentDecision, error) {
	var sensitive []string
	for _, s := range scopes {
		if IsSensitive(s) {
			sensitive = append(sensitive, s)
		}
	}

	var approved []string
	if len(sensitive) > 0 {
		var err error
		approved, err = r.Store.Approvals().ApprovedScopes(ctx, userID, appID, sensitive)
		if err != nil {
			return nil, err
		}
	}

	d := &ConsentDecision{}
	for _, s := range scopes {
		if !IsSensitive(s) || slices.Contains(approved, s) {
			d.PreApprovedScopes = append(d.PreApprovedScopes, s)
		} else {
			d.ConsentRequiredScopes = append(d.ConsentRequiredScopes, s)
		}
	}

	if len(d.ConsentRequiredScopes) == 0 {
		d.AuthorizedScopes = d.PreApprovedScopes
		return d, nil
	}

	id, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	ttl := r.SessionTTL
	if ttl <= 0 {
		ttl = DefaultConsentTTL
	}
	session := domain.ConsentSession{
		UserID:                userID,
		MiniAppID:             appID,
		PreApprovedScopes:     d.PreApprovedScopes,
		ConsentRequiredScopes: d.ConsentRequiredScopes,
	}
	if err := cache.SetJSON(ctx, r.Cache, cache.PrefixConsent+id, session, ttl); err != nil {
		return nil, err
	}

	d.ConsentRequired = true
	d.SessionID = id
	return d, nil
}

// Submit records the user's answer for a consent session. Approval writes
// one record per consent-required scope; a decline returns
// ErrConsentDeclined. Either way the session is consumed.
func (r *ConsentResolver) Submit(ctx context.Context, sessionID string, approved bool) (domain.ConsentSession, error) {
	var session domain.ConsentSession
	if sessionID == "" {
		return session, describe(ErrInvalidRequest, "Invalid or expired consent session")
	}
	key := cache.PrefixConsent + sessionID
	if err := cache.GetJSON(ctx, r.Cache, key, &session); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return session, describe(ErrInvalidRequest, "Invalid or expired consent session")
		}
		return session, err
	}

	if !approved {
		if err := r.Cache.Delete(ctx, key); err != nil {
			return session, err
		}
		slogx.FromContext(ctx).Info("consent declined",
			"matrix_user_id", session.UserID, "miniapp_id", session.MiniAppID)
		return session, describe(ErrConsentDeclined, "User declined consent")
	}

	now := r.now()
	err := r.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, scope := range session.ConsentRequiredScopes {
			err := tx.Approvals().CreateApproval(ctx, domain.Approval{
				ID:         idx.NewAt(idx.Approval, now).String(),
				UserID:     session.UserID,
				MiniAppID:  session.MiniAppID,
				Scope:      scope,
				ApprovedAt: now,
				Method:     domain.ApprovalMethodUserConsent,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return session, err
	}

	if err := r.Cache.Delete(ctx, key); err != nil {
		return session, err
	}
	slogx.FromContext(ctx).Info("consent recorded",
		"matrix_user_id", session.UserID,
		"miniapp_id", session.MiniAppID,
		"scopes", session.ConsentRequiredScopes)
	return session, nil
}

// ApprovalHistory returns the newest approvals for the scopes, shaped for
// the approval_history claim.
func (r *ConsentResolver) ApprovalHistory(ctx context.Context, userID, appID string, scopes []string) ([]jwtx.Approval, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	records, err := r.Store.Approvals().ListApprovals(ctx, userID, appID, scopes, jwtx.MaxApprovalHistory)
	if err != nil {
		return nil, err
	}

	out := make([]jwtx.Approval, len(records))
	for i, a := range records {
		out[i] = jwtx.Approval{Scope: a.Scope, ApprovedAt: a.ApprovedAt, ApprovalMethod: a.Method}
	}
	return out, nil
}
