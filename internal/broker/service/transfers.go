package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mona-chen/jean/internal/broker/cache"
	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/rooms"
	"github.com/mona-chen/jean/internal/broker/store"
	"github.com/mona-chen/jean/pkg/ledger"
	"github.com/mona-chen/jean/pkg/slogx"
)

const (
	DefaultInitiateGuardTTL = 24 * time.Hour
	DefaultConfirmGuardTTL  = 5 * time.Minute

	// RefundDelay is how long after a rejection the refund is expected.
	RefundDelay = 30 * time.Second

	ScopeWalletPay     = "wallet:pay"
	ScopeWalletBalance = "wallet:balance"
	ScopeWalletHistory = "wallet:history"

	// InviteURL is offered when the recipient has no wallet yet.
	InviteURL = "tween://invite-wallet"

	guardProcessing = "processing"
)

// Ledger is the transfer half of the ledger client.
type Ledger interface {
	Initiate(ctx context.Context, req ledger.InitiateRequest) (*ledger.Transfer, error)
	Confirm(ctx context.Context, transferID, actorID string, proof ledger.AuthProof) (*ledger.Transfer, error)
	Accept(ctx context.Context, transferID, actorID string) (*ledger.Transfer, error)
	Reject(ctx context.Context, transferID, actorID, reason string) (*ledger.Transfer, error)
	ExpiredTransfers(ctx context.Context) ([]ledger.Transfer, error)
}

// Rooms publishes transfer events and answers membership questions.
type Rooms interface {
	ShareRoom(ctx context.Context, a, b, roomID string) (bool, error)
	Publish(ctx context.Context, roomID, eventType string, content any) (string, error)
}

// Caller is the authenticated user behind a wallet request.
type Caller struct {
	User   domain.User
	Scopes []string
}

func (c Caller) HasScope(scope string) bool { return slices.Contains(c.Scopes, scope) }

type InitiateTransfer struct {
	Recipient      string      `json:"recipient"`
	Amount         json.Number `json:"amount"`
	Currency       string      `json:"currency"`
	IdempotencyKey string      `json:"idempotency_key"`
	RoomID         string      `json:"room_id,omitempty"`
	Note           string      `json:"note,omitempty"`
}

// TransferResult is a ledger transfer plus the room event announcing it.
type TransferResult struct {
	*ledger.Transfer
	EventID string `json:"event_id,omitempty"`
}

// RejectResult adds the refund expectation to a rejected transfer.
type RejectResult struct {
	*ledger.Transfer
	RefundInitiated  bool   `json:"refund_initiated"`
	RefundExpectedAt string `json:"refund_expected_at"`
}

// FeeQuote is the processing fee for a prospective transfer.
type FeeQuote struct {
	Amount   float64 `json:"amount"`
	Fee      float64 `json:"fee"`
	Currency string  `json:"currency"`
}

// RecipientNoWalletError is returned when the recipient has never been
// provisioned, so the client can offer an invite instead.
type RecipientNoWalletError struct {
	Recipient string
}

func (e *RecipientNoWalletError) Error() string {
	return "recipient " + e.Recipient + " does not have a wallet"
}

func (e *RecipientNoWalletError) Unwrap() error { return ErrRecipientNoWallet }

// TransferService drives P2P transfers against the ledger and mirrors their
// progress into the room they were made from.
type TransferService struct {
	Ledger Ledger
	Rooms  Rooms
	Users  *UserService
	Cache  cache.KV

	// AllowUnverifiedRooms skips the membership check when the homeserver
	// client is not configured.
	AllowUnverifiedRooms bool

	InitiateGuardTTL time.Duration
	ConfirmGuardTTL  time.Duration
	Now              func() time.Time
}

// Initiate starts a transfer from the caller to req.Recipient. The
// idempotency key is claimed before the ledger is called, so concurrent
// duplicates reach the ledger at most once.
func (s *TransferService) Initiate(ctx context.Context, caller Caller, req InitiateTransfer) (*TransferResult, error) {
	l := slogx.FromContext(ctx)

	if missing := missingFields(
		"recipient", req.Recipient,
		"amount", req.Amount.String(),
		"currency", req.Currency,
		"idempotency_key", req.IdempotencyKey,
	); len(missing) > 0 {
		return nil, describe(ErrInvalidRequest, "Missing required parameters: %s", strings.Join(missing, ", "))
	}
	if !caller.HasScope(ScopeWalletPay) {
		return nil, describe(ErrInsufficientScope, "wallet:pay scope required")
	}

	guard := cache.PrefixP2PInitiate + caller.User.MatrixUserID + ":" + req.IdempotencyKey
	claimed, err := s.Cache.SetNX(ctx, guard, []byte(guardProcessing), durationOr(s.InitiateGuardTTL, DefaultInitiateGuardTTL))
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, describe(ErrDuplicateRequest, "Duplicate request with same idempotency key")
	}

	transfer, err := s.initiate(ctx, caller, req)
	if err != nil {
		if derr := s.Cache.Delete(ctx, guard); derr != nil {
			l.Warn("failed to release idempotency guard", "err", derr)
		}
		return nil, err
	}

	if err := s.Cache.Set(ctx, guard, []byte(transfer.TransferID), durationOr(s.InitiateGuardTTL, DefaultInitiateGuardTTL)); err != nil {
		l.Warn("failed to record transfer id on idempotency guard", "err", err)
	}

	res := &TransferResult{Transfer: transfer}
	if req.RoomID != "" {
		content := rooms.NewP2PContent(transfer.TransferID, req.Amount, req.Currency)
		content.Note = req.Note
		content.Sender = rooms.UserRef{UserID: caller.User.MatrixUserID}
		content.Recipient = rooms.UserRef{UserID: req.Recipient}
		content.Status = transfer.Status
		content.RecipientAcceptanceRequired = transfer.RecipientAcceptanceRequired
		content.Timestamp = s.now().UTC().Format(time.RFC3339)
		res.EventID = s.publish(ctx, req.RoomID, rooms.EventTypeP2P, content)
	}

	l.Info("transfer initiated",
		"transfer_id", transfer.TransferID,
		"sender", caller.User.MatrixUserID,
		"recipient", req.Recipient,
		"status", transfer.Status,
	)
	return res, nil
}

func (s *TransferService) initiate(ctx context.Context, caller Caller, req InitiateTransfer) (*ledger.Transfer, error) {
	recipient, err := s.Users.Lookup(ctx, req.Recipient)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, &RecipientNoWalletError{Recipient: req.Recipient}
	case err != nil:
		return nil, err
	}

	if req.RoomID != "" {
		if err := s.checkSharedRoom(ctx, caller.User.MatrixUserID, recipient.MatrixUserID, req.RoomID); err != nil {
			return nil, err
		}
	}

	return s.Ledger.Initiate(ctx, ledger.InitiateRequest{
		SenderWalletID:    caller.User.WalletID,
		RecipientWalletID: recipient.WalletID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		RoomID:            req.RoomID,
		Note:              req.Note,
		ActorID:           caller.User.MatrixUserID,
	})
}

func (s *TransferService) checkSharedRoom(ctx context.Context, a, b, roomID string) error {
	shared, err := s.Rooms.ShareRoom(ctx, a, b, roomID)
	switch {
	case errors.Is(err, rooms.ErrNotConfigured) && s.AllowUnverifiedRooms:
		slogx.FromContext(ctx).Warn("room membership not verified, homeserver client not configured",
			"room_id", roomID)
		return nil
	case err != nil:
		slogx.FromContext(ctx).Error("room membership check failed", "room_id", roomID, "err", err)
		return describe(ErrServiceUnavailable, "Unable to verify room membership")
	case !shared:
		return describe(ErrNotRoomMember, "Users do not share a room")
	}
	return nil
}

// Confirm submits the sender's proof of authorization. With an idempotency
// key a second confirm inside the guard window is refused.
func (s *TransferService) Confirm(ctx context.Context, caller Caller, transferID string, proof ledger.AuthProof, idempotencyKey string) (*ledger.Transfer, error) {
	if transferID == "" {
		return nil, describe(ErrInvalidRequest, "transfer_id is required")
	}
	if !caller.HasScope(ScopeWalletPay) {
		return nil, describe(ErrInsufficientScope, "wallet:pay scope required")
	}
	if err := proof.Validate(); err != nil {
		return nil, describe(ErrInvalidRequest, "%s", err.Error())
	}

	var guard string
	if idempotencyKey != "" {
		guard = cache.PrefixP2PConfirm + caller.User.MatrixUserID + ":" + transferID
		claimed, err := s.Cache.SetNX(ctx, guard, []byte(idempotencyKey), durationOr(s.ConfirmGuardTTL, DefaultConfirmGuardTTL))
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, describe(ErrDuplicateRequest, "Duplicate request with same idempotency key")
		}
	}

	transfer, err := s.Ledger.Confirm(ctx, transferID, caller.User.MatrixUserID, proof)
	if err != nil {
		if guard != "" {
			if derr := s.Cache.Delete(ctx, guard); derr != nil {
				slogx.FromContext(ctx).Warn("failed to release confirm guard", "err", derr)
			}
		}
		return nil, mapTransferError(err)
	}

	slogx.FromContext(ctx).Info("transfer confirmed",
		"transfer_id", transferID, "method", proof.Method, "status", transfer.Status)
	return transfer, nil
}

// Accept is called by the recipient to take the funds.
func (s *TransferService) Accept(ctx context.Context, caller Caller, transferID string) (*ledger.Transfer, error) {
	if transferID == "" {
		return nil, describe(ErrInvalidRequest, "transfer_id is required")
	}
	transfer, err := s.Ledger.Accept(ctx, transferID, caller.User.MatrixUserID)
	if err != nil {
		return nil, mapTransferError(err)
	}

	if transfer.RoomID != "" {
		completedAt := s.stamp(transfer.CompletedAt)
		content := rooms.NewStatusContent(transfer.TransferID, ledger.StatusCompleted, completedAt)
		content.CompletedAt = completedAt
		s.publish(ctx, transfer.RoomID, rooms.EventTypeP2PStatus, content)
	}

	slogx.FromContext(ctx).Info("transfer accepted", "transfer_id", transferID)
	return transfer, nil
}

// Reject is called by the recipient to decline; the sender is refunded.
func (s *TransferService) Reject(ctx context.Context, caller Caller, transferID, reason string) (*RejectResult, error) {
	if transferID == "" {
		return nil, describe(ErrInvalidRequest, "transfer_id is required")
	}
	transfer, err := s.Ledger.Reject(ctx, transferID, caller.User.MatrixUserID, reason)
	if err != nil {
		return nil, mapTransferError(err)
	}

	if transfer.RoomID != "" {
		rejectedAt := s.stamp(transfer.RejectedAt)
		content := rooms.NewStatusContent(transfer.TransferID, ledger.StatusRejected, rejectedAt)
		content.RejectedAt = rejectedAt
		content.RefundInitiated = true
		s.publish(ctx, transfer.RoomID, rooms.EventTypeP2PStatus, content)
	}

	slogx.FromContext(ctx).Info("transfer rejected", "transfer_id", transferID, "reason", reason)
	return &RejectResult{
		Transfer:         transfer,
		RefundInitiated:  true,
		RefundExpectedAt: s.now().Add(RefundDelay).UTC().Format(time.RFC3339),
	}, nil
}

// Fee quotes the processing fee for amount.
func (s *TransferService) Fee(amount, currency string) (FeeQuote, error) {
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil || v <= 0 {
		return FeeQuote{}, describe(ErrInvalidRequest, "amount must be a positive number")
	}
	if currency == "" {
		return FeeQuote{}, describe(ErrInvalidRequest, "Missing required parameters: currency")
	}
	return FeeQuote{Amount: v, Fee: ledger.ProcessingFee(v), Currency: currency}, nil
}

// publish sends a room event. Failures are logged; the transfer itself has
// already happened.
func (s *TransferService) publish(ctx context.Context, roomID, eventType string, content any) string {
	if s.Rooms == nil {
		return ""
	}
	id, err := s.Rooms.Publish(ctx, roomID, eventType, content)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to publish room event",
			"room_id", roomID, "event_type", eventType, "err", err)
		return ""
	}
	return id
}

func (s *TransferService) stamp(t *time.Time) string {
	if t != nil && !t.IsZero() {
		return t.UTC().Format(time.RFC3339)
	}
	return s.now().UTC().Format(time.RFC3339)
}

func (s *TransferService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func mapTransferError(err error) error {
	if ledger.IsNotFound(err) {
		return describe(ErrTransferNotFound, "Transfer not found")
	}
	return err
}

// missingFields takes name/value pairs and returns the names with blank
// values.
func missingFields(pairs ...string) []string {
	var out []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			out = append(out, pairs[i])
		}
	}
	return out
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
