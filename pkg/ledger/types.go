package ledger

import (
	"encoding/json"
	"time"
)

// Transfer states as reported by the ledger.
const (
	StatusPendingConfirmation        = "pending_confirmation"
	StatusPendingRecipientAcceptance = "pending_recipient_acceptance"
	StatusCompleted                  = "completed"
	StatusRejected                   = "rejected"
	StatusExpired                    = "expired"
)

// Transfer is the ledger's view of a P2P transfer. Amount is kept as the
// decimal string the ledger sent; the broker never does arithmetic on it.
type Transfer struct {
	TransferID                  string      `json:"transfer_id"`
	Status                      string      `json:"status"`
	Amount                      json.Number `json:"amount,omitempty"`
	Currency                    string      `json:"currency,omitempty"`
	SenderWalletID              string      `json:"sender_wallet_id,omitempty"`
	RecipientWalletID           string      `json:"recipient_wallet_id,omitempty"`
	SenderUserID                string      `json:"sender_user_id,omitempty"`
	RecipientUserID             string      `json:"recipient_user_id,omitempty"`
	RoomID                      string      `json:"room_id,omitempty"`
	Note                        string      `json:"note,omitempty"`
	RecipientAcceptanceRequired bool        `json:"recipient_acceptance_required"`
	Expired                     bool        `json:"expired,omitempty"`
	CreatedAt                   *time.Time  `json:"created_at,omitempty"`
	ExpiresAt                   *time.Time  `json:"expires_at,omitempty"`
	CompletedAt                 *time.Time  `json:"completed_at,omitempty"`
	RejectedAt                  *time.Time  `json:"rejected_at,omitempty"`
}

// IsFinal reports whether no further transition is possible.
func (t *Transfer) IsFinal() bool {
	switch t.Status {
	case StatusCompleted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// InitiateRequest is sent to the ledger to create a transfer.
type InitiateRequest struct {
	SenderWalletID    string      `json:"sender_wallet_id"`
	RecipientWalletID string      `json:"recipient_wallet_id"`
	Amount            json.Number `json:"amount"`
	Currency          string      `json:"currency"`
	RoomID            string      `json:"room_id,omitempty"`
	Note              string      `json:"note,omitempty"`

	// ActorID is sent as X-TMCP-User-ID.
	ActorID string `json:"-"`
}

type confirmBody struct {
	AuthProof AuthProof `json:"auth_proof"`
}

type rejectBody struct {
	Reason string `json:"reason,omitempty"`
}

type registerBody struct {
	UserID   string `json:"user_id"`
	Currency string `json:"currency"`
}

type expiredList struct {
	Transfers []Transfer `json:"transfers"`
}

type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}
