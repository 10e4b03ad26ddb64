package rooms

import "encoding/json"

const (
	EventTypeP2P       = "m.tween.wallet.p2p"
	EventTypeP2PStatus = "m.tween.wallet.p2p.status"

	MsgTypeMoney = "m.tween.money"
)

type UserRef struct {
	UserID string `json:"user_id"`
}

// P2PContent announces a new transfer in the room it was sent from.
type P2PContent struct {
	MsgType                     string      `json:"msgtype"`
	Body                        string      `json:"body"`
	TransferID                  string      `json:"transfer_id"`
	Amount                      json.Number `json:"amount"`
	Currency                    string      `json:"currency"`
	Note                        string      `json:"note,omitempty"`
	Sender                      UserRef     `json:"sender"`
	Recipient                   UserRef     `json:"recipient"`
	Status                      string      `json:"status"`
	RecipientAcceptanceRequired bool        `json:"recipient_acceptance_required"`
	Timestamp                   string      `json:"timestamp"`
}

// NewP2PContent fills the fixed fields of a transfer announcement.
func NewP2PContent(transferID string, amount json.Number, currency string) P2PContent {
	return P2PContent{
		MsgType:    MsgTypeMoney,
		Body:       "💸 Sent " + amount.String() + " " + currency,
		TransferID: transferID,
		Amount:     amount,
		Currency:   currency,
	}
}

// Visual is the rendering hint clients use for a status update.
type Visual struct {
	Icon       string `json:"icon"`
	Color      string `json:"color"`
	StatusText string `json:"status_text"`
}

// VisualFor maps a transfer status to its rendering hint.
func VisualFor(status string) Visual {
	switch status {
	case "completed":
		return Visual{Icon: "✓", Color: "green", StatusText: "Accepted"}
	case "rejected":
		return Visual{Icon: "✕", Color: "red", StatusText: "Declined"}
	case "expired":
		return Visual{Icon: "⏰", Color: "gray", StatusText: "Expired"}
	default:
		return Visual{Icon: "⏳", Color: "yellow", StatusText: status}
	}
}

// StatusContent reports a transfer state change.
type StatusContent struct {
	TransferID      string `json:"transfer_id"`
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	Visual          Visual `json:"visual"`
	RoomID          string `json:"room_id,omitempty"`
	CompletedAt     string `json:"completed_at,omitempty"`
	RejectedAt      string `json:"rejected_at,omitempty"`
	RefundInitiated bool   `json:"refund_initiated,omitempty"`
}

// NewStatusContent builds a status update with the visual for status.
func NewStatusContent(transferID, status, timestamp string) StatusContent {
	return StatusContent{
		TransferID: transferID,
		Status:     status,
		Timestamp:  timestamp,
		Visual:     VisualFor(status),
	}
}
