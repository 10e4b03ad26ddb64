package rooms

import (
	"context"
	"errors"
	"net/http"
)

// Publish sends a custom event into roomID and returns the homeserver's
// event id. It returns "" and no error when publishing is disabled.
func (c *Client) Publish(ctx context.Context, roomID, eventType string, content any) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	if roomID == "" {
		return "", errors.New("rooms: publish: room id required")
	}

	var out struct {
		EventID string `json:"event_id"`
	}
	endpoint := c.roomPath(roomID, "send", eventType, c.NewTxnID())
	if err := c.do(ctx, "publish", http.MethodPut, endpoint, content, &out); err != nil {
		return "", err
	}
	return out.EventID, nil
}
