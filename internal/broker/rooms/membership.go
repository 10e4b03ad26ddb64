package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// JoinedMembers lists the user ids currently joined to roomID.
func (c *Client) JoinedMembers(ctx context.Context, roomID string) ([]string, error) {
	var out struct {
		Joined map[string]json.RawMessage `json:"joined"`
	}
	if err := c.do(ctx, "joined_members", http.MethodGet, c.roomPath(roomID, "joined_members"), nil, &out); err != nil {
		return nil, err
	}

	members := make([]string, 0, len(out.Joined))
	for id := range out.Joined {
		members = append(members, id)
	}
	return members, nil
}

// ShareRoom reports whether both users are joined to roomID. A room the
// broker cannot see (403/404) counts as not shared.
func (c *Client) ShareRoom(ctx context.Context, a, b, roomID string) (bool, error) {
	members, err := c.JoinedMembers(ctx, roomID)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.Status == http.StatusForbidden || se.Status == http.StatusNotFound) {
			return false, nil
		}
		return false, err
	}

	var seenA, seenB bool
	for _, m := range members {
		seenA = seenA || m == a
		seenB = seenB || m == b
	}
	return seenA && seenB, nil
}
