package wpapi

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/felixgeelhaar/twcadmin/internal/gateway"
)

// Event is one activity log entry.
type Event struct {
	ID        int             `json:"id"`
	Date      string          `json:"date"`
	Logger    string          `json:"logger"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Initiator string          `json:"initiator"`
	Context   json.RawMessage `json:"context,omitempty"`
}

// ListEvents returns one page of activity events, newest first.
func (c *Client) ListEvents(ctx context.Context, p ListParams) (*Page[Event], error) {
	return list[Event](ctx, c, PathEvents, p.values(), "Failed to load activity log")
}

// GetEvent returns one activity event.
func (c *Client) GetEvent(ctx context.Context, id int) (*Event, error) {
	var e Event
	if err := c.get(ctx, itemPath(PathEvents, id), nil, &e, "Failed to load event"); err != nil {
		return nil, err
	}
	return &e, nil
}

// NewEventCount returns how many events were logged after sinceID.
func (c *Client) NewEventCount(ctx context.Context, sinceID int) (int, error) {
	q := url.Values{"since_id": []string{strconv.Itoa(sinceID)}}
	resp, err := c.gw.Do(ctx, gateway.Get(PathEvents+"/new", q))
	if err != nil {
		return 0, wrap(err, "Failed to check for new events")
	}

	body := gjson.ParseBytes(resp.Body)
	if body.IsArray() {
		return len(body.Array()), nil
	}
	for _, key := range []string{"new_events_count", "count"} {
		if v := body.Get(key); v.Exists() {
			return int(v.Int()), nil
		}
	}
	return 0, nil
}

// EventSummary returns the activity statistics summary as raw JSON.
func (c *Client) EventSummary(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, PathEventStats, nil, &out, "Failed to load activity summary"); err != nil {
		return nil, err
	}
	return out, nil
}
