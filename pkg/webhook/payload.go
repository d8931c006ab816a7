package webhook

import (
	"encoding/json"
	"strings"
	"time"
)

// address is a channel participant. The channel sends it either as a bare
// string or as an object with an id.
type address string

// UnmarshalJSON accepts "id" and {"id": "..."}.
func (a *address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = address(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*a = address(obj.ID)
	return nil
}

// inboundPayload is the body POSTed to /inbound.
type inboundPayload struct {
	MessageUUID string  `json:"message_uuid"`
	Timestamp   string  `json:"timestamp"`
	From        address `json:"from"`
	Text        string  `json:"text"`
	Message     struct {
		Content struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// text returns the message text from either payload shape.
func (p inboundPayload) text() string {
	if p.Text != "" {
		return p.Text
	}
	return p.Message.Content.Text
}

// statusPayload is the body POSTed to /status.
type statusPayload struct {
	MessageUUID string  `json:"message_uuid"`
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	To          address `json:"to"`
}

// parseTimestamp reads an RFC 3339 channel timestamp, falling back to
// fallback when it is missing or malformed.
func parseTimestamp(s string, fallback time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fallback, false
	}
	return t, true
}
