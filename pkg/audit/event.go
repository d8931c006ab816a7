package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names the command or channel event being audited.
type Action string

const (
	ActionCreate  Action = "create"
	ActionJoin    Action = "join"
	ActionStart   Action = "start"
	ActionLeave   Action = "leave"
	ActionMove    Action = "move"
	ActionReceipt Action = "receipt"
	ActionBoard   Action = "board"
	ActionHelp    Action = "help"
)

// OutcomeOK marks an event that completed normally.
const OutcomeOK = "OK"

// NewEvent creates a new audit event.
func NewEvent(action Action) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Action:    action,
		Outcome:   OutcomeOK,
		Success:   true,
	}
}

// WithIdentity adds the acting participant.
func (e *Event) WithIdentity(identity string) *Event {
	e.Identity = identity
	return e
}

// WithSession adds the session the event applied to.
func (e *Event) WithSession(sessionID string) *Event {
	e.SessionID = sessionID
	return e
}

// WithParameters adds parameters to the event.
func (e *Event) WithParameters(params map[string]any) *Event {
	e.Parameters = params
	return e
}

// WithOutcome records a non-OK outcome. Expected outcomes such as a
// rejected move still count as successful handling.
func (e *Event) WithOutcome(outcome string, success bool, errorMsg string) *Event {
	e.Outcome = outcome
	e.Success = success
	e.ErrorMessage = errorMsg
	return e
}

// WithDuration records how long handling took.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.DurationMS = d.Milliseconds()
	return e
}

// WithRequestID adds a request ID to the event.
func (e *Event) WithRequestID(requestID string) *Event {
	e.RequestID = requestID
	return e
}
