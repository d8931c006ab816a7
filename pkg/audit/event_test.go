package audit

import (
	"testing"
	"time"
)

const eventTestDuration = 120 * time.Millisecond

func TestNewEvent(t *testing.T) {
	event := NewEvent(ActionMove)

	if event.Action != ActionMove {
		t.Errorf("Action = %q, want %q", event.Action, ActionMove)
	}
	if event.ID == "" {
		t.Error("ID should not be empty")
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if event.Outcome != OutcomeOK || !event.Success {
		t.Errorf("new event should be OK and successful, got %q/%v", event.Outcome, event.Success)
	}
}

func TestEvent_Builders(t *testing.T) {
	event := NewEvent(ActionJoin).
		WithIdentity("psid-1").
		WithSession("sess-1").
		WithParameters(map[string]any{"code": "abcd2345"}).
		WithOutcome("SESSION_FULL", true, "").
		WithDuration(eventTestDuration).
		WithRequestID("req-1")

	if event.Identity != "psid-1" {
		t.Errorf("Identity = %q, want %q", event.Identity, "psid-1")
	}
	if event.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want %q", event.SessionID, "sess-1")
	}
	if event.Parameters["code"] != "abcd2345" {
		t.Error("Parameters not set correctly")
	}
	if event.Outcome != "SESSION_FULL" {
		t.Errorf("Outcome = %q, want SESSION_FULL", event.Outcome)
	}
	if event.DurationMS != eventTestDuration.Milliseconds() {
		t.Errorf("DurationMS = %d, want %d", event.DurationMS, eventTestDuration.Milliseconds())
	}
	if event.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want %q", event.RequestID, "req-1")
	}
}

func TestEvent_FailedOutcome(t *testing.T) {
	event := NewEvent(ActionMove).WithOutcome("STORE_FAILURE", false, "connection refused")

	if event.Success {
		t.Error("Success = true, want false")
	}
	if event.ErrorMessage != "connection refused" {
		t.Errorf("ErrorMessage = %q", event.ErrorMessage)
	}
}
