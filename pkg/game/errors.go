package game

import (
	"errors"

	"github.com/txn2/chessline/pkg/notify"
)

// Code classifies a game error.
type Code string

const (
	CodeAlreadyInSession Code = "ALREADY_IN_SESSION"
	CodeNoSuchCode       Code = "NO_SUCH_CODE"
	CodeSessionFull      Code = "SESSION_FULL"
	CodeNotInSession     Code = "NOT_IN_SESSION"
	CodeMalformedMove    Code = "MALFORMED_MOVE"
	CodeNotYourTurn      Code = "NOT_YOUR_TURN"
	CodeIllegalMove      Code = "ILLEGAL_MOVE"
	CodeTransportFailure Code = "TRANSPORT_FAILURE"
	CodeStoreFailure     Code = "STORE_FAILURE"
)

// userMessages maps the codes reported back to the participant.
var userMessages = map[Code]string{
	CodeAlreadyInSession: notify.MsgAlreadyInSession,
	CodeNoSuchCode:       notify.MsgNoSuchCode,
	CodeSessionFull:      notify.MsgSessionFull,
	CodeNotInSession:     notify.MsgNotInSession,
	CodeMalformedMove:    notify.MsgMalformedMove,
	CodeNotYourTurn:      notify.MsgNotYourTurn,
	CodeIllegalMove:      notify.MsgIllegalMove,
}

// UserFacing reports whether the code is answered with a message to the
// participant instead of being returned to the caller.
func (c Code) UserFacing() bool {
	_, ok := userMessages[c]
	return ok
}

// UserMessage returns the participant-facing text for the code, or "".
func (c Code) UserMessage() string {
	return userMessages[c]
}

// Error is a game error carrying a Code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is checks.
var (
	ErrAlreadyInSession = &Error{Code: CodeAlreadyInSession, Message: "already in an active session"}
	ErrNoSuchCode       = &Error{Code: CodeNoSuchCode, Message: "no active session with that code"}
	ErrSessionFull      = &Error{Code: CodeSessionFull, Message: "session already has two players"}
	ErrNotInSession     = &Error{Code: CodeNotInSession, Message: "not in an active session"}
	ErrMalformedMove    = &Error{Code: CodeMalformedMove, Message: "malformed move"}
	ErrNotYourTurn      = &Error{Code: CodeNotYourTurn, Message: "not your turn"}
	ErrIllegalMove      = &Error{Code: CodeIllegalMove, Message: "illegal move"}
	ErrTransportFailure = &Error{Code: CodeTransportFailure, Message: "notification failed"}
	ErrStoreFailure     = &Error{Code: CodeStoreFailure, Message: "session store failed"}
)

func storeFailure(msg string, cause error) *Error {
	return &Error{Code: CodeStoreFailure, Message: msg, Cause: cause}
}

func transportFailure(msg string, cause error) *Error {
	return &Error{Code: CodeTransportFailure, Message: msg, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
