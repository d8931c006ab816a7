// Package session provides the game session record and its persistence.
// It defines the Store interface for session persistence and the Session type
// that represents one two-player game played over the messaging channel.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateJoinCode is returned by Insert when another active session
// already holds the join code.
var ErrDuplicateJoinCode = errors.New("join code already in use")

// Color identifies one of the two seats in a session.
type Color string

const (
	// Black is the seat bound to the session creator.
	Black Color = "black"

	// White is the seat bound when a second participant joins.
	White Color = "white"
)

// Opposite returns the other seat.
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// Phase tracks whether the opening notifications were sent.
type Phase string

const (
	// PhaseUnstarted is a session that has not been started yet.
	PhaseUnstarted Phase = "unstarted"

	// PhaseInProgress is a session whose start notifications went out.
	PhaseInProgress Phase = "in_progress"
)

// EndReason records why a session was deactivated.
type EndReason string

const (
	EndNone      EndReason = ""
	EndLeft      EndReason = "left"
	EndCheckmate EndReason = "checkmate"
	EndGameOver  EndReason = "game_over"
	EndTimeout   EndReason = "timeout"
)

// LastMove tracks the most recent board notification sent to a seat.
type LastMove struct {
	// DispatchedMessageID is the channel message id of the board image.
	DispatchedMessageID string `json:"dispatched_message_id,omitempty"`

	// DispatchedAt is when the board image was sent.
	DispatchedAt time.Time `json:"dispatched_at,omitzero"`

	// SeenAt is when the channel reported the board image as read.
	// Zero until the read receipt arrives.
	SeenAt time.Time `json:"seen_at,omitzero"`
}

// Reference returns the instant the seat's thinking time starts from:
// the read receipt when present, otherwise the dispatch time.
func (m LastMove) Reference() time.Time {
	if !m.SeenAt.IsZero() {
		return m.SeenAt
	}
	return m.DispatchedAt
}

// Seat is one side of a session.
type Seat struct {
	// Identity is the participant's channel address. Empty while unbound.
	Identity string `json:"identity,omitempty"`

	// RemainingSeconds is the clock budget left for this seat.
	RemainingSeconds int `json:"remaining_seconds"`

	LastMove LastMove `json:"last_move"`
}

// Bound reports whether a participant occupies the seat.
func (s Seat) Bound() bool {
	return s.Identity != ""
}

// Session represents one two-player game.
type Session struct {
	// ID is the unique session identifier.
	ID string `json:"id"`

	// JoinCode is the short code a second participant uses to join.
	// Unique among active sessions.
	JoinCode string `json:"join_code"`

	// Active is true until the session ends. It never flips back.
	Active bool `json:"active"`

	Phase Phase `json:"phase"`

	// Position is the board in Forsyth-Edwards Notation.
	Position string `json:"position"`

	Black Seat `json:"black"`
	White Seat `json:"white"`

	EndReason EndReason `json:"end_reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
}

// Seat returns the seat for the given color.
func (s *Session) Seat(c Color) Seat {
	if c == White {
		return s.White
	}
	return s.Black
}

// ColorOf returns the seat occupied by identity.
func (s *Session) ColorOf(identity string) (Color, bool) {
	switch {
	case identity == "":
		return "", false
	case s.Black.Identity == identity:
		return Black, true
	case s.White.Identity == identity:
		return White, true
	default:
		return "", false
	}
}

// Participants returns the identities of the bound seats, black first.
func (s *Session) Participants() []string {
	out := make([]string, 0, 2)
	if s.Black.Bound() {
		out = append(out, s.Black.Identity)
	}
	if s.White.Bound() {
		out = append(out, s.White.Identity)
	}
	return out
}

// SeatPatch holds the seat fields to overwrite. Nil fields are left as is.
type SeatPatch struct {
	RemainingSeconds *int

	// LastMove replaces the whole last-move record, clearing SeenAt
	// unless it is set on the replacement.
	LastMove *LastMove

	// SeenAt sets only the read receipt time.
	SeenAt *time.Time
}

func (p *SeatPatch) empty() bool {
	return p == nil || (p.RemainingSeconds == nil && p.LastMove == nil && p.SeenAt == nil)
}

// Patch is a partial update of a session. Nil fields are left untouched.
// Stores apply each field independently; concurrent patches touching
// disjoint fields never overwrite each other.
type Patch struct {
	Active        *bool
	Phase         *Phase
	Position      *string
	WhiteIdentity *string
	EndReason     *EndReason
	EndedAt       *time.Time

	Black *SeatPatch
	White *SeatPatch
}

// Seat returns the seat patch for c, allocating it when needed.
func (p *Patch) Seat(c Color) *SeatPatch {
	if c == White {
		if p.White == nil {
			p.White = &SeatPatch{}
		}
		return p.White
	}
	if p.Black == nil {
		p.Black = &SeatPatch{}
	}
	return p.Black
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Active == nil && p.Phase == nil && p.Position == nil &&
		p.WhiteIdentity == nil && p.EndReason == nil && p.EndedAt == nil &&
		p.Black.empty() && p.White.empty()
}

// Deactivate returns a patch that ends the session.
func Deactivate(reason EndReason, at time.Time) Patch {
	inactive := false
	return Patch{Active: &inactive, EndReason: &reason, EndedAt: &at}
}

// Condition guards a conditional update. Zero-valued fields are not checked.
type Condition struct {
	// Active requires the session to be active.
	Active bool

	// Phase requires the session to be in the given phase.
	Phase Phase

	// WhiteUnbound requires the white seat to be empty.
	WhiteUnbound bool
}

// Matches reports whether s satisfies the condition.
func (c Condition) Matches(s *Session) bool {
	if c.Active && !s.Active {
		return false
	}
	if c.Phase != "" && s.Phase != c.Phase {
		return false
	}
	if c.WhiteUnbound && s.White.Bound() {
		return false
	}
	return true
}

// Filter selects sessions for listing.
type Filter struct {
	Identity   string
	ActiveOnly bool
	Limit      int
}

// Store defines the interface for session persistence.
type Store interface {
	// Insert persists a new session. An empty ID is assigned by the store.
	// Returns ErrDuplicateJoinCode when the code is held by an active session.
	Insert(ctx context.Context, s *Session) error

	// Get retrieves a session by ID. Returns nil, nil if not found.
	Get(ctx context.Context, id string) (*Session, error)

	// FindActiveByIdentity returns the active session that has identity in
	// either seat. Returns nil, nil if none.
	FindActiveByIdentity(ctx context.Context, identity string) (*Session, error)

	// FindActiveByCode returns the active session with the join code.
	// Returns nil, nil if none.
	FindActiveByCode(ctx context.Context, code string) (*Session, error)

	// List returns sessions matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*Session, error)

	// UpdateFields applies the patch. Updating a missing session is a no-op.
	UpdateFields(ctx context.Context, id string, p Patch) error

	// UpdateFieldsIf applies the patch only when the session satisfies the
	// condition, atomically. It reports whether the patch was applied.
	UpdateFieldsIf(ctx context.Context, id string, cond Condition, p Patch) (bool, error)

	// Close releases resources.
	Close() error
}
