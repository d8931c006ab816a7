// Package game implements the chess session lifecycle and move pipeline
// driven by participant commands and channel read receipts.
//
// Every exported operation resolves user mistakes (unknown join code, move
// out of turn, illegal move, and so on) by messaging the participant and
// returning nil. Only store and transport failures are returned.
package game

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/txn2/chessline/pkg/audit"
	"github.com/txn2/chessline/pkg/joincode"
	"github.com/txn2/chessline/pkg/rules"
	"github.com/txn2/chessline/pkg/session"
)

// defaultCodeAttempts bounds join code generation retries on collision.
const defaultCodeAttempts = 5

// Notifier sends participant-facing messages.
type Notifier interface {
	// Text sends a text message.
	Text(ctx context.Context, to, body string) error

	// Board sends a board image for position and returns the channel
	// message id.
	Board(ctx context.Context, to, position string) (string, error)
}

// Config configures a Service.
type Config struct {
	Store    session.Store
	Oracle   rules.Oracle
	Notifier Notifier

	// Audit records one event per operation. Defaults to a no-op logger.
	Audit audit.Logger

	Logger *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// ClockSeconds is each seat's starting budget.
	ClockSeconds int

	// NewCode generates join codes. Defaults to joincode.New.
	NewCode func() (string, error)

	// CodeAttempts bounds retries when a generated code is taken.
	CodeAttempts int
}

// Service runs games.
type Service struct {
	store        session.Store
	oracle       rules.Oracle
	notifier     Notifier
	audit        audit.Logger
	logger       *slog.Logger
	now          func() time.Time
	clockSeconds int
	newCode      func() (string, error)
	codeAttempts int
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("game: store is required")
	}
	if cfg.Oracle == nil {
		return nil, errors.New("game: oracle is required")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("game: notifier is required")
	}

	s := &Service{
		store:        cfg.Store,
		oracle:       cfg.Oracle,
		notifier:     cfg.Notifier,
		audit:        cfg.Audit,
		logger:       cfg.Logger,
		now:          cfg.Now,
		clockSeconds: cfg.ClockSeconds,
		newCode:      cfg.NewCode,
		codeAttempts: cfg.CodeAttempts,
	}
	if s.audit == nil {
		s.audit = audit.NoopLogger{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.clockSeconds <= 0 {
		s.clockSeconds = DefaultClockSeconds
	}
	if s.newCode == nil {
		s.newCode = joincode.New
	}
	if s.codeAttempts <= 0 {
		s.codeAttempts = defaultCodeAttempts
	}
	return s, nil
}

// op is the per-call state shared by an operation and its audit event.
type op struct {
	event    *audit.Event
	identity string
	started  time.Time
}

func (s *Service) begin(action audit.Action, identity string) *op {
	now := s.now()
	event := audit.NewEvent(action).WithIdentity(identity)
	event.Timestamp = now
	return &op{event: event, identity: identity, started: now}
}

// finish settles the result of an operation: user-facing errors are sent
// to the participant, everything is audited, and only failures that need
// an operator are returned.
func (s *Service) finish(ctx context.Context, o *op, err error) error {
	code := CodeOf(err)
	if err != nil && code.UserFacing() {
		o.event.WithOutcome(string(code), true, "")
		if nerr := s.text(ctx, o.identity, code.UserMessage()); nerr != nil {
			err = nerr
			code = CodeTransportFailure
		} else {
			err = nil
		}
	}

	if err != nil {
		if code == "" {
			code = CodeStoreFailure
		}
		o.event.WithOutcome(string(code), false, err.Error())
		s.logger.Error("game operation failed",
			"action", o.event.Action,
			"identity", o.identity,
			"session_id", o.event.SessionID,
			"code", code,
			"error", err)
	}
	o.event.WithDuration(s.now().Sub(o.started))

	if aerr := s.audit.Log(ctx, *o.event); aerr != nil {
		s.logger.Warn("failed to record game event", "action", o.event.Action, "error", aerr)
	}
	return err
}

func (s *Service) text(ctx context.Context, to, body string) error {
	if err := s.notifier.Text(ctx, to, body); err != nil {
		return transportFailure("sending message", err)
	}
	return nil
}

func (s *Service) board(ctx context.Context, to, position string) (string, error) {
	id, err := s.notifier.Board(ctx, to, position)
	if err != nil {
		return "", transportFailure("sending board", err)
	}
	return id, nil
}

// textAll sends body to each identity, stopping at the first failure.
func (s *Service) textAll(ctx context.Context, body string, identities ...string) error {
	for _, id := range identities {
		if err := s.text(ctx, id, body); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) findByIdentity(ctx context.Context, identity string) (*session.Session, error) {
	sess, err := s.store.FindActiveByIdentity(ctx, identity)
	if err != nil {
		return nil, storeFailure("finding session by identity", err)
	}
	return sess, nil
}

func (s *Service) findByCode(ctx context.Context, code string) (*session.Session, error) {
	sess, err := s.store.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, storeFailure("finding session by code", err)
	}
	return sess, nil
}

func (s *Service) update(ctx context.Context, id string, p session.Patch) error {
	if err := s.store.UpdateFields(ctx, id, p); err != nil {
		return storeFailure("updating session", err)
	}
	return nil
}

func (s *Service) updateIf(ctx context.Context, id string, cond session.Condition, p session.Patch) (bool, error) {
	ok, err := s.store.UpdateFieldsIf(ctx, id, cond, p)
	if err != nil {
		return false, storeFailure("updating session", err)
	}
	return ok, nil
}

// turn asks the oracle for the side to move in a stored position.
func (s *Service) turn(position string) (session.Color, error) {
	c, err := s.oracle.Turn(position)
	if err != nil {
		return "", storeFailure("reading stored position", err)
	}
	return c, nil
}
