package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/txn2/chessline/pkg/audit"
	"github.com/txn2/chessline/pkg/joincode"
	"github.com/txn2/chessline/pkg/notify"
	"github.com/txn2/chessline/pkg/session"
)

// Create opens a new session with identity in the black seat and sends
// the creator the join code.
func (s *Service) Create(ctx context.Context, identity string) error {
	o := s.begin(audit.ActionCreate, identity)
	return s.finish(ctx, o, s.create(ctx, o))
}

func (s *Service) create(ctx context.Context, o *op) error {
	existing, err := s.findByIdentity(ctx, o.identity)
	if err != nil {
		return err
	}
	if existing != nil {
		o.event.WithSession(existing.ID)
		return ErrAlreadyInSession
	}

	for range s.codeAttempts {
		code, err := s.newCode()
		if err != nil {
			return storeFailure("generating join code", err)
		}

		sess := &session.Session{
			JoinCode: code,
			Active:   true,
			Phase:    session.PhaseUnstarted,
			Position: s.oracle.Initial(),
			Black:    session.Seat{Identity: o.identity, RemainingSeconds: s.clockSeconds},
			White:    session.Seat{RemainingSeconds: s.clockSeconds},
		}
		err = s.store.Insert(ctx, sess)
		if errors.Is(err, session.ErrDuplicateJoinCode) {
			s.logger.Debug("join code collision, retrying", "code", code)
			continue
		}
		if err != nil {
			return storeFailure("creating session", err)
		}

		o.event.WithSession(sess.ID).WithParameters(map[string]any{"join_code": code})
		s.logger.Info("session created", "session_id", sess.ID, "identity", o.identity)
		return s.text(ctx, o.identity, notify.Registered(code))
	}
	return storeFailure("creating session",
		fmt.Errorf("no free join code after %d attempts", s.codeAttempts))
}

// Join binds identity to the white seat of the session holding code and
// starts the game.
func (s *Service) Join(ctx context.Context, identity, code string) error {
	o := s.begin(audit.ActionJoin, identity)
	return s.finish(ctx, o, s.join(ctx, o, joincode.Normalize(code)))
}

func (s *Service) join(ctx context.Context, o *op, code string) error {
	o.event.WithParameters(map[string]any{"join_code": code})
	if !joincode.Valid(code) {
		return ErrNoSuchCode
	}

	sess, err := s.findByCode(ctx, code)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrNoSuchCode
	}
	o.event.WithSession(sess.ID)
	if sess.White.Bound() {
		return ErrSessionFull
	}

	existing, err := s.findByIdentity(ctx, o.identity)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyInSession
	}

	identity := o.identity
	bound, err := s.updateIf(ctx, sess.ID,
		session.Condition{Active: true, WhiteUnbound: true},
		session.Patch{WhiteIdentity: &identity})
	if err != nil {
		return err
	}
	if !bound {
		// Lost a race with another joiner or a leave.
		return ErrSessionFull
	}
	s.logger.Info("session joined", "session_id", sess.ID, "identity", identity)

	return s.start(ctx, sess.ID)
}

// Start sends the opening notifications for the session holding code.
// It runs once per session; later calls do nothing.
func (s *Service) Start(ctx context.Context, code string) error {
	o := s.begin(audit.ActionStart, "")
	return s.finish(ctx, o, s.startByCode(ctx, o, joincode.Normalize(code)))
}

func (s *Service) startByCode(ctx context.Context, o *op, code string) error {
	o.event.WithParameters(map[string]any{"join_code": code})
	sess, err := s.findByCode(ctx, code)
	if err != nil {
		return err
	}
	if sess == nil {
		// Nobody to tell; the audit trail records it.
		o.event.WithOutcome(string(CodeNoSuchCode), true, "")
		return nil
	}
	o.event.WithSession(sess.ID)
	return s.start(ctx, sess.ID)
}

func (s *Service) start(ctx context.Context, id string) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return storeFailure("loading session", err)
	}
	if sess == nil || !sess.Active || !sess.White.Bound() {
		return nil
	}

	inProgress := session.PhaseInProgress
	started, err := s.updateIf(ctx, id,
		session.Condition{Active: true, Phase: session.PhaseUnstarted},
		session.Patch{Phase: &inProgress})
	if err != nil {
		return err
	}
	if !started {
		s.logger.Debug("session already started", "session_id", id)
		return nil
	}

	mover, err := s.turn(sess.Position)
	if err != nil {
		return err
	}
	waiter := mover.Opposite()
	moverSeat, waiterSeat := sess.Seat(mover), sess.Seat(waiter)

	if err := s.text(ctx, moverSeat.Identity,
		notify.StartMover(string(mover), FormatBudget(moverSeat.RemainingSeconds))); err != nil {
		return err
	}
	msgID, err := s.board(ctx, moverSeat.Identity, sess.Position)
	if err != nil {
		return err
	}
	var p session.Patch
	p.Seat(mover).LastMove = &session.LastMove{DispatchedMessageID: msgID, DispatchedAt: s.now()}
	if err := s.update(ctx, id, p); err != nil {
		return err
	}

	s.logger.Info("session started", "session_id", id, "mover", mover)
	return s.text(ctx, waiterSeat.Identity,
		notify.StartWaiter(string(waiter), FormatBudget(waiterSeat.RemainingSeconds)))
}

// Leave ends the identity's active session and tells both participants.
func (s *Service) Leave(ctx context.Context, identity string) error {
	o := s.begin(audit.ActionLeave, identity)
	return s.finish(ctx, o, s.leave(ctx, o))
}

func (s *Service) leave(ctx context.Context, o *op) error {
	sess, err := s.findByIdentity(ctx, o.identity)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrNotInSession
	}
	o.event.WithSession(sess.ID)

	ended, err := s.updateIf(ctx, sess.ID, session.Condition{Active: true},
		session.Deactivate(session.EndLeft, s.now()))
	if err != nil {
		return err
	}
	if !ended {
		return ErrNotInSession
	}

	s.logger.Info("session ended", "session_id", sess.ID, "reason", session.EndLeft)
	return s.textAll(ctx, notify.MsgGameEnded, sess.Participants()...)
}
