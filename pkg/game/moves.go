package game

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/txn2/chessline/pkg/audit"
	"github.com/txn2/chessline/pkg/notify"
	"github.com/txn2/chessline/pkg/rules"
	"github.com/txn2/chessline/pkg/session"
)

// squareLen is the length of a square token such as "e4".
const squareLen = 2

// ParseMove splits move text of the form "<from> to <to>" or
// "<from> <to>" into lowercase square tokens.
func ParseMove(text string) (from, to string, ok bool) {
	fields := strings.Fields(strings.ToLower(text))
	switch {
	case len(fields) == 3 && fields[1] == "to":
		from, to = fields[0], fields[2]
	case len(fields) == 2:
		from, to = fields[0], fields[1]
	default:
		return "", "", false
	}
	if len(from) != squareLen || len(to) != squareLen {
		return "", "", false
	}
	return from, to, true
}

// SubmitMove plays a move for identity. submittedAt is the channel's
// timestamp for the inbound message and is charged against the mover's
// clock.
func (s *Service) SubmitMove(ctx context.Context, identity, text string, submittedAt time.Time) error {
	o := s.begin(audit.ActionMove, identity)
	return s.finish(ctx, o, s.submitMove(ctx, o, text, submittedAt))
}

func (s *Service) submitMove(ctx context.Context, o *op, text string, submittedAt time.Time) error {
	from, to, ok := ParseMove(text)
	if !ok {
		o.event.WithParameters(map[string]any{"text": text})
		return ErrMalformedMove
	}
	params := map[string]any{"from": from, "to": to}
	o.event.WithParameters(params)

	sess, err := s.findByIdentity(ctx, o.identity)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrNotInSession
	}
	o.event.WithSession(sess.ID)

	color, _ := sess.ColorOf(o.identity)
	onMove, err := s.turn(sess.Position)
	if err != nil {
		return err
	}
	if onMove != color {
		return ErrNotYourTurn
	}

	res, err := s.oracle.Apply(sess.Position, from, to)
	if errors.Is(err, rules.ErrIllegalMove) {
		return ErrIllegalMove
	}
	if err != nil {
		return storeFailure("applying move to stored position", err)
	}

	seat := sess.Seat(color)
	elapsed, after := Charge(seat.RemainingSeconds, seat.LastMove.Reference(), submittedAt)
	params["elapsed_seconds"] = elapsed
	params["remaining_seconds"] = after

	switch {
	case res.Terminal:
		return s.finishTerminal(ctx, sess, res, params)
	case after < 0:
		return s.finishTimeout(ctx, sess, color, params)
	default:
		return s.continueGame(ctx, sess, color, res.Position, elapsed, after)
	}
}

// finishTerminal ends the session on a checkmate or another terminal
// position. It takes precedence over a timeout on the same move.
func (s *Service) finishTerminal(ctx context.Context, sess *session.Session, res rules.Result, params map[string]any) error {
	reason := session.EndGameOver
	if res.Checkmate {
		reason = session.EndCheckmate
	}
	params["end_reason"] = reason
	params["method"] = res.Method

	p := session.Deactivate(reason, s.now())
	p.Position = &res.Position
	ended, err := s.updateIf(ctx, sess.ID, session.Condition{Active: true}, p)
	if err != nil {
		return err
	}
	if !ended {
		return ErrNotInSession
	}

	s.logger.Info("session ended", "session_id", sess.ID, "reason", reason, "method", res.Method)
	return s.textAll(ctx, notify.MsgGameOver, sess.Participants()...)
}

// finishTimeout ends the session because the mover overran their clock.
// The position stays as it was before the move.
func (s *Service) finishTimeout(ctx context.Context, sess *session.Session, mover session.Color, params map[string]any) error {
	params["end_reason"] = session.EndTimeout
	params["remaining_seconds"] = 0

	p := session.Deactivate(session.EndTimeout, s.now())
	zero := 0
	p.Seat(mover).RemainingSeconds = &zero
	ended, err := s.updateIf(ctx, sess.ID, session.Condition{Active: true}, p)
	if err != nil {
		return err
	}
	if !ended {
		return ErrNotInSession
	}

	s.logger.Info("session ended", "session_id", sess.ID, "reason", session.EndTimeout, "color", mover)
	return s.textAll(ctx, notify.Timeout(string(mover)), sess.Participants()...)
}

// continueGame hands the turn to the opponent. The position, the mover's
// clock and the opponent's new board message are written together once
// every notification went out.
func (s *Service) continueGame(ctx context.Context, sess *session.Session, mover session.Color, position string, elapsed, after int) error {
	opponent := mover.Opposite()
	moverSeat, oppSeat := sess.Seat(mover), sess.Seat(opponent)
	oppBudget := FormatBudget(oppSeat.RemainingSeconds)

	if err := s.text(ctx, moverSeat.Identity,
		notify.MoveAccepted(string(opponent), elapsed, FormatBudget(after), oppBudget)); err != nil {
		return err
	}
	if err := s.text(ctx, oppSeat.Identity, notify.YourTurn(oppBudget)); err != nil {
		return err
	}
	msgID, err := s.board(ctx, oppSeat.Identity, position)
	if err != nil {
		return err
	}

	p := session.Patch{Position: &position}
	p.Seat(mover).RemainingSeconds = &after
	p.Seat(opponent).LastMove = &session.LastMove{DispatchedMessageID: msgID, DispatchedAt: s.now()}
	if err := s.update(ctx, sess.ID, p); err != nil {
		return err
	}

	s.logger.Debug("move applied", "session_id", sess.ID, "color", mover, "elapsed", elapsed, "remaining", after)
	return nil
}
