package game

import (
	"context"

	"github.com/txn2/chessline/pkg/audit"
	"github.com/txn2/chessline/pkg/notify"
)

// CurrentBoard returns the position of identity's active session. It has
// no side effects and returns ErrNotInSession when there is none.
func (s *Service) CurrentBoard(ctx context.Context, identity string) (string, error) {
	sess, err := s.findByIdentity(ctx, identity)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrNotInSession
	}
	return sess.Position, nil
}

// SendBoard sends identity an image of their current board. The message
// is not tracked for clock accounting.
func (s *Service) SendBoard(ctx context.Context, identity string) error {
	o := s.begin(audit.ActionBoard, identity)
	err := func() error {
		position, err := s.CurrentBoard(ctx, identity)
		if err != nil {
			return err
		}
		_, err = s.board(ctx, identity, position)
		return err
	}()
	return s.finish(ctx, o, err)
}

// Help sends the commands available to identity.
func (s *Service) Help(ctx context.Context, identity string) error {
	o := s.begin(audit.ActionHelp, identity)
	err := func() error {
		sess, err := s.findByIdentity(ctx, identity)
		if err != nil {
			return err
		}
		return s.text(ctx, identity, notify.Help(sess != nil))
	}()
	return s.finish(ctx, o, err)
}
