package game

import (
	"context"
	"strings"
	"time"

	"github.com/txn2/chessline/pkg/audit"
	"github.com/txn2/chessline/pkg/session"
)

// StatusRead is the delivery status that starts a seat's clock.
const StatusRead = "read"

// Receipt is a delivery status event from the channel.
type Receipt struct {
	// MessageID is the channel id of the message the status refers to.
	MessageID string

	Status string

	// Recipient is the identity the message was sent to.
	Recipient string

	Timestamp time.Time
}

// RecordReceipt stores the read time of a board message so the recipient's
// thinking time is charged from the moment they saw it. Statuses other
// than "read", unknown recipients and unrelated messages are ignored. The
// first read of a message wins.
func (s *Service) RecordReceipt(ctx context.Context, r Receipt) error {
	if !strings.EqualFold(r.Status, StatusRead) || r.MessageID == "" {
		return nil
	}
	o := s.begin(audit.ActionReceipt, r.Recipient)
	o.event.WithParameters(map[string]any{"message_id": r.MessageID})
	return s.finish(ctx, o, s.recordReceipt(ctx, o, r))
}

func (s *Service) recordReceipt(ctx context.Context, o *op, r Receipt) error {
	sess, err := s.findByIdentity(ctx, r.Recipient)
	if err != nil {
		return err
	}
	if sess == nil {
		o.event.WithOutcome("NO_SESSION", true, "")
		return nil
	}
	o.event.WithSession(sess.ID)

	var p session.Patch
	for _, c := range []session.Color{session.Black, session.White} {
		last := sess.Seat(c).LastMove
		if last.DispatchedMessageID != r.MessageID || !last.SeenAt.IsZero() {
			continue
		}
		seen := r.Timestamp
		p.Seat(c).SeenAt = &seen
	}
	if p.Empty() {
		o.event.WithOutcome("NO_MATCH", true, "")
		return nil
	}
	return s.update(ctx, sess.ID, p)
}
