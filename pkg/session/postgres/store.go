// Package postgres provides PostgreSQL storage for game sessions.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/txn2/chessline/pkg/session"
)

const (
	tableName = "game_sessions"

	// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
	uniqueViolation = "23505"

	defaultListLimit = 100
	maxListLimit     = 1000
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// sessionColumns lists columns returned by session SELECT queries.
var sessionColumns = []string{
	"id", "join_code", "active", "phase", "position",
	"black_identity", "black_remaining", "black_message_id", "black_dispatched_at", "black_seen_at",
	"white_identity", "white_remaining", "white_message_id", "white_dispatched_at", "white_seen_at",
	"end_reason", "created_at", "updated_at", "ended_at",
}

// Store implements session.Store using PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new PostgreSQL session store.
func New(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: time.Now,
	}
}

// Insert persists a new session.
func (s *Store) Insert(ctx context.Context, sess *session.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	query, args, err := psq.Insert(tableName).
		Columns(sessionColumns...).
		Values(
			sess.ID, sess.JoinCode, sess.Active, string(sess.Phase), sess.Position,
			sess.Black.Identity, sess.Black.RemainingSeconds, sess.Black.LastMove.DispatchedMessageID,
			nullTime(sess.Black.LastMove.DispatchedAt), nullTime(sess.Black.LastMove.SeenAt),
			sess.White.Identity, sess.White.RemainingSeconds, sess.White.LastMove.DispatchedMessageID,
			nullTime(sess.White.LastMove.DispatchedAt), nullTime(sess.White.LastMove.SeenAt),
			string(sess.EndReason), sess.CreatedAt, sess.UpdatedAt, nullTime(sess.EndedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("building session insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return session.ErrDuplicateJoinCode
		}
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID. Returns nil, nil if not found.
func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	return s.findOne(ctx, psq.Select(sessionColumns...).From(tableName).Where(sq.Eq{"id": id}))
}

// FindActiveByIdentity returns the active session with identity in either seat.
func (s *Store) FindActiveByIdentity(ctx context.Context, identity string) (*session.Session, error) {
	if identity == "" {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	qb := psq.Select(sessionColumns...).From(tableName).
		Where(sq.Eq{"active": true}).
		Where(sq.Or{sq.Eq{"black_identity": identity}, sq.Eq{"white_identity": identity}}).
		OrderBy("created_at DESC").
		Limit(1)
	return s.findOne(ctx, qb)
}

// FindActiveByCode returns the active session holding the join code.
func (s *Store) FindActiveByCode(ctx context.Context, code string) (*session.Session, error) {
	qb := psq.Select(sessionColumns...).From(tableName).
		Where(sq.Eq{"active": true}).
		Where(sq.Eq{"join_code": code}).
		Limit(1)
	return s.findOne(ctx, qb)
}

// List returns sessions matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter session.Filter) ([]*session.Session, error) {
	qb := psq.Select(sessionColumns...).From(tableName)
	if filter.ActiveOnly {
		qb = qb.Where(sq.Eq{"active": true})
	}
	if filter.Identity != "" {
		qb = qb.Where(sq.Or{sq.Eq{"black_identity": filter.Identity}, sq.Eq{"white_identity": filter.Identity}})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	qb = qb.OrderBy("created_at DESC").Limit(uint64(limit)) // #nosec G115 -- limit is bounded above

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]*session.Session, 0, limit)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// UpdateFields applies the patch to the session row.
func (s *Store) UpdateFields(ctx context.Context, id string, p session.Patch) error {
	if p.Empty() {
		return nil
	}
	qb := s.buildUpdate(p).Where(sq.Eq{"id": id})
	if _, err := s.exec(ctx, qb); err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	return nil
}

// UpdateFieldsIf applies the patch when the row satisfies cond. The
// condition is evaluated by PostgreSQL in the same statement.
func (s *Store) UpdateFieldsIf(ctx context.Context, id string, cond session.Condition, p session.Patch) (bool, error) {
	qb := s.buildUpdate(p).Where(sq.Eq{"id": id})
	if cond.Active {
		qb = qb.Where(sq.Eq{"active": true})
	}
	if cond.Phase != "" {
		qb = qb.Where(sq.Eq{"phase": string(cond.Phase)})
	}
	if cond.WhiteUnbound {
		qb = qb.Where(sq.Eq{"white_identity": ""})
	}

	n, err := s.exec(ctx, qb)
	if err != nil {
		return false, fmt.Errorf("conditionally updating session: %w", err)
	}
	return n > 0, nil
}

// Close is a no-op; the database handle is owned by the caller.
func (*Store) Close() error {
	return nil
}

// buildUpdate renders the patch as SET clauses in a fixed column order.
func (s *Store) buildUpdate(p session.Patch) sq.UpdateBuilder {
	qb := psq.Update(tableName)
	if p.Active != nil {
		qb = qb.Set("active", *p.Active)
	}
	if p.Phase != nil {
		qb = qb.Set("phase", string(*p.Phase))
	}
	if p.Position != nil {
		qb = qb.Set("position", *p.Position)
	}
	if p.WhiteIdentity != nil {
		qb = qb.Set("white_identity", *p.WhiteIdentity)
	}
	qb = setSeat(qb, "black", p.Black)
	qb = setSeat(qb, "white", p.White)
	if p.EndReason != nil {
		qb = qb.Set("end_reason", string(*p.EndReason))
	}
	if p.EndedAt != nil {
		qb = qb.Set("ended_at", nullTime(*p.EndedAt))
	}
	return qb.Set("updated_at", s.now().UTC())
}

func setSeat(qb sq.UpdateBuilder, prefix string, p *session.SeatPatch) sq.UpdateBuilder {
	if p == nil {
		return qb
	}
	if p.RemainingSeconds != nil {
		qb = qb.Set(prefix+"_remaining", *p.RemainingSeconds)
	}
	seen := p.SeenAt
	if p.LastMove != nil {
		qb = qb.Set(prefix+"_message_id", p.LastMove.DispatchedMessageID).
			Set(prefix+"_dispatched_at", nullTime(p.LastMove.DispatchedAt))
		if seen == nil {
			seen = &p.LastMove.SeenAt
		}
	}
	if seen != nil {
		qb = qb.Set(prefix+"_seen_at", nullTime(*seen))
	}
	return qb
}

func (s *Store) exec(ctx context.Context, qb sq.UpdateBuilder) (int64, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building session update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return n, nil
}

func (s *Store) findOne(ctx context.Context, qb sq.SelectBuilder) (*session.Session, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session query: %w", err)
	}

	sess, err := scanSession(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return sess, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*session.Session, error) {
	var (
		sess                                   session.Session
		phase, endReason                       string
		blackDispatched, blackSeen             sql.NullTime
		whiteDispatched, whiteSeen, endedAtVal sql.NullTime
	)
	err := row.Scan(
		&sess.ID, &sess.JoinCode, &sess.Active, &phase, &sess.Position,
		&sess.Black.Identity, &sess.Black.RemainingSeconds, &sess.Black.LastMove.DispatchedMessageID,
		&blackDispatched, &blackSeen,
		&sess.White.Identity, &sess.White.RemainingSeconds, &sess.White.LastMove.DispatchedMessageID,
		&whiteDispatched, &whiteSeen,
		&endReason, &sess.CreatedAt, &sess.UpdatedAt, &endedAtVal,
	)
	if err != nil {
		return nil, err
	}

	sess.Phase = session.Phase(phase)
	sess.EndReason = session.EndReason(endReason)
	sess.Black.LastMove.DispatchedAt = blackDispatched.Time
	sess.Black.LastMove.SeenAt = blackSeen.Time
	sess.White.LastMove.DispatchedAt = whiteDispatched.Time
	sess.White.LastMove.SeenAt = whiteSeen.Time
	sess.EndedAt = endedAtVal.Time
	return &sess, nil
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Verify interface compliance.
var _ session.Store = (*Store)(nil)
