package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store using an in-memory map. Sessions are stored
// and returned as copies so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Insert persists a new session.
func (s *MemoryStore) Insert(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.Active {
		for _, existing := range s.sessions {
			if existing.Active && existing.JoinCode == sess.JoinCode {
				return ErrDuplicateJoinCode
			}
		}
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

// Get retrieves a session by ID. Returns nil, nil if not found.
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	cp := *sess
	return &cp, nil
}

// FindActiveByIdentity returns the active session containing identity.
func (s *MemoryStore) FindActiveByIdentity(_ context.Context, identity string) (*Session, error) {
	if identity == "" {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if !sess.Active {
			continue
		}
		if _, ok := sess.ColorOf(identity); ok {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
}

// FindActiveByCode returns the active session with the given join code.
func (s *MemoryStore) FindActiveByCode(_ context.Context, code string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.Active && sess.JoinCode == code {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
}

// List returns sessions matching the filter, newest first.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if filter.ActiveOnly && !sess.Active {
			continue
		}
		if filter.Identity != "" {
			if _, ok := sess.ColorOf(filter.Identity); !ok {
				continue
			}
		}
		cp := *sess
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateFields applies the patch to the session.
func (s *MemoryStore) UpdateFields(_ context.Context, id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	s.apply(sess, p)
	return nil
}

// UpdateFieldsIf applies the patch when the session satisfies cond.
func (s *MemoryStore) UpdateFieldsIf(_ context.Context, id string, cond Condition, p Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || !cond.Matches(sess) {
		return false, nil
	}
	s.apply(sess, p)
	return true, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// apply must be called with the write lock held.
func (s *MemoryStore) apply(sess *Session, p Patch) {
	if p.Active != nil {
		sess.Active = *p.Active
	}
	if p.Phase != nil {
		sess.Phase = *p.Phase
	}
	if p.Position != nil {
		sess.Position = *p.Position
	}
	if p.WhiteIdentity != nil {
		sess.White.Identity = *p.WhiteIdentity
	}
	if p.EndReason != nil {
		sess.EndReason = *p.EndReason
	}
	if p.EndedAt != nil {
		sess.EndedAt = *p.EndedAt
	}
	applySeat(&sess.Black, p.Black)
	applySeat(&sess.White, p.White)
	sess.UpdatedAt = s.now()
}

func applySeat(seat *Seat, p *SeatPatch) {
	if p == nil {
		return
	}
	if p.RemainingSeconds != nil {
		seat.RemainingSeconds = *p.RemainingSeconds
	}
	if p.LastMove != nil {
		seat.LastMove = *p.LastMove
	}
	if p.SeenAt != nil {
		seat.LastMove.SeenAt = *p.SeenAt
	}
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
