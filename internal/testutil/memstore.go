// Package testutil provides in-memory doubles for the credential and session
// stores so the auth layer can be exercised without Postgres.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/modulrent/site-backend/internal/repository"
)

// AdminStore is an in-memory admin_users table.
type AdminStore struct {
	mu     sync.Mutex
	byID   map[string]*model.AdminUser
	FailOn error // returned by every call when set
}

func NewAdminStore() *AdminStore {
	return &AdminStore{byID: make(map[string]*model.AdminUser)}
}

// Put inserts or replaces an admin directly, assigning an ID if missing.
func (s *AdminStore) Put(a model.AdminUser) *model.AdminUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := a
	s.byID[a.ID] = &cp
	out := cp
	return &out
}

func (s *AdminStore) GetByID(_ context.Context, id string) (*model.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return nil, s.FailOn
	}
	a, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *AdminStore) GetByEmail(_ context.Context, email string) (*model.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return nil, s.FailOn
	}
	for _, a := range s.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *AdminStore) GetActiveByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	a, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (s *AdminStore) List(_ context.Context) ([]model.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return nil, s.FailOn
	}
	out := make([]model.AdminUser, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, *a)
	}
	return out, nil
}

func (s *AdminStore) Create(_ context.Context, a *model.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return s.FailOn
	}
	return s.insertLocked(a)
}

func (s *AdminStore) CreateIfNone(_ context.Context, a *model.AdminUser) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return false, s.FailOn
	}
	if len(s.byID) > 0 {
		return false, nil
	}
	return true, s.insertLocked(a)
}

func (s *AdminStore) insertLocked(a *model.AdminUser) error {
	for _, existing := range s.byID {
		if existing.Email == a.Email {
			return repository.ErrDuplicateEmail
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *AdminStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(a *model.AdminUser) { a.LastLogin = &at })
}

func (s *AdminStore) UpdateRole(_ context.Context, id string, role model.Role) error {
	return s.update(id, func(a *model.AdminUser) { a.Role = role })
}

func (s *AdminStore) SetActive(_ context.Context, id string, active bool) error {
	return s.update(id, func(a *model.AdminUser) { a.IsActive = active })
}

func (s *AdminStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return s.update(id, func(a *model.AdminUser) { a.PasswordHash = hash })
}

func (s *AdminStore) update(id string, fn func(*model.AdminUser)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return s.FailOn
	}
	a, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(a)
	a.UpdatedAt = time.Now()
	return nil
}

// SessionStore is an in-memory admin_sessions table joined against an
// AdminStore the way the SQL repository joins admin_users.
type SessionStore struct {
	mu       sync.Mutex
	admins   *AdminStore
	sessions map[string]*model.AdminSession
	FailOn   error
	// TouchErr is returned by Touch only, to exercise best-effort updates.
	TouchErr error
}

func NewSessionStore(admins *AdminStore) *SessionStore {
	return &SessionStore{admins: admins, sessions: make(map[string]*model.AdminSession)}
}

// Get returns a copy of a stored session.
func (s *SessionStore) Get(tokenHash string) (model.AdminSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return model.AdminSession{}, false
	}
	return *sess, true
}

// Len returns the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) Create(_ context.Context, sess *model.AdminSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return s.FailOn
	}
	sess.CreatedAt = time.Now()
	cp := *sess
	s.sessions[sess.TokenHash] = &cp
	return nil
}

func (s *SessionStore) GetActive(ctx context.Context, tokenHash string, now time.Time) (*model.Principal, error) {
	s.mu.Lock()
	if s.FailOn != nil {
		s.mu.Unlock()
		return nil, s.FailOn
	}
	sess, ok := s.sessions[tokenHash]
	if !ok || !sess.ExpiresAt.After(now) {
		s.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	ownerID := sess.AdminUserID
	s.mu.Unlock()

	owner, err := s.admins.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !owner.IsActive {
		return nil, repository.ErrNotFound
	}
	p := owner.Principal()
	return &p, nil
}

func (s *SessionStore) Touch(_ context.Context, tokenHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TouchErr != nil {
		return s.TouchErr
	}
	if s.FailOn != nil {
		return s.FailOn
	}
	if sess, ok := s.sessions[tokenHash]; ok && at.After(sess.LastAccessed) {
		sess.LastAccessed = at
	}
	return nil
}

func (s *SessionStore) TouchBatch(ctx context.Context, touches []model.SessionTouch) error {
	for _, t := range touches {
		if err := s.Touch(ctx, t.TokenHash, t.At); err != nil {
			return err
		}
	}
	return nil
}

func (s *SessionStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return s.FailOn
	}
	delete(s.sessions, tokenHash)
	return nil
}

func (s *SessionStore) DeleteByUser(_ context.Context, adminID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return 0, s.FailOn
	}
	var n int64
	for k, sess := range s.sessions {
		if sess.AdminUserID == adminID {
			delete(s.sessions, k)
			n++
		}
	}
	return n, nil
}

func (s *SessionStore) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		return 0, s.FailOn
	}
	var n int64
	for k, sess := range s.sessions {
		if !sess.ExpiresAt.After(cutoff) {
			delete(s.sessions, k)
			n++
		}
	}
	return n, nil
}
