// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

// Package authtest provides in-memory auth collaborators for tests.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/threadboard/threadboard/internal/auth"
)

// UserRepository is an in-memory auth.UserRepository that enforces unique
// usernames and emails.
type UserRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*auth.User
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{byID: make(map[int64]*auth.User)}
}

// Create inserts a user, reporting username before email on collision.
func (r *UserRepository) Create(_ context.Context, username, email, passwordHash string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Username == username {
			return nil, &auth.ConflictError{Field: "username"}
		}
	}
	for _, u := range r.byID {
		if u.Email == email {
			return nil, &auth.ConflictError{Field: "email"}
		}
	}

	r.nextID++
	now := time.Now()
	u := &auth.User{
		ID:           r.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[u.ID] = u
	copied := *u
	return &copied, nil
}

func (r *UserRepository) find(match func(*auth.User) bool) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id int64) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.ID == id })
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Username == username })
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Email == email })
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

// Delete removes a user. Production code never deletes users; tests use it
// to leave sessions and tokens pointing at a missing account.
func (r *UserRepository) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type entry struct {
	userID    int64
	expiresAt time.Time
}

// Clock returns the current time. Tests replace it to simulate expiry.
type Clock func() time.Time

// SessionStore is an in-memory auth.SessionStore.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]int64

	// DestroyErr, when set, is returned by Destroy.
	DestroyErr error
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]int64)}
}

// Create allocates a new session id.
func (s *SessionStore) Create(_ context.Context, userID int64) (string, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = userID
	return token, nil
}

// Get resolves a session id.
func (s *SessionStore) Get(_ context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.sessions[sessionID]
	if !ok {
		return 0, auth.ErrNotFound
	}
	return userID, nil
}

// Destroy removes a session.
func (s *SessionStore) Destroy(_ context.Context, sessionID string) error {
	if s.DestroyErr != nil {
		return s.DestroyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ResetTokenStore is an in-memory auth.ResetTokenStore with expiry.
type ResetTokenStore struct {
	mu     sync.Mutex
	tokens map[string]entry
	ttl    time.Duration
	now    Clock

	// Issued records every token handed out, in order.
	Issued []string
}

// NewResetTokenStore creates a ResetTokenStore using auth.ResetTokenExpiry.
// A nil clock uses time.Now.
func NewResetTokenStore(now Clock) *ResetTokenStore {
	if now == nil {
		now = time.Now
	}
	return &ResetTokenStore{
		tokens: make(map[string]entry),
		ttl:    auth.ResetTokenExpiry,
		now:    now,
	}
}

// Issue stores a new token for userID.
func (s *ResetTokenStore) Issue(_ context.Context, userID int64) (string, error) {
	token, err := auth.GenerateResetToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = entry{userID: userID, expiresAt: s.now().Add(s.ttl)}
	s.Issued = append(s.Issued, token)
	return token, nil
}

// Consume removes token under the lock and returns its owner.
func (s *ResetTokenStore) Consume(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tokens[token]
	if !ok {
		return 0, auth.ErrNotFound
	}
	delete(s.tokens, token)
	if !s.now().Before(e.expiresAt) {
		return 0, auth.ErrNotFound
	}
	return e.userID, nil
}

// Message is an email captured by Mailer.
type Message struct {
	To   string
	Body string
}

// Mailer records sent messages instead of delivering them.
type Mailer struct {
	mu   sync.Mutex
	sent []Message

	// Err, when set, is returned by Send after recording the message.
	Err error
}

// Send records the message.
func (m *Mailer) Send(_ context.Context, to, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Message{To: to, Body: htmlBody})
	return m.Err
}

// Sent returns a copy of the recorded messages.
func (m *Mailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

// Metrics counts recorded outcomes keyed by "operation/outcome".
type Metrics struct {
	mu     sync.Mutex
	counts map[string]int
}

// RecordAuthOutcome increments the counter for operation and outcome.
func (m *Metrics) RecordAuthOutcome(operation, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[operation+"/"+outcome]++
}

// Count returns how often operation ended with outcome.
func (m *Metrics) Count(operation, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[operation+"/"+outcome]
}

// FixedClock is a Clock that callers can advance.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock starts a clock at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the current fake time.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	_ auth.UserRepository  = (*UserRepository)(nil)
	_ auth.SessionStore    = (*SessionStore)(nil)
	_ auth.ResetTokenStore = (*ResetTokenStore)(nil)
	_ auth.Mailer          = (*Mailer)(nil)
	_ auth.MetricsRecorder = (*Metrics)(nil)
)
