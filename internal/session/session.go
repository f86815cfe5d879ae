// Package session keeps login sessions in memory. Login is an
// unauthenticated code lookup against the roster, so a session is nothing
// more than a random token bound to a student snapshot with a TTL. Nothing
// here survives a restart; the profile store remains the source of truth.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/vcoch/intellilearn/internal/model"
)

// DefaultTTL is how long a login session stays valid.
const DefaultTTL = 24 * time.Hour

// Session binds a token to the student snapshot taken at login.
type Session struct {
	Token     string
	Student   model.Student
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store is the in-memory session registry.
type Store struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a session store. A non-positive ttl falls back to
// DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Create issues a new session token for a student.
func (s *Store) Create(student model.Student) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	s.mu.Lock()
	s.sessions[token] = &Session{
		Token:     token,
		Student:   student,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.mu.Unlock()
	return token, nil
}

// Get returns the student for the given token, or nil if the token is
// unknown or expired. Expired sessions are removed on the way out.
func (s *Store) Get(token string) *model.Student {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil
	}
	if time.Now().After(sess.ExpiresAt) {
		delete(s.sessions, token)
		return nil
	}
	student := sess.Student
	return &student
}

// Delete removes a session token.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// CleanupExpired removes all expired sessions.
func (s *Store) CleanupExpired() {
	now := time.Now()
	s.mu.Lock()
	for token, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
	s.mu.Unlock()
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
