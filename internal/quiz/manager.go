package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vcoch/intellilearn/internal/model"
)

// ErrSessionNotFound covers unknown, expired, and foreign exam sessions; the
// client cannot tell those apart and should start over.
var ErrSessionNotFound = errors.New("exam session not found")

// Service is the full remote question/grading service.
type Service interface {
	GetQuiz(ctx context.Context, studentID string, numQuestion int) (model.Quiz, error)
	Grader
}

// Manager holds the active exam sessions. Sessions are transient: they live
// in memory for the duration of one attempt and are swept once idle past the
// TTL, which is the server-side equivalent of navigating away.
type Manager struct {
	svc Service
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager backed by the given remote service.
func NewManager(svc Service, ttl time.Duration) *Manager {
	return &Manager{
		svc:      svc,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Start fetches a quiz for the student and opens a session around it. There
// is no session to keep on failure: the caller surfaces the error and the
// student re-initiates.
func (m *Manager) Start(ctx context.Context, student model.Student, numQuestion int) (*Session, error) {
	q, err := m.svc.GetQuiz(ctx, student.StudentID, numQuestion)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}

	sess := newSession(student, q)
	m.mu.Lock()
	m.sweepLocked()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	slog.Info("exam session started", "exam_id", sess.ID,
		"student_id", student.StudentID, "questions", len(q.SelectedQuestions))
	return sess, nil
}

// Get returns the session with the given id if it belongs to the student.
func (m *Manager) Get(examID, studentID string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[examID]
	m.mu.Unlock()
	if !ok || sess.Student.StudentID != studentID {
		return nil, ErrSessionNotFound
	}
	if sess.expired(m.ttl, time.Now()) {
		m.mu.Lock()
		delete(m.sessions, examID)
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Submit runs the session's submission against the remote service.
func (m *Manager) Submit(ctx context.Context, examID, studentID string) (*Result, error) {
	sess, err := m.Get(examID, studentID)
	if err != nil {
		return nil, err
	}
	return sess.Submit(ctx, m.svc)
}

// Drop discards a session, if present.
func (m *Manager) Drop(examID string) {
	m.mu.Lock()
	delete(m.sessions, examID)
	m.mu.Unlock()
}

func (m *Manager) sweepLocked() {
	now := time.Now()
	for id, sess := range m.sessions {
		if sess.expired(m.ttl, now) {
			delete(m.sessions, id)
		}
	}
}
