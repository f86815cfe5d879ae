package quiz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vcoch/intellilearn/internal/model"
)

// State is the lifecycle of an exam session. A session only exists after a
// successful quiz fetch, so there is no loading state here; a failed
// submission returns the session to StateReady with answers intact.
type State string

const (
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
)

var (
	// ErrIncomplete means submit was attempted before every question had an
	// answer. The client should never trigger this; the gate is re-checked
	// here anyway.
	ErrIncomplete = errors.New("quiz is not fully answered")
	// ErrSubmitInFlight means a submission is already outstanding.
	ErrSubmitInFlight = errors.New("submission already in flight")
	// ErrAlreadyDone means the session was already graded.
	ErrAlreadyDone = errors.New("exam already submitted")
)

// Grader is the profile-update half of the remote service, injected so the
// workflow can be exercised against fakes.
type Grader interface {
	UpdateProfile(ctx context.Context, studentID string, answers []model.GradedAnswer) (*model.ProfileUpdateResult, error)
}

// Session is one student's exam attempt: the fetched quiz, the answer map,
// and the submission state machine. All mutable state is owned by this one
// session and guarded by its mutex; nothing is shared across sessions.
type Session struct {
	ID        string
	Student   model.Student
	Quiz      model.Quiz
	StartedAt time.Time

	mu      sync.Mutex
	answers model.AnswerMap
	state   State
	lastErr error
	result  *Result
	touched time.Time
}

func newSession(student model.Student, q model.Quiz) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Student:   student,
		Quiz:      q,
		StartedAt: now,
		answers:   model.AnswerMap{},
		state:     StateReady,
		touched:   now,
	}
}

// SetAnswer records the chosen letter for qid. Rejected while a submission is
// in flight or after grading.
func (s *Session) SetAnswer(qid, letter string) (model.AnswerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSubmitting:
		return s.stateLocked(), ErrSubmitInFlight
	case StateDone:
		return s.stateLocked(), ErrAlreadyDone
	}

	s.answers = SetAnswer(s.answers, qid, letter)
	s.touched = time.Now()
	return s.stateLocked(), nil
}

// Submit grades the answers and sends them to the remote service. The
// Ready → Submitting transition happens synchronously under the lock before
// any request is issued, so a second submit can never slip through, whatever
// the client renders. On failure the session returns to Ready with the
// answers preserved so the student can retry without re-answering.
func (s *Session) Submit(ctx context.Context, grader Grader) (*Result, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	case StateDone:
		s.mu.Unlock()
		return nil, ErrAlreadyDone
	}
	if !IsComplete(s.Quiz, s.answers) {
		s.mu.Unlock()
		return nil, ErrIncomplete
	}
	payload := BuildPayload(s.Quiz, s.answers)
	s.state = StateSubmitting
	s.mu.Unlock()

	upd, err := grader.UpdateProfile(ctx, s.Student.StudentID, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()
	if err != nil {
		s.state = StateReady
		s.lastErr = err
		return nil, err
	}

	res := Reconcile(s.Student, upd, payload)
	s.result = &res
	s.state = StateDone
	s.lastErr = nil
	return &res, nil
}

// Result returns the graded result, or nil while the session is not Done.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// View builds the rehydration snapshot for the client.
func (s *Session) View() model.ExamView {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make(model.AnswerMap, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	return model.ExamView{
		ExamID:  s.ID,
		Quiz:    model.ViewOf(s.Quiz),
		Answers: answers,
		State:   s.stateLocked(),
	}
}

func (s *Session) stateLocked() model.AnswerState {
	st := model.AnswerState{
		Answered:   CountAnswered(s.Quiz, s.answers),
		Total:      len(s.Quiz.SelectedQuestions),
		Complete:   IsComplete(s.Quiz, s.answers),
		Submitting: s.state == StateSubmitting,
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}

func (s *Session) expired(ttl time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.touched) > ttl
}
