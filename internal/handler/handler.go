// Package handler exposes the JSON API the tutoring SPA consumes.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/vcoch/intellilearn/internal/i18n"
	"github.com/vcoch/intellilearn/internal/model"
	"github.com/vcoch/intellilearn/internal/quiz"
	"github.com/vcoch/intellilearn/internal/session"
)

// Directory is the remote profile store boundary the handlers read from.
type Directory interface {
	Students(ctx context.Context) ([]model.Student, error)
	MetricHistory(ctx context.Context, studentID string) ([]model.MetricHistory, error)
	AssessmentSummaries(ctx context.Context, studentID string) ([]model.AssessmentSummary, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	dir    Directory
	exams  *quiz.Manager
	auth   *session.Store
	config model.ServeConfig
}

// New creates a new Handler.
func New(dir Directory, exams *quiz.Manager, auth *session.Store, cfg model.ServeConfig) (*Handler, error) {
	return &Handler{dir: dir, exams: exams, auth: auth, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Post("/api/login", h.handleLogin)
	r.Get("/api/students", h.handleStudents)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/api/logout", h.handleLogout)
		r.Get("/api/profile", h.handleProfile)
		r.Post("/api/exam", h.handleStartExam)
		r.Get("/api/exam/{examID}", h.handleExamState)
		r.Put("/api/exam/{examID}/answer", h.handleAnswer)
		r.Post("/api/exam/{examID}/submit", h.handleSubmit)
		r.Get("/api/history/metrics", h.handleMetricHistory)
		r.Get("/api/history/assessments", h.handleAssessments)
	})
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startExamRequest struct {
	NumQuestion int `json:"num_question"`
}

func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
	student := model.StudentFromContext(r.Context())

	var req startExamRequest
	if r.Body != nil {
		// An empty body means "use the configured default".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	n := req.NumQuestion
	if n <= 0 {
		n = h.config.NumQuestions
	}

	sess, err := h.exams.Start(r.Context(), *student, n)
	if err != nil {
		slog.Error("quiz load failed", "student_id", student.StudentID, "error", err)
		writeError(w, http.StatusBadGateway, appI18n.T(r.Context(), "QuizLoadError"))
		return
	}

	writeJSON(w, http.StatusCreated, sess.View())
}

func (h *Handler) handleExamState(w http.ResponseWriter, r *http.Request) {
	student := model.StudentFromContext(r.Context())

	sess, err := h.exams.Get(chi.URLParam(r, "examID"), student.StudentID)
	if err != nil {
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "ExamNotFound"))
		return
	}

	writeJSON(w, http.StatusOK, sess.View())
}

type answerRequest struct {
	QID      string `json:"qid"`
	Selected string `json:"selected"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	student := model.StudentFromContext(r.Context())

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QID == "" {
		writeError(w, http.StatusBadRequest, "qid is required")
		return
	}

	sess, err := h.exams.Get(chi.URLParam(r, "examID"), student.StudentID)
	if err != nil {
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "ExamNotFound"))
		return
	}

	state, err := sess.SetAnswer(req.QID, req.Selected)
	switch {
	case errors.Is(err, quiz.ErrSubmitInFlight):
		writeError(w, http.StatusConflict, appI18n.T(r.Context(), "SubmitInFlight"))
		return
	case errors.Is(err, quiz.ErrAlreadyDone):
		writeError(w, http.StatusConflict, appI18n.T(r.Context(), "AlreadySubmitted"))
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	student := model.StudentFromContext(r.Context())

	result, err := h.exams.Submit(r.Context(), chi.URLParam(r, "examID"), student.StudentID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, quiz.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "ExamNotFound"))
	case errors.Is(err, quiz.ErrIncomplete):
		writeError(w, http.StatusConflict, appI18n.T(r.Context(), "QuizIncomplete"))
	case errors.Is(err, quiz.ErrSubmitInFlight):
		writeError(w, http.StatusConflict, appI18n.T(r.Context(), "SubmitInFlight"))
	case errors.Is(err, quiz.ErrAlreadyDone):
		writeError(w, http.StatusConflict, appI18n.T(r.Context(), "AlreadySubmitted"))
	default:
		// The session is back in Ready with answers intact; the client can
		// retry without re-answering.
		slog.Error("submit failed", "student_id", student.StudentID, "error", err)
		writeError(w, http.StatusBadGateway, appI18n.T(r.Context(), "SubmitError"))
	}
}
