package handler

import (
	"log/slog"
	"net/http"

	appI18n "github.com/vcoch/intellilearn/internal/i18n"
	"github.com/vcoch/intellilearn/internal/model"
)

// handleStudents is the directory read: all roster rows, unfiltered. The SPA
// filters by identifier.
func (h *Handler) handleStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.dir.Students(r.Context())
	if err != nil {
		slog.Error("roster fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, appI18n.T(r.Context(), "RosterUnavailable"))
		return
	}
	writeJSON(w, http.StatusOK, students)
}

// profileResponse pairs the raw snapshot with parsed skill percentages so
// the client does not repeat the decimal-string parsing.
type profileResponse struct {
	Student  model.Student `json:"student"`
	DaiSo    int           `json:"dai_so"`
	HinhHoc  int           `json:"hinh_hoc"`
	Greeting string        `json:"greeting"`
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	student := model.StudentFromContext(r.Context())

	writeJSON(w, http.StatusOK, profileResponse{
		Student:  *student,
		DaiSo:    student.SkillPercent(model.TopicAlgebra),
		HinhHoc:  student.SkillPercent(model.TopicGeometry),
		Greeting: appI18n.Td(r.Context(), "GreetingStudent", map[string]any{"Name": student.Name}),
	})
}

func (h *Handler) handleMetricHistory(w http.ResponseWriter, r *http.Request) {
	student := model.StudentFromContext(r.Context())

	history, err := h.dir.MetricHistory(r.Context(), student.StudentID)
	if err != nil {
		slog.Error("metric history fetch failed", "student_id", student.StudentID, "error", err)
		writeError(w, http.StatusBadGateway, appI18n.T(r.Context(), "HistoryUnavailable"))
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) handleAssessments(w http.ResponseWriter, r *http.Request) {
	student := model.StudentFromContext(r.Context())

	summaries, err := h.dir.AssessmentSummaries(r.Context(), student.StudentID)
	if err != nil {
		slog.Error("assessment history fetch failed", "student_id", student.StudentID, "error", err)
		writeError(w, http.StatusBadGateway, appI18n.T(r.Context(), "HistoryUnavailable"))
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}
