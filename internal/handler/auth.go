package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	appI18n "github.com/vcoch/intellilearn/internal/i18n"
	"github.com/vcoch/intellilearn/internal/model"
)

const sessionCookieName = "session"

type loginRequest struct {
	StudentID string `json:"student_id"`
}

// handleLogin looks the code up in the roster and issues a session cookie.
// There is no password; the roster is the whole authentication story.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	students, err := h.dir.Students(r.Context())
	if err != nil {
		slog.Error("roster fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, appI18n.T(r.Context(), "RosterUnavailable"))
		return
	}

	var student *model.Student
	for i := range students {
		if students[i].StudentID == req.StudentID {
			student = &students[i]
			break
		}
	}
	if student == nil {
		writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginUnknownStudent"))
		return
	}

	token, err := h.auth.Create(*student)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("student logged in", "student_id", student.StudentID)
	writeJSON(w, http.StatusOK, student)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		h.auth.Delete(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// requireAuth resolves the session cookie to a student and stores it in the
// request context. Without a resolved student the workflow must not start:
// the 401 is the SPA's cue to route back to the login entry point.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		student := h.auth.Get(cookie.Value)
		if student == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := model.ContextWithStudent(r.Context(), student)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}
