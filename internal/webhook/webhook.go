// Package webhook is the client for the remote question/grading service.
// Quiz selection and all skill arithmetic live behind this endpoint; the
// client's job is transport plus strict validation of the response shapes.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vcoch/intellilearn/internal/model"
)

// ErrNoQuiz is returned when the service answers successfully but selects no
// questions. Callers treat it the same as a failed quiz fetch.
var ErrNoQuiz = errors.New("webhook returned no quiz")

// StatusError is a non-2xx response from the webhook.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.Code)
}

// ParseError is a response that arrived but did not match the expected
// structure. Raw holds the offending payload for logs.
type ParseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse webhook response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse webhook response: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Client calls the grading webhook. All requests share one endpoint and are
// dispatched by the envelope's type field.
type Client struct {
	url  string
	http *http.Client
}

// New creates a webhook client. The timeout applies to each call; the
// workflow layer enforces none of its own.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// envelope is the webhook's request wrapper.
type envelope struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

type quizRequest struct {
	StudentID   string `json:"student_id"`
	NumQuestion int    `json:"num_question"`
}

type updateRequest struct {
	StudentID string               `json:"student_id"`
	Answers   []model.GradedAnswer `json:"answers"`
}

// updateResponse mirrors one element of the update_profile response list.
// ProfileUpdate is a pointer so a missing key is detectable.
type updateResponse struct {
	ProfileUpdate *model.ProfileUpdate `json:"profile_update"`
	MiniLessons   []model.MiniLesson   `json:"mini_lessons"`
}

// GetQuiz asks the service to select a quiz for the student.
func (c *Client) GetQuiz(ctx context.Context, studentID string, numQuestion int) (model.Quiz, error) {
	raw, err := c.post(ctx, envelope{
		Type:    "get_quiz",
		Content: quizRequest{StudentID: studentID, NumQuestion: numQuestion},
	})
	if err != nil {
		return model.Quiz{}, err
	}

	quiz, err := decodeQuiz(raw)
	if err != nil {
		return model.Quiz{}, err
	}
	if len(quiz.SelectedQuestions) == 0 {
		return model.Quiz{}, ErrNoQuiz
	}
	for i, q := range quiz.SelectedQuestions {
		if q.QID == "" || q.Question == "" || q.Correct == "" {
			return model.Quiz{}, &ParseError{
				Reason: fmt.Sprintf("question %d missing qid, text, or correct option", i),
				Raw:    string(raw),
			}
		}
	}

	slog.Debug("fetched quiz", "student_id", studentID,
		"questions", len(quiz.SelectedQuestions), "assessment_id", quiz.AssessmentID)
	return quiz, nil
}

// UpdateProfile sends the grading payload and returns the recomputed profile.
func (c *Client) UpdateProfile(ctx context.Context, studentID string, answers []model.GradedAnswer) (*model.ProfileUpdateResult, error) {
	raw, err := c.post(ctx, envelope{
		Type:    "update_profile",
		Content: updateRequest{StudentID: studentID, Answers: answers},
	})
	if err != nil {
		return nil, err
	}

	var list []updateResponse
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &ParseError{Reason: "expected a list of update objects", Raw: string(raw), Err: err}
	}
	if len(list) == 0 {
		return nil, &ParseError{Reason: "empty update list", Raw: string(raw)}
	}
	if list[0].ProfileUpdate == nil {
		return nil, &ParseError{Reason: "missing profile_update", Raw: string(raw)}
	}

	slog.Debug("profile updated", "student_id", studentID,
		"level_overall", list[0].ProfileUpdate.LevelOverall, "mini_lessons", len(list[0].MiniLessons))
	return &model.ProfileUpdateResult{
		ProfileUpdate: *list[0].ProfileUpdate,
		MiniLessons:   list[0].MiniLessons,
	}, nil
}

// decodeQuiz unwraps the one-element quiz list. Older deployments of the
// webhook returned a bare object, so that shape is still accepted.
func decodeQuiz(raw []byte) (model.Quiz, error) {
	var list []model.Quiz
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return model.Quiz{}, ErrNoQuiz
		}
		return list[0], nil
	}

	var quiz model.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return model.Quiz{}, &ParseError{Reason: "expected a quiz list or object", Raw: string(raw), Err: err}
	}
	return quiz, nil
}

func (c *Client) post(ctx context.Context, env envelope) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", env.Type, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", env.Type, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s call: %w", env.Type, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", env.Type, err)
	}
	return raw, nil
}
