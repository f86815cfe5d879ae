package model

import (
	"context"
	"strconv"
)

// Topic identifies one of the two tracked skill areas. The wire names are
// Vietnamese because the profile sheet and the webhook both use them.
type Topic string

const (
	// TopicAlgebra is the algebra skill track ("dai so").
	TopicAlgebra Topic = "dai_so"
	// TopicGeometry is the geometry skill track ("hinh hoc").
	TopicGeometry Topic = "hinh_hoc"
)

// defaultSkillPercent is assumed when the profile sheet holds no usable value.
const defaultSkillPercent = 50

// Student is a read-only snapshot of one row in the student profile sheet.
// Skill percentages arrive as decimal strings; use SkillPercent to read them.
type Student struct {
	StudentID    string `json:"student_id"`
	Name         string `json:"name"`
	DaiSo        string `json:"dai_so"`
	HinhHoc      string `json:"hinh_hoc"`
	LevelOverall string `json:"level_overall"`
	LastUpdate   string `json:"last_update"`
}

// SkillPercent parses the stored percentage for a topic, falling back to
// defaultSkillPercent when the cell is empty or not a number.
func (s Student) SkillPercent(topic Topic) int {
	var raw string
	switch topic {
	case TopicAlgebra:
		raw = s.DaiSo
	case TopicGeometry:
		raw = s.HinhHoc
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultSkillPercent
	}
	return n
}

// Question is one multiple-choice question as selected by the webhook.
// Immutable once received.
type Question struct {
	RowNumber int    `json:"row_number"`
	QID       string `json:"qid"`
	Grade     int    `json:"grade"`
	Question  string `json:"question"`
	OptionA   string `json:"optionA"`
	OptionB   string `json:"optionB"`
	OptionC   string `json:"optionC"`
	OptionD   string `json:"optionD"`
	Correct   string `json:"correct"`
	Topic     Topic  `json:"topic"`
	SubTopic  string `json:"sub_topic"`
	Level     int    `json:"level"`
	SkillTag  string `json:"skill_tag"`
	Reason    string `json:"reason,omitempty"`
}

// Quiz is the ordered set of questions the webhook selected for one student.
type Quiz struct {
	SelectedQuestions []Question `json:"selected_questions"`
	OverallReason     string     `json:"overall_reason"`
	AssessmentID      string     `json:"assessment_id,omitempty"`
}

// AnswerMap maps a question id to the chosen option letter. Keys may cover
// only part of the quiz until submission.
type AnswerMap map[string]string

// GradedAnswer is one entry of the grading payload: 1 if the selection
// matched the question's correct letter, 0 otherwise.
type GradedAnswer struct {
	QID     string `json:"qid"`
	Correct int    `json:"correct"`
}

// SkillUpdates carries the server-computed skill percentages after grading.
type SkillUpdates struct {
	DaiSo   float64 `json:"dai_so"`
	HinhHoc float64 `json:"hinh_hoc"`
}

// ProfileUpdate is the webhook's recomputed profile after a submission.
// Display data only; the service never recomputes any of it.
type ProfileUpdate struct {
	StudentID    string       `json:"student_id"`
	SkillUpdates SkillUpdates `json:"skill_updates"`
	LevelOverall string       `json:"level_overall"`
	Rationale    string       `json:"rationale"`
}

// MiniLesson is optional remedial content returned with a profile update.
// Content is opaque structured text; the service passes it through untouched.
type MiniLesson struct {
	Topic   string `json:"topic"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ProfileUpdateResult bundles a profile update with its optional remedial
// lessons, as returned by the grading service.
type ProfileUpdateResult struct {
	ProfileUpdate ProfileUpdate `json:"profile_update"`
	MiniLessons   []MiniLesson  `json:"mini_lessons,omitempty"`
}

// MetricHistory is one skill snapshot row from the metric history sheet.
type MetricHistory struct {
	RowID        string  `json:"row_id"`
	StudentID    string  `json:"student_id"`
	Timestamp    string  `json:"timestamp"`
	DaiSo        float64 `json:"dai_so"`
	HinhHoc      float64 `json:"hinh_hoc"`
	LevelOverall string  `json:"level_overall"`
	AssessmentID string  `json:"assessment_id"`
}

// AssessmentSummary is one past-assessment row from the summary sheet.
type AssessmentSummary struct {
	AssessmentID    string  `json:"assessment_id"`
	StudentID       string  `json:"student_id"`
	StartedAt       string  `json:"started_at"`
	FinishedAt      string  `json:"finished_at"`
	NumQuestions    int     `json:"num_questions"`
	NumCorrect      int     `json:"num_correct"`
	NumWrong        int     `json:"num_wrong"`
	ScoreOverall    float64 `json:"score_overall"`
	AccuracyDaiSo   float64 `json:"accuracy_dai_so"`
	AccuracyHinhHoc float64 `json:"accuracy_hinh_hoc"`
	LevelBefore     string  `json:"level_before"`
	LevelAfter      string  `json:"level_after"`
	MainTopic       string  `json:"main_topic"`
}

type studentCtxKey struct{}

// ContextWithStudent stores the logged-in student in the request context.
func ContextWithStudent(ctx context.Context, s *Student) context.Context {
	return context.WithValue(ctx, studentCtxKey{}, s)
}

// StudentFromContext retrieves the logged-in student from context, or nil.
func StudentFromContext(ctx context.Context) *Student {
	s, _ := ctx.Value(studentCtxKey{}).(*Student)
	return s
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

// ServeConfig holds runtime parameters set via CLI flags.
type ServeConfig struct {
	NumQuestions  int    // default question count per quiz request
	Lang          string // UI language for localized messages
	BasePath      string // URL prefix for sub-path deployments (e.g. "/vn")
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	CORSOrigin    string // allowed SPA origin, empty disables CORS
}
