package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/vcoch/intellilearn/internal/i18n"
	"github.com/vcoch/intellilearn/internal/model"
	"github.com/vcoch/intellilearn/internal/quiz"
	"github.com/vcoch/intellilearn/internal/session"
)

// fakeDirectory serves a fixed roster and history rows.
type fakeDirectory struct {
	students    []model.Student
	studentsErr error
	metrics     []model.MetricHistory
	summaries   []model.AssessmentSummary
	historyErr  error
}

func (d *fakeDirectory) Students(context.Context) ([]model.Student, error) {
	return d.students, d.studentsErr
}

func (d *fakeDirectory) MetricHistory(context.Context, string) ([]model.MetricHistory, error) {
	return d.metrics, d.historyErr
}

func (d *fakeDirectory) AssessmentSummaries(context.Context, string) ([]model.AssessmentSummary, error) {
	return d.summaries, d.historyErr
}

// fakeService is the remote question/grading service.
type fakeService struct {
	quiz     model.Quiz
	quizErr  error
	result   *model.ProfileUpdateResult
	gradeErr error
}

func (s *fakeService) GetQuiz(context.Context, string, int) (model.Quiz, error) {
	return s.quiz, s.quizErr
}

func (s *fakeService) UpdateProfile(context.Context, string, []model.GradedAnswer) (*model.ProfileUpdateResult, error) {
	if s.gradeErr != nil {
		return nil, s.gradeErr
	}
	return s.result, nil
}

func testQuiz() model.Quiz {
	return model.Quiz{
		SelectedQuestions: []model.Question{
			{QID: "q1", Question: "2+2?", OptionA: "3", OptionB: "4", Correct: "B", Topic: model.TopicAlgebra},
			{QID: "q2", Question: "angle sum?", OptionA: "180", OptionB: "90", Correct: "A", Topic: model.TopicGeometry},
		},
		OverallReason: "review",
		AssessmentID:  "as-1",
	}
}

func testResult() *model.ProfileUpdateResult {
	return &model.ProfileUpdateResult{
		ProfileUpdate: model.ProfileUpdate{
			StudentID:    "S001",
			SkillUpdates: model.SkillUpdates{DaiSo: 72, HinhHoc: 58},
			LevelOverall: "A-",
		},
	}
}

// newTestApp wires the handler stack the way the serve command does and
// returns a server plus a cookie-carrying client.
func newTestApp(t *testing.T, dir *fakeDirectory, svc *fakeService) (*httptest.Server, *http.Client) {
	t.Helper()

	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}

	h, err := New(dir, quiz.NewManager(svc, time.Hour), session.NewStore(time.Hour), model.ServeConfig{
		NumQuestions: 2,
		Lang:         "en",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	r.Use(h.BasePathMiddleware)
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return srv, &http.Client{Jar: jar}
}

func defaultDirectory() *fakeDirectory {
	return &fakeDirectory{
		students: []model.Student{
			{StudentID: "S001", Name: "Minh", DaiSo: "65", HinhHoc: "", LevelOverall: "B+"},
			{StudentID: "S002", Name: "Lan", DaiSo: "40", HinhHoc: "45"},
		},
	}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, client *http.Client, base, studentID string) {
	t.Helper()
	resp := doJSON(t, client, http.MethodPost, base+"/api/login", map[string]string{"student_id": studentID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
}

func TestLogin(t *testing.T) {
	srv, client := newTestApp(t, defaultDirectory(), &fakeService{})

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/login", map[string]string{"student_id": "S001"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var student model.Student
	if err := json.NewDecoder(resp.Body).Decode(&student); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if student.StudentID != "S001" || student.Name != "Minh" {
		t.Errorf("got student %+v", student)
	}

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "session" && c.Value != "" {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie not HttpOnly")
			}
		}
	}
	if !found {
		t.Error("no session cookie set")
	}
}

func TestLoginUnknownStudent(t *testing.T) {
	srv, client := newTestApp(t, defaultDirectory(), &fakeService{})

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/login", map[string]string{"student_id": "S999"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginRosterUnavailable(t *testing.T) {
	dir := defaultDirectory()
	dir.studentsErr = errors.New("sheet down")
	srv, client := newTestApp(t, dir, &fakeService{})

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/login", map[string]string{"student_id": "S001"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestLoginMissingStudentID(t *testing.T) {
	srv, client := newTestApp(t, defaultDirectory(), &fakeService{})

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/login", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRequireAuth(t *testing.T) {
	srv, _ := newTestApp(t, defaultDirectory(), &fakeService{})
	// No cookie jar: every request is anonymous.
	client := &http.Client{}

	for _, url := range []string{
		srv.URL + "/api/profile",
		srv.URL + "/api/history/metrics",
	} {
		resp := doJSON(t, client, http.MethodGet, url, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", url, resp.StatusCode)
		}
	}

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/exam", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("POST /api/exam status = %d, want 401", resp.StatusCode)
	}
}

func TestProfile(t *testing.T) {
	srv, client := newTestApp(t, defaultDirectory(), &fakeService{})
	login(t, client, srv.URL, "S001")

	resp := doJSON(t, client, http.MethodGet, srv.URL+"/api/profile", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var profile struct {
		Student  model.Student `json:"student"`
		DaiSo    int           `json:"dai_so"`
		HinhHoc  int           `json:"hinh_hoc"`
		Greeting string        `json:"greeting"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.DaiSo != 65 {
		t.Errorf("dai_so = %d, want 65", profile.DaiSo)
	}
	// Blank sheet cell falls back to the default estimate.
	if profile.HinhHoc != 50 {
		t.Errorf("hinh_hoc = %d, want 50", profile.HinhHoc)
	}
	if !strings.Contains(profile.Greeting, "Minh") {
		t.Errorf("greeting %q does not mention the student", profile.Greeting)
	}
}

func TestExamFlow(t *testing.T) {
	svc := &fakeService{quiz: testQuiz(), result: testResult()}
	srv, client := newTestApp(t, defaultDirectory(), svc)
	login(t, client, srv.URL, "S001")

	// Start: the response must never leak correct letters.
	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/exam", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d, want 201", resp.StatusCode)
	}
	var rawView json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rawView); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Contains(string(rawView), `"correct"`) {
		t.Fatalf("exam view leaks correct answers: %s", rawView)
	}
	var view model.ExamView
	if err := json.Unmarshal(rawView, &view); err != nil {
		t.Fatalf("unmarshal view: %v", err)
	}
	if view.ExamID == "" || len(view.Quiz.Questions) != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}

	examURL := srv.URL + "/api/exam/" + view.ExamID

	// Answer the first question only.
	resp = doJSON(t, client, http.MethodPut, examURL+"/answer", map[string]string{"qid": "q1", "selected": "B"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer status = %d, want 200", resp.StatusCode)
	}
	var state model.AnswerState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Answered != 1 || state.Total != 2 || state.Complete {
		t.Errorf("state after one answer: %+v", state)
	}

	// Submitting now must be rejected.
	resp = doJSON(t, client, http.MethodPost, examURL+"/submit", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("incomplete submit status = %d, want 409", resp.StatusCode)
	}

	// Finish answering: q2 wrong on purpose.
	resp = doJSON(t, client, http.MethodPut, examURL+"/answer", map[string]string{"qid": "q2", "selected": "B"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer status = %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, client, http.MethodPost, examURL+"/submit", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d, want 200", resp.StatusCode)
	}
	var result quiz.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.NumCorrect != 1 || result.Total != 2 || result.Percent != 50 {
		t.Errorf("result = %+v", result)
	}
	if result.ProfileUpdate.LevelOverall != "A-" {
		t.Errorf("profile update not surfaced: %+v", result.ProfileUpdate)
	}
	if result.Before.StudentID != "S001" {
		t.Errorf("before snapshot = %+v", result.Before)
	}

	// A second submit is a conflict.
	resp = doJSON(t, client, http.MethodPost, examURL+"/submit", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("resubmit status = %d, want 409", resp.StatusCode)
	}
}

func TestStartExamUpstreamDown(t *testing.T) {
	svc := &fakeService{quizErr: errors.New("webhook down")}
	srv, client := newTestApp(t, defaultDirectory(), svc)
	login(t, client, srv.URL, "S001")

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/exam", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestExamStateNotFound(t *testing.T) {
	srv, client := newTestApp(t, defaultDirectory(), &fakeService{})
	login(t, client, srv.URL, "S001")

	resp := doJSON(t, client, http.MethodGet, srv.URL+"/api/exam/no-such-exam", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestExamIsOwnedByStudent(t *testing.T) {
	svc := &fakeService{quiz: testQuiz(), result: testResult()}
	srv, client := newTestApp(t, defaultDirectory(), svc)
	login(t, client, srv.URL, "S001")

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/exam", nil)
	var view model.ExamView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// A different student with their own session cannot see it.
	login(t, client, srv.URL, "S002")
	resp = doJSON(t, client, http.MethodGet, srv.URL+"/api/exam/"+view.ExamID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSubmitFailureKeepsSession(t *testing.T) {
	svc := &fakeService{quiz: testQuiz(), gradeErr: errors.New("webhook down")}
	srv, client := newTestApp(t, defaultDirectory(), svc)
	login(t, client, srv.URL, "S001")

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/exam", nil)
	var view model.ExamView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	examURL := srv.URL + "/api/exam/" + view.ExamID

	for _, qid := range []string{"q1", "q2"} {
		doJSON(t, client, http.MethodPut, examURL+"/answer", map[string]string{"qid": qid, "selected": "A"})
	}

	resp = doJSON(t, client, http.MethodPost, examURL+"/submit", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("failed submit status = %d, want 502", resp.StatusCode)
	}

	// Session survives with its answers; a retry succeeds once the service is
	// back.
	resp = doJSON(t, client, http.MethodGet, examURL, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state after failure = %d, want 200", resp.StatusCode)
	}
	var after model.ExamView
	if err := json.NewDecoder(resp.Body).Decode(&after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if after.State.Answered != 2 || !after.State.Complete || after.State.Submitting {
		t.Errorf("state after failure: %+v", after.State)
	}
	if after.State.Error == "" {
		t.Error("state after failure carries no error")
	}

	svc.gradeErr = nil
	svc.result = testResult()
	resp = doJSON(t, client, http.MethodPost, examURL+"/submit", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("retry status = %d, want 200", resp.StatusCode)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	dir := defaultDirectory()
	dir.metrics = []model.MetricHistory{
		{RowID: "r1", StudentID: "S001", Timestamp: "2026-01-10T09:00:00", DaiSo: 65},
	}
	dir.summaries = []model.AssessmentSummary{
		{AssessmentID: "as-1", StudentID: "S001", NumQuestions: 10, NumCorrect: 7},
	}
	srv, client := newTestApp(t, dir, &fakeService{})
	login(t, client, srv.URL, "S001")

	resp := doJSON(t, client, http.MethodGet, srv.URL+"/api/history/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	var metrics []model.MetricHistory
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(metrics) != 1 || metrics[0].RowID != "r1" {
		t.Errorf("metrics = %+v", metrics)
	}

	resp = doJSON(t, client, http.MethodGet, srv.URL+"/api/history/assessments", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assessments status = %d", resp.StatusCode)
	}
	var summaries []model.AssessmentSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summaries) != 1 || summaries[0].NumCorrect != 7 {
		t.Errorf("summaries = %+v", summaries)
	}
}

func TestHistoryUnavailable(t *testing.T) {
	dir := defaultDirectory()
	dir.historyErr = errors.New("sheet down")
	srv, client := newTestApp(t, dir, &fakeService{})
	login(t, client, srv.URL, "S001")

	resp := doJSON(t, client, http.MethodGet, srv.URL+"/api/history/metrics", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestLogout(t *testing.T) {
	srv, client := newTestApp(t, defaultDirectory(), &fakeService{})
	login(t, client, srv.URL, "S001")

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	resp = doJSON(t, client, http.MethodGet, srv.URL+"/api/profile", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("profile after logout = %d, want 401", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv, client := newTestApp(t, defaultDirectory(), &fakeService{})

	resp := doJSON(t, client, http.MethodGet, srv.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStudentsEndpoint(t *testing.T) {
	srv, client := newTestApp(t, defaultDirectory(), &fakeService{})

	resp := doJSON(t, client, http.MethodGet, srv.URL+"/api/students", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var students []model.Student
	if err := json.NewDecoder(resp.Body).Decode(&students); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(students) != 2 {
		t.Errorf("got %d students, want 2", len(students))
	}
}
