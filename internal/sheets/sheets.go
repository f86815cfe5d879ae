// Package sheets reads the remote profile store: a Google spreadsheet
// exposed through the gviz query endpoint. The store owns all of this data;
// the service only takes read-only snapshots.
package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/vcoch/intellilearn/internal/model"
)

// DefaultBaseURL is the public Google Sheets host.
const DefaultBaseURL = "https://docs.google.com"

const (
	defaultStudentsTab    = "studentprofile"
	defaultMetricsTab     = "metrichistory"
	defaultAssessmentsTab = "assessmentsummary"
)

// Config selects the spreadsheet and its tabs.
type Config struct {
	BaseURL        string // empty means DefaultBaseURL
	SheetID        string
	StudentsTab    string
	MetricsTab     string
	AssessmentsTab string
	Timeout        time.Duration
}

// Client fetches and decodes sheet tabs.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a sheets client, filling in tab-name defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.StudentsTab == "" {
		cfg.StudentsTab = defaultStudentsTab
	}
	if cfg.MetricsTab == "" {
		cfg.MetricsTab = defaultMetricsTab
	}
	if cfg.AssessmentsTab == "" {
		cfg.AssessmentsTab = defaultAssessmentsTab
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Students returns every row of the student profile tab. Filtering by
// identifier is the caller's job; the read API has no lookup.
func (c *Client) Students(ctx context.Context) ([]model.Student, error) {
	records, err := c.fetchRecords(ctx, c.cfg.StudentsTab)
	if err != nil {
		return nil, err
	}

	students := make([]model.Student, 0, len(records))
	for _, rec := range records {
		students = append(students, model.Student{
			StudentID:    rec.str("student_id"),
			Name:         rec.str("name"),
			DaiSo:        rec.str("dai_so"),
			HinhHoc:      rec.str("hinh_hoc"),
			LevelOverall: rec.str("level_overall"),
			LastUpdate:   rec.str("last_update"),
		})
	}
	return students, nil
}

// MetricHistory returns the student's skill snapshots, ascending by
// timestamp for trend charts.
func (c *Client) MetricHistory(ctx context.Context, studentID string) ([]model.MetricHistory, error) {
	records, err := c.fetchRecords(ctx, c.cfg.MetricsTab)
	if err != nil {
		return nil, err
	}

	var history []model.MetricHistory
	for _, rec := range records {
		if rec.str("student_id") != studentID {
			continue
		}
		history = append(history, model.MetricHistory{
			RowID:        rec.str("row_id"),
			StudentID:    studentID,
			Timestamp:    rec.str("timestamp"),
			DaiSo:        rec.float("dai_so"),
			HinhHoc:      rec.float("hinh_hoc"),
			LevelOverall: rec.str("level_overall"),
			AssessmentID: rec.str("assessment_id"),
		})
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].Timestamp < history[j].Timestamp
	})
	return history, nil
}

// AssessmentSummaries returns the student's past assessments, most recent
// first.
func (c *Client) AssessmentSummaries(ctx context.Context, studentID string) ([]model.AssessmentSummary, error) {
	records, err := c.fetchRecords(ctx, c.cfg.AssessmentsTab)
	if err != nil {
		return nil, err
	}

	var summaries []model.AssessmentSummary
	for _, rec := range records {
		if rec.str("student_id") != studentID {
			continue
		}
		summaries = append(summaries, model.AssessmentSummary{
			AssessmentID:    rec.str("assessment_id"),
			StudentID:       studentID,
			StartedAt:       rec.str("started_at"),
			FinishedAt:      rec.str("finished_at"),
			NumQuestions:    rec.integer("num_questions"),
			NumCorrect:      rec.integer("num_correct"),
			NumWrong:        rec.integer("num_wrong"),
			ScoreOverall:    rec.float("score_overall"),
			AccuracyDaiSo:   rec.float("accuracy_dai_so"),
			AccuracyHinhHoc: rec.float("accuracy_hinh_hoc"),
			LevelBefore:     rec.str("level_before"),
			LevelAfter:      rec.str("level_after"),
			MainTopic:       rec.str("main_topic"),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].FinishedAt > summaries[j].FinishedAt
	})
	return summaries, nil
}

func (c *Client) fetchRecords(ctx context.Context, tab string) ([]record, error) {
	u := fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?tqx=out:json&sheet=%s",
		c.cfg.BaseURL, c.cfg.SheetID, url.QueryEscape(tab))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build sheet request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet %s: %w", tab, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet %s: status %d", tab, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", tab, err)
	}

	records, err := parseGviz(body)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", tab, err)
	}
	return records, nil
}
