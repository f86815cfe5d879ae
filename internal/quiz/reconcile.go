package quiz

import (
	"math"

	"github.com/vcoch/intellilearn/internal/model"
)

// Result is the display-ready outcome of a graded submission. Everything
// under ProfileUpdate comes from the remote service verbatim; the only local
// arithmetic is the correct count and its percentage. Before is the student
// snapshot from login time so the client can show deltas.
type Result struct {
	NumCorrect    int                 `json:"num_correct"`
	Total         int                 `json:"total"`
	Percent       int                 `json:"percent"`
	Before        model.Student       `json:"before"`
	ProfileUpdate model.ProfileUpdate `json:"profile_update"`
	MiniLessons   []model.MiniLesson  `json:"mini_lessons,omitempty"`
}

// Reconcile derives display aggregates from the grading response and the
// submitted payload. Skill percentages and the overall level are surfaced
// unmodified.
func Reconcile(before model.Student, upd *model.ProfileUpdateResult, payload []model.GradedAnswer) Result {
	correct := 0
	for _, a := range payload {
		if a.Correct == 1 {
			correct++
		}
	}

	percent := 0
	if len(payload) > 0 {
		percent = int(math.Round(float64(correct) / float64(len(payload)) * 100))
	}

	return Result{
		NumCorrect:    correct,
		Total:         len(payload),
		Percent:       percent,
		Before:        before,
		ProfileUpdate: upd.ProfileUpdate,
		MiniLessons:   upd.MiniLessons,
	}
}
