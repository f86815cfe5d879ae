package quiz

import (
	"testing"

	"github.com/vcoch/intellilearn/internal/model"
)

func threeQuestionQuiz(t *testing.T) model.Quiz {
	t.Helper()
	return model.Quiz{
		SelectedQuestions: []model.Question{
			{QID: "q1", Question: "2+2?", Correct: "B", Topic: model.TopicAlgebra},
			{QID: "q2", Question: "x=?", Correct: "A", Topic: model.TopicAlgebra},
			{QID: "q3", Question: "angles?", Correct: "D", Topic: model.TopicGeometry},
		},
		OverallReason: "review set",
		AssessmentID:  "as-1",
	}
}

func TestSetAnswerDoesNotMutateInput(t *testing.T) {
	orig := model.AnswerMap{"q1": "A"}

	next := SetAnswer(orig, "q2", "C")

	if len(orig) != 1 || orig["q1"] != "A" {
		t.Errorf("input map was mutated: %v", orig)
	}
	if next["q1"] != "A" || next["q2"] != "C" {
		t.Errorf("unexpected result map: %v", next)
	}

	// Replacing an existing entry also leaves the input alone.
	replaced := SetAnswer(next, "q1", "D")
	if next["q1"] != "A" {
		t.Errorf("input map was mutated on replace: %v", next)
	}
	if replaced["q1"] != "D" || replaced["q2"] != "C" {
		t.Errorf("unexpected replaced map: %v", replaced)
	}
}

func TestSetAnswerAcceptsAnyLetter(t *testing.T) {
	// The tracker does no option validation; bogus letters are stored and
	// simply never match a correct option.
	m := SetAnswer(model.AnswerMap{}, "q1", "Z")
	if m["q1"] != "Z" {
		t.Errorf("expected Z stored, got %q", m["q1"])
	}
}

func TestIsComplete(t *testing.T) {
	q := threeQuestionQuiz(t)

	tests := []struct {
		name    string
		answers model.AnswerMap
		want    bool
	}{
		{"empty map", model.AnswerMap{}, false},
		{"partial", model.AnswerMap{"q1": "B", "q3": "D"}, false},
		{"all answered", model.AnswerMap{"q1": "B", "q2": "C", "q3": "D"}, true},
		{"empty entry does not count", model.AnswerMap{"q1": "B", "q2": "", "q3": "D"}, false},
		{"extra unrelated keys ignored", model.AnswerMap{"q1": "B", "q2": "C", "q3": "D", "q99": "A"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsComplete(q, tt.answers); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsCompleteEmptyQuiz(t *testing.T) {
	// Vacuously true; Manager.Start never admits such a quiz.
	if !IsComplete(model.Quiz{}, model.AnswerMap{}) {
		t.Error("empty quiz should be vacuously complete")
	}
}

func TestCountAnswered(t *testing.T) {
	q := threeQuestionQuiz(t)

	if got := CountAnswered(q, model.AnswerMap{}); got != 0 {
		t.Errorf("CountAnswered(empty) = %d, want 0", got)
	}
	if got := CountAnswered(q, model.AnswerMap{"q1": "A", "q99": "B"}); got != 1 {
		t.Errorf("CountAnswered(partial) = %d, want 1", got)
	}
	if got := CountAnswered(q, model.AnswerMap{"q1": "A", "q2": "B", "q3": "C"}); got != 3 {
		t.Errorf("CountAnswered(full) = %d, want 3", got)
	}
}
