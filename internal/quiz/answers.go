// Package quiz owns the quiz-taking workflow: answer tracking, completeness,
// grading-payload construction, submission, and result reconciliation.
// Question selection and skill arithmetic belong to the remote service.
package quiz

import (
	"maps"

	"github.com/vcoch/intellilearn/internal/model"
)

// SetAnswer returns a new map with the entry for qid replaced or inserted and
// all other entries unchanged. The input map is never mutated, so callers can
// detect change by identity. The letter is not validated; an unknown letter
// simply never matches a correct option.
func SetAnswer(answers model.AnswerMap, qid, letter string) model.AnswerMap {
	next := make(model.AnswerMap, len(answers)+1)
	maps.Copy(next, answers)
	next[qid] = letter
	return next
}

// IsComplete reports whether every question in the quiz has a non-empty
// answer. Extra keys in the map are ignored. An empty quiz is vacuously
// complete, but Manager.Start never admits one.
func IsComplete(quiz model.Quiz, answers model.AnswerMap) bool {
	for _, q := range quiz.SelectedQuestions {
		if answers[q.QID] == "" {
			return false
		}
	}
	return true
}

// CountAnswered returns how many of the quiz's questions have a non-empty
// answer.
func CountAnswered(quiz model.Quiz, answers model.AnswerMap) int {
	n := 0
	for _, q := range quiz.SelectedQuestions {
		if answers[q.QID] != "" {
			n++
		}
	}
	return n
}
