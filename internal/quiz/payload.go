package quiz

import "github.com/vcoch/intellilearn/internal/model"

// BuildPayload grades the answers against the quiz and returns the payload
// for the profile-update call: one entry per question, in question order,
// correct = 1 iff the selection equals the question's correct letter.
// Comparison is exact string equality, case-sensitive, no normalization.
// Pure function: same inputs always yield the same payload.
func BuildPayload(quiz model.Quiz, answers model.AnswerMap) []model.GradedAnswer {
	payload := make([]model.GradedAnswer, 0, len(quiz.SelectedQuestions))
	for _, q := range quiz.SelectedQuestions {
		correct := 0
		if answers[q.QID] == q.Correct {
			correct = 1
		}
		payload = append(payload, model.GradedAnswer{QID: q.QID, Correct: correct})
	}
	return payload
}
