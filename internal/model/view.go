package model

// QuestionView is the client-facing projection of a Question. The correct
// letter and the per-student selection reason stay on the server.
type QuestionView struct {
	QID      string `json:"qid"`
	Question string `json:"question"`
	OptionA  string `json:"optionA"`
	OptionB  string `json:"optionB"`
	OptionC  string `json:"optionC"`
	OptionD  string `json:"optionD"`
	Topic    Topic  `json:"topic"`
	SubTopic string `json:"sub_topic"`
	Level    int    `json:"level"`
}

// QuizView is the client-facing projection of a Quiz.
type QuizView struct {
	Questions     []QuestionView `json:"questions"`
	OverallReason string         `json:"overall_reason"`
	AssessmentID  string         `json:"assessment_id,omitempty"`
}

// ViewOf builds the client projection of a quiz.
func ViewOf(q Quiz) QuizView {
	views := make([]QuestionView, 0, len(q.SelectedQuestions))
	for _, sq := range q.SelectedQuestions {
		views = append(views, QuestionView{
			QID:      sq.QID,
			Question: sq.Question,
			OptionA:  sq.OptionA,
			OptionB:  sq.OptionB,
			OptionC:  sq.OptionC,
			OptionD:  sq.OptionD,
			Topic:    sq.Topic,
			SubTopic: sq.SubTopic,
			Level:    sq.Level,
		})
	}
	return QuizView{
		Questions:     views,
		OverallReason: q.OverallReason,
		AssessmentID:  q.AssessmentID,
	}
}

// AnswerState tells the client where it stands after an answer update. The
// submit control derives its enabled state from Complete and Submitting.
type AnswerState struct {
	Answered   int    `json:"answered"`
	Total      int    `json:"total"`
	Complete   bool   `json:"complete"`
	Submitting bool   `json:"submitting"`
	Error      string `json:"error,omitempty"`
}

// ExamView is the full exam-session snapshot the client rehydrates from.
type ExamView struct {
	ExamID  string      `json:"exam_id"`
	Quiz    QuizView    `json:"quiz"`
	Answers AnswerMap   `json:"answers"`
	State   AnswerState `json:"state"`
}
