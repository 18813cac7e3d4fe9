package model

// Answer tracks a candidate's state for one question. Created lazily on the
// first interaction with the question and mutated in place by the session.
type Answer struct {
	QuestionID        string `json:"question_id"`
	SelectedOption    *int   `json:"selected_option"`
	IsMarkedForReview bool   `json:"is_marked_for_review"`
	TimeSpentSeconds  int    `json:"time_spent_seconds"`
}

// QuestionStatus is the four-state display status of a question.
type QuestionStatus string

const (
	StatusNotAnswered       QuestionStatus = "not-answered"
	StatusAnswered          QuestionStatus = "answered"
	StatusMarkedForReview   QuestionStatus = "marked-for-review"
	StatusAnsweredAndMarked QuestionStatus = "answered-and-marked"
)

// Status derives the display status from the answer/review flags.
// A nil Answer means the question was never touched.
func (a *Answer) Status() QuestionStatus {
	if a == nil {
		return StatusNotAnswered
	}
	answered := a.SelectedOption != nil
	switch {
	case answered && a.IsMarkedForReview:
		return StatusAnsweredAndMarked
	case answered:
		return StatusAnswered
	case a.IsMarkedForReview:
		return StatusMarkedForReview
	default:
		return StatusNotAnswered
	}
}

// AnswerRequest is the payload for answering or clearing a question.
// A null selected_option clears any prior answer.
type AnswerRequest struct {
	QuestionID     string `json:"question_id" binding:"required,max=32"`
	SelectedOption *int   `json:"selected_option" binding:"omitempty,min=0,max=3"`
}

// MarkRequest is the payload for toggling the review flag on a question.
type MarkRequest struct {
	QuestionID string `json:"question_id" binding:"required,max=32"`
	Marked     bool   `json:"marked"`
}

// NavigateRequest is the payload for jumping to a question by index.
type NavigateRequest struct {
	Index int `json:"index" binding:"min=0"`
}
