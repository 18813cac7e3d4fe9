package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerOutcome classifies a question in the final result.
type AnswerOutcome string

const (
	OutcomeCorrect    AnswerOutcome = "correct"
	OutcomeIncorrect  AnswerOutcome = "incorrect"
	OutcomeUnanswered AnswerOutcome = "unanswered"
)

// DetailedResult is the denormalized per-question snapshot embedded in a
// Result for audit and export. It carries the full question plus the
// candidate's answer state at submission time.
type DetailedResult struct {
	Question
	SelectedOption    *int          `json:"selected_option"`
	IsMarkedForReview bool          `json:"is_marked_for_review"`
	TimeSpentSeconds  int           `json:"time_spent_seconds"`
	Outcome           AnswerOutcome `json:"status"`
}

// SectionScore is the per-section score summary inside a Result.
// MaxScore is the section's own question count, not the global max.
type SectionScore struct {
	Section        Section `json:"section"`
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	WrongAnswers   int     `json:"wrong_answers"`
	Unanswered     int     `json:"unanswered"`
	TotalScore     float64 `json:"total_score"`
	MaxScore       float64 `json:"max_score"`
	Percentage     int     `json:"percentage"`
}

// Result is the immutable record produced by the scoring engine at
// submission time and handed to the result store for persistence.
type Result struct {
	ID               uuid.UUID        `json:"id"`
	StudentID        string           `json:"student_id"`
	StudentName      string           `json:"student_name"`
	ExamSet          string           `json:"exam_set"`
	SlotID           string           `json:"slot_id"`
	CompletionTime   time.Time        `json:"completion_time"`
	TotalQuestions   int              `json:"total_questions"`
	CorrectAnswers   int              `json:"correct_answers"`
	IncorrectAnswers int              `json:"incorrect_answers"`
	Unanswered       int              `json:"unanswered"`
	TotalScore       float64          `json:"total_score"`
	MaxScore         float64          `json:"max_score"`
	Percentage       int              `json:"percentage"`
	Grade            string           `json:"grade"`
	TabSwitchCount   int              `json:"tab_switch_count"`
	DetailedResults  []DetailedResult `json:"detailed_results"`
	SectionBreakdown []SectionScore   `json:"section_breakdown"`
}

// ResultSummary is the lightweight listing row for the results read side.
type ResultSummary struct {
	ID             uuid.UUID `json:"id"`
	Filename       string    `json:"filename"`
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name"`
	ExamSet        string    `json:"exam_set"`
	TotalScore     float64   `json:"total_score"`
	MaxScore       float64   `json:"max_score"`
	Percentage     int       `json:"percentage"`
	Grade          string    `json:"grade"`
	CompletionTime time.Time `json:"completion_time"`
	CreatedAt      time.Time `json:"created_at"`
}
