package exam

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/varunsiravuri/exam-platform/internal/model"
)

// Negative-marking weights. Fixed product constants, not tunable.
const (
	PointsCorrect    = 1.0
	PointsWrong      = -0.25
	PointsUnanswered = 0.0
)

// ScoreSummary is the output of scoring one question list against an
// answer map.
type ScoreSummary struct {
	TotalScore     float64 `json:"total_score"`
	MaxScore       float64 `json:"max_score"`
	CorrectAnswers int     `json:"correct_answers"`
	WrongAnswers   int     `json:"wrong_answers"`
	Unanswered     int     `json:"unanswered"`
	Percentage     int     `json:"percentage"`
}

// Score runs the negative-marking algorithm over the given questions.
// Pure: no side effects, no I/O. Per question: unanswered contributes 0,
// a correct selection +1, any other valid selection -0.25.
//
// The raw total can go negative; the percentage is floored at 0. That
// asymmetry is intentional and must not be "fixed".
func Score(answers map[string]*model.Answer, questions []model.Question) ScoreSummary {
	var s ScoreSummary
	s.MaxScore = float64(len(questions)) * PointsCorrect

	for _, q := range questions {
		a := answers[q.ID]
		switch {
		case a == nil || a.SelectedOption == nil:
			s.TotalScore += PointsUnanswered
			s.Unanswered++
		case *a.SelectedOption == q.CorrectOption:
			s.TotalScore += PointsCorrect
			s.CorrectAnswers++
		default:
			s.TotalScore += PointsWrong
			s.WrongAnswers++
		}
	}

	s.Percentage = percentageOf(s.TotalScore, s.MaxScore)
	return s
}

// percentageOf rounds total/max to a whole percentage, floored at 0.
func percentageOf(total, max float64) int {
	if max <= 0 {
		return 0
	}
	pct := int(math.Round(total / max * 100))
	if pct < 0 {
		return 0
	}
	return pct
}

// Grade maps a percentage to a letter grade. Bands are inclusive on the
// lower bound, evaluated top-down.
func Grade(percentage int) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	case percentage >= 50:
		return "D"
	default:
		return "F"
	}
}

// outcomeOf classifies one question's final state.
func outcomeOf(a *model.Answer, q model.Question) model.AnswerOutcome {
	if a == nil || a.SelectedOption == nil {
		return model.OutcomeUnanswered
	}
	if *a.SelectedOption == q.CorrectOption {
		return model.OutcomeCorrect
	}
	return model.OutcomeIncorrect
}

// BuildResult produces the immutable Result record for a finished session:
// overall score, denormalized per-question snapshots and a per-section
// breakdown scored with the same algorithm restricted to each section's
// questions (section max = that section's question count).
func BuildResult(
	studentID, studentName, examSet, slotID string,
	answers map[string]*model.Answer,
	questions []model.Question,
	tabSwitchCount int,
	completedAt time.Time,
) *model.Result {
	overall := Score(answers, questions)

	detailed := make([]model.DetailedResult, 0, len(questions))
	for _, q := range questions {
		a := answers[q.ID]
		d := model.DetailedResult{
			Question: q,
			Outcome:  outcomeOf(a, q),
		}
		if a != nil {
			d.SelectedOption = a.SelectedOption
			d.IsMarkedForReview = a.IsMarkedForReview
			d.TimeSpentSeconds = a.TimeSpentSeconds
		}
		detailed = append(detailed, d)
	}

	breakdown := make([]model.SectionScore, 0, len(model.Sections))
	for _, section := range model.Sections {
		var subset []model.Question
		for _, q := range questions {
			if q.Section == section {
				subset = append(subset, q)
			}
		}
		sub := Score(answers, subset)
		breakdown = append(breakdown, model.SectionScore{
			Section:        section,
			TotalQuestions: len(subset),
			CorrectAnswers: sub.CorrectAnswers,
			WrongAnswers:   sub.WrongAnswers,
			Unanswered:     sub.Unanswered,
			TotalScore:     sub.TotalScore,
			MaxScore:       sub.MaxScore,
			Percentage:     sub.Percentage,
		})
	}

	return &model.Result{
		ID:               uuid.New(),
		StudentID:        studentID,
		StudentName:      studentName,
		ExamSet:          examSet,
		SlotID:           slotID,
		CompletionTime:   completedAt,
		TotalQuestions:   len(questions),
		CorrectAnswers:   overall.CorrectAnswers,
		IncorrectAnswers: overall.WrongAnswers,
		Unanswered:       overall.Unanswered,
		TotalScore:       overall.TotalScore,
		MaxScore:         overall.MaxScore,
		Percentage:       overall.Percentage,
		Grade:            Grade(overall.Percentage),
		TabSwitchCount:   tabSwitchCount,
		DetailedResults:  detailed,
		SectionBreakdown: breakdown,
	}
}
