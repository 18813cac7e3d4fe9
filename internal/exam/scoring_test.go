package exam

import (
	"testing"
	"time"

	"github.com/varunsiravuri/exam-platform/internal/model"
)

func TestScore_NegativeMarking(t *testing.T) {
	paper := buildPaper(4, 2) // correct option is always 0

	tests := []struct {
		name       string
		answers    map[string]*model.Answer
		total      float64
		correct    int
		wrong      int
		unanswered int
		percentage int
	}{
		{
			name:       "all unanswered",
			answers:    map[string]*model.Answer{},
			total:      0,
			unanswered: 6,
			percentage: 0,
		},
		{
			name: "all correct",
			answers: map[string]*model.Answer{
				"NET001": {QuestionID: "NET001", SelectedOption: intPtr(0)},
				"NET002": {QuestionID: "NET002", SelectedOption: intPtr(0)},
				"NET003": {QuestionID: "NET003", SelectedOption: intPtr(0)},
				"NET004": {QuestionID: "NET004", SelectedOption: intPtr(0)},
				"WQ001":  {QuestionID: "WQ001", SelectedOption: intPtr(0)},
				"WQ002":  {QuestionID: "WQ002", SelectedOption: intPtr(0)},
			},
			total:      6,
			correct:    6,
			percentage: 100,
		},
		{
			name: "mixed with penalty",
			answers: map[string]*model.Answer{
				"NET001": {QuestionID: "NET001", SelectedOption: intPtr(0)},
				"NET002": {QuestionID: "NET002", SelectedOption: intPtr(2)},
				"NET003": {QuestionID: "NET003", SelectedOption: intPtr(3)},
				// NET004 untouched
				"WQ001": {QuestionID: "WQ001", SelectedOption: nil}, // cleared
				"WQ002": {QuestionID: "WQ002", SelectedOption: intPtr(0)},
			},
			total:      1.5, // 2*1 + 2*(-0.25)
			correct:    2,
			wrong:      2,
			unanswered: 2,
			percentage: 25,
		},
		{
			name: "marked for review without answer counts as unanswered",
			answers: map[string]*model.Answer{
				"NET001": {QuestionID: "NET001", IsMarkedForReview: true},
			},
			total:      0,
			unanswered: 6,
			percentage: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.answers, paper)
			if got.TotalScore != tc.total {
				t.Errorf("total: want %v, got %v", tc.total, got.TotalScore)
			}
			if got.CorrectAnswers != tc.correct || got.WrongAnswers != tc.wrong || got.Unanswered != tc.unanswered {
				t.Errorf("counts: want %d/%d/%d, got %d/%d/%d",
					tc.correct, tc.wrong, tc.unanswered,
					got.CorrectAnswers, got.WrongAnswers, got.Unanswered)
			}
			if sum := got.CorrectAnswers + got.WrongAnswers + got.Unanswered; sum != len(paper) {
				t.Errorf("counts must sum to question count: got %d, want %d", sum, len(paper))
			}
			if got.MaxScore != float64(len(paper)) {
				t.Errorf("max score: want %d, got %v", len(paper), got.MaxScore)
			}
			if got.Percentage != tc.percentage {
				t.Errorf("percentage: want %d, got %d", tc.percentage, got.Percentage)
			}
		})
	}
}

// The raw score can go negative, but the percentage is floored at zero.
// This asymmetry is intentional product behavior.
func TestScore_PercentageFlooredAtZero(t *testing.T) {
	paper := buildPaper(40, 20)
	answers := make(map[string]*model.Answer, len(paper))
	for _, q := range paper {
		answers[q.ID] = &model.Answer{QuestionID: q.ID, SelectedOption: intPtr(1)} // always wrong
	}

	got := Score(answers, paper)
	if got.TotalScore != -15 {
		t.Fatalf("total: want -15, got %v", got.TotalScore)
	}
	if got.Percentage != 0 {
		t.Fatalf("percentage must never go negative: got %d", got.Percentage)
	}
}

func TestScore_EmptyPaper(t *testing.T) {
	got := Score(nil, nil)
	if got.TotalScore != 0 || got.MaxScore != 0 || got.Percentage != 0 {
		t.Fatalf("empty paper should score zero across the board: %+v", got)
	}
}

func TestGrade_Bands(t *testing.T) {
	tests := []struct {
		percentage int
		want       string
	}{
		{100, "A+"},
		{90, "A+"},
		{89, "A"},
		{80, "A"},
		{79, "B"},
		{70, "B"},
		{69, "C"},
		{60, "C"},
		{59, "D"},
		{50, "D"},
		{49, "F"},
		{0, "F"},
	}
	for _, tc := range tests {
		if got := Grade(tc.percentage); got != tc.want {
			t.Errorf("Grade(%d): want %s, got %s", tc.percentage, got, tc.want)
		}
	}
}

// 60 questions: 50 correct, 5 wrong, 5 unanswered.
// total = 50 - 1.25 = 48.75, percentage = round(48.75/60*100) = 81 → A.
func TestBuildResult_EndToEnd(t *testing.T) {
	paper := buildPaper(40, 20)
	answers := make(map[string]*model.Answer)
	for i, q := range paper {
		switch {
		case i < 50:
			answers[q.ID] = &model.Answer{QuestionID: q.ID, SelectedOption: intPtr(0)}
		case i < 55:
			answers[q.ID] = &model.Answer{QuestionID: q.ID, SelectedOption: intPtr(2)}
		}
	}

	completedAt := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)
	res := BuildResult("A001", "Student A1", "SET_A", "SLOT_1", answers, paper, 3, completedAt)

	if res.TotalScore != 48.75 {
		t.Errorf("total: want 48.75, got %v", res.TotalScore)
	}
	if res.MaxScore != 60 {
		t.Errorf("max: want 60, got %v", res.MaxScore)
	}
	if res.Percentage != 81 {
		t.Errorf("percentage: want 81, got %d", res.Percentage)
	}
	if res.Grade != "A" {
		t.Errorf("grade: want A, got %s", res.Grade)
	}
	if res.CorrectAnswers != 50 || res.IncorrectAnswers != 5 || res.Unanswered != 5 {
		t.Errorf("counts: got %d/%d/%d", res.CorrectAnswers, res.IncorrectAnswers, res.Unanswered)
	}
	if res.TabSwitchCount != 3 {
		t.Errorf("tab switches: want 3, got %d", res.TabSwitchCount)
	}
	if len(res.DetailedResults) != 60 {
		t.Fatalf("detailed results: want 60, got %d", len(res.DetailedResults))
	}
	if res.DetailedResults[0].Outcome != model.OutcomeCorrect {
		t.Errorf("first question outcome: got %s", res.DetailedResults[0].Outcome)
	}
	if res.DetailedResults[59].Outcome != model.OutcomeUnanswered {
		t.Errorf("last question outcome: got %s", res.DetailedResults[59].Outcome)
	}
}

// Section maxScore is the subsection's question count, not the global max.
func TestBuildResult_SectionBreakdown(t *testing.T) {
	paper := buildPaper(40, 20)
	answers := make(map[string]*model.Answer)
	for _, q := range paper {
		if q.Section == model.SectionNetworking {
			answers[q.ID] = &model.Answer{QuestionID: q.ID, SelectedOption: intPtr(0)}
		}
	}

	res := BuildResult("A001", "Student A1", "SET_A", "SLOT_1", answers, paper, 0, time.Now())

	if len(res.SectionBreakdown) != 2 {
		t.Fatalf("want 2 sections, got %d", len(res.SectionBreakdown))
	}

	net := res.SectionBreakdown[0]
	if net.Section != model.SectionNetworking || net.MaxScore != 40 || net.CorrectAnswers != 40 || net.Percentage != 100 {
		t.Errorf("networking breakdown wrong: %+v", net)
	}
	quant := res.SectionBreakdown[1]
	if quant.Section != model.SectionWifiQuant || quant.MaxScore != 20 || quant.Unanswered != 20 || quant.Percentage != 0 {
		t.Errorf("wifi-quant breakdown wrong: %+v", quant)
	}
}
