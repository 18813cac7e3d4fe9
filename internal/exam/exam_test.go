package exam

import (
	"fmt"
	"time"

	"github.com/varunsiravuri/exam-platform/internal/model"
)

// fakeClock is a manually advanced clock for deterministic timer tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func intPtr(v int) *int { return &v }

// buildPaper returns a paper with the given number of networking and
// wifi-quant questions. Correct option is always 0.
func buildPaper(networking, wifiQuant int) []model.Question {
	var qs []model.Question
	for i := 0; i < networking; i++ {
		qs = append(qs, model.Question{
			ID:            fmt.Sprintf("NET%03d", i+1),
			Section:       model.SectionNetworking,
			Text:          fmt.Sprintf("networking question %d", i+1),
			Options:       [4]string{"a", "b", "c", "d"},
			CorrectOption: 0,
			Difficulty:    model.DifficultyMedium,
			ExamSet:       "SET_A",
		})
	}
	for i := 0; i < wifiQuant; i++ {
		qs = append(qs, model.Question{
			ID:            fmt.Sprintf("WQ%03d", i+1),
			Section:       model.SectionWifiQuant,
			Text:          fmt.Sprintf("quant question %d", i+1),
			Options:       [4]string{"a", "b", "c", "d"},
			CorrectOption: 0,
			Difficulty:    model.DifficultyMedium,
			ExamSet:       "SET_A",
		})
	}
	return qs
}

// startedSession drives a fresh session all the way into the exam state.
func startedSession(clock Clock, paper []model.Question) (*Session, error) {
	s := NewSession(clock)
	if err := s.Login("A001"); err != nil {
		return nil, err
	}
	if err := s.Authorize("SET_A", "SLOT_1"); err != nil {
		return nil, err
	}
	if err := s.Begin(paper); err != nil {
		return nil, err
	}
	return s, nil
}
