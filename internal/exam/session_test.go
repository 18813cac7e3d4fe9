package exam

import (
	"errors"
	"testing"
	"time"

	"github.com/varunsiravuri/exam-platform/internal/model"
)

func TestSession_HappyPathTransitions(t *testing.T) {
	clock := newFakeClock()
	s := NewSession(clock)

	if s.State() != StateLogin {
		t.Fatalf("fresh session state: got %s", s.State())
	}
	if err := s.Login("A001"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.State() != StateSlotValidation {
		t.Fatalf("after login: got %s", s.State())
	}
	if err := s.Authorize("SET_A", "SLOT_1"); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if s.State() != StateInstructions {
		t.Fatalf("after authorize: got %s", s.State())
	}
	if err := s.Begin(buildPaper(2, 1)); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if s.State() != StateExam {
		t.Fatalf("after begin: got %s", s.State())
	}
	if !s.StartTime().Equal(clock.Now()) {
		t.Errorf("start time not anchored to begin")
	}
	if err := s.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.State() != StateCompletion || s.Termination() != TerminationSubmitted {
		t.Fatalf("after submit: state %s, termination %s", s.State(), s.Termination())
	}
}

func TestSession_InvalidTransitions(t *testing.T) {
	clock := newFakeClock()

	tests := []struct {
		name string
		run  func(s *Session) error
	}{
		{"authorize before login", func(s *Session) error { return s.Authorize("SET_A", "SLOT_1") }},
		{"begin before authorize", func(s *Session) error {
			_ = s.Login("A001")
			return s.Begin(buildPaper(1, 0))
		}},
		{"double login", func(s *Session) error {
			_ = s.Login("A001")
			return s.Login("A001")
		}},
		{"submit before exam", func(s *Session) error {
			_ = s.Login("A001")
			return s.Submit()
		}},
		{"navigate before exam", func(s *Session) error { return s.Navigate(0) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(NewSession(clock)); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("want ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestSession_BeginRequiresQuestions(t *testing.T) {
	s := NewSession(newFakeClock())
	_ = s.Login("A001")
	_ = s.Authorize("SET_A", "SLOT_1")

	if err := s.Begin(nil); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("want ErrNoQuestions, got %v", err)
	}
	if s.State() != StateInstructions {
		t.Fatalf("failed begin must not advance state: got %s", s.State())
	}
}

func TestSession_AnswerLifecycle(t *testing.T) {
	clock := newFakeClock()
	s, err := startedSession(clock, buildPaper(2, 1))
	if err != nil {
		t.Fatal(err)
	}

	// Clearing an untouched question is a quiet no-op.
	if err := s.Answer("NET001", nil); err != nil {
		t.Fatalf("clear untouched: %v", err)
	}
	if s.AnswerFor("NET001") != nil {
		t.Fatal("clearing an untouched question must not create an answer record")
	}

	if err := s.Answer("NET001", intPtr(2)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if a := s.AnswerFor("NET001"); a == nil || *a.SelectedOption != 2 {
		t.Fatalf("answer not recorded: %+v", a)
	}
	if s.StatusFor("NET001") != model.StatusAnswered {
		t.Errorf("status: got %s", s.StatusFor("NET001"))
	}

	// Re-answering overwrites.
	if err := s.Answer("NET001", intPtr(3)); err != nil {
		t.Fatalf("re-answer: %v", err)
	}
	if a := s.AnswerFor("NET001"); *a.SelectedOption != 3 {
		t.Fatalf("re-answer not recorded: %+v", a)
	}

	// Clearing an answered question reverts it to unanswered.
	if err := s.Answer("NET001", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if a := s.AnswerFor("NET001"); a.SelectedOption != nil {
		t.Fatal("clear did not remove selection")
	}
	if s.StatusFor("NET001") != model.StatusNotAnswered {
		t.Errorf("status after clear: got %s", s.StatusFor("NET001"))
	}

	if err := s.Answer("NOPE", intPtr(0)); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("unknown question: got %v", err)
	}
	if err := s.Answer("NET001", intPtr(4)); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("out-of-range option: got %v", err)
	}
}

// The review flag and the answer are independent axes.
func TestSession_ReviewOrthogonalToAnswer(t *testing.T) {
	s, err := startedSession(newFakeClock(), buildPaper(2, 1))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.MarkForReview("NET001", true); err != nil {
		t.Fatal(err)
	}
	if s.StatusFor("NET001") != model.StatusMarkedForReview {
		t.Errorf("marked unanswered: got %s", s.StatusFor("NET001"))
	}

	if err := s.Answer("NET001", intPtr(1)); err != nil {
		t.Fatal(err)
	}
	if s.StatusFor("NET001") != model.StatusAnsweredAndMarked {
		t.Errorf("marked answered: got %s", s.StatusFor("NET001"))
	}

	// Clearing the answer keeps the mark.
	if err := s.Answer("NET001", nil); err != nil {
		t.Fatal(err)
	}
	if a := s.AnswerFor("NET001"); !a.IsMarkedForReview {
		t.Error("clearing answer must not clear the review mark")
	}

	// Unmarking keeps the answer.
	if err := s.Answer("NET001", intPtr(0)); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkForReview("NET001", false); err != nil {
		t.Fatal(err)
	}
	if a := s.AnswerFor("NET001"); a.SelectedOption == nil {
		t.Error("unmarking must not clear the answer")
	}

	// Unmarking an untouched question is a quiet no-op.
	if err := s.MarkForReview("NET002", false); err != nil {
		t.Fatal(err)
	}
	if s.AnswerFor("NET002") != nil {
		t.Error("unmarking an untouched question must not create a record")
	}
}

func TestSession_TabSwitchNeverTerminates(t *testing.T) {
	s, err := startedSession(newFakeClock(), buildPaper(2, 1))
	if err != nil {
		t.Fatal(err)
	}

	const n = 25
	for i := 0; i < n; i++ {
		if err := s.TabSwitch(); err != nil {
			t.Fatalf("tab switch %d: %v", i+1, err)
		}
	}
	if s.State() != StateExam {
		t.Fatalf("session must stay live through tab switches: got %s", s.State())
	}
	if s.TabSwitchCount() != n {
		t.Fatalf("count: want %d, got %d", n, s.TabSwitchCount())
	}
	if !s.IsWarned() {
		t.Fatal("warning flag must be raised")
	}

	s.DismissWarning()
	if s.IsWarned() {
		t.Fatal("dismiss must clear the flag")
	}
	if s.TabSwitchCount() != n {
		t.Fatal("dismiss must not touch the counter")
	}
}

func TestSession_NavigateTracksTimeSpent(t *testing.T) {
	clock := newFakeClock()
	s, err := startedSession(clock, buildPaper(3, 1))
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(30 * time.Second)
	if err := s.Navigate(2); err != nil {
		t.Fatal(err)
	}
	if s.CurrentIndex() != 2 {
		t.Fatalf("index: got %d", s.CurrentIndex())
	}
	if a := s.AnswerFor("NET001"); a == nil || a.TimeSpentSeconds != 30 {
		t.Fatalf("time spent on left question: %+v", a)
	}
	if s.QuestionElapsed() != 0 {
		t.Fatalf("baseline must reset on entry: got %v", s.QuestionElapsed())
	}

	// Returning accumulates rather than overwrites.
	clock.Advance(10 * time.Second)
	if err := s.Navigate(0); err != nil {
		t.Fatal(err)
	}
	clock.Advance(15 * time.Second)
	if err := s.Navigate(1); err != nil {
		t.Fatal(err)
	}
	if a := s.AnswerFor("NET001"); a.TimeSpentSeconds != 45 {
		t.Fatalf("accumulated time: want 45, got %d", a.TimeSpentSeconds)
	}

	if err := s.Navigate(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("negative index: got %v", err)
	}
	if err := s.Navigate(4); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("index past end: got %v", err)
	}
}

func TestSession_BreakFlow(t *testing.T) {
	clock := newFakeClock()
	s, err := startedSession(clock, buildPaper(2, 2))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.BeginBreak(); err != nil {
		t.Fatalf("begin break: %v", err)
	}
	if s.State() != StateBreak {
		t.Fatalf("state: got %s", s.State())
	}

	clock.Advance(40 * time.Second)
	if s.BreakElapsed() != 40*time.Second {
		t.Fatalf("elapsed: got %v", s.BreakElapsed())
	}

	if err := s.EndBreak(); err != nil {
		t.Fatalf("end break: %v", err)
	}
	if s.State() != StateExam {
		t.Fatalf("state after break: got %s", s.State())
	}
	// Resumes at the first question of the second section.
	if s.CurrentIndex() != 2 || s.CurrentSection() != model.SectionWifiQuant {
		t.Fatalf("resume point: index %d, section %s", s.CurrentIndex(), s.CurrentSection())
	}
}

func TestSession_BreakOnlyFromFirstSection(t *testing.T) {
	s, err := startedSession(newFakeClock(), buildPaper(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Navigate(2); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginBreak(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("break from second section: got %v", err)
	}
}

// Break can be cut short immediately; zero-length breaks are legal.
func TestSession_BreakSkippable(t *testing.T) {
	s, err := startedSession(newFakeClock(), buildPaper(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.BeginBreak(); err != nil {
		t.Fatal(err)
	}
	if err := s.EndBreak(); err != nil {
		t.Fatalf("immediate end: %v", err)
	}
	if s.State() != StateExam {
		t.Fatalf("state: got %s", s.State())
	}
}

// Time-up and inactivity are no-ops on a completed session, so the race
// between the two terminating timers and a manual submit is harmless.
func TestSession_TerminationRaceIsIdempotent(t *testing.T) {
	s, err := startedSession(newFakeClock(), buildPaper(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Submit(); err != nil {
		t.Fatal(err)
	}

	if err := s.ExpireTime(); err != nil {
		t.Fatalf("late time-up must be a no-op: %v", err)
	}
	if err := s.ExpireInactivity(); err != nil {
		t.Fatalf("late inactivity must be a no-op: %v", err)
	}
	if s.Termination() != TerminationSubmitted {
		t.Fatalf("first terminator wins: got %s", s.Termination())
	}
}

func TestSession_ExpireFromBreak(t *testing.T) {
	s, err := startedSession(newFakeClock(), buildPaper(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.BeginBreak(); err != nil {
		t.Fatal(err)
	}
	if err := s.ExpireTime(); err != nil {
		t.Fatalf("time-up during break: %v", err)
	}
	if s.State() != StateCompletion || s.Termination() != TerminationTimeUp {
		t.Fatalf("state %s, termination %s", s.State(), s.Termination())
	}
}

func TestSession_InactivityTracking(t *testing.T) {
	clock := newFakeClock()
	s, err := startedSession(clock, buildPaper(2, 1))
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(9 * time.Minute)
	if s.IdleFor() != 9*time.Minute {
		t.Fatalf("idle: got %v", s.IdleFor())
	}

	// Any interaction resets the idle window.
	if err := s.Answer("NET001", intPtr(0)); err != nil {
		t.Fatal(err)
	}
	if s.IdleFor() != 0 {
		t.Fatalf("idle after activity: got %v", s.IdleFor())
	}

	clock.Advance(10 * time.Minute)
	if err := s.ExpireInactivity(); err != nil {
		t.Fatal(err)
	}
	if s.Termination() != TerminationInactivity {
		t.Fatalf("termination: got %s", s.Termination())
	}
}

func TestSession_LongQuestionWarningOncePerVisit(t *testing.T) {
	clock := newFakeClock()
	s, err := startedSession(clock, buildPaper(2, 1))
	if err != nil {
		t.Fatal(err)
	}
	threshold := 5 * time.Minute

	if s.LongQuestionWarning(threshold) {
		t.Fatal("must not fire before the threshold")
	}
	clock.Advance(threshold)
	if !s.LongQuestionWarning(threshold) {
		t.Fatal("must fire at the threshold")
	}
	clock.Advance(threshold)
	if s.LongQuestionWarning(threshold) {
		t.Fatal("must fire only once per visit")
	}

	// Navigating away and back re-arms the advisory.
	if err := s.Navigate(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Navigate(0); err != nil {
		t.Fatal(err)
	}
	clock.Advance(threshold)
	if !s.LongQuestionWarning(threshold) {
		t.Fatal("revisit must re-arm the advisory")
	}
}

func TestSession_InteractionsRejectedAfterCompletion(t *testing.T) {
	s, err := startedSession(newFakeClock(), buildPaper(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Submit(); err != nil {
		t.Fatal(err)
	}

	if err := s.Answer("NET001", intPtr(0)); !errors.Is(err, ErrSessionNotLive) {
		t.Errorf("answer after completion: got %v", err)
	}
	if err := s.MarkForReview("NET001", true); !errors.Is(err, ErrSessionNotLive) {
		t.Errorf("mark after completion: got %v", err)
	}
	if err := s.TabSwitch(); !errors.Is(err, ErrSessionNotLive) {
		t.Errorf("tab switch after completion: got %v", err)
	}
}

// The snapshot handed to scoring must be isolated from later mutation.
func TestSession_AnswersSnapshotIsCopy(t *testing.T) {
	s, err := startedSession(newFakeClock(), buildPaper(2, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Answer("NET001", intPtr(1)); err != nil {
		t.Fatal(err)
	}

	snap := s.Answers()
	if err := s.Answer("NET001", intPtr(3)); err != nil {
		t.Fatal(err)
	}
	if *snap["NET001"].SelectedOption != 1 {
		t.Fatal("snapshot must not see later mutation")
	}
}
