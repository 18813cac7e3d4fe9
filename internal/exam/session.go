package exam

import (
	"errors"
	"fmt"
	"time"

	"github.com/varunsiravuri/exam-platform/internal/model"
)

// State enumerates the exam session states in flow order.
type State string

const (
	StateLogin          State = "login"
	StateSlotValidation State = "slot-validation"
	StateInstructions   State = "instructions"
	StateExam           State = "exam"
	StateBreak          State = "break"
	StateCompletion     State = "completion"
)

// TerminationReason records how a session reached completion.
type TerminationReason string

const (
	TerminationSubmitted  TerminationReason = "submitted"
	TerminationTimeUp     TerminationReason = "time-up"
	TerminationInactivity TerminationReason = "inactivity"
)

// Session state machine errors.
var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrSessionNotLive    = errors.New("session is not live")
	ErrUnknownQuestion   = errors.New("question is not part of this paper")
	ErrIndexOutOfRange   = errors.New("question index out of range")
	ErrInvalidOption     = errors.New("selected option out of range")
	ErrNoQuestions       = errors.New("no questions loaded for this paper")
)

// Session is the explicit state-machine object for one candidate's exam
// attempt. All progress lives here: current section and question, lazily
// created per-question answer state, the tab-switch counter and warning
// flag, and activity timestamps for the inactivity cutoff.
//
// Transitions are synchronous methods, not an ambient dispatcher, so any
// transport layer (REST, WebSocket, tests) can drive the machine. Callers
// serialize access; the session manager holds one lock per candidate.
type Session struct {
	clock Clock

	studentID string
	examSet   string
	slotID    string

	state     State
	startTime time.Time

	questions []model.Question
	answers   map[string]*model.Answer
	byID      map[string]int

	currentIndex int

	tabSwitchCount int
	warned         bool

	// Per-question visit tracking. enteredAt is reset on every navigation;
	// longWarned resets too so the advisory fires once per visit.
	enteredAt  time.Time
	longWarned bool

	lastActivity time.Time
	breakStarted time.Time

	termination TerminationReason
}

// NewSession creates a session in the login state.
func NewSession(clock Clock) *Session {
	if clock == nil {
		clock = SystemClock()
	}
	return &Session{
		clock:   clock,
		state:   StateLogin,
		answers: make(map[string]*model.Answer),
	}
}

// Login records the candidate's ID and moves to slot validation. No other
// state is touched.
func (s *Session) Login(studentID string) error {
	if s.state != StateLogin {
		return fmt.Errorf("%w: login from %s", ErrInvalidTransition, s.state)
	}
	s.studentID = studentID
	s.state = StateSlotValidation
	return nil
}

// Authorize moves to the instructions screen after external slot validation
// succeeded, binding the session to the validated exam set and slot.
func (s *Session) Authorize(examSet, slotID string) error {
	if s.state != StateSlotValidation {
		return fmt.Errorf("%w: authorize from %s", ErrInvalidTransition, s.state)
	}
	s.examSet = examSet
	s.slotID = slotID
	s.state = StateInstructions
	return nil
}

// Begin starts the exam proper: the paper is loaded, the exam-wide clock is
// anchored and the candidate lands on the first question. Triggered by the
// candidate's explicit acknowledgment of the instructions.
func (s *Session) Begin(questions []model.Question) error {
	if s.state != StateInstructions {
		return fmt.Errorf("%w: begin from %s", ErrInvalidTransition, s.state)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	s.questions = questions
	s.byID = make(map[string]int, len(questions))
	for i, q := range questions {
		s.byID[q.ID] = i
	}

	now := s.clock.Now()
	s.startTime = now
	s.currentIndex = 0
	s.enteredAt = now
	s.longWarned = false
	s.lastActivity = now
	s.state = StateExam
	return nil
}

// Answer sets or clears the selected option for a question. A nil selection
// clears a prior answer and is idempotent on an already-unanswered question.
// The review flag is never touched.
func (s *Session) Answer(questionID string, selected *int) error {
	if err := s.requireLive(); err != nil {
		return err
	}
	if _, ok := s.byID[questionID]; !ok {
		return ErrUnknownQuestion
	}
	if selected != nil && (*selected < 0 || *selected > 3) {
		return ErrInvalidOption
	}

	s.touch()

	a, ok := s.answers[questionID]
	if !ok {
		if selected == nil {
			// Clearing a question that was never answered: no Answer churn.
			return nil
		}
		a = &model.Answer{QuestionID: questionID}
		s.answers[questionID] = a
	}
	a.SelectedOption = selected
	return nil
}

// MarkForReview toggles the review flag, independent of the answer.
func (s *Session) MarkForReview(questionID string, marked bool) error {
	if err := s.requireLive(); err != nil {
		return err
	}
	if _, ok := s.byID[questionID]; !ok {
		return ErrUnknownQuestion
	}

	s.touch()

	a, ok := s.answers[questionID]
	if !ok {
		if !marked {
			return nil
		}
		a = &model.Answer{QuestionID: questionID}
		s.answers[questionID] = a
	}
	a.IsMarkedForReview = marked
	return nil
}

// Navigate jumps to any question in the full paper (free navigation). Time
// spent on the question being left is folded into its answer record, and a
// fresh time-spent baseline starts for the target question.
func (s *Session) Navigate(index int) error {
	if s.state != StateExam {
		return fmt.Errorf("%w: navigate from %s", ErrInvalidTransition, s.state)
	}
	if index < 0 || index >= len(s.questions) {
		return ErrIndexOutOfRange
	}

	s.touch()
	s.flushTimeSpent()

	s.currentIndex = index
	s.enteredAt = s.clock.Now()
	s.longWarned = false
	return nil
}

// TabSwitch records a visibility-hidden or window-blur event. The counter is
// monotonically non-decreasing and the warning flag is raised, but the
// session is never terminated on this signal.
func (s *Session) TabSwitch() error {
	if err := s.requireLive(); err != nil {
		return err
	}
	s.tabSwitchCount++
	s.warned = true
	return nil
}

// DismissWarning clears the warning flag. The counter is untouched.
func (s *Session) DismissWarning() {
	s.warned = false
}

// BeginBreak enters the optional between-section break. Only reachable from
// the exam state while the candidate is still in the first section.
func (s *Session) BeginBreak() error {
	if s.state != StateExam {
		return fmt.Errorf("%w: break from %s", ErrInvalidTransition, s.state)
	}
	if s.CurrentSection() != model.SectionNetworking {
		return fmt.Errorf("%w: break is only available between sections", ErrInvalidTransition)
	}
	s.flushTimeSpent()
	s.breakStarted = s.clock.Now()
	s.state = StateBreak
	return nil
}

// EndBreak resumes the exam at the start of the second section. The break
// never blocks: it can be skipped immediately or cut short at any point.
func (s *Session) EndBreak() error {
	if s.state != StateBreak {
		return fmt.Errorf("%w: end break from %s", ErrInvalidTransition, s.state)
	}
	idx := s.sectionStartIndex(model.SectionWifiQuant)
	if idx < 0 {
		idx = s.currentIndex
	}
	s.currentIndex = idx
	now := s.clock.Now()
	s.enteredAt = now
	s.longWarned = false
	s.lastActivity = now
	s.state = StateExam
	return nil
}

// BreakElapsed returns how long the current break has lasted.
func (s *Session) BreakElapsed() time.Duration {
	if s.state != StateBreak {
		return 0
	}
	return s.clock.Now().Sub(s.breakStarted)
}

// Submit completes the session by explicit candidate action.
func (s *Session) Submit() error {
	return s.complete(TerminationSubmitted)
}

// ExpireTime completes the session because the exam-wide countdown hit
// zero. A no-op when the session already completed — whichever of the two
// terminating timers fires first wins, the loser must not act.
func (s *Session) ExpireTime() error {
	if s.state == StateCompletion {
		return nil
	}
	return s.complete(TerminationTimeUp)
}

// ExpireInactivity force-terminates the session after continuous
// inactivity. Also a no-op once completed.
func (s *Session) ExpireInactivity() error {
	if s.state == StateCompletion {
		return nil
	}
	return s.complete(TerminationInactivity)
}

func (s *Session) complete(reason TerminationReason) error {
	if s.state != StateExam && s.state != StateBreak {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, s.state)
	}
	s.flushTimeSpent()
	s.termination = reason
	s.state = StateCompletion
	return nil
}

// Touch records candidate activity (pointer, keyboard, scroll) for the
// inactivity cutoff.
func (s *Session) Touch() {
	if s.Live() {
		s.touch()
	}
}

// IdleFor returns the time since the last recorded activity.
func (s *Session) IdleFor() time.Duration {
	return s.clock.Now().Sub(s.lastActivity)
}

// QuestionElapsed returns the continuous time spent on the current question
// since the last navigation.
func (s *Session) QuestionElapsed() time.Duration {
	if s.state != StateExam {
		return 0
	}
	return s.clock.Now().Sub(s.enteredAt)
}

// LongQuestionWarning reports — once per question visit — that the
// candidate has lingered on the current question past the threshold.
// Advisory only: it affects neither scoring nor navigation.
func (s *Session) LongQuestionWarning(threshold time.Duration) bool {
	if s.state != StateExam || s.longWarned {
		return false
	}
	if s.QuestionElapsed() < threshold {
		return false
	}
	s.longWarned = true
	return true
}

// Live reports whether the session still accepts exam interactions.
func (s *Session) Live() bool {
	return s.state == StateExam || s.state == StateBreak
}

// ─── Accessors ──────────────────────────────────────────────────────

func (s *Session) State() State                        { return s.state }
func (s *Session) StudentID() string                   { return s.studentID }
func (s *Session) ExamSet() string                     { return s.examSet }
func (s *Session) SlotID() string                      { return s.slotID }
func (s *Session) StartTime() time.Time                { return s.startTime }
func (s *Session) TabSwitchCount() int                 { return s.tabSwitchCount }
func (s *Session) IsWarned() bool                      { return s.warned }
func (s *Session) CurrentIndex() int                   { return s.currentIndex }
func (s *Session) Termination() TerminationReason      { return s.termination }
func (s *Session) Questions() []model.Question         { return s.questions }

// CurrentSection derives the active section from the current question.
func (s *Session) CurrentSection() model.Section {
	if len(s.questions) == 0 {
		return model.SectionNetworking
	}
	return s.questions[s.currentIndex].Section
}

// CurrentQuestion returns the question under the cursor.
func (s *Session) CurrentQuestion() *model.Question {
	if len(s.questions) == 0 {
		return nil
	}
	q := s.questions[s.currentIndex]
	return &q
}

// AnswerFor returns the answer record for a question, or nil if untouched.
func (s *Session) AnswerFor(questionID string) *model.Answer {
	return s.answers[questionID]
}

// StatusFor returns the four-state display status of a question.
func (s *Session) StatusFor(questionID string) model.QuestionStatus {
	return s.answers[questionID].Status()
}

// Answers returns a snapshot copy of the answer map, suitable for handing
// to the scoring engine at submission time.
func (s *Session) Answers() map[string]*model.Answer {
	out := make(map[string]*model.Answer, len(s.answers))
	for id, a := range s.answers {
		cp := *a
		out[id] = &cp
	}
	return out
}

// ─── internals ──────────────────────────────────────────────────────

func (s *Session) requireLive() error {
	if !s.Live() {
		return fmt.Errorf("%w: state %s", ErrSessionNotLive, s.state)
	}
	return nil
}

func (s *Session) touch() {
	s.lastActivity = s.clock.Now()
}

// flushTimeSpent folds the elapsed time on the current question into its
// answer record, creating the record if needed.
func (s *Session) flushTimeSpent() {
	if s.state != StateExam || len(s.questions) == 0 {
		return
	}
	spent := int(s.clock.Now().Sub(s.enteredAt) / time.Second)
	if spent <= 0 {
		return
	}
	qid := s.questions[s.currentIndex].ID
	a, ok := s.answers[qid]
	if !ok {
		a = &model.Answer{QuestionID: qid}
		s.answers[qid] = a
	}
	a.TimeSpentSeconds += spent
	s.enteredAt = s.clock.Now()
}

// sectionStartIndex finds the first question of a section, or -1.
func (s *Session) sectionStartIndex(section model.Section) int {
	for i, q := range s.questions {
		if q.Section == section {
			return i
		}
	}
	return -1
}
