package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/varunsiravuri/exam-platform/internal/config"
	"github.com/varunsiravuri/exam-platform/internal/exam"
	"github.com/varunsiravuri/exam-platform/internal/model"
	"github.com/varunsiravuri/exam-platform/internal/worker"
)

// Session manager errors surfaced to handlers.
var (
	ErrNoActiveSession = errors.New("no active exam session")
	ErrSaveFailed      = errors.New("result could not be saved")
)

// Event types pushed to the candidate over the exam stream.
const (
	EventTimeWarning  = "time_warning"
	EventTimeCritical = "time_critical"
	EventTimeUp       = "time_up"
	EventInactivity   = "inactivity_logout"
	EventLongQuestion = "long_question"
	EventBreakEnded   = "break_ended"
	EventTabSwitch    = "tab_switch_warning"
)

// SessionEvent is a server-initiated notification for one candidate.
type SessionEvent struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// StateSnapshot is the full session view used by the recovery endpoint and
// the periodic stream sync.
type StateSnapshot struct {
	State            exam.State                      `json:"state"`
	StudentID        string                          `json:"student_id"`
	StudentName      string                          `json:"student_name"`
	ExamSet          string                          `json:"exam_set"`
	CurrentIndex     int                             `json:"current_index"`
	CurrentSection   model.Section                   `json:"current_section"`
	RemainingSeconds int                             `json:"remaining_seconds"`
	Critical         bool                            `json:"critical"`
	TabSwitchCount   int                             `json:"tab_switch_count"`
	Warned           bool                            `json:"warned"`
	Questions        []model.QuestionForCandidate    `json:"questions"`
	Statuses         map[string]model.QuestionStatus `json:"statuses"`
	Answers          map[string]*model.Answer        `json:"answers"`
	Termination      exam.TerminationReason          `json:"termination,omitempty"`
}

// managedSession pairs one state machine with its timers and event stream.
type managedSession struct {
	mu        sync.Mutex
	sess      *exam.Session
	countdown *exam.Countdown
	student   *model.Student

	// pendingResult holds a built-but-unsaved result so a failed save can be
	// retried without rescoring.
	pendingResult *model.Result

	events chan SessionEvent
	stop   chan struct{}
	once   sync.Once
}

func (m *managedSession) close() {
	m.once.Do(func() {
		m.countdown.Stop()
		close(m.stop)
	})
}

// emit pushes an event without ever blocking the exam flow. A candidate with
// a saturated stream loses notifications, not interactions.
func (m *managedSession) emit(ev SessionEvent) {
	select {
	case m.events <- ev:
	default:
	}
}

// SessionService owns every live exam session in the process. One goroutine
// per session drives the countdown, the inactivity cutoff, the break clock
// and the long-question advisory; all candidate interactions go through the
// per-session lock.
type SessionService struct {
	cfg      *config.Config
	clock    exam.Clock
	selector *exam.Selector
	guard    *exam.CompletionGuard
	store    exam.ResultStore
	auth     *AuthService
	rdb      *redis.Client
	log      zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

// NewSessionService creates the session manager.
func NewSessionService(
	cfg *config.Config,
	clock exam.Clock,
	selector *exam.Selector,
	guard *exam.CompletionGuard,
	store exam.ResultStore,
	auth *AuthService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:      cfg,
		clock:    clock,
		selector: selector,
		guard:    guard,
		store:    store,
		auth:     auth,
		rdb:      rdb,
		log:      log.With().Str("component", "session_service").Logger(),
		sessions: make(map[string]*managedSession),
	}
}

// Start creates a live session for a validated student and begins the exam.
// If Redis still holds a start timestamp for the student, the session is
// rebuilt around the original anchor instead of a fresh one, so a server
// restart or reconnect never grants extra time.
func (s *SessionService) Start(ctx context.Context, student *model.Student) (*StateSnapshot, error) {
	s.mu.Lock()
	if existing, ok := s.sessions[student.ID]; ok {
		s.mu.Unlock()
		// Same student reconnecting: hand back the live session.
		return s.snapshot(existing), nil
	}
	s.mu.Unlock()

	seed := exam.SessionSeed(student.ID, student.ExamSet)
	questions := s.selector.QuestionsForSet(student.ExamSet, seed)

	sess := exam.NewSession(s.clock)
	if err := sess.Login(student.ID); err != nil {
		return nil, err
	}
	if err := sess.Authorize(student.ExamSet, student.SlotID); err != nil {
		return nil, err
	}
	if err := sess.Begin(questions); err != nil {
		return nil, err
	}

	// Recover the original start anchor if this attempt was interrupted.
	anchor := sess.StartTime()
	startKey := config.CacheKey.StudentSessionStartKey(student.ID)
	if raw, err := s.rdb.Get(ctx, startKey).Result(); err == nil {
		if unix, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			anchor = time.Unix(unix, 0)
			s.restoreAnswers(ctx, student.ID, sess)
			s.log.Info().Str("student_id", student.ID).Time("anchor", anchor).
				Msg("Recovered interrupted session")
		}
	} else {
		s.rdb.Set(ctx, startKey, strconv.FormatInt(anchor.Unix(), 10), s.cfg.JWTExpiry)
	}

	m := &managedSession{
		sess:    sess,
		student: student,
		events:  make(chan SessionEvent, 16),
		stop:    make(chan struct{}),
	}
	m.countdown = exam.NewCountdown(s.clock, anchor, s.cfg.ExamDuration, s.cfg.WarningThreshold,
		func() {
			m.emit(SessionEvent{Type: EventTimeWarning, Data: map[string]interface{}{
				"remaining_seconds": int(s.cfg.WarningThreshold / time.Second),
			}})
		},
		func() { s.finalizeByTimer(student.ID, exam.TerminationTimeUp) },
	)

	s.mu.Lock()
	s.sessions[student.ID] = m
	s.mu.Unlock()

	go s.monitor(m)

	s.log.Info().Str("student_id", student.ID).Str("exam_set", student.ExamSet).
		Int("questions", len(questions)).Msg("Exam session started")
	return s.snapshot(m), nil
}

// monitor drives the per-session clocks at a one-second cadence.
func (s *SessionService) monitor(m *managedSession) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	critical := false
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if m.countdown.Tick() {
				return
			}

			if !critical && m.countdown.Critical() {
				critical = true
				m.emit(SessionEvent{Type: EventTimeCritical})
			}

			m.mu.Lock()
			if !m.sess.Live() {
				m.mu.Unlock()
				continue
			}

			if m.sess.IdleFor() >= s.cfg.InactivityTimeout {
				m.mu.Unlock()
				s.finalizeByTimer(m.student.ID, exam.TerminationInactivity)
				return
			}

			if m.sess.State() == exam.StateBreak && m.sess.BreakElapsed() >= s.cfg.BreakDuration {
				if err := m.sess.EndBreak(); err == nil {
					m.emit(SessionEvent{Type: EventBreakEnded})
				}
			}

			if m.sess.LongQuestionWarning(s.cfg.LongQuestionThreshold) {
				m.emit(SessionEvent{Type: EventLongQuestion, Data: map[string]interface{}{
					"index": m.sess.CurrentIndex(),
				}})
			}
			m.mu.Unlock()
		}
	}
}

// Events returns the candidate's event stream, or nil if no session is live.
func (s *SessionService) Events(studentID string) <-chan SessionEvent {
	m := s.get(studentID)
	if m == nil {
		return nil
	}
	return m.events
}

// Snapshot returns the current session view for recovery and stream sync.
func (s *SessionService) Snapshot(studentID string) (*StateSnapshot, error) {
	m := s.get(studentID)
	if m == nil {
		return nil, ErrNoActiveSession
	}
	return s.snapshot(m), nil
}

// Answer records or clears a selection and mirrors it to the autosave path.
func (s *SessionService) Answer(ctx context.Context, studentID string, req *model.AnswerRequest) error {
	m := s.get(studentID)
	if m == nil {
		return ErrNoActiveSession
	}

	m.mu.Lock()
	err := m.sess.Answer(req.QuestionID, req.SelectedOption)
	var snapshot *model.Answer
	if err == nil {
		snapshot = m.sess.AnswerFor(req.QuestionID)
		if snapshot != nil {
			cp := *snapshot
			snapshot = &cp
		}
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if snapshot != nil {
		s.autosave(ctx, studentID, snapshot)
	}
	return nil
}

// Mark toggles the review flag and mirrors it to the autosave path.
func (s *SessionService) Mark(ctx context.Context, studentID string, req *model.MarkRequest) error {
	m := s.get(studentID)
	if m == nil {
		return ErrNoActiveSession
	}

	m.mu.Lock()
	err := m.sess.MarkForReview(req.QuestionID, req.Marked)
	var snapshot *model.Answer
	if err == nil {
		if a := m.sess.AnswerFor(req.QuestionID); a != nil {
			cp := *a
			snapshot = &cp
		}
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if snapshot != nil {
		s.autosave(ctx, studentID, snapshot)
	}
	return nil
}

// Navigate moves the cursor to another question.
func (s *SessionService) Navigate(studentID string, index int) error {
	m := s.get(studentID)
	if m == nil {
		return ErrNoActiveSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Navigate(index)
}

// TabSwitch records a focus-loss event, queues it for the violation worker
// and pushes the warning overlay. The session always stays live.
func (s *SessionService) TabSwitch(ctx context.Context, studentID string) (int, error) {
	m := s.get(studentID)
	if m == nil {
		return 0, ErrNoActiveSession
	}

	m.mu.Lock()
	err := m.sess.TabSwitch()
	count := m.sess.TabSwitchCount()
	m.mu.Unlock()

	if err != nil {
		return 0, err
	}

	payload, _ := json.Marshal(worker.ViolationPayload{
		StudentID: studentID,
		SlotID:    m.student.SlotID,
		EventType: "tab_switch",
		Details:   "visibility or focus lost",
		Timestamp: s.clock.Now().Unix(),
	})
	if err := s.rdb.LPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("student_id", studentID).Msg("Failed to queue violation event")
	}

	m.emit(SessionEvent{Type: EventTabSwitch, Data: map[string]interface{}{"count": count}})
	return count, nil
}

// DismissWarning clears the tab-switch overlay flag.
func (s *SessionService) DismissWarning(studentID string) error {
	m := s.get(studentID)
	if m == nil {
		return ErrNoActiveSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess.DismissWarning()
	return nil
}

// Touch records candidate activity for the inactivity cutoff.
func (s *SessionService) Touch(studentID string) {
	m := s.get(studentID)
	if m == nil {
		return
	}
	m.mu.Lock()
	m.sess.Touch()
	m.mu.Unlock()
}

// BeginBreak enters the optional between-section break.
func (s *SessionService) BeginBreak(studentID string) error {
	m := s.get(studentID)
	if m == nil {
		return ErrNoActiveSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.BeginBreak()
}

// EndBreak resumes the exam before the break clock runs out.
func (s *SessionService) EndBreak(studentID string) error {
	m := s.get(studentID)
	if m == nil {
		return ErrNoActiveSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.EndBreak()
}

// Submit completes the exam by candidate action and persists the result.
// Four outcomes are possible: a saved result, exam.ErrAlreadyCompleted,
// exam.ErrStoreOffline, or ErrSaveFailed. On the last two the session is
// kept so the candidate can retry; their answers are never discarded.
func (s *SessionService) Submit(ctx context.Context, studentID string) (*model.Result, error) {
	m := s.get(studentID)
	if m == nil {
		return nil, ErrNoActiveSession
	}
	return s.finalize(ctx, m, exam.TerminationSubmitted)
}

// finalizeByTimer runs the same completion path as Submit for the countdown
// and inactivity terminators. Runs on the monitor goroutine.
func (s *SessionService) finalizeByTimer(studentID string, reason exam.TerminationReason) {
	m := s.get(studentID)
	if m == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := s.finalize(ctx, m, reason)
	if err != nil {
		s.log.Error().Err(err).Str("student_id", studentID).Str("reason", string(reason)).
			Msg("Timer-driven submission failed")
	}

	eventType := EventTimeUp
	if reason == exam.TerminationInactivity {
		eventType = EventInactivity
	}
	data := map[string]interface{}{}
	if result != nil {
		data["percentage"] = result.Percentage
		data["grade"] = result.Grade
	}
	m.emit(SessionEvent{Type: eventType, Data: data})
}

// finalize completes the session (if still live), builds the result once and
// drives the save with its four distinct outcomes.
func (s *SessionService) finalize(ctx context.Context, m *managedSession, reason exam.TerminationReason) (*model.Result, error) {
	m.mu.Lock()

	if m.pendingResult == nil {
		if d := s.guard.CanSubmit(ctx, m.student.ID); !d.Allowed {
			m.mu.Unlock()
			return nil, exam.ErrAlreadyCompleted
		}

		var err error
		switch reason {
		case exam.TerminationTimeUp:
			err = m.sess.ExpireTime()
		case exam.TerminationInactivity:
			err = m.sess.ExpireInactivity()
		default:
			err = m.sess.Submit()
		}
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}

		m.pendingResult = exam.BuildResult(
			m.student.ID, m.student.Name, m.student.ExamSet, m.student.SlotID,
			m.sess.Answers(), m.sess.Questions(),
			m.sess.TabSwitchCount(), s.clock.Now(),
		)
	}
	result := m.pendingResult
	m.mu.Unlock()

	if !s.store.HealthCheck(ctx) {
		return nil, exam.ErrStoreOffline
	}
	if err := s.store.SaveResult(ctx, result); err != nil {
		if errors.Is(err, exam.ErrAlreadyCompleted) {
			// A racing save won. The attempt is over either way.
			s.cleanup(ctx, m)
			return nil, exam.ErrAlreadyCompleted
		}
		s.log.Error().Err(err).Str("student_id", m.student.ID).Msg("Result save failed")
		return nil, ErrSaveFailed
	}

	s.guard.MarkCompleted(m.student.ID)
	s.cleanup(ctx, m)
	s.log.Info().Str("student_id", m.student.ID).Str("reason", string(reason)).
		Int("percentage", result.Percentage).Str("grade", result.Grade).
		Msg("Result saved")
	return result, nil
}

// cleanup tears down a finished session: timers, Redis mirrors, the login
// session and the manager entry.
func (s *SessionService) cleanup(ctx context.Context, m *managedSession) {
	m.close()

	s.rdb.Del(ctx,
		config.CacheKey.StudentAnswersKey(m.student.ID),
		config.CacheKey.StudentSessionStartKey(m.student.ID))
	if err := s.auth.ResetStudentSession(ctx, m.student.ID); err != nil {
		s.log.Warn().Err(err).Str("student_id", m.student.ID).Msg("Failed to reset login session")
	}

	s.mu.Lock()
	delete(s.sessions, m.student.ID)
	s.mu.Unlock()
}

// Shutdown stops every live session's goroutines. Sessions are not
// submitted; Redis keeps their anchors and answers for recovery.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.sessions {
		m.close()
	}
}

// ─── internals ──────────────────────────────────────────────────────

func (s *SessionService) get(studentID string) *managedSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[studentID]
}

func (s *SessionService) snapshot(m *managedSession) *StateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	questions := m.sess.Questions()
	forCandidate := make([]model.QuestionForCandidate, 0, len(questions))
	statuses := make(map[string]model.QuestionStatus, len(questions))
	for _, q := range questions {
		forCandidate = append(forCandidate, q.ForCandidate())
		statuses[q.ID] = m.sess.StatusFor(q.ID)
	}

	return &StateSnapshot{
		State:            m.sess.State(),
		StudentID:        m.student.ID,
		StudentName:      m.student.Name,
		ExamSet:          m.student.ExamSet,
		CurrentIndex:     m.sess.CurrentIndex(),
		CurrentSection:   m.sess.CurrentSection(),
		RemainingSeconds: m.countdown.RemainingSeconds(),
		Critical:         m.countdown.Critical(),
		TabSwitchCount:   m.sess.TabSwitchCount(),
		Warned:           m.sess.IsWarned(),
		Questions:        forCandidate,
		Statuses:         statuses,
		Answers:          m.sess.Answers(),
		Termination:      m.sess.Termination(),
	}
}

// autosave mirrors one answer mutation into the Redis hash (for recovery)
// and onto the worker queue (for durable persistence). Both are best effort.
func (s *SessionService) autosave(ctx context.Context, studentID string, a *model.Answer) {
	raw, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := s.rdb.HSet(ctx, config.CacheKey.StudentAnswersKey(studentID), a.QuestionID, raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("student_id", studentID).Msg("Answer mirror write failed")
	}

	payload, _ := json.Marshal(worker.AnswerPayload{
		StudentID:         studentID,
		QuestionID:        a.QuestionID,
		SelectedOption:    a.SelectedOption,
		IsMarkedForReview: a.IsMarkedForReview,
		TimeSpentSeconds:  a.TimeSpentSeconds,
	})
	if err := s.rdb.LPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("student_id", studentID).Msg("Failed to queue answer persist")
	}
}

// restoreAnswers replays the Redis answer mirror into a rebuilt session.
func (s *SessionService) restoreAnswers(ctx context.Context, studentID string, sess *exam.Session) {
	entries, err := s.rdb.HGetAll(ctx, config.CacheKey.StudentAnswersKey(studentID)).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("student_id", studentID).Msg("Answer mirror read failed")
		return
	}
	restored := 0
	for qid, raw := range entries {
		var a model.Answer
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			continue
		}
		if a.SelectedOption != nil {
			if err := sess.Answer(qid, a.SelectedOption); err != nil {
				continue
			}
		}
		if a.IsMarkedForReview {
			_ = sess.MarkForReview(qid, true)
		}
		restored++
	}
	if restored > 0 {
		s.log.Info().Str("student_id", studentID).Int("answers", restored).Msg("Restored autosaved answers")
	}
}
