package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/varunsiravuri/exam-platform/internal/exam"
	"github.com/varunsiravuri/exam-platform/internal/middleware"
	"github.com/varunsiravuri/exam-platform/internal/model"
	"github.com/varunsiravuri/exam-platform/internal/repository"
	"github.com/varunsiravuri/exam-platform/internal/response"
	"github.com/varunsiravuri/exam-platform/internal/service"
	"github.com/varunsiravuri/exam-platform/internal/validator"
)

// ExamHandler drives the candidate's exam session over REST. The WebSocket
// stream covers the same operations; both converge on the session service.
type ExamHandler struct {
	sessions      *service.SessionService
	accessService *service.AccessService
	students      *repository.StudentRepository
	log           zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	sessions *service.SessionService,
	accessService *service.AccessService,
	students *repository.StudentRepository,
	log zerolog.Logger,
) *ExamHandler {
	return &ExamHandler{
		sessions:      sessions,
		accessService: accessService,
		students:      students,
		log:           log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListSlots godoc
// GET /api/v1/slots
// Public schedule screen shown before login.
func (h *ExamHandler) ListSlots(c *gin.Context) {
	slots, err := h.accessService.SlotSchedule(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"slots": slots})
}

// Begin godoc
// POST /api/v1/exam/begin
// Starts the exam after the candidate acknowledges the instructions. Returns
// the full paper (answer keys stripped) and the session snapshot. Idempotent
// for a reconnecting candidate: an existing live session is returned as is.
func (h *ExamHandler) Begin(c *gin.Context) {
	claims := middleware.GetClaims(c)

	student, err := h.students.GetByID(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidStudentID)
		return
	}

	snapshot, err := h.sessions.Start(c.Request.Context(), student)
	if err != nil {
		if errors.Is(err, exam.ErrNoQuestions) {
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
			return
		}
		h.log.Error().Err(err).Str("student_id", student.ID).Msg("Session start failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// State godoc
// GET /api/v1/exam/state
// Session recovery endpoint: a reloaded page repaints from this snapshot.
func (h *ExamHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)

	snapshot, err := h.sessions.Snapshot(claims.StudentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotActive)
		return
	}
	response.Success(c, http.StatusOK, snapshot)
}

// Answer godoc
// POST /api/v1/exam/answer
func (h *ExamHandler) Answer(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.Answer(c.Request.Context(), claims.StudentID, &req); err != nil {
		h.failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question_id": req.QuestionID})
}

// Mark godoc
// POST /api/v1/exam/mark
func (h *ExamHandler) Mark(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.MarkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.Mark(c.Request.Context(), claims.StudentID, &req); err != nil {
		h.failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question_id": req.QuestionID, "marked": req.Marked})
}

// Navigate godoc
// POST /api/v1/exam/navigate
func (h *ExamHandler) Navigate(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.Navigate(claims.StudentID, req.Index); err != nil {
		h.failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"index": req.Index})
}

// TabSwitch godoc
// POST /api/v1/exam/tab-switch
// Records a visibility/blur event. Warning only; the session never ends here.
func (h *ExamHandler) TabSwitch(c *gin.Context) {
	claims := middleware.GetClaims(c)

	count, err := h.sessions.TabSwitch(c.Request.Context(), claims.StudentID)
	if err != nil {
		h.failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tab_switch_count": count})
}

// DismissWarning godoc
// POST /api/v1/exam/warning/dismiss
func (h *ExamHandler) DismissWarning(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if err := h.sessions.DismissWarning(claims.StudentID); err != nil {
		h.failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Heartbeat godoc
// POST /api/v1/exam/heartbeat
// Marks candidate activity for the inactivity cutoff and returns the clock.
func (h *ExamHandler) Heartbeat(c *gin.Context) {
	claims := middleware.GetClaims(c)

	h.sessions.Touch(claims.StudentID)
	snapshot, err := h.sessions.Snapshot(claims.StudentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotActive)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"remaining_seconds": snapshot.RemainingSeconds,
		"critical":          snapshot.Critical,
		"state":             snapshot.State,
	})
}

// BeginBreak godoc
// POST /api/v1/exam/break
func (h *ExamHandler) BeginBreak(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if err := h.sessions.BeginBreak(claims.StudentID); err != nil {
		h.failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// EndBreak godoc
// POST /api/v1/exam/break/end
func (h *ExamHandler) EndBreak(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if err := h.sessions.EndBreak(claims.StudentID); err != nil {
		h.failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Submit godoc
// POST /api/v1/exam/submit
// The four submission outcomes map to distinct codes so the client can show
// the right screen: saved, already completed, store offline (retryable) or
// save failed (retryable).
func (h *ExamHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)

	result, err := h.sessions.Submit(c.Request.Context(), claims.StudentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoActiveSession):
			response.Fail(c, http.StatusNotFound, response.ErrExamNotActive)
		case errors.Is(err, exam.ErrAlreadyCompleted):
			response.Fail(c, http.StatusConflict, response.ErrExamAlreadyCompleted)
		case errors.Is(err, exam.ErrStoreOffline):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreOffline)
		case errors.Is(err, service.ErrSaveFailed):
			response.Fail(c, http.StatusBadGateway, response.ErrSaveFailed)
		default:
			h.failSessionError(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status": "RESULT_SAVED",
		"result": gin.H{
			"id":          result.ID,
			"total_score": result.TotalScore,
			"max_score":   result.MaxScore,
			"percentage":  result.Percentage,
			"grade":       result.Grade,
		},
	})
}

// failSessionError maps session state-machine errors to HTTP responses.
func (h *ExamHandler) failSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveSession):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotActive)
	case errors.Is(err, exam.ErrUnknownQuestion),
		errors.Is(err, exam.ErrIndexOutOfRange),
		errors.Is(err, exam.ErrInvalidOption):
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidPayload, err.Error())
	case errors.Is(err, exam.ErrInvalidTransition),
		errors.Is(err, exam.ErrSessionNotLive):
		response.Fail(c, http.StatusConflict, response.ErrInvalidAction)
	default:
		h.log.Error().Err(err).Msg("Unhandled session error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
