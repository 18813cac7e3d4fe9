package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/varunsiravuri/exam-platform/internal/middleware"
	"github.com/varunsiravuri/exam-platform/internal/model"
	"github.com/varunsiravuri/exam-platform/internal/repository"
	"github.com/varunsiravuri/exam-platform/internal/response"
	"github.com/varunsiravuri/exam-platform/internal/service"
	"github.com/varunsiravuri/exam-platform/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService   *service.AuthService
	accessService *service.AccessService
	admins        *repository.AdminRepository
	log           zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	accessService *service.AccessService,
	admins *repository.AdminRepository,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		accessService: accessService,
		admins:        admins,
		log:           log.With().Str("component", "auth_handler").Logger(),
	}
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
// Runs the full access check (roster, retake, slot window, capacity) and
// returns a JWT on success. The candidate sees exactly one refusal reason.
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, slot, err := h.accessService.Validate(c.Request.Context(), req.StudentID)
	if err != nil {
		var accessErr *service.AccessError
		if errors.As(err, &accessErr) {
			response.FailWithMessage(c, accessStatus(accessErr.Code), accessErr.Code, accessErr.Message)
			return
		}
		h.log.Error().Err(err).Str("student_id", req.StudentID).Msg("Access check failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	token, err := h.authService.GenerateStudentToken(c.Request.Context(), student.ID, student.ExamSet, student.SlotID)
	if err != nil {
		// Release the seat the access check just took.
		h.accessService.Withdraw(c.Request.Context(), student.ID, slot.ID)
		if errors.Is(err, service.ErrSessionAlreadyActive) {
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
			return
		}
		h.log.Error().Err(err).Str("student_id", student.ID).Msg("Token generation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"student": gin.H{
			"id":       student.ID,
			"name":     student.Name,
			"exam_set": student.ExamSet,
		},
		"slot": gin.H{
			"id":         slot.ID,
			"name":       slot.Name,
			"start_time": slot.StartTime,
			"end_time":   slot.EndTime,
		},
	})
}

// StudentLogout godoc
// POST /api/v1/auth/student/logout
func (h *AuthHandler) StudentLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), claims.StudentID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.admins.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateAdminToken(admin.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
		},
	})
}

// ResetStudentSession godoc
// POST /api/v1/admin/students/:id/reset-session
// Clears a stuck device session so the candidate can log in again.
func (h *AuthHandler) ResetStudentSession(c *gin.Context) {
	studentID := c.Param("id")
	if err := h.authService.ResetStudentSession(c.Request.Context(), studentID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"student_id": studentID})
}

// accessStatus maps access refusal codes to HTTP statuses.
func accessStatus(code response.ErrCode) int {
	switch code {
	case response.ErrInvalidStudentID:
		return http.StatusUnauthorized
	case response.ErrExamAlreadyCompleted:
		return http.StatusConflict
	case response.ErrSlotFull:
		return http.StatusConflict
	default: // slot window refusals
		return http.StatusForbidden
	}
}
