package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/varunsiravuri/exam-platform/internal/repository"
	"github.com/varunsiravuri/exam-platform/internal/response"
)

// ResultHandler serves the admin results read side.
type ResultHandler struct {
	results *repository.ResultRepository
	log     zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(results *repository.ResultRepository, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		results: results,
		log:     log.With().Str("component", "result_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/admin/results?page=1&per_page=50&exam_set=SET_A
func (h *ResultHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}
	examSet := c.Query("exam_set")

	summaries, total, err := h.results.List(c.Request.Context(), page, perPage, examSet)
	if err != nil {
		h.log.Error().Err(err).Msg("Result list failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": summaries}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// Get godoc
// GET /api/v1/admin/results/:id
// Full result including the per-question detail and section breakdown.
func (h *ResultHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	result, err := h.results.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("id", id.String()).Msg("Result fetch failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Delete godoc
// DELETE /api/v1/admin/results/:id
// Removes a result and clears the completion flag, authorizing a retake.
func (h *ResultHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := h.results.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("id", id.String()).Msg("Result delete failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.log.Info().Str("id", id.String()).Msg("Result deleted, retake authorized")
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// ExportCSV godoc
// GET /api/v1/admin/results/export?exam_set=SET_A
// Streams all matching result summaries as CSV.
func (h *ResultHandler) ExportCSV(c *gin.Context) {
	examSet := c.Query("exam_set")

	// The cohort tops out in the hundreds, so one page covers everything.
	summaries, _, err := h.results.List(c.Request.Context(), 1, 10000, examSet)
	if err != nil {
		h.log.Error().Err(err).Msg("Result export failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(examSet)))

	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	w.Write([]string{
		"student_id", "student_name", "exam_set", "total_score", "max_score",
		"percentage", "grade", "completion_time",
	})
	for _, s := range summaries {
		w.Write([]string{
			s.StudentID,
			s.StudentName,
			s.ExamSet,
			strconv.FormatFloat(s.TotalScore, 'f', 2, 64),
			strconv.FormatFloat(s.MaxScore, 'f', 0, 64),
			strconv.Itoa(s.Percentage),
			s.Grade,
			s.CompletionTime.UTC().Format("2006-01-02 15:04:05"),
		})
	}

	h.log.Info().Int("rows", len(summaries)).Str("exam_set", examSet).Msg("Results exported")
}

func exportFilename(examSet string) string {
	if examSet == "" {
		return "exam_results.csv"
	}
	return fmt.Sprintf("exam_results_%s.csv", examSet)
}
