package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/varunsiravuri/exam-platform/internal/exam"
	"github.com/varunsiravuri/exam-platform/internal/model"
	"github.com/varunsiravuri/exam-platform/internal/repository"
	"github.com/varunsiravuri/exam-platform/internal/response"
)

// AccessError carries a typed refusal from the access check. The message is
// shown verbatim to the candidate, so refusals that depend on runtime state
// (slot timing) compute their wording here.
type AccessError struct {
	Code    response.ErrCode
	Message string
}

func (e *AccessError) Error() string { return e.Message }

// AccessService gates exam entry: roster membership, the slot window and
// capacity, and the single-attempt invariant, in that order. The first
// failed check wins so the candidate sees one clear reason.
type AccessService struct {
	students *repository.StudentRepository
	slots    *repository.SlotRepository
	guard    *exam.CompletionGuard
	clock    exam.Clock
	log      zerolog.Logger
}

// NewAccessService creates a new AccessService.
func NewAccessService(
	students *repository.StudentRepository,
	slots *repository.SlotRepository,
	guard *exam.CompletionGuard,
	clock exam.Clock,
	log zerolog.Logger,
) *AccessService {
	return &AccessService{
		students: students,
		slots:    slots,
		guard:    guard,
		clock:    clock,
		log:      log.With().Str("component", "access_service").Logger(),
	}
}

// Validate runs the full entry check and, on success, admits the student
// into their slot. The admission seat is released again if the caller's
// login fails downstream (token issue), via Withdraw.
func (s *AccessService) Validate(ctx context.Context, studentID string) (*model.Student, *model.Slot, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, &AccessError{
				Code:    response.ErrInvalidStudentID,
				Message: response.GetMessage(response.ErrInvalidStudentID),
			}
		}
		return nil, nil, err
	}
	if !student.IsActive {
		return nil, nil, &AccessError{
			Code:    response.ErrInvalidStudentID,
			Message: response.GetMessage(response.ErrInvalidStudentID),
		}
	}

	if d := s.guard.CanStart(ctx, studentID); !d.Allowed {
		return nil, nil, &AccessError{
			Code:    response.ErrExamAlreadyCompleted,
			Message: d.Reason,
		}
	}

	slot, err := s.slots.GetByID(ctx, student.SlotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Error().Str("student_id", studentID).Str("slot_id", student.SlotID).
				Msg("Roster references a missing slot")
			return nil, nil, &AccessError{
				Code:    response.ErrSlotMismatch,
				Message: response.GetMessage(response.ErrSlotMismatch),
			}
		}
		return nil, nil, err
	}

	now := s.clock.Now()
	switch {
	case !slot.IsActive:
		return nil, nil, &AccessError{
			Code:    response.ErrSlotNotOpen,
			Message: response.GetMessage(response.ErrSlotNotOpen),
		}
	case now.Before(slot.StartTime):
		wait := minutesUntil(now, slot.StartTime)
		return nil, nil, &AccessError{
			Code: response.ErrSlotNotOpen,
			Message: fmt.Sprintf("Your exam slot opens at %s. Please come back in %d minute(s).",
				slot.StartTime.Format("15:04"), wait),
		}
	case !now.Before(slot.EndTime):
		return nil, nil, &AccessError{
			Code:    response.ErrSlotExpired,
			Message: response.GetMessage(response.ErrSlotExpired),
		}
	}

	// Capacity is enforced by an atomic counter: whoever increments past the
	// limit backs out, so two racing logins cannot share the last seat.
	// TEST IDs bypass capacity so QA never eats a production seat.
	if !model.IsTestID(studentID) && slot.MaxStudents > 0 {
		n, err := s.slots.Admit(ctx, slot.ID)
		if err != nil {
			return nil, nil, err
		}
		if n > slot.MaxStudents {
			if werr := s.slots.Withdraw(ctx, slot.ID); werr != nil {
				s.log.Error().Err(werr).Str("slot_id", slot.ID).Msg("Failed to release overshoot admission")
			}
			return nil, nil, &AccessError{
				Code:    response.ErrSlotFull,
				Message: response.GetMessage(response.ErrSlotFull),
			}
		}
		slot.AdmittedCount = n
	}

	return student, slot, nil
}

// Withdraw releases a previously admitted seat. Called when login fails
// after a successful access check.
func (s *AccessService) Withdraw(ctx context.Context, studentID, slotID string) {
	if model.IsTestID(studentID) {
		return
	}
	if err := s.slots.Withdraw(ctx, slotID); err != nil {
		s.log.Error().Err(err).Str("slot_id", slotID).Msg("Failed to release admission")
	}
}

// SlotSchedule returns all slots for the pre-login schedule screen.
func (s *AccessService) SlotSchedule(ctx context.Context) ([]model.Slot, error) {
	return s.slots.List(ctx)
}

// minutesUntil is kept for callers that present the wait in other surfaces.
func minutesUntil(now, at time.Time) int {
	return int(math.Ceil(at.Sub(now).Minutes()))
}
