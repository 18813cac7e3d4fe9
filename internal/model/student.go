package model

import "strings"

// TestIDPrefix marks QA student IDs that are exempt from the single-attempt
// invariant. Test IDs never show as completed and their results upsert.
const TestIDPrefix = "TEST"

// IsTestID reports whether a student ID belongs to the QA roster.
func IsTestID(studentID string) bool {
	return strings.HasPrefix(studentID, TestIDPrefix)
}

// Student is a roster entry. Each production student is bound to one exam
// set and one time slot.
type Student struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
	ExamSet  string `json:"exam_set"`
	SlotID   string `json:"slot_id"`
}

// LoginRequest is the payload for a candidate submitting their ID.
type LoginRequest struct {
	StudentID string `json:"student_id" binding:"required,min=4,max=16"`
}

// AdminLoginRequest is the payload for admin authentication.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}
