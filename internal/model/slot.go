package model

import "time"

// Slot is a fixed time window during which one exam set is valid for a
// cohort of students.
type Slot struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	ExamSet       string    `json:"exam_set"`
	IsActive      bool      `json:"is_active"`
	MaxStudents   int       `json:"max_students"`
	AdmittedCount int       `json:"admitted_count"`
}

// Open reports whether the slot window contains the given instant.
func (s *Slot) Open(now time.Time) bool {
	return !now.Before(s.StartTime) && now.Before(s.EndTime)
}

// Full reports whether the slot has reached capacity.
func (s *Slot) Full() bool {
	return s.MaxStudents > 0 && s.AdmittedCount >= s.MaxStudents
}
