package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key for a student's login session.
func (r *CacheKeyStruct) StudentLoginKey(studentID string) string {
	return fmt.Sprintf("login:%s", studentID)
}

// StudentAnswersKey returns the cache key for a student's autosaved answers.
func (r *CacheKeyStruct) StudentAnswersKey(studentID string) string {
	return fmt.Sprintf("student:%s:answers", studentID)
}

// StudentSessionStartKey returns the cache key for a student's exam start time.
func (r *CacheKeyStruct) StudentSessionStartKey(studentID string) string {
	return fmt.Sprintf("student:%s:session_start", studentID)
}

// StudentCompletedKey returns the cache key for a student's completion flag.
func (r *CacheKeyStruct) StudentCompletedKey(studentID string) string {
	return fmt.Sprintf("student:%s:completed", studentID)
}

// ExamSetPayloadKey returns the cache key for an exam set's question payload.
func (r *CacheKeyStruct) ExamSetPayloadKey(examSet string) string {
	return fmt.Sprintf("exam_set:%s:payload", examSet)
}

// SlotAdmittedKey returns the cache key for a slot's admitted-student counter.
func (r *CacheKeyStruct) SlotAdmittedKey(slotID string) string {
	return fmt.Sprintf("slot:%s:admitted", slotID)
}

var CacheKey = NewCacheKeyStruct()
