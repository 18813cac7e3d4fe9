package exam

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"

	"github.com/varunsiravuri/exam-platform/internal/model"
)

// ExamSets lists the six parallel question-set variants.
var ExamSets = []string{"SET_A", "SET_B", "SET_C", "SET_D", "SET_E", "SET_F"}

// KnownExamSet reports whether id is one of the recognized set identifiers.
func KnownExamSet(id string) bool {
	for _, s := range ExamSets {
		if s == id {
			return true
		}
	}
	return false
}

// SessionSeed derives a deterministic shuffle seed for one candidate's
// session. The same (studentID, examSet) pair always yields the same seed,
// so every call during a session returns the identical question order.
func SessionSeed(studentID, examSet string) int64 {
	sum := sha256.Sum256([]byte(studentID + ":" + examSet))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// Selector resolves the ordered question list for an exam set. The bank is
// loaded once and never mutated afterwards.
type Selector struct {
	banks map[string][]model.Question
}

// NewSelector groups the loaded bank by exam set. Questions belonging to
// unrecognized sets are dropped.
func NewSelector(questions []model.Question) *Selector {
	banks := make(map[string][]model.Question, len(ExamSets))
	for _, q := range questions {
		if !KnownExamSet(q.ExamSet) {
			continue
		}
		banks[q.ExamSet] = append(banks[q.ExamSet], q)
	}
	return &Selector{banks: banks}
}

// QuestionsForSet returns the ordered paper for one exam set: all networking
// questions first, then all wifi-quant questions, each section shuffled
// deterministically by seed. An unrecognized set yields an empty slice, not
// an error — callers must handle zero questions.
func (s *Selector) QuestionsForSet(examSet string, seed int64) []model.Question {
	bank, ok := s.banks[examSet]
	if !ok {
		return nil
	}

	r := rand.New(rand.NewSource(seed))
	var paper []model.Question
	for _, section := range model.Sections {
		var part []model.Question
		for _, q := range bank {
			if q.Section == section {
				part = append(part, q)
			}
		}
		r.Shuffle(len(part), func(i, j int) {
			part[i], part[j] = part[j], part[i]
		})
		paper = append(paper, part...)
	}
	return paper
}

// SetSize returns the number of questions loaded for an exam set.
func (s *Selector) SetSize(examSet string) int {
	return len(s.banks[examSet])
}
