package main

import (
	"context"
	"fmt"
	"time"

	"github.com/varunsiravuri/exam-platform/internal/config"
	"github.com/varunsiravuri/exam-platform/internal/database"
	"github.com/varunsiravuri/exam-platform/internal/exam"
	"github.com/varunsiravuri/exam-platform/internal/logger"
	"github.com/varunsiravuri/exam-platform/internal/model"
	"github.com/varunsiravuri/exam-platform/internal/repository"
)

const (
	networkingPerSet = 40
	wifiQuantPerSet  = 20
	studentsPerSet   = 100
	testStudents     = 5
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool, nil)
	slotRepo := repository.NewSlotRepository(pool, nil)
	studentRepo := repository.NewStudentRepository(pool)

	fmt.Println("=== Seeding Exam Platform ===")

	// ─── Slots ─────────────────────────────────────────────────────────
	// Six 45-minute windows on the hour from 09:00, one exam set each.
	slots := buildSlots(time.Now())
	for i := range slots {
		if err := slotRepo.Create(ctx, &slots[i]); err != nil {
			log.Fatal().Err(err).Str("slot_id", slots[i].ID).Msg("Failed to create slot")
		}
	}
	fmt.Printf("Seeded %d slots\n", len(slots))

	// ─── Questions ─────────────────────────────────────────────────────
	questions := buildQuestions()
	inserted, err := questionRepo.BulkInsert(ctx, questions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to insert questions")
	}
	fmt.Printf("Seeded %d questions (%d per set)\n", inserted, networkingPerSet+wifiQuantPerSet)

	// ─── Student Roster ────────────────────────────────────────────────
	students := buildRoster(slots)
	count, err := studentRepo.BulkInsert(ctx, students)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to insert students")
	}
	fmt.Printf("Seeded %d students (incl. %d TEST IDs)\n", count, testStudents)

	fmt.Println("\nSeed completed!")
}

// buildSlots lays out six consecutive windows starting at 09:00 local time
// today. Rerunning the seed on exam day refreshes the windows in place.
func buildSlots(now time.Time) []model.Slot {
	day := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())

	slots := make([]model.Slot, 0, len(exam.ExamSets))
	for i, set := range exam.ExamSets {
		start := day.Add(time.Duration(i) * time.Hour)
		slots = append(slots, model.Slot{
			ID:          fmt.Sprintf("SLOT_%d", i+1),
			Name:        fmt.Sprintf("Slot %d (%s)", i+1, start.Format("15:04")),
			StartTime:   start,
			EndTime:     start.Add(45 * time.Minute),
			ExamSet:     set,
			IsActive:    true,
			MaxStudents: studentsPerSet,
		})
	}
	return slots
}

// buildQuestions generates the placeholder bank: 40 networking + 20
// wifi-quant questions per set. Real papers are loaded by replacing this
// bank before exam day; the shapes and IDs stay the same.
func buildQuestions() []model.Question {
	difficulties := []model.Difficulty{
		model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard,
	}

	var questions []model.Question
	for _, set := range exam.ExamSets {
		for i := 1; i <= networkingPerSet; i++ {
			questions = append(questions, model.Question{
				ID:      fmt.Sprintf("%s-NET-%03d", set, i),
				Section: model.SectionNetworking,
				Text:    fmt.Sprintf("Networking question %d for %s", i, set),
				Options: [4]string{
					"Option A", "Option B", "Option C", "Option D",
				},
				CorrectOption: i % 4,
				Difficulty:    difficulties[i%len(difficulties)],
				ExamSet:       set,
			})
		}
		for i := 1; i <= wifiQuantPerSet; i++ {
			questions = append(questions, model.Question{
				ID:      fmt.Sprintf("%s-WQ-%03d", set, i),
				Section: model.SectionWifiQuant,
				Text:    fmt.Sprintf("WiFi & quantitative question %d for %s", i, set),
				Options: [4]string{
					"Option A", "Option B", "Option C", "Option D",
				},
				CorrectOption: (i + 1) % 4,
				Difficulty:    difficulties[i%len(difficulties)],
				ExamSet:       set,
			})
		}
	}
	return questions
}

// buildRoster assigns 100 students to each slot: A001..A100 sit SET_A in
// slot 1 and so on through F100. A handful of TEST IDs attach to the first
// slot for QA walkthroughs; they bypass capacity and the retake block.
func buildRoster(slots []model.Slot) []model.Student {
	prefixes := []string{"A", "B", "C", "D", "E", "F"}

	var students []model.Student
	for i, slot := range slots {
		for n := 1; n <= studentsPerSet; n++ {
			id := fmt.Sprintf("%s%03d", prefixes[i], n)
			students = append(students, model.Student{
				ID:       id,
				Name:     fmt.Sprintf("Candidate %s", id),
				IsActive: true,
				ExamSet:  slot.ExamSet,
				SlotID:   slot.ID,
			})
		}
	}

	for n := 1; n <= testStudents; n++ {
		id := fmt.Sprintf("TEST%02d", n)
		students = append(students, model.Student{
			ID:       id,
			Name:     fmt.Sprintf("QA Walkthrough %02d", n),
			IsActive: true,
			ExamSet:  slots[0].ExamSet,
			SlotID:   slots[0].ID,
		})
	}
	return students
}
