package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/varunsiravuri/exam-platform/internal/model"
)

// StudentRepository handles roster data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByID retrieves a roster entry by student ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, is_active, exam_set, slot_id
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.IsActive, &s.ExamSet, &s.SlotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListBySlot retrieves all active students assigned to a slot.
func (r *StudentRepository) ListBySlot(ctx context.Context, slotID string) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, is_active, exam_set, slot_id
		 FROM students
		 WHERE slot_id = $1 AND is_active
		 ORDER BY id`, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.IsActive, &s.ExamSet, &s.SlotID); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// BulkInsert loads the roster via COPY. Used by the seeding command.
func (r *StudentRepository) BulkInsert(ctx context.Context, students []model.Student) (int64, error) {
	rows := make([][]interface{}, 0, len(students))
	for _, s := range students {
		rows = append(rows, []interface{}{s.ID, s.Name, s.IsActive, s.ExamSet, s.SlotID})
	}
	return r.pool.CopyFrom(ctx,
		pgx.Identifier{"students"},
		[]string{"id", "name", "is_active", "exam_set", "slot_id"},
		pgx.CopyFromRows(rows))
}
