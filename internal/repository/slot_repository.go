package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/varunsiravuri/exam-platform/internal/config"
	"github.com/varunsiravuri/exam-platform/internal/model"
)

// SlotRepository handles slot data access. The admitted-student counter
// lives in Redis so capacity checks stay cheap under the login stampede at
// slot open; the Postgres column is reconciled from it opportunistically.
type SlotRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewSlotRepository creates a new SlotRepository.
func NewSlotRepository(pool *pgxpool.Pool, rdb *redis.Client) *SlotRepository {
	return &SlotRepository{pool: pool, rdb: rdb}
}

// GetByID retrieves a slot with its current admitted count.
func (r *SlotRepository) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	s := &model.Slot{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, start_time, end_time, exam_set, is_active, max_students, admitted_count
		 FROM slots WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.StartTime, &s.EndTime, &s.ExamSet, &s.IsActive, &s.MaxStudents, &s.AdmittedCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// The live counter supersedes the reconciled column when available.
	if r.rdb != nil {
		if n, err := r.rdb.Get(ctx, config.CacheKey.SlotAdmittedKey(id)).Int(); err == nil {
			s.AdmittedCount = n
		}
	}
	return s, nil
}

// List retrieves all slots in start order.
func (r *SlotRepository) List(ctx context.Context) ([]model.Slot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, start_time, end_time, exam_set, is_active, max_students, admitted_count
		 FROM slots ORDER BY start_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		var s model.Slot
		if err := rows.Scan(&s.ID, &s.Name, &s.StartTime, &s.EndTime, &s.ExamSet, &s.IsActive, &s.MaxStudents, &s.AdmittedCount); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// Admit atomically increments the slot's admitted counter and returns the
// new count. The caller compares against MaxStudents and calls Withdraw on
// overshoot, so two racing logins cannot both squeeze into the last seat.
func (r *SlotRepository) Admit(ctx context.Context, slotID string) (int, error) {
	if r.rdb != nil {
		n, err := r.rdb.Incr(ctx, config.CacheKey.SlotAdmittedKey(slotID)).Result()
		if err == nil {
			// Reconcile the column in the background; best effort.
			go func() {
				_, _ = r.pool.Exec(context.Background(),
					`UPDATE slots SET admitted_count = $1 WHERE id = $2`, n, slotID)
			}()
			return int(n), nil
		}
	}

	var n int
	err := r.pool.QueryRow(ctx,
		`UPDATE slots SET admitted_count = admitted_count + 1 WHERE id = $1
		 RETURNING admitted_count`, slotID,
	).Scan(&n)
	return n, err
}

// Withdraw decrements the admitted counter after a refused admission.
func (r *SlotRepository) Withdraw(ctx context.Context, slotID string) error {
	if r.rdb != nil {
		if err := r.rdb.Decr(ctx, config.CacheKey.SlotAdmittedKey(slotID)).Err(); err == nil {
			return nil
		}
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE slots SET admitted_count = GREATEST(admitted_count - 1, 0) WHERE id = $1`, slotID)
	return err
}

// Create inserts a slot. Used by the seeding command.
func (r *SlotRepository) Create(ctx context.Context, s *model.Slot) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO slots (id, name, start_time, end_time, exam_set, is_active, max_students)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			exam_set = EXCLUDED.exam_set,
			is_active = EXCLUDED.is_active,
			max_students = EXCLUDED.max_students`,
		s.ID, s.Name, s.StartTime, s.EndTime, s.ExamSet, s.IsActive, s.MaxStudents)
	return err
}
