package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/varunsiravuri/exam-platform/internal/config"
	"github.com/varunsiravuri/exam-platform/internal/exam"
	"github.com/varunsiravuri/exam-platform/internal/model"
)

// completedCacheTTL keeps the Redis completion flag alive well past the exam
// day so a database blip never reopens a finished attempt.
const completedCacheTTL = 72 * time.Hour

// ResultRepository persists exam results in Postgres and mirrors the
// completion flag in Redis. Implements exam.ResultStore.
//
// The single-attempt invariant is enforced by a partial unique index on
// student_id that excludes TEST-prefixed IDs, so a duplicate insert that
// races past the application-level pre-check fails here with 23505.
type ResultRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool, rdb *redis.Client) *ResultRepository {
	return &ResultRepository{pool: pool, rdb: rdb}
}

// SaveResult persists a result. Non-test duplicates map the unique-index
// violation to exam.ErrAlreadyCompleted; TEST IDs upsert in place so QA runs
// keep exactly one row per test student.
func (r *ResultRepository) SaveResult(ctx context.Context, res *model.Result) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}

	detailed, err := json.Marshal(res.DetailedResults)
	if err != nil {
		return fmt.Errorf("marshal detailed results: %w", err)
	}
	sections, err := json.Marshal(res.SectionBreakdown)
	if err != nil {
		return fmt.Errorf("marshal section breakdown: %w", err)
	}

	query := `INSERT INTO exam_results
		(id, student_id, student_name, exam_set, slot_id, completion_time,
		 total_questions, correct_answers, incorrect_answers, unanswered,
		 total_score, max_score, percentage, grade, tab_switch_count,
		 detailed_results, section_breakdown)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	if model.IsTestID(res.StudentID) {
		query += `
		ON CONFLICT (student_id) WHERE student_id LIKE 'TEST%'
		DO UPDATE SET
			exam_set = EXCLUDED.exam_set,
			slot_id = EXCLUDED.slot_id,
			completion_time = EXCLUDED.completion_time,
			total_questions = EXCLUDED.total_questions,
			correct_answers = EXCLUDED.correct_answers,
			incorrect_answers = EXCLUDED.incorrect_answers,
			unanswered = EXCLUDED.unanswered,
			total_score = EXCLUDED.total_score,
			max_score = EXCLUDED.max_score,
			percentage = EXCLUDED.percentage,
			grade = EXCLUDED.grade,
			tab_switch_count = EXCLUDED.tab_switch_count,
			detailed_results = EXCLUDED.detailed_results,
			section_breakdown = EXCLUDED.section_breakdown`
	}

	_, err = r.pool.Exec(ctx, query,
		res.ID, res.StudentID, res.StudentName, res.ExamSet, res.SlotID,
		res.CompletionTime, res.TotalQuestions, res.CorrectAnswers,
		res.IncorrectAnswers, res.Unanswered, res.TotalScore, res.MaxScore,
		res.Percentage, res.Grade, res.TabSwitchCount, detailed, sections)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return exam.ErrAlreadyCompleted
		}
		return err
	}

	// Mirror the completion flag into Redis so the guard can answer while
	// Postgres is down. Best effort; the row is the source of truth.
	if r.rdb != nil && !model.IsTestID(res.StudentID) {
		r.rdb.Set(ctx, config.CacheKey.StudentCompletedKey(res.StudentID), "1", completedCacheTTL)
	}
	return nil
}

// CheckCompletion reports whether a result exists for the student.
// Unconditionally false for TEST-prefixed IDs.
func (r *ResultRepository) CheckCompletion(ctx context.Context, studentID string) (bool, error) {
	if model.IsTestID(studentID) {
		return false, nil
	}

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM exam_results WHERE student_id = $1)`, studentID,
	).Scan(&exists)
	if err == nil {
		return exists, nil
	}

	// Postgres unreachable: fall back to the Redis mirror before giving up.
	if r.rdb != nil {
		if v, rerr := r.rdb.Exists(ctx, config.CacheKey.StudentCompletedKey(studentID)).Result(); rerr == nil {
			return v > 0, nil
		}
	}
	return false, err
}

// HealthCheck reports whether Postgres is reachable.
func (r *ResultRepository) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.pool.Ping(ctx) == nil
}

// List retrieves result summaries, newest first, with pagination and an
// optional exam set filter.
func (r *ResultRepository) List(ctx context.Context, page, perPage int, examSet string) ([]model.ResultSummary, int, error) {
	countQuery := `SELECT COUNT(*) FROM exam_results`
	var countArgs []interface{}
	if examSet != "" {
		countQuery += ` WHERE exam_set = $1`
		countArgs = append(countArgs, examSet)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, student_id, student_name, exam_set, total_score,
		max_score, percentage, grade, completion_time, created_at
		FROM exam_results`
	var args []interface{}
	argIdx := 1
	if examSet != "" {
		query += ` WHERE exam_set = $1`
		args = append(args, examSet)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY completion_time DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []model.ResultSummary
	for rows.Next() {
		var s model.ResultSummary
		if err := rows.Scan(&s.ID, &s.StudentID, &s.StudentName, &s.ExamSet,
			&s.TotalScore, &s.MaxScore, &s.Percentage, &s.Grade,
			&s.CompletionTime, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		s.Filename = resultFilename(s.StudentID, s.CompletionTime)
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}

// GetByID retrieves a full result, including the denormalized per-question
// detail and section breakdown.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	var detailed, sections []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, student_name, exam_set, slot_id, completion_time,
			total_questions, correct_answers, incorrect_answers, unanswered,
			total_score, max_score, percentage, grade, tab_switch_count,
			detailed_results, section_breakdown
		 FROM exam_results WHERE id = $1`, id,
	).Scan(&res.ID, &res.StudentID, &res.StudentName, &res.ExamSet, &res.SlotID,
		&res.CompletionTime, &res.TotalQuestions, &res.CorrectAnswers,
		&res.IncorrectAnswers, &res.Unanswered, &res.TotalScore, &res.MaxScore,
		&res.Percentage, &res.Grade, &res.TabSwitchCount, &detailed, &sections)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(detailed, &res.DetailedResults); err != nil {
		return nil, fmt.Errorf("unmarshal detailed results: %w", err)
	}
	if err := json.Unmarshal(sections, &res.SectionBreakdown); err != nil {
		return nil, fmt.Errorf("unmarshal section breakdown: %w", err)
	}
	return res, nil
}

// Delete removes a result and clears the student's Redis completion flag so
// an administrator can authorize a retake.
func (r *ResultRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var studentID string
	err := r.pool.QueryRow(ctx,
		`DELETE FROM exam_results WHERE id = $1 RETURNING student_id`, id,
	).Scan(&studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if r.rdb != nil {
		r.rdb.Del(ctx, config.CacheKey.StudentCompletedKey(studentID))
	}
	return nil
}

// resultFilename mirrors the export naming scheme used on the admin side.
func resultFilename(studentID string, completedAt time.Time) string {
	return fmt.Sprintf("exam_result_%s_%s.json", studentID, completedAt.UTC().Format("20060102_150405"))
}
