package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/varunsiravuri/exam-platform/internal/config"
	"github.com/varunsiravuri/exam-platform/internal/model"
)

// ErrNotFound is the shared sentinel for missing rows across repositories.
var ErrNotFound = errors.New("not found")

// questionCacheTTL bounds staleness of the per-set Redis payload. The bank
// is immutable during an exam day, so a long TTL is safe.
const questionCacheTTL = 6 * time.Hour

// QuestionRepository loads the question bank from Postgres with a per-set
// Redis cache in front. The bank is read once per process per set under
// normal operation.
type QuestionRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool, rdb *redis.Client) *QuestionRepository {
	return &QuestionRepository{pool: pool, rdb: rdb}
}

// ListAll retrieves the entire question bank in a stable order.
func (r *QuestionRepository) ListAll(ctx context.Context) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, section, question, options, correct_answer, difficulty, exam_set
		 FROM questions
		 ORDER BY exam_set, section, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// ListByExamSet retrieves one set's questions, preferring the Redis cache.
func (r *QuestionRepository) ListByExamSet(ctx context.Context, examSet string) ([]model.Question, error) {
	key := config.CacheKey.ExamSetPayloadKey(examSet)

	if r.rdb != nil {
		if raw, err := r.rdb.Get(ctx, key).Bytes(); err == nil {
			var qs []model.Question
			if err := json.Unmarshal(raw, &qs); err == nil {
				return qs, nil
			}
			// Corrupt payload: drop it and reload from Postgres.
			r.rdb.Del(ctx, key)
		}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, section, question, options, correct_answer, difficulty, exam_set
		 FROM questions
		 WHERE exam_set = $1
		 ORDER BY section, id`, examSet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	qs, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}

	if r.rdb != nil && len(qs) > 0 {
		if raw, err := json.Marshal(qs); err == nil {
			if err := r.rdb.Set(ctx, key, raw, questionCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Str("exam_set", examSet).Msg("Failed to cache question payload")
			}
		}
	}
	return qs, nil
}

// BulkInsert loads questions via COPY. Used by the seeding command.
func (r *QuestionRepository) BulkInsert(ctx context.Context, questions []model.Question) (int64, error) {
	rows := make([][]interface{}, 0, len(questions))
	for _, q := range questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []interface{}{
			q.ID, string(q.Section), q.Text, opts, q.CorrectOption, string(q.Difficulty), q.ExamSet,
		})
	}
	return r.pool.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"id", "section", "question", "options", "correct_answer", "difficulty", "exam_set"},
		pgx.CopyFromRows(rows))
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var qs []model.Question
	for rows.Next() {
		var q model.Question
		var opts []byte
		if err := rows.Scan(&q.ID, &q.Section, &q.Text, &opts, &q.CorrectOption, &q.Difficulty, &q.ExamSet); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(opts, &q.Options); err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return qs, rows.Err()
}
