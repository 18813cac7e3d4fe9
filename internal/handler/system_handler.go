package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/varunsiravuri/exam-platform/internal/config"
	"github.com/varunsiravuri/exam-platform/internal/response"
)

// SystemHandler exposes liveness and operational visibility endpoints.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Reports reachability of the two backing stores. The client uses the
// postgres flag to render its store-offline banner before submission.
func (h *SystemHandler) Health(c *gin.Context) {
	checkCtx := c.Request.Context()

	pgOK := h.pool.Ping(checkCtx) == nil
	redisOK := h.rdb.Ping(checkCtx).Err() == nil

	status := http.StatusOK
	if !pgOK || !redisOK {
		status = http.StatusServiceUnavailable
	}

	response.Success(c, status, gin.H{
		"postgres": pgOK,
		"redis":    redisOK,
		"uptime":   time.Since(h.startTime).Round(time.Second).String(),
	})
}

// QueueDepths godoc
// GET /api/v1/admin/system/queues
// Worker backlog sizes, pipelined in one Redis round trip.
func (h *SystemHandler) QueueDepths(c *gin.Context) {
	ctx := c.Request.Context()

	pipe := h.rdb.Pipeline()
	answersCmd := pipe.LLen(ctx, config.WorkerKey.PersistAnswersQueue)
	violationsCmd := pipe.LLen(ctx, config.WorkerKey.PersistViolationsQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		h.log.Error().Err(err).Msg("Queue depth read failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"queue_answers":    answersCmd.Val(),
		"queue_violations": violationsCmd.Val(),
	})
}
