package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/varunsiravuri/exam-platform/internal/config"
	"github.com/varunsiravuri/exam-platform/internal/database"
	"github.com/varunsiravuri/exam-platform/internal/exam"
	"github.com/varunsiravuri/exam-platform/internal/handler"
	"github.com/varunsiravuri/exam-platform/internal/logger"
	"github.com/varunsiravuri/exam-platform/internal/repository"
	"github.com/varunsiravuri/exam-platform/internal/router"
	"github.com/varunsiravuri/exam-platform/internal/service"
	"github.com/varunsiravuri/exam-platform/internal/validator"
	"github.com/varunsiravuri/exam-platform/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Exam Platform")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	slotRepo := repository.NewSlotRepository(pool, rdb)
	questionRepo := repository.NewQuestionRepository(pool, rdb)
	resultRepo := repository.NewResultRepository(pool, rdb)
	adminRepo := repository.NewAdminRepository(pool)

	// ─── Load Question Banks ───────────────────────────────────────────
	// The full bank is loaded once at startup; the selector shuffles
	// per-candidate views from the in-memory copy, so question delivery
	// never touches PostgreSQL on the hot path.
	questions, err := questionRepo.ListAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load question banks")
	}
	if len(questions) == 0 {
		log.Warn().Msg("Question bank is empty; run the seed tool before opening slots")
	}
	selector := exam.NewSelector(questions)
	log.Info().Int("questions", len(questions)).Msg("Question banks loaded")

	// ─── Initialize Services ──────────────────────────────────────────
	clock := exam.SystemClock()
	guard := exam.NewCompletionGuard(resultRepo, log)

	authService := service.NewAuthService(cfg, rdb)
	accessService := service.NewAccessService(studentRepo, slotRepo, guard, clock, log)
	sessionService := service.NewSessionService(cfg, clock, selector, guard, resultRepo, authService, rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:   handler.NewAuthHandler(authService, accessService, adminRepo, log),
		Exam:   handler.NewExamHandler(sessionService, accessService, studentRepo, log),
		WS:     handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		Result: handler.NewResultHandler(resultRepo, log),
		System: handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	violationWorker := worker.NewViolationWorker(pool, rdb, log)
	answerWorker := worker.NewAnswerWorker(pool, rdb, log)

	go violationWorker.Start(workerCtx)
	go answerWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop session monitors. Live sessions keep their Redis anchors, so
	// candidates resume with the original countdown after a restart.
	sessionService.Shutdown()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
