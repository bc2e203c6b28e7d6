package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/config"
	"github.com/stemsi/motoquiz-backend/internal/database"
	"github.com/stemsi/motoquiz-backend/internal/handler"
	"github.com/stemsi/motoquiz-backend/internal/logger"
	"github.com/stemsi/motoquiz-backend/internal/middleware"
	"github.com/stemsi/motoquiz-backend/internal/repository"
	"github.com/stemsi/motoquiz-backend/internal/router"
	"github.com/stemsi/motoquiz-backend/internal/service"
	"github.com/stemsi/motoquiz-backend/internal/validator"
	"github.com/stemsi/motoquiz-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting MotoQuiz Backend")

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
	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	suggestionRepo := repository.NewSuggestionRepository(pool)
	answerRepo := repository.NewAttemptAnswerRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, service.NewRedisSessionStore(rdb), log)
	questionService := service.NewQuestionService(questionRepo, rdb, cfg, log)
	practiceService := service.NewPracticeService(questionService)
	resultService := service.NewResultService(resultRepo, answerRepo)
	suggestionService := service.NewSuggestionService(suggestionRepo, questionService, log)
	mediaService := service.NewMediaService(cfg, log)
	sessionService := service.NewExamSessionService(questionService, resultRepo, worker.NewAnswerQueue(rdb), log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Question:   handler.NewQuestionHandler(questionService, practiceService),
		Practice:   handler.NewPracticeHandler(practiceService),
		Exam:       handler.NewExamHandler(sessionService),
		Result:     handler.NewResultHandler(resultService),
		Suggestion: handler.NewSuggestionHandler(suggestionService),
		Media:      handler.NewMediaHandler(mediaService, cfg.MaxUploadBytes),
		WS:         handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		System:     handler.NewSystemHandler(pool, rdb, sessionService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(rdb, answerRepo, log)
	go autosaveWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load the question bank into Redis BEFORE accepting traffic.
	if _, err := questionService.List(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	authLimiter := middleware.NewRateLimiter(middleware.RedisHitCounter(rdb), cfg.AuthRateLimit, time.Minute, log)
	r := router.SetupRouter(authService, handlers, cfg, authLimiter, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// 2. Abandon live exam attempts; their WebSocket streams close with them.
	if err := sessionService.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Exam session shutdown error")
	}

	// 3. Stop the autosave worker and wait for the queue to drain.
	workerCancel()
	select {
	case <-autosaveWorker.Done():
	case <-time.After(15 * time.Second):
		log.Warn().Msg("Autosave worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
