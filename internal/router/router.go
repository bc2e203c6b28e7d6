package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/config"
	"github.com/stemsi/motoquiz-backend/internal/handler"
	"github.com/stemsi/motoquiz-backend/internal/middleware"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stemsi/motoquiz-backend/internal/response"
	"github.com/stemsi/motoquiz-backend/internal/service"
)

const uploadsMaxAge = 31536000

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Question   *handler.QuestionHandler
	Practice   *handler.PracticeHandler
	Exam       *handler.ExamHandler
	Result     *handler.ResultHandler
	Suggestion *handler.SuggestionHandler
	Media      *handler.MediaHandler
	WS         *handler.WSHandler
	System     *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// authLimiter may be nil to disable rate limiting.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	authLimiter *middleware.RateLimiter,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the request log and every envelope carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	// Uploaded question images never change under the same name.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(uploadsMaxAge))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := api.Group("/auth")
	if authLimiter != nil {
		auth.Use(authLimiter.Middleware())
	}
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	// ─── 2. User Group (JWT + Current Session) ─────────────────────────
	user := api.Group("")
	user.Use(
		middleware.RequireAuth(authService),
		middleware.CheckSession(authService),
	)
	{
		user.POST("/auth/logout", handlers.Auth.Logout)
		user.GET("/auth/me", handlers.Auth.Me)

		user.GET("/questions", handlers.Question.ListQuestions)
		user.GET("/questions/categories", handlers.Question.ListCategories)
		user.GET("/questions/:id", handlers.Question.GetQuestion)

		user.POST("/practice/check", handlers.Practice.CheckAnswer)

		user.POST("/suggestions", handlers.Suggestion.CreateSuggestion)
		user.GET("/suggestions/mine", handlers.Suggestion.ListMySuggestions)
	}

	// ─── 3. Exam Group (live state, never cached) ──────────────────────
	examAPI := user.Group("/exam")
	examAPI.Use(middleware.NoStore())
	{
		examAPI.POST("/start", handlers.Exam.StartExam)
		examAPI.GET("/state", handlers.Exam.GetState)
		examAPI.PUT("/answers", handlers.Exam.SelectAnswer)
		examAPI.POST("/navigate", handlers.Exam.Navigate)
		examAPI.POST("/submit", handlers.Exam.SubmitExam)
		examAPI.DELETE("", handlers.Exam.AbandonExam)

		examAPI.GET("/results", handlers.Result.ListResults)
		examAPI.GET("/results/:id", handlers.Result.GetResult)
	}

	// ─── 4. WebSocket Group (token in query) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(authService),
		middleware.CheckSession(authService),
	)
	{
		ws.GET("/exam/stream", handlers.WS.ExamStream)
	}

	// ─── 5. Admin Group (JWT + Session + Admin Role) ───────────────────
	admin := api.Group("/admin")
	admin.Use(
		middleware.RequireAuth(authService),
		middleware.CheckSession(authService),
		middleware.RequireRole(model.RoleAdmin),
	)
	{
		admin.GET("/questions", handlers.Question.AdminListQuestions)
		admin.GET("/questions/:id", handlers.Question.AdminGetQuestion)
		admin.POST("/questions", handlers.Question.CreateQuestion)
		admin.PUT("/questions/:id", handlers.Question.UpdateQuestion)
		admin.DELETE("/questions/:id", handlers.Question.DeleteQuestion)

		admin.GET("/suggestions", handlers.Suggestion.ListSuggestions)
		admin.POST("/suggestions/:id/approve", handlers.Suggestion.ApproveSuggestion)
		admin.POST("/suggestions/:id/reject", handlers.Suggestion.RejectSuggestion)

		admin.GET("/attempts/:id/answers", handlers.Result.ListAttemptAnswers)

		admin.POST("/media/upload", handlers.Media.UploadMedia)

		admin.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
