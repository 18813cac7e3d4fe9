package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/varunsiravuri/exam-platform/internal/config"
	"github.com/varunsiravuri/exam-platform/internal/handler"
	"github.com/varunsiravuri/exam-platform/internal/middleware"
	"github.com/varunsiravuri/exam-platform/internal/response"
	"github.com/varunsiravuri/exam-platform/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Exam   *handler.ExamHandler
	WS     *handler.WSHandler
	Result *handler.ResultHandler
	System *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1")
	{
		publicAPI.GET("/slots", handlers.Exam.ListSlots)
	}

	// Rate limiter for auth routes: the login stampede at slot open is the
	// hottest moment of the day.
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
	}

	// ─── 2. Exam Group (Student JWT + Single Device) ───────────────────
	examAPI := router.Group("/api/v1/exam")
	examAPI.Use(middleware.RequireStudentJWT(authService))
	{
		examAPI.POST("/begin", handlers.Exam.Begin)
		examAPI.GET("/state", handlers.Exam.State)
		examAPI.POST("/answer", handlers.Exam.Answer)
		examAPI.POST("/mark", handlers.Exam.Mark)
		examAPI.POST("/navigate", handlers.Exam.Navigate)
		examAPI.POST("/tab-switch", handlers.Exam.TabSwitch)
		examAPI.POST("/warning/dismiss", handlers.Exam.DismissWarning)
		examAPI.POST("/heartbeat", handlers.Exam.Heartbeat)
		examAPI.POST("/break", handlers.Exam.BeginBreak)
		examAPI.POST("/break/end", handlers.Exam.EndBreak)
		examAPI.POST("/submit", handlers.Exam.Submit)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/exam/stream", handlers.WS.ExamStream)
	}

	// ─── 4. Admin Group (Admin JWT) ────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/results", handlers.Result.List)
		adminAPI.GET("/results/export", handlers.Result.ExportCSV)
		adminAPI.GET("/results/:id", handlers.Result.Get)
		adminAPI.DELETE("/results/:id", handlers.Result.Delete)

		adminAPI.POST("/students/:id/reset-session", handlers.Auth.ResetStudentSession)

		adminAPI.GET("/system/queues", handlers.System.QueueDepths)
	}

	return router
}
