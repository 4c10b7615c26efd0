package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quizora/quizora-backend/internal/config"
	"github.com/quizora/quizora-backend/internal/handler"
	"github.com/quizora/quizora-backend/internal/middleware"
	"github.com/quizora/quizora-backend/internal/response"
	"github.com/quizora/quizora-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	LearnerPortal *handler.LearnerPortalHandler
	Exam          *handler.ExamHandler
	Question      *handler.QuestionHandler
	Review        *handler.ReviewHandler
	WS            *handler.WSHandler
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
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/learner/login", handlers.Auth.LearnerLogin)
		auth.POST("/grader/login", handlers.Auth.GraderLogin)

		// Authenticated profile routes
		auth.POST("/learner/logout", middleware.RequireLearnerJWT(authService), handlers.Auth.LearnerLogout)
		auth.GET("/learner/me", middleware.RequireLearnerJWT(authService), handlers.Auth.GetLearnerProfile)
		auth.GET("/grader/me", middleware.RequireGraderJWT(authService), handlers.Auth.GetGraderProfile)
	}

	// ─── 2. Learner Group (JWT + Single Device) ────────────────────────
	learnerAPI := router.Group("/api/v1/learner")
	learnerAPI.Use(
		middleware.RequireLearnerJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		learnerAPI.GET("/lobby", handlers.LearnerPortal.GetLobby)
		learnerAPI.POST("/exams/:exam_id/sessions", handlers.LearnerPortal.StartSession)
		learnerAPI.GET("/exams/:exam_id/paper", handlers.LearnerPortal.GetExamPaper)
		learnerAPI.GET("/sessions", handlers.LearnerPortal.ListSessions)
		learnerAPI.GET("/sessions/:session_id/state", handlers.LearnerPortal.GetSessionState)
		learnerAPI.POST("/sessions/:session_id/submit", handlers.LearnerPortal.Submit)
		learnerAPI.GET("/sessions/:session_id/result", handlers.LearnerPortal.GetResult)
	}

	// ─── 3. WebSocket Group (Learner WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWSAuth(authService))
	{
		ws.GET("/learner/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Grader Group (JWT) ─────────────────────────────────────────
	graderAPI := router.Group("/api/v1/grader")
	graderAPI.Use(middleware.RequireGraderJWT(authService))
	{
		// Exam authoring
		graderAPI.GET("/exams", handlers.Exam.ListExams)
		graderAPI.POST("/exams", handlers.Exam.CreateExam)
		graderAPI.POST("/exams/:exam_id/publish", handlers.Exam.PublishExam)
		graderAPI.POST("/exams/:exam_id/refresh-cache", handlers.Exam.RefreshExamCache)
		graderAPI.GET("/exams/:exam_id/questions", handlers.Question.ListQuestions)
		graderAPI.POST("/exams/:exam_id/questions", handlers.Question.AddQuestion)

		// Manual review
		graderAPI.GET("/reviews", handlers.Review.ListPending)
		graderAPI.GET("/reviews/:session_id", handlers.Review.Open)
		graderAPI.PUT("/reviews/:session_id/points", handlers.Review.SetPoints)
		graderAPI.POST("/reviews/:session_id/reset", handlers.Review.Reset)
		graderAPI.POST("/reviews/:session_id/finalize", handlers.Review.Finalize)
	}

	return router
}
