package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devloops/devloops/config"
	"github.com/devloops/devloops/controllers"
	"github.com/devloops/devloops/middleware"
	"github.com/devloops/devloops/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Bump view counters after question detail reads
	r.Use(middleware.QuestionViewRecorder(db))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	questionController := controllers.NewQuestionController(db)
	answerController := controllers.NewAnswerController(db)
	voteController := controllers.NewVoteController(db)
	loopController := controllers.NewLoopController(db)
	tagController := controllers.NewTagController(db)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public reads
	api.GET("/questions", questionController.ListQuestions)
	api.GET("/questions/:id", questionController.GetQuestion)
	api.GET("/questions/:id/stats", statsController.GetQuestionStats)
	api.POST("/votes/check", voteController.CheckVote)

	api.GET("/loops", loopController.ListLoops)
	api.GET("/loops/popular", loopController.PopularLoops)
	api.GET("/loops/:id", loopController.GetLoop)
	api.GET("/loops/:id/members", loopController.ListLoopMembers)
	api.GET("/loops/:id/questions", loopController.ListLoopQuestions)

	api.GET("/tags", tagController.ListTags)
	api.GET("/tags/:name/questions", tagController.ListTagQuestions)

	api.GET("/stats", statsController.GetStats)
	api.GET("/users/:id", authController.GetUserPublic)
	api.GET("/users/:id/questions", questionController.ListUserQuestions)
	api.GET("/user/by-username/:username", authController.GetUserPublicByUsername)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.GET("/users", authController.ListUsers)

	protected.POST("/questions", questionController.CreateQuestion)
	protected.PUT("/questions/:id", questionController.UpdateQuestion)
	protected.DELETE("/questions/:id", questionController.DeleteQuestion)
	protected.POST("/questions/:id/answers", answerController.CreateAnswer)
	protected.DELETE("/answers/:id", answerController.DeleteAnswer)

	protected.GET("/questions/:id/votes", voteController.VoteStatus)
	protected.POST("/questions/:id/vote", voteController.VoteQuestion)
	protected.POST("/answers/:id/vote", voteController.VoteAnswer)

	protected.POST("/loops", loopController.CreateLoop)
	protected.PUT("/loops/:id", loopController.UpdateLoop)
	protected.DELETE("/loops/:id", loopController.DeleteLoop)
	protected.POST("/loops/:id/join", loopController.JoinLoop)
	protected.POST("/loops/:id/leave", loopController.LeaveLoop)
	protected.GET("/users/me/loops", loopController.ListMyLoops)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
