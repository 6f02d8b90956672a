package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"interprep/internal/api/middleware"
	"interprep/internal/auth"
	"interprep/internal/files"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	authService *auth.Service,
	fileService *files.Service,
	redisClient redis.UniversalClient,
	taskClient taskEnqueuer,
	logger *slog.Logger,
) {
	authHandler := NewAuthHandler(db, authService, redisClient, taskClient, logger)
	fileHandler := NewFileHandler(fileService, logger)
	interviewHandler := NewInterviewHandler(db, logger)
	lookupHandler := NewLookupHandler(db, logger)
	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.GET("/verify", authHandler.VerifyEmail)
			authGroup.GET("/me", authMiddleware, authHandler.Me)
		}

		fileGroup := v1.Group("/files")
		fileGroup.Use(authMiddleware)
		{
			fileGroup.POST("", fileHandler.Upload)
			fileGroup.GET("", fileHandler.List)
			fileGroup.GET("/:id", fileHandler.Get)
			fileGroup.GET("/:id/download", fileHandler.Download)
			fileGroup.DELETE("/:id", fileHandler.Delete)
		}

		interviewGroup := v1.Group("/interviews")
		interviewGroup.Use(authMiddleware)
		{
			interviewGroup.POST("", interviewHandler.Create)
			interviewGroup.GET("", interviewHandler.List)
			interviewGroup.GET("/:id", interviewHandler.Get)
			interviewGroup.POST("/:id/complete", interviewHandler.Complete)
		}

		lookupGroup := v1.Group("/lookups")
		{
			lookupGroup.GET("/topics", lookupHandler.Topics)
			lookupGroup.GET("/languages", lookupHandler.Languages)
			lookupGroup.GET("/difficulties", lookupHandler.Difficulties)
		}
	}
}
