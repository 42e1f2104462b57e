package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mailcanvas/internal/api/middleware"
	"mailcanvas/internal/auth"
	"mailcanvas/internal/config"
	"mailcanvas/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
) {
	draftHandler := NewDraftHandler(db, asynqClient, storageClient, cfg.Limits.MaxDrafts)
	templateHandler := NewTemplateHandler(db, asynqClient)
	editorHandler := NewEditorHandler()
	authHandler := NewAuthHandler(db, authService, redisClient, logger,
		cfg.Limits.LoginRateLimitPerHour,
		cfg.Limits.LoginLockThreshold,
		cfg.Limits.LoginLockTTL(),
		cfg.API.CookieDomain,
	)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.WSAllowedOrigins())
	assetHandler := NewAssetHandler(db, storageClient, redisClient, logger, cfg.Clamd.Addr, cfg.Limits)

	authMiddleware := middleware.AuthMiddleware(authService)
	internalMiddleware := middleware.InternalSecretMiddleware(cfg.API.InternalSecret)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		draftGroup := v1.Group("/drafts")
		draftGroup.Use(authMiddleware)
		{
			draftGroup.GET("/latest", draftHandler.GetLatestDraft)
			draftGroup.GET("", draftHandler.ListDrafts)
			draftGroup.POST("", draftHandler.CreateDraft)
			draftGroup.GET("/:id", draftHandler.GetDraft)
			draftGroup.PUT("/:id", draftHandler.UpdateDraft)
			draftGroup.DELETE("/:id", draftHandler.DeleteDraft)
			draftGroup.POST("/:id/render", draftHandler.RenderDraft)
			draftGroup.GET("/:id/download-link", draftHandler.GetDownloadLink)
		}

		// 编辑器操作是无状态的：入参带 markup，出参是应用操作后的 markup。
		editorGroup := v1.Group("/editor")
		editorGroup.Use(authMiddleware)
		{
			editorGroup.POST("/place", editorHandler.PlaceBlock)
			editorGroup.POST("/move", editorHandler.MoveBlock)
			editorGroup.POST("/remove", editorHandler.RemoveBlock)
			editorGroup.POST("/update", editorHandler.UpdateBlock)
			editorGroup.POST("/resize-columns", editorHandler.ResizeColumns)
			editorGroup.POST("/validate", editorHandler.ValidateMarkup)
		}

		templateGroup := v1.Group("/templates")
		templateGroup.Use(authMiddleware)
		{
			templateGroup.POST("", templateHandler.CreateTemplate)
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
			templateGroup.DELETE("/:id", templateHandler.DeleteTemplate)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware)
		{
			assetGroup.POST("/upload", assetHandler.UploadAsset)
			assetGroup.GET("", assetHandler.ListAssets)
			assetGroup.GET("/view", assetHandler.GetAssetURL)
			assetGroup.DELETE("", assetHandler.DeleteAsset)
		}

		internalGroup := v1.Group("/internal")
		internalGroup.Use(internalMiddleware)
		{
			internalGroup.GET("/drafts/:id/html", draftHandler.GetRenderedEmailHTML)
		}
	}
}
