package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tresesenta/config"
	"tresesenta/internal/database"
	"tresesenta/internal/handler"
	"tresesenta/internal/middleware"
	"tresesenta/internal/service"
	"tresesenta/internal/ws"
	"tresesenta/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the collaborators the router cannot build from cfg alone.
type Deps struct {
	DB      *gorm.DB
	Cloud   cloudinary.Client
	Hub     *ws.PinHub
	Limiter *middleware.RateLimiter
	// Now defaults to time.Now.
	Now func() time.Time
}

// Setup wires services and handlers and registers every route.
func Setup(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	loc := cfg.Location()
	hub := deps.Hub
	if hub == nil {
		hub = ws.NewPinHub()
	}

	tm := database.NewTxManager(deps.DB, cfg.Database.TxTimeout)
	settingsSvc := service.NewSettingsService(tm)
	catalogSvc := service.NewCatalog(tm)
	counter := service.NewCounter(deps.DB, loc, now)
	ledger := service.NewLedger(tm, now)
	verificationSvc := service.NewVerification(tm, catalogSvc, settingsSvc, ledger, counter, hub, now)
	pinSvc := service.NewPinService(tm, catalogSvc, settingsSvc, ledger, counter, verificationSvc, hub, now)
	loginSvc := service.NewLoginService(tm, ledger, counter, hub)
	pointsSvc := service.NewPointsService(tm, catalogSvc, counter, ledger, loginSvc)
	adminSvc := service.NewAdminService(tm, ledger, counter, hub)
	leaderboardSvc, err := service.NewLeaderboardService(tm, settingsSvc, cfg.Points.LeaderboardTTL, now)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	pinHandler := handler.NewPinHandler(pinSvc)
	pointsHandler := handler.NewPointsHandler(catalogSvc, pointsSvc, loginSvc, leaderboardSvc)
	verificationHandler := handler.NewVerificationHandler(verificationSvc, deps.Cloud, cfg.Cloudinary.Folder)
	adminHandler := handler.NewAdminHandler(adminSvc, verificationSvc, settingsSvc, catalogSvc, ledger, leaderboardSvc)
	userHandler := handler.NewUserHandler(service.NewUserService(tm))
	placeHandler := handler.NewPlaceHandler(service.NewPlaceService(tm))

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	if deps.Limiter != nil {
		r.Use(middleware.RateLimit(deps.Limiter))
	}

	r.GET("/health", health(deps.DB))

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		points := api.Group("/points")
		{
			points.GET("/actions", pointsHandler.Actions)
			points.GET("/leaderboard", pointsHandler.Leaderboard)
			points.GET("/my-transactions", authMw, pointsHandler.MyTransactions)
			points.GET("/my-stats", authMw, pointsHandler.MyStats)
			points.POST("/daily-login", authMw, pointsHandler.DailyLogin)
		}

		api.GET("/categories", placeHandler.Categories)
		api.GET("/cities", placeHandler.Cities)
		api.GET("/cities/:id", placeHandler.City)

		users := api.Group("/users")
		{
			users.GET("/me", authMw, userHandler.Me)
			users.GET("/ranking/top", userHandler.Top)
			users.GET("/:username", userHandler.Profile)
		}

		pins := api.Group("/pins")
		{
			pins.GET("", pinHandler.List)
			pins.GET("/nearby", pinHandler.Nearby)
			pins.GET("/:id", pinHandler.Get)
			pins.GET("/:id/comments", pinHandler.Comments)
			pins.POST("", authMw, pinHandler.Create)
			pins.POST("/:id/like", authMw, pinHandler.Like)
			pins.DELETE("/:id/like", authMw, pinHandler.Unlike)
			pins.POST("/:id/comments", authMw, pinHandler.Comment)
		}

		verification := api.Group("/verification")
		verification.Use(authMw)
		{
			verification.GET("/my-requests", verificationHandler.MyRequests)
			verification.POST("/:pinId/add-images", verificationHandler.AddImages)
			verification.POST("/:pinId/evidence", verificationHandler.UploadEvidence)
			verification.POST("/:pinId/resubmit", verificationHandler.Resubmit)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.GET("/stats", adminHandler.Stats)

			admin.GET("/verification/pending", adminHandler.PendingVerifications)
			admin.GET("/verification/all", adminHandler.Verifications)
			admin.POST("/verification/:id/approve", adminHandler.ApproveVerification)
			admin.POST("/verification/:id/reject", adminHandler.RejectVerification)

			admin.GET("/settings", adminHandler.Settings)
			admin.PUT("/settings/:key", adminHandler.UpdateSetting)

			admin.GET("/point-actions", adminHandler.PointActions)
			admin.PUT("/point-actions/:code", adminHandler.UpdatePointAction)

			admin.GET("/users", adminHandler.Users)
			admin.POST("/users/:id/ban", adminHandler.BanUser)
			admin.POST("/users/:id/unban", adminHandler.UnbanUser)
			admin.POST("/users/:id/verify-buyer", adminHandler.VerifyBuyer)
			admin.POST("/users/:id/set-admin", adminHandler.SetAdmin)
			admin.POST("/users/:id/adjust", adminHandler.AdjustPoints)
			admin.GET("/users/:id/ledger-audit", adminHandler.LedgerAudit)

			admin.POST("/transactions/:id/reverse", adminHandler.ReverseTransaction)

			admin.GET("/pins", adminHandler.Pins)
			admin.POST("/pins/:id/hide", adminHandler.HidePin)
			admin.POST("/pins/:id/unhide", adminHandler.UnhidePin)

			admin.GET("/moderation-logs", adminHandler.ModerationLogs)
		}
	}

	r.GET("/ws/pins", ws.ServePins(&cfg.JWT, hub))

	return r, nil
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
