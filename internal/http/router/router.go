package router

import (
	"github.com/gin-gonic/gin"
	libredis "github.com/redis/go-redis/v9"

	"github.com/craftlink/craftlink-backend/internal/config"
	"github.com/craftlink/craftlink-backend/internal/http/handlers"
	"github.com/craftlink/craftlink-backend/internal/http/middleware"
	"github.com/craftlink/craftlink-backend/internal/models"
	"github.com/craftlink/craftlink-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	rdb *libredis.Client,
	authHandler *handlers.AuthHandler,
	jobHandler *handlers.JobHandler,
	applicationHandler *handlers.ApplicationHandler,
	submissionHandler *handlers.SubmissionHandler,
	walletHandler *handlers.WalletHandler,
	disputeHandler *handlers.DisputeHandler,
	ratingHandler *handlers.RatingHandler,
	adminHandler *handlers.AdminHandler,
	notificationHandler *handlers.NotificationHandler,
	mediaHandler *handlers.MediaHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod, rdb))

	// Регистрация и вход защищены более жёстким лимитом.
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod, rdb))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Публичные маршруты.
	api.GET("/jobs", jobHandler.List)
	api.GET("/jobs/:id", middleware.UUIDValidator("id"), jobHandler.Get)
	api.GET("/users/:id", middleware.UUIDValidator("id"), authHandler.GetUserProfile)
	api.GET("/users/:id/rating", middleware.UUIDValidator("id"), ratingHandler.GetDetails)
	api.GET("/users/:id/ratings", middleware.UUIDValidator("id"), ratingHandler.List)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты.
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/profile", authHandler.GetMe)
		protected.PUT("/profile", authHandler.UpdateMe)

		protected.POST("/jobs", jobHandler.Create)
		protected.GET("/jobs/my", jobHandler.ListMy)
		protected.DELETE("/jobs/:id", middleware.UUIDValidator("id"), jobHandler.Delete)
		protected.POST("/jobs/:id/complete", middleware.UUIDValidator("id"), jobHandler.Complete)
		protected.POST("/jobs/:id/review/approve", middleware.UUIDValidator("id"), jobHandler.ApproveReview)
		protected.POST("/jobs/:id/review/reject", middleware.UUIDValidator("id"), jobHandler.RejectReview)

		protected.POST("/jobs/:id/applications", middleware.UUIDValidator("id"), applicationHandler.Apply)
		protected.GET("/jobs/:id/applications", middleware.UUIDValidator("id"), applicationHandler.ListByJob)
		protected.POST("/jobs/:id/applications/:applicationId/accept",
			middleware.UUIDValidator("id"), middleware.UUIDValidator("applicationId"), jobHandler.AcceptApplication)
		protected.GET("/applications/my", applicationHandler.ListMine)
		protected.POST("/applications/:id/reject", middleware.UUIDValidator("id"), applicationHandler.Reject)

		protected.POST("/jobs/:id/updates", middleware.UUIDValidator("id"), submissionHandler.SubmitUpdate)
		protected.GET("/jobs/:id/updates", middleware.UUIDValidator("id"), submissionHandler.ListUpdates)
		protected.POST("/updates/:id/review", middleware.UUIDValidator("id"), submissionHandler.ReviewUpdate)
		protected.POST("/jobs/:id/final", middleware.UUIDValidator("id"), submissionHandler.SubmitFinal)
		protected.GET("/jobs/:id/final", middleware.UUIDValidator("id"), submissionHandler.ListFinal)
		protected.POST("/final/:id/review", middleware.UUIDValidator("id"), submissionHandler.ReviewFinal)

		protected.POST("/jobs/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.Raise)
		protected.GET("/disputes/my", disputeHandler.ListMine)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.Get)

		protected.POST("/jobs/:id/rating", middleware.UUIDValidator("id"), ratingHandler.Rate)
		protected.GET("/jobs/:id/rating/can-rate", middleware.UUIDValidator("id"), ratingHandler.CanRate)
		protected.PUT("/ratings/:id", middleware.UUIDValidator("id"), ratingHandler.Update)
		protected.DELETE("/ratings/:id", middleware.UUIDValidator("id"), ratingHandler.Delete)

		protected.GET("/wallet", walletHandler.GetWallet)
		protected.POST("/wallet/deposit", walletHandler.Deposit)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)
		protected.POST("/wallet/withdrawals", walletHandler.RequestWithdrawal)
		protected.GET("/wallet/withdrawals", walletHandler.ListWithdrawals)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), notificationHandler.Delete)

		protected.POST("/media", mediaHandler.Upload)
		protected.GET("/media/:id", middleware.UUIDValidator("id"), mediaHandler.Get)
		protected.GET("/media/:id/content", middleware.UUIDValidator("id"), mediaHandler.Download)
		protected.DELETE("/media/:id", middleware.UUIDValidator("id"), mediaHandler.Delete)
	}

	// Административные маршруты.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/dashboard", adminHandler.GetDashboard)
		admin.GET("/activity", adminHandler.GetActivityFeed)
		admin.GET("/withdrawals", adminHandler.ListPendingWithdrawals)
		admin.POST("/withdrawals/:id/complete", middleware.UUIDValidator("id"), adminHandler.CompleteWithdrawal)
		admin.POST("/withdrawals/:id/reject", middleware.UUIDValidator("id"), adminHandler.RejectWithdrawal)
		admin.GET("/disputes", disputeHandler.ListOpen)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)
		admin.POST("/disputes/:id/close", middleware.UUIDValidator("id"), disputeHandler.Close)
	}

	return r
}
