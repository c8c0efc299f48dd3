package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/fixnow-api/config"
	"github.com/kendall-kelly/fixnow-api/controllers"
	"github.com/kendall-kelly/fixnow-api/middleware"
	"github.com/kendall-kelly/fixnow-api/models"
	"github.com/kendall-kelly/fixnow-api/services"
)

func main() {
	config.InitLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load configuration", err)
	}
	logger := config.InitLogger(cfg.LogLevel)
	logger.Info("starting FixNow API server", "env", cfg.GoEnv)

	if err := config.ConnectDatabase(); err != nil {
		fatal("failed to connect to database", err)
	}

	db := config.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		fatal("failed to migrate database", err)
	}
	if err := models.SeedServices(db); err != nil {
		fatal("failed to seed service catalog", err)
	}
	logger.Info("database migration completed successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.UsesS3() {
		s3Service, err := services.InitS3Service(ctx)
		if err != nil {
			fatal("failed to initialize S3", err)
		}
		services.InitDocumentService(s3Service)
		logger.Info("verification documents stored in S3", "bucket", cfg.AWSS3Bucket)
	} else {
		services.InitLocalDocumentService(cfg.UploadDir)
		logger.Warn("AWS_S3_BUCKET not set, storing verification documents locally", "dir", cfg.UploadDir)
	}

	var limiter *middleware.FixedWindowLimiter
	if cfg.RedisAddr != "" && cfg.RateLimitPerMinute > 0 {
		client, err := middleware.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			fatal("failed to connect to redis", err)
		}
		limiter, err = middleware.NewFixedWindowLimiter(client, "fixnow:ratelimit", cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			fatal("failed to create rate limiter", err)
		}
	} else {
		logger.Warn("REDIS_ADDR not set, rate limiting disabled")
	}

	authMiddleware, err := middleware.EnsureValidToken(cfg)
	if err != nil {
		fatal("failed to set up authentication", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, authMiddleware, limiter)

	port := ":" + cfg.Port
	logger.Info("server is running", "addr", "http://localhost"+port)
	if err := router.Run(port); err != nil {
		fatal("failed to start server", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

// setupRouter wires every route. auth validates the bearer token; limiter may be nil.
func setupRouter(cfg *config.Config, auth gin.HandlerFunc, limiter *middleware.FixedWindowLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)

		// Public discovery
		v1.GET("/services", controllers.ListServices)
		v1.GET("/providers", controllers.SearchProviders)

		protected := v1.Group("", auth)
		{
			protected.POST("/users", middleware.RateLimit(limiter, "signup"), controllers.CreateUser)
			protected.GET("/users/me", controllers.GetMyProfile)
			protected.PUT("/users/me", controllers.UpdateMyProfile)
			protected.GET("/dashboard", controllers.GetDashboard)

			protected.POST("/services", controllers.CreateService)

			protected.PUT("/providers/me", controllers.UpdateMyProviderProfile)
			protected.PUT("/providers/me/services", controllers.SetMyServices)
			protected.POST("/providers/me/documents", middleware.RateLimit(limiter, "documents"), controllers.UploadVerificationDocument)
			protected.GET("/providers/me/verification", controllers.GetMyVerification)
			protected.POST("/providers/me/verification", controllers.ResubmitVerification)

			protected.POST("/bookings", middleware.RateLimit(limiter, "bookings"), controllers.CreateBooking)
			protected.GET("/bookings", controllers.ListBookings)
			protected.GET("/bookings/:id", controllers.GetBooking)
			protected.POST("/bookings/:id/accept", controllers.AcceptBooking)
			protected.POST("/bookings/:id/decline", controllers.DeclineBooking)
			protected.POST("/bookings/:id/start", controllers.StartJob)
			protected.POST("/bookings/:id/confirm", controllers.ConfirmBooking)
			protected.POST("/bookings/:id/complete", controllers.CompleteBooking)
			protected.POST("/bookings/:id/cancel", controllers.CancelBooking)
			protected.POST("/bookings/:id/review", middleware.RateLimit(limiter, "reviews"), controllers.SubmitReview)

			protected.POST("/reviews/:id/flag", controllers.FlagReview)
			protected.POST("/reports", middleware.RateLimit(limiter, "reports"), controllers.FileReport)

			admin := protected.Group("/admin")
			{
				admin.GET("/providers/pending", controllers.ListPendingVerifications)
				admin.POST("/providers/:id/approve", controllers.ApproveProvider)
				admin.POST("/providers/:id/reject", controllers.RejectProvider)
				admin.POST("/reviews/:id/unflag", controllers.UnflagReview)
				admin.GET("/reports", controllers.ListReports)
				admin.POST("/reports/:id/resolve", controllers.ResolveReport)
				admin.GET("/documents/:filename", controllers.GetDocument)
			}
		}

		// Registered after /providers/me so the static segment wins
		v1.GET("/providers/:id", controllers.GetProvider)
		v1.GET("/providers/:id/reviews", controllers.ListProviderReviews)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "FixNow API is running",
	})
}

// databaseStatus checks database connectivity
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Database not initialized",
			},
		})
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	stats := sqlDB.Stats()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"data": gin.H{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		},
	})
}
