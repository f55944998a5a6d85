package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/codegrade/backend/internal/data"
	"github.com/codegrade/backend/internal/evaluation"
	"github.com/codegrade/backend/internal/handler"
	"github.com/codegrade/backend/internal/infrastructure"
	"github.com/codegrade/backend/internal/middleware"
	"github.com/codegrade/backend/internal/notification"
	"github.com/codegrade/backend/internal/repository"
	"github.com/codegrade/backend/internal/service"
)

func main() {
	// Load configuration
	config := infrastructure.LoadConfig()

	// Initialize logger
	logger, err := infrastructure.NewLogger(config.Server.Environment, config.Telemetry.ServiceName)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer infrastructure.SyncLogger(logger)

	logger.Info("Starting CodeGrade API",
		zap.String("environment", config.Server.Environment),
		zap.Int("port", config.Server.Port),
	)

	// Initialize context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize telemetry
	telemetry, err := infrastructure.NewTelemetry(ctx, &config.Telemetry, logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		telemetry.Shutdown(shutdownCtx)
	}()

	// Create metrics
	metrics, err := telemetry.CreateMetrics()
	if err != nil {
		logger.Error("Failed to create metrics", zap.Error(err))
		os.Exit(1)
	}

	// Initialize database
	database, err := infrastructure.NewDatabase(&config.Database, logger)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer database.Close()

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		os.Exit(1)
	}

	// Seed sample problems
	seeder := data.NewSeeder(database.DB, logger)
	if err := seeder.SeedProblems(); err != nil {
		logger.Error("Failed to seed problems", zap.Error(err))
		os.Exit(1)
	}

	// Initialize Redis for the problem read cache
	redisClient, err := infrastructure.NewRedisClient(&config.Redis, logger)
	if err != nil {
		logger.Error("Failed to connect to Redis", zap.Error(err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize notifier (nop when no brokers are configured)
	var notifier notification.Notifier = notification.NopNotifier{}
	if len(config.Kafka.Brokers) > 0 {
		kafkaNotifier := notification.NewKafkaNotifier(config.Kafka.Brokers, config.Kafka.Topic, logger)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(database.DB)
	problemRepo := repository.NewCachedProblemRepository(
		repository.NewProblemRepository(database.DB),
		redisClient,
		config.Redis.ProblemTTL,
		logger,
	)
	assignmentRepo := repository.NewAssignmentRepository(database.DB)
	submissionRepo := repository.NewSubmissionRepository(database.DB)

	// Initialize the evaluation client
	evaluator := evaluation.NewClient(
		evaluation.Config{
			BaseURL:   config.Evaluator.BaseURL,
			APIKey:    config.Evaluator.APIKey,
			Model:     config.Evaluator.Model,
			Timeout:   config.Evaluator.Timeout,
			MaxTokens: config.Evaluator.MaxTokens,
		},
		telemetry.Tracer,
		logger,
		metrics,
	)

	// Initialize services
	userService := service.NewUserService(userRepo, submissionRepo, assignmentRepo, &config.JWT, telemetry.Tracer, logger)
	problemService := service.NewProblemService(problemRepo, telemetry.Tracer, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, problemRepo, telemetry.Tracer, logger)
	submissionService := service.NewSubmissionService(
		submissionRepo,
		assignmentRepo,
		problemRepo,
		evaluator,
		notifier,
		telemetry.Tracer,
		logger,
		metrics,
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)
	problemHandler := handler.NewProblemHandler(problemService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)

	// Setup Gin router
	if config.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add global middleware
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CORSMiddleware(middleware.NewCORSConfig(config.Server.AllowedOrigins)))
	router.Use(middleware.TracingMiddleware(telemetry.Tracer))
	router.Use(middleware.MetricsMiddleware(metrics))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "redis connection failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": config.Telemetry.ServiceVersion,
		})
	})

	// Metrics endpoint for Prometheus
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// Problem routes (public catalog)
		problems := api.Group("/problems")
		{
			problems.GET("", problemHandler.GetProblems)
			problems.GET("/stats", problemHandler.GetProblemStats)
			problems.GET("/:id", problemHandler.GetProblem)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(userService))
		{
			// User routes
			users := protected.Group("/users")
			{
				users.GET("/me", userHandler.GetCurrentUser)
				users.GET("/me/progress", userHandler.GetUserProgress)
			}

			// Assignment routes
			assignments := protected.Group("/assignments")
			{
				assignments.POST("", assignmentHandler.Assign)
				assignments.GET("", assignmentHandler.ListByStatus)
				assignments.DELETE("/:problemId", assignmentHandler.Unassign)
				assignments.POST("/:problemId/start", assignmentHandler.Start)
			}

			// Submission routes
			protected.POST("/problems/:id/submissions", submissionHandler.Submit)
			protected.GET("/problems/:id/submissions", submissionHandler.GetProblemHistory)
			submissions := protected.Group("/submissions")
			{
				submissions.GET("", submissionHandler.GetUserHistory)
				submissions.GET("/:id", submissionHandler.GetSubmission)
			}
		}
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server starting",
			zap.String("address", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
