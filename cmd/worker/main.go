package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lakshayybhati/liftor-worker/internal/config"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/database"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/logger"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/redis"
	"github.com/lakshayybhati/liftor-worker/internal/repository"
	"github.com/lakshayybhati/liftor-worker/internal/router"
	"github.com/lakshayybhati/liftor-worker/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		fmt.Printf("Failed to initialize config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.InitLogger(); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Logger.Sync()

	logger.Info("Starting plan-generation worker",
		zap.String("version", config.GlobalConfig.App.Version),
		zap.String("mode", config.GlobalConfig.App.Mode),
	)

	// Preflight: refuse to start without credentials.
	if err := config.GlobalConfig.Preflight(); err != nil {
		logger.Fatal("CONFIG_ERROR: preflight failed", zap.Error(err))
	}

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()
	logger.Info("Database connection established")

	// Initialize optional Redis progress mirror
	if err := redis.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redis.Close()
	if redis.Rdb != nil {
		logger.Info("Redis connection established")
	}

	// Initialize router with dependencies
	ginRouter := router.SetupRouter(setupDependencies())

	// The write timeout must outlast a full invocation budget plus the
	// yield threshold, or in-flight generations get cut off mid-reply.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.GlobalConfig.App.Port),
		Handler:      ginRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: config.GlobalConfig.Worker.InvocationBudget + config.GlobalConfig.Worker.YieldThreshold,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.Int("port", config.GlobalConfig.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// setupDependencies wires repositories and services for injection.
func setupDependencies() *router.Dependencies {
	db := database.GetDB()

	jobRepo := repository.NewJobRepository(db)
	planRepo := repository.NewPlanRepository(db)
	checkpointRepo := repository.NewCheckpointRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	llmClient := service.NewLLMClient(config.GlobalConfig.AI)
	orchestrator := service.NewOrchestrator(llmClient, checkpointRepo)
	notifier := service.NewNotifier(notificationRepo)

	workerService := service.NewWorkerService(
		config.GlobalConfig.Worker,
		jobRepo,
		planRepo,
		checkpointRepo,
		orchestrator,
		notifier,
		redis.Rdb,
		config.GlobalConfig.App.SelfURL,
	)

	return &router.Dependencies{
		WorkerService: workerService,
	}
}
