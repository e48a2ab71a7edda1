package router

import (
	"github.com/gin-gonic/gin"
	"github.com/lakshayybhati/liftor-worker/internal/config"
	"github.com/lakshayybhati/liftor-worker/internal/handler"
	"github.com/lakshayybhati/liftor-worker/internal/middleware"
	"github.com/lakshayybhati/liftor-worker/internal/service"
)

// Dependencies holds everything router setup needs.
type Dependencies struct {
	WorkerService service.WorkerService
}

// SetupRouter configures the Gin router with middleware and routes.
func SetupRouter(deps *Dependencies) *gin.Engine {
	if config.GlobalConfig.App.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order matters: recover first, then log, then CORS (which also
	// answers OPTIONS preflights with 204).
	router.Use(middleware.RecoveryMiddleware(nil))
	router.Use(middleware.LoggingMiddleware(nil))
	router.Use(middleware.CORSMiddleware(nil))

	healthHandler := handler.NewHealthHandler()
	router.GET("/health", healthHandler.HealthCheck)

	workerHandler := handler.NewWorkerHandler(deps.WorkerService)
	router.POST("/worker/generate", workerHandler.Invoke)
	// Anything except POST (and the OPTIONS the CORS layer absorbs) is 405.
	router.GET("/worker/generate", workerHandler.MethodNotAllowed)
	router.PUT("/worker/generate", workerHandler.MethodNotAllowed)
	router.PATCH("/worker/generate", workerHandler.MethodNotAllowed)
	router.DELETE("/worker/generate", workerHandler.MethodNotAllowed)
	router.HEAD("/worker/generate", workerHandler.MethodNotAllowed)

	return router
}
