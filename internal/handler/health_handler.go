package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lakshayybhati/liftor-worker/internal/config"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/database"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/redis"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	App       string            `json:"app"`
	Version   string            `json:"version"`
	Timestamp int64             `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	services := make(map[string]string)

	if err := database.Ping(); err != nil {
		services["database"] = "unhealthy"
	} else {
		services["database"] = "healthy"
	}

	if redis.Rdb != nil {
		if err := redis.Rdb.Ping(c.Request.Context()).Err(); err != nil {
			services["redis"] = "unhealthy"
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "disabled"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if services["database"] == "unhealthy" {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		App:       config.GlobalConfig.App.Name,
		Version:   config.GlobalConfig.App.Version,
		Timestamp: time.Now().Unix(),
		Services:  services,
	})
}
