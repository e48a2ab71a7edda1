package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lakshayybhati/liftor-worker/internal/service"
)

// WorkerHandler exposes the worker invocation endpoint.
type WorkerHandler struct {
	worker service.WorkerService
}

// NewWorkerHandler creates a new WorkerHandler instance
func NewWorkerHandler(worker service.WorkerService) *WorkerHandler {
	return &WorkerHandler{worker: worker}
}

// invokeRequest is the optional invocation body. A handoff flag marks a
// yielding predecessor's self-trigger; it is advisory only.
type invokeRequest struct {
	Handoff bool `json:"handoff"`
}

// Invoke handles POST /worker/generate: claim one job, run the pipeline
// inside the time budget, and report the outcome. The envelope is always
// 200 once a job cycle ran; transport-level errors are the only non-200s.
func (h *WorkerHandler) Invoke(c *gin.Context) {
	var req invokeRequest
	// Body is optional and ignored beyond the advisory handoff flag.
	_ = c.ShouldBindJSON(&req)

	result := h.worker.RunOnce(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

// MethodNotAllowed answers non-POST methods on the worker route.
func (h *WorkerHandler) MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"success": false,
		"error":   "method not allowed",
	})
}
