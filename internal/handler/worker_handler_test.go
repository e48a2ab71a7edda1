package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lakshayybhati/liftor-worker/internal/middleware"
	"github.com/lakshayybhati/liftor-worker/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWorker struct {
	result *service.WorkerResult
	calls  int
}

func (s *stubWorker) RunOnce(_ context.Context) *service.WorkerResult {
	s.calls++
	return s.result
}

func testRouter(worker service.WorkerService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.CORSMiddleware(nil))

	h := NewWorkerHandler(worker)
	router.POST("/worker/generate", h.Invoke)
	router.GET("/worker/generate", h.MethodNotAllowed)
	router.PUT("/worker/generate", h.MethodNotAllowed)
	return router
}

func TestInvokeReturnsEnvelope(t *testing.T) {
	worker := &stubWorker{result: &service.WorkerResult{
		Success: true,
		JobID:   "job-1",
		PlanID:  "plan-1",
		Status:  "completed",
	}}
	router := testRouter(worker)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/worker/generate", strings.NewReader(`{"handoff": true}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, worker.calls)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "job-1", envelope["jobId"])
	assert.Equal(t, "completed", envelope["status"])
}

func TestInvokeWithoutBody(t *testing.T) {
	worker := &stubWorker{result: &service.WorkerResult{Success: true, Status: "no_jobs", NoJobsAvailable: true}}
	router := testRouter(worker)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/worker/generate", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope["noJobsAvailable"])
}

func TestOptionsPreflight(t *testing.T) {
	router := testRouter(&stubWorker{result: &service.WorkerResult{}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/worker/generate", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	worker := &stubWorker{result: &service.WorkerResult{}}
	router := testRouter(worker)

	for _, method := range []string{http.MethodGet, http.MethodPut} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/worker/generate", nil)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
	assert.Zero(t, worker.calls)
}
