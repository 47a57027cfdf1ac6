package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/reelvault/internal/service"
	"github.com/timmy/reelvault/internal/trigger"
)

// WorkerHandler exposes one download worker invocation over HTTP.
type WorkerHandler struct {
	worker *service.DownloadWorker
}

// NewWorkerHandler creates a new worker handler.
func NewWorkerHandler(worker *service.DownloadWorker) *WorkerHandler {
	return &WorkerHandler{worker: worker}
}

// Run handles POST /api/v1/worker/download. The body {"depth": n} is optional.
// It answers once this invocation is done and never waits for chained ones.
// The run is detached from the request, so a caller that hangs up does not
// strand claimed jobs.
func (h *WorkerHandler) Run(c *gin.Context) {
	var inv trigger.Invocation
	if err := c.ShouldBindJSON(&inv); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if inv.Depth < 0 {
		inv.Depth = 0
	}

	result, err := h.worker.Run(context.WithoutCancel(c.Request.Context()), inv)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
