package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/reelvault/internal/logger"
	"github.com/timmy/reelvault/internal/service"
)

// AdminHandler handles download queue maintenance.
type AdminHandler struct {
	admin *service.JobAdmin
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - admin: queue maintenance service.
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(admin *service.JobAdmin) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// JobStats handles GET /api/v1/admin/jobs/stats.
func (h *AdminHandler) JobStats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to count jobs")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RequeueFailed handles POST /api/v1/admin/jobs/requeue.
func (h *AdminHandler) RequeueFailed(c *gin.Context) {
	ctx := c.Request.Context()
	logger.CtxInfo(ctx, "Requeue of failed jobs requested: client_ip=%s", c.ClientIP())

	n, err := h.admin.Requeue(ctx)
	if err != nil {
		respondError(c, err, "Failed to requeue jobs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requeued": n})
}

// ReclaimStale handles POST /api/v1/admin/jobs/reclaim.
func (h *AdminHandler) ReclaimStale(c *gin.Context) {
	res, err := h.admin.Reclaim(c.Request.Context())
	if errors.Is(err, service.ErrReclaimDisabled) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondError(c, err, "Failed to reclaim jobs")
		return
	}
	c.JSON(http.StatusOK, res)
}
