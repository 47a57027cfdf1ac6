package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/reelvault/internal/service"
)

// HistoryHandler serves past searches and stored assets.
type HistoryHandler struct {
	history *service.HistoryService
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// ListSearches handles GET /api/v1/history?keyword=&platform=&from=&to=&limit=.
// Unparseable dates are ignored.
func (h *HistoryHandler) ListSearches(c *gin.Context) {
	filter := service.HistoryFilter{
		Keyword:  c.Query("keyword"),
		Platform: c.Query("platform"),
		From:     parseTime(c.Query("from")),
		To:       parseTime(c.Query("to")),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		filter.Limit = n
	}

	items, err := h.history.ListSearches(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to list searches")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetSearch handles GET /api/v1/history/:id.
func (h *HistoryHandler) GetSearch(c *gin.Context) {
	detail, err := h.history.GetSearch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load search")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetAsset handles GET /api/v1/assets/:mediaId.
func (h *HistoryHandler) GetAsset(c *gin.Context) {
	links, err := h.history.GetAsset(c.Request.Context(), c.Param("mediaId"))
	if err != nil {
		respondError(c, err, "Failed to load asset")
		return
	}
	c.JSON(http.StatusOK, links)
}

func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
