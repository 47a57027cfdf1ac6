package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/reelvault/internal/logger"
	"github.com/timmy/reelvault/internal/service"
)

// SearchHandler handles search-related endpoints.
type SearchHandler struct {
	searchService *service.SearchService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// loadMoreRequest is the optional body of POST /api/v1/search/:id/more.
type loadMoreRequest struct {
	Platforms *service.PlatformSelection `json:"platforms"`
}

// Search handles POST /api/v1/search.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SearchHandler) Search(c *gin.Context) {
	var req service.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	req.RequestedBy = c.ClientIP()

	ctx := c.Request.Context()
	logger.CtxInfo(ctx, "Search requested: keyword=%q", req.Keyword)

	resp, err := h.searchService.Search(ctx, req)
	if err != nil {
		respondError(c, err, "Search failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LoadMore handles POST /api/v1/search/:id/more. The body is optional.
func (h *SearchHandler) LoadMore(c *gin.Context) {
	var req loadMoreRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.searchService.LoadMore(c.Request.Context(), c.Param("id"), req.Platforms)
	if err != nil {
		respondError(c, err, "Failed to load more results")
		return
	}
	c.JSON(http.StatusOK, resp)
}
