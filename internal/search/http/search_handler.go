// Package http provides HTTP handlers for message search.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quietwire/dmcore/internal/httputil"
	"github.com/quietwire/dmcore/internal/search/http/dto"
	searchUseCase "github.com/quietwire/dmcore/internal/search/usecase"
)

// SearchHandler handles HTTP requests for message search.
type SearchHandler struct {
	searchUseCase searchUseCase.SearchUseCase
	logger        *slog.Logger
}

// NewSearchHandler creates a new search handler with required dependencies.
func NewSearchHandler(searchUseCase searchUseCase.SearchUseCase, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searchUseCase: searchUseCase,
		logger:        logger,
	}
}

// RegisterRoutes mounts the search endpoints.
func (h *SearchHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/search", h.SearchHandler)
	r.POST("/search/rebuild", h.RebuildHandler)
}

// SearchHandler answers a substring query over the caller's message history.
// GET /v1/search?q=...&conversation_id=...
// Requires an unlocked vault; the index is rebuilt on demand when stale.
func (h *SearchHandler) SearchHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	query := c.Query("q")

	var conversationID *uuid.UUID
	if idStr := c.Query("conversation_id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			httputil.HandleBadRequestGin(c, fmt.Errorf("invalid conversation_id parameter: must be a UUID"), h.logger)
			return
		}
		conversationID = &id
	}

	hits, err := h.searchUseCase.Search(c.Request.Context(), userID, query, conversationID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapHitsToResponse(hits))
}

// RebuildHandler re-indexes the caller's message history.
// POST /v1/search/rebuild
// Returns 200 OK once the index is fresh for the live unlock session.
func (h *SearchHandler) RebuildHandler(c *gin.Context) {
	userID, err := httputil.CurrentUserID(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if err := h.searchUseCase.Rebuild(c.Request.Context(), userID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.RebuildResponse{Status: "rebuilt"})
}
