package rankings

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httperr "github.com/toolradar-lab/toolradar/internal/core/errors"
)

// RegisterRoutes registers the ranking read routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/rankings", s.ListHandler)
}

// ListHandler handles GET /v1/rankings.
func (s *Service) ListHandler(c *gin.Context) {
	q := Query{
		Platform: c.Query("platform"),
		ToolType: c.Query("tool_type"),
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpValidationError,
				Message:   "limit must be a positive integer",
			})
			return
		}
		q.Limit = limit
	}

	resp, err := s.List(c.Request.Context(), q)
	if err != nil {
		slog.Error("Failed to list rankings", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to list rankings",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
