package ads

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/config"
	httperr "github.com/toolradar-lab/toolradar/internal/core/errors"
	"github.com/toolradar-lab/toolradar/internal/core/storage"
)

// RegisterRoutes registers the ad rotation routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/ads", s.SelectHandler)
	r.GET("/v1/ads/stats", s.StatsHandler)
	r.POST("/v1/ads/:id/impression", s.ImpressionHandler)
	r.POST("/v1/ads/:id/click", s.ClickHandler)
}

// adResponse is the public shape of a served creative. Counters are not
// exposed on the serving path.
type adResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Markup    string    `json:"ad_code"`
	Placement string    `json:"placement"`
}

// SelectHandler handles GET /v1/ads. A slot with no eligible creative
// returns an empty object rather than an error: no-fill is a normal outcome
// the frontend renders around.
func (s *Service) SelectHandler(c *gin.Context) {
	placement := c.Query("placement")
	if !v1.ValidPlacement(placement) {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "unknown placement",
		})
		return
	}

	strategy := c.Query("strategy")
	if strategy != "" && strategy != config.StrategyPriority && strategy != config.StrategyWeightedRandom {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "unknown strategy",
		})
		return
	}

	ad, err := s.Select(c.Request.Context(), placement, strategy)
	if err != nil {
		s.writeSelectError(c, err)
		return
	}
	if ad == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	c.JSON(http.StatusOK, adResponse{
		ID:        ad.ID,
		Name:      ad.Name,
		Markup:    ad.Markup,
		Placement: ad.Placement,
	})
}

// StatsHandler handles GET /v1/ads/stats.
func (s *Service) StatsHandler(c *gin.Context) {
	placement := c.Query("placement")
	if placement != "" && !v1.ValidPlacement(placement) {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "unknown placement",
		})
		return
	}

	rows, err := s.Stats(c.Request.Context(), placement)
	if err != nil {
		slog.Error("Failed to build ad stats", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to build ad stats",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(rows), "ads": rows})
}

// ImpressionHandler handles POST /v1/ads/:id/impression.
func (s *Service) ImpressionHandler(c *gin.Context) {
	s.countHandler(c, s.RecordImpression)
}

// ClickHandler handles POST /v1/ads/:id/click.
func (s *Service) ClickHandler(c *gin.Context) {
	s.countHandler(c, s.RecordClick)
}

func (s *Service) countHandler(c *gin.Context, record func(ctx context.Context, id uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "invalid ad id",
		})
		return
	}

	if err := record(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrAdNotFound) {
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpAdNotFoundError,
				Message:   "Ad creative not found",
			})
			return
		}
		slog.Error("Failed to count ad event", "ad_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to record counter",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Service) writeSelectError(c *gin.Context, err error) {
	slog.Error("Ad selection failed", "error", err)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   "Ad selection failed",
	})
}
