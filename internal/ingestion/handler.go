package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/botfilter"
	httperr "github.com/toolradar-lab/toolradar/internal/core/errors"
	"github.com/toolradar-lab/toolradar/internal/core/storage"
	"github.com/toolradar-lab/toolradar/internal/metrics"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidJSON    = "Invalid JSON body"
	msgPersistFailed  = "Failed to persist event"
	msgToolNotFound   = "Tool not found"
	statusTracked     = "tracked"
	statusNotTracked  = "not_tracked"
)

// ingestionError carries the structured HTTP error shape from a helper back
// to the orchestrator. Helpers return this instead of writing to gin.Context
// directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// TrackHandler handles POST /v1/events/track.
//
// Bot traffic is a deliberate no-op: the caller gets a neutral
// "not tracked" response and nothing is written.
func (s *Service) TrackHandler(c *gin.Context) {
	req, err := s.parseTrackRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	userAgent := c.Request.UserAgent()
	if botfilter.IsBot(userAgent) {
		metrics.EventsDroppedBot.Inc()
		slog.Debug("Bot event dropped", "tool_id", req.ToolID, "user_agent", userAgent)
		c.JSON(http.StatusAccepted, gin.H{"status": statusNotTracked})
		return
	}

	if err := s.checkToolExists(c.Request.Context(), req.ToolID); err != nil {
		writeError(c, err)
		return
	}

	evt := &v1.Event{
		ToolID:          req.ToolID,
		Kind:            req.EventType,
		DurationSeconds: req.DurationSeconds,
		ShareChannel:    req.SharePlatform,
		IP:              c.ClientIP(),
		UserAgent:       userAgent,
	}

	if err := s.persistEvent(c.Request.Context(), evt); err != nil {
		writeError(c, err)
		return
	}

	metrics.EventsIngested.WithLabelValues(evt.Kind).Inc()
	slog.Info("Tracked event",
		"tool_id", evt.ToolID,
		"kind", evt.Kind,
		"seq", evt.Seq)

	// Event persisted; the aggregation job picks it up on the next cycle.
	c.JSON(http.StatusCreated, gin.H{"status": statusTracked})
}

// SummaryHandler handles GET /v1/events/summary, the operator-facing view of
// the event table.
func (s *Service) SummaryHandler(c *gin.Context) {
	windowStart := s.nowFn().AddDate(0, 0, -s.windowDays)

	summary, err := s.store.Summary(c.Request.Context(), windowStart)
	if err != nil {
		slog.Error("Failed to build event summary", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to build event summary",
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// parseTrackRequest reads the raw request body and binds it into a
// TrackRequest, enforcing the body size cap.
func (s *Service) parseTrackRequest(c *gin.Context) (*v1.TrackRequest, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var req v1.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	if err := req.Validate(); err != nil {
		slog.Warn("Event validation failed", "error", err, "tool_id", req.ToolID)
		return nil, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		}
	}

	return &req, nil
}

// checkToolExists confirms the tracked tool is present in the catalog.
func (s *Service) checkToolExists(ctx context.Context, toolID int64) *ingestionError {
	if _, err := s.catalog.GetTool(ctx, toolID); err != nil {
		if errors.Is(err, storage.ErrToolNotFound) {
			return &ingestionError{
				statusCode: http.StatusNotFound,
				errorType:  httperr.HttpToolNotFoundError,
				message:    msgToolNotFound,
			}
		}

		slog.Error("Failed to look up tool", "error", err, "tool_id", toolID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}
	return nil
}

// persistEvent appends the event to the backing store.
func (s *Service) persistEvent(ctx context.Context, evt *v1.Event) *ingestionError {
	if err := s.store.SaveEvent(ctx, evt); err != nil {
		slog.Error("Failed to persist event", "error", err, "tool_id", evt.ToolID)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}
	return nil
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
