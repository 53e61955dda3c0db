package jobs

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/toolradar-lab/toolradar/internal/aggregation"
	httperr "github.com/toolradar-lab/toolradar/internal/core/errors"
	"github.com/toolradar-lab/toolradar/internal/retention"
)

// Handler exposes operator triggers for the background jobs. Triggers share
// the runner's single-flight locks, so a manual run can never overlap a
// scheduled one.
type Handler struct {
	runner  *Runner
	aggJob  *aggregation.Job
	sweeper *retention.Sweeper

	windowDays    int
	retentionDays int
}

// NewHandler wires the job trigger endpoints. windowDays and retentionDays
// are the configured defaults applied when a trigger body omits them.
func NewHandler(runner *Runner, aggJob *aggregation.Job, sweeper *retention.Sweeper, windowDays, retentionDays int) *Handler {
	if runner == nil || aggJob == nil || sweeper == nil {
		panic("jobs: handler dependencies must not be nil")
	}
	return &Handler{
		runner:        runner,
		aggJob:        aggJob,
		sweeper:       sweeper,
		windowDays:    windowDays,
		retentionDays: retentionDays,
	}
}

// RegisterRoutes registers the operator job routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/jobs/aggregation/run", h.RunAggregationHandler)
	r.POST("/v1/jobs/retention/run", h.RunRetentionHandler)
}

type runAggregationRequest struct {
	WindowDays int  `json:"window_days"`
	DryRun     bool `json:"dry_run"`
}

// RunAggregationHandler handles POST /v1/jobs/aggregation/run.
func (h *Handler) RunAggregationHandler(c *gin.Context) {
	req := runAggregationRequest{WindowDays: h.windowDays}
	if err := bindOptionalBody(c, &req); err != nil {
		return
	}
	if req.WindowDays <= 0 {
		writeValidation(c, "window_days must be a positive integer")
		return
	}

	release, err := h.runner.Acquire(JobAggregation)
	if err != nil {
		writeBusy(c, err)
		return
	}
	defer release()

	report, err := h.aggJob.Run(c.Request.Context(), aggregation.Params{
		WindowDays: req.WindowDays,
		DryRun:     req.DryRun,
	})
	if err != nil {
		slog.Error("Manual aggregation run failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Aggregation run failed",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

type runRetentionRequest struct {
	RetentionDays int  `json:"retention_days"`
	DryRun        bool `json:"dry_run"`
}

// RunRetentionHandler handles POST /v1/jobs/retention/run.
func (h *Handler) RunRetentionHandler(c *gin.Context) {
	req := runRetentionRequest{RetentionDays: h.retentionDays}
	if err := bindOptionalBody(c, &req); err != nil {
		return
	}
	if req.RetentionDays <= 0 {
		writeValidation(c, "retention_days must be a positive integer")
		return
	}

	release, err := h.runner.Acquire(JobRetention)
	if err != nil {
		writeBusy(c, err)
		return
	}
	defer release()

	report, err := h.sweeper.Sweep(c.Request.Context(), retention.Params{
		RetentionDays: req.RetentionDays,
		DryRun:        req.DryRun,
	})
	if err != nil {
		slog.Error("Manual retention sweep failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Retention sweep failed",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// bindOptionalBody binds a JSON body when one is present. An empty body
// keeps the pre-filled defaults. Writes the error response itself.
func bindOptionalBody(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
		})
		return err
	}
	return nil
}

func writeValidation(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: httperr.HttpValidationError,
		Message:   msg,
	})
}

func writeBusy(c *gin.Context, err error) {
	if errors.Is(err, ErrJobBusy) {
		c.JSON(http.StatusConflict, httperr.ErrorResponse{
			ErrorType: httperr.HttpJobBusyError,
			Message:   "A run is already in progress",
		})
		return
	}
	slog.Error("Job trigger failed", "error", err)
	c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
		ErrorType: httperr.HttpInternalError,
		Message:   "Job trigger failed",
	})
}
