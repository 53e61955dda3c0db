package ingestion

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/toolradar-lab/toolradar/internal/core/storage"
)

// Service handles event ingestion: validation, bot filtering, and the
// append into the event store. Stats are never touched here; they are
// eventually consistent via the aggregation job.
type Service struct {
	store            storage.EventStore
	catalog          storage.ToolCatalog
	windowDays       int
	maxBodySizeBytes int
	nowFn            func() time.Time
}

// NewService creates the ingestion service. windowDays scopes the
// operator summary's "recent events" counter.
func NewService(store storage.EventStore, catalog storage.ToolCatalog, windowDays, maxBodySizeMB int) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if catalog == nil {
		panic("ingestion: catalog must not be nil")
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            store,
		catalog:          catalog,
		windowDays:       windowDays,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		nowFn:            func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events/track", s.TrackHandler)
	r.GET("/v1/events/summary", s.SummaryHandler)
}
