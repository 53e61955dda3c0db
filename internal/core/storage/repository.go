package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
)

// ErrToolNotFound is returned when a tool id does not exist in the catalog.
var ErrToolNotFound = errors.New("tool not found")

// ErrAdNotFound is returned when an ad creative id does not exist.
var ErrAdNotFound = errors.New("ad creative not found")

// WindowCounts is one tool's aggregated event counters over a time window.
// AvgDuration is computed only over duration events at or above the counted
// floor; 0.0 when no qualifying events exist.
type WindowCounts struct {
	ToolID      int64
	Views       int
	Clicks      int
	Shares      int
	AvgDuration float64
}

// EventSummary is the operator-facing snapshot of the event table.
type EventSummary struct {
	TotalEvents    int64            `json:"total_events"`
	WindowEvents   int64            `json:"window_events"`
	ByKind         map[string]int64 `json:"by_kind"`
	TableSizeBytes int64            `json:"table_size_bytes"`
}

// RetentionBreakdown describes what a sweep would (or did) remove.
type RetentionBreakdown struct {
	Total  int64
	ByKind map[string]int64
}

// EventStore defines the append-only event log plus the window reads the
// aggregation job and retention sweeper need.
type EventStore interface {
	// SaveEvent appends one immutable event. The database assigns Seq and
	// OccurredAt; both are populated on the passed event.
	SaveEvent(ctx context.Context, event *v1.Event) error

	// WindowCounts returns per-tool counters for events with
	// occurred_at in [start, end]. Tools without events in the window are
	// absent from the result.
	WindowCounts(ctx context.Context, start, end time.Time) ([]WindowCounts, error)

	// Summary reports table totals for the operator dashboard. windowStart
	// bounds the WindowEvents counter.
	Summary(ctx context.Context, windowStart time.Time) (EventSummary, error)

	// BreakdownOlderThan reports how many events precede cutoff, per kind.
	BreakdownOlderThan(ctx context.Context, cutoff time.Time) (RetentionBreakdown, error)

	// DeleteOlderThan removes all events with occurred_at before cutoff and
	// returns the number deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// OldestRemaining returns the oldest surviving event timestamp.
	// ok is false when the table is empty.
	OldestRemaining(ctx context.Context) (oldest time.Time, ok bool, err error)

	// TableSizeBytes reports the approximate on-disk size of the event table.
	// Best effort: stores without the facility return 0, nil.
	TableSizeBytes(ctx context.Context) (int64, error)
}

// RankedFilter narrows the ranking read path.
type RankedFilter struct {
	Platform string
	ToolType string
	Limit    int
}

// RankedRow joins one ranked stats row with its catalog tool for display.
type RankedRow struct {
	Stats v1.ToolStats
	Tool  v1.Tool
}

// StatsStore persists the per-tool rolling snapshots and their ranks.
type StatsStore interface {
	// UpsertWindow get-or-creates the tool's stats row and writes the four
	// window counters plus the cached score. Rank columns are untouched.
	UpsertWindow(ctx context.Context, stats *v1.ToolStats) error

	// ListAll returns every stats row, for the ranking phase.
	ListAll(ctx context.Context) ([]*v1.ToolStats, error)

	// SaveRanks writes current_rank and prev_rank for each row.
	SaveRanks(ctx context.Context, stats []*v1.ToolStats) error

	// ListRanked returns ranked rows joined with tool attributes, ordered by
	// current_rank ascending. Unranked tools are excluded.
	ListRanked(ctx context.Context, filter RankedFilter) ([]RankedRow, error)
}

// AdStore persists ad creatives and their live counters. Counter increments
// are atomic at the store level: concurrent requests for the same creative
// must not lose updates.
type AdStore interface {
	Get(ctx context.Context, id uuid.UUID) (*v1.AdCreative, error)

	// ListEligible returns every creative for the placement that is active
	// and inside its start/end window at the given instant.
	ListEligible(ctx context.Context, placement string, now time.Time) ([]*v1.AdCreative, error)

	// ListByPlacement returns all creatives for a placement regardless of
	// eligibility; empty placement means all placements.
	ListByPlacement(ctx context.Context, placement string) ([]*v1.AdCreative, error)

	IncrementImpressions(ctx context.Context, id uuid.UUID) error
	IncrementClicks(ctx context.Context, id uuid.UUID) error
}

// ToolCatalog is the collaborator interface to the CMS/catalog side: an
// opaque id→display-attributes lookup. The core needs nothing else from it.
type ToolCatalog interface {
	GetTool(ctx context.Context, id int64) (*v1.Tool, error)
	ListTools(ctx context.Context) ([]*v1.Tool, error)
}
