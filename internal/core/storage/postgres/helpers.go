package postgres

import (
	"database/sql"
	"fmt"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/core/storage"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// nullableInt converts an optional rank into its SQL representation.
func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtrFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// scanStatsRow scans one tool_stats row. Compatible with both sql.Row and
// sql.Rows.
func scanStatsRow(row scanner) (*v1.ToolStats, error) {
	var stats v1.ToolStats
	var currentRank, prevRank sql.NullInt64

	err := row.Scan(
		&stats.ToolID,
		&stats.WeekViews,
		&stats.WeekClicks,
		&stats.WeekShares,
		&stats.WeekAvgDuration,
		&stats.WeekScore,
		&currentRank,
		&prevRank,
		&stats.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stats row: %w", err)
	}

	stats.CurrentRank = intPtrFromNull(currentRank)
	stats.PrevRank = intPtrFromNull(prevRank)
	return &stats, nil
}

// scanRankedRow scans one stats row joined with its catalog tool.
func scanRankedRow(row scanner) (storage.RankedRow, error) {
	var r storage.RankedRow
	var currentRank, prevRank sql.NullInt64

	err := row.Scan(
		&r.Stats.ToolID,
		&r.Stats.WeekViews,
		&r.Stats.WeekClicks,
		&r.Stats.WeekShares,
		&r.Stats.WeekAvgDuration,
		&r.Stats.WeekScore,
		&currentRank,
		&prevRank,
		&r.Stats.UpdatedAt,
		&r.Tool.ID,
		&r.Tool.Slug,
		&r.Tool.Name,
		&r.Tool.Platform,
		&r.Tool.ToolType,
		&r.Tool.CreatedAt,
	)
	if err != nil {
		return storage.RankedRow{}, fmt.Errorf("failed to scan ranked row: %w", err)
	}

	r.Stats.CurrentRank = intPtrFromNull(currentRank)
	r.Stats.PrevRank = intPtrFromNull(prevRank)
	return r, nil
}

// scanAdRow scans one ad_creatives row. sql.ErrNoRows passes through
// unwrapped so callers can map it to storage.ErrAdNotFound.
func scanAdRow(row scanner) (*v1.AdCreative, error) {
	var ad v1.AdCreative
	var startsAt, endsAt sql.NullTime

	err := row.Scan(
		&ad.ID,
		&ad.Name,
		&ad.Markup,
		&ad.Placement,
		&ad.Priority,
		&ad.Weight,
		&startsAt,
		&endsAt,
		&ad.Impressions,
		&ad.Clicks,
		&ad.Active,
		&ad.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ad row: %w", err)
	}

	if startsAt.Valid {
		ad.StartsAt = &startsAt.Time
	}
	if endsAt.Valid {
		ad.EndsAt = &endsAt.Time
	}
	return &ad, nil
}

// scanToolRow scans one catalog tool row. sql.ErrNoRows passes through
// unwrapped so callers can map it to storage.ErrToolNotFound.
func scanToolRow(row scanner) (*v1.Tool, error) {
	var tool v1.Tool
	err := row.Scan(
		&tool.ID,
		&tool.Slug,
		&tool.Name,
		&tool.Platform,
		&tool.ToolType,
		&tool.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tool row: %w", err)
	}
	return &tool, nil
}
