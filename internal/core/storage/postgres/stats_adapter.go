package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/core/storage"
)

// StatsAdapter implements storage.StatsStore on the shared connection pool.
type StatsAdapter struct {
	db *sql.DB
}

// NewStatsAdapter creates a stats adapter over an existing connection pool.
func NewStatsAdapter(db *sql.DB) *StatsAdapter {
	return &StatsAdapter{db: db}
}

// UpsertWindow get-or-creates the stats row and writes counters plus score.
// Rank columns stay as they are; only SaveRanks touches them.
func (a *StatsAdapter) UpsertWindow(ctx context.Context, stats *v1.ToolStats) error {
	_, err := a.db.ExecContext(ctx, queryUpsertWindow,
		stats.ToolID,
		stats.WeekViews,
		stats.WeekClicks,
		stats.WeekShares,
		stats.WeekAvgDuration,
		stats.WeekScore,
		stats.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stats for tool %d: %w", stats.ToolID, err)
	}
	return nil
}

// ListAll returns every stats row.
func (a *StatsAdapter) ListAll(ctx context.Context) ([]*v1.ToolStats, error) {
	rows, err := a.db.QueryContext(ctx, queryListAllStats)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var all []*v1.ToolStats
	for rows.Next() {
		stats, err := scanStatsRow(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats: %w", err)
	}

	return all, nil
}

// SaveRanks writes the rank columns for each row inside one transaction, so a
// ranking cycle is either fully visible or not at all.
func (a *StatsAdapter) SaveRanks(ctx context.Context, stats []*v1.ToolStats) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rank transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, querySaveRanks)
	if err != nil {
		return fmt.Errorf("failed to prepare rank statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range stats {
		if _, err := stmt.ExecContext(ctx,
			s.ToolID,
			nullableInt(s.CurrentRank),
			nullableInt(s.PrevRank),
			s.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to save rank for tool %d: %w", s.ToolID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ranks: %w", err)
	}
	return nil
}

// ListRanked returns ranked rows joined with tool attributes, rank ascending.
func (a *StatsAdapter) ListRanked(ctx context.Context, filter storage.RankedFilter) ([]storage.RankedRow, error) {
	query := queryListRankedBase
	args := make([]interface{}, 0, 3)

	if filter.Platform != "" {
		args = append(args, filter.Platform)
		query += " AND t.platform = $" + strconv.Itoa(len(args))
	}
	if filter.ToolType != "" {
		args = append(args, filter.ToolType)
		query += " AND t.tool_type = $" + strconv.Itoa(len(args))
	}

	query += " ORDER BY s.current_rank ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked stats: %w", err)
	}
	defer rows.Close()

	var ranked []storage.RankedRow
	for rows.Next() {
		row, err := scanRankedRow(rows)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ranked stats: %w", err)
	}

	return ranked, nil
}
