package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/core/storage"
)

// AdsAdapter implements storage.AdStore on the shared connection pool.
// Counter increments are single UPDATE statements, so concurrent requests for
// the same creative never lose counts.
type AdsAdapter struct {
	db                 *sql.DB
	stmtIncImpressions *sql.Stmt
	stmtIncClicks      *sql.Stmt
}

// NewAdsAdapter creates an ads adapter over an existing connection pool,
// preparing the per-request increment statements.
func NewAdsAdapter(db *sql.DB) (*AdsAdapter, error) {
	stmtImp, err := db.Prepare(queryIncrementImpressions)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare impression increment: %w", err)
	}
	stmtClk, err := db.Prepare(queryIncrementClicks)
	if err != nil {
		stmtImp.Close()
		return nil, fmt.Errorf("failed to prepare click increment: %w", err)
	}
	return &AdsAdapter{
		db:                 db,
		stmtIncImpressions: stmtImp,
		stmtIncClicks:      stmtClk,
	}, nil
}

// Get fetches one creative by id.
func (a *AdsAdapter) Get(ctx context.Context, id uuid.UUID) (*v1.AdCreative, error) {
	ad, err := scanAdRow(a.db.QueryRowContext(ctx, queryGetAd, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrAdNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ad %s: %w", id, err)
	}
	return ad, nil
}

// ListEligible returns creatives selectable for the placement right now,
// ordered priority asc, weight desc, newest first.
func (a *AdsAdapter) ListEligible(ctx context.Context, placement string, now time.Time) ([]*v1.AdCreative, error) {
	rows, err := a.db.QueryContext(ctx, queryListEligibleAds, placement, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible ads: %w", err)
	}
	defer rows.Close()

	return collectAdRows(rows)
}

// ListByPlacement returns all creatives for a placement regardless of
// eligibility. Empty placement means all placements.
func (a *AdsAdapter) ListByPlacement(ctx context.Context, placement string) ([]*v1.AdCreative, error) {
	rows, err := a.db.QueryContext(ctx, queryListAdsByPlacement, placement)
	if err != nil {
		return nil, fmt.Errorf("failed to query ads: %w", err)
	}
	defer rows.Close()

	return collectAdRows(rows)
}

// IncrementImpressions atomically bumps the impression counter.
func (a *AdsAdapter) IncrementImpressions(ctx context.Context, id uuid.UUID) error {
	return a.increment(ctx, a.stmtIncImpressions, id, "impressions")
}

// IncrementClicks atomically bumps the click counter.
func (a *AdsAdapter) IncrementClicks(ctx context.Context, id uuid.UUID) error {
	return a.increment(ctx, a.stmtIncClicks, id, "clicks")
}

func (a *AdsAdapter) increment(ctx context.Context, stmt *sql.Stmt, id uuid.UUID, counter string) error {
	res, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to increment %s for ad %s: %w", counter, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read %s increment result: %w", counter, err)
	}
	if affected == 0 {
		return storage.ErrAdNotFound
	}
	return nil
}

// Close closes the prepared statements. The shared pool is owned by the
// event adapter and closed there.
func (a *AdsAdapter) Close() error {
	var firstErr error
	if err := a.stmtIncImpressions.Close(); err != nil {
		firstErr = err
	}
	if err := a.stmtIncClicks.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func collectAdRows(rows *sql.Rows) ([]*v1.AdCreative, error) {
	var ads []*v1.AdCreative
	for rows.Next() {
		ad, err := scanAdRow(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ads: %w", err)
	}
	return ads, nil
}
