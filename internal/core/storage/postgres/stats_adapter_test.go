package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/core/storage"
)

func newMockStatsAdapter(t *testing.T) (*StatsAdapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewStatsAdapter(db), mock, db
}

func statsColumns() []string {
	return []string{
		"tool_id", "week_views", "week_clicks", "week_shares",
		"week_avg_duration", "week_score", "current_rank", "prev_rank", "updated_at",
	}
}

func rankedColumns() []string {
	return append(statsColumns(),
		"id", "slug", "name", "platform", "tool_type", "created_at")
}

func TestStatsAdapter_UpsertWindow(t *testing.T) {
	adapter, mock, db := newMockStatsAdapter(t)
	defer db.Close()

	updatedAt := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(queryUpsertWindow)).
		WithArgs(int64(1), 120, 30, 4, 85.5, 199.25, updatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.UpsertWindow(context.Background(), &v1.ToolStats{
		ToolID:          1,
		WeekViews:       120,
		WeekClicks:      30,
		WeekShares:      4,
		WeekAvgDuration: 85.5,
		WeekScore:       199.25,
		UpdatedAt:       updatedAt,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsAdapter_ListAll_NullRanks(t *testing.T) {
	adapter, mock, db := newMockStatsAdapter(t)
	defer db.Close()

	updatedAt := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryListAllStats)).
		WillReturnRows(sqlmock.NewRows(statsColumns()).
			AddRow(int64(1), 10, 5, 2, 40.0, 38.0, int64(1), int64(2), updatedAt).
			AddRow(int64(2), 0, 0, 0, 0.0, 0.0, nil, nil, updatedAt))

	all, err := adapter.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NotNil(t, all[0].CurrentRank)
	require.Equal(t, 1, *all[0].CurrentRank)
	require.Equal(t, 2, *all[0].PrevRank)

	require.Nil(t, all[1].CurrentRank, "unranked rows scan to nil")
	require.Nil(t, all[1].PrevRank)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsAdapter_SaveRanks_Transactional(t *testing.T) {
	adapter, mock, db := newMockStatsAdapter(t)
	defer db.Close()

	updatedAt := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)
	one, two := 1, 2

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta(querySaveRanks))
	mock.ExpectExec(regexp.QuoteMeta(querySaveRanks)).
		WithArgs(int64(1), sql.NullInt64{Int64: 1, Valid: true}, sql.NullInt64{Int64: 2, Valid: true}, updatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(querySaveRanks)).
		WithArgs(int64(2), sql.NullInt64{Int64: 2, Valid: true}, sql.NullInt64{}, updatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := adapter.SaveRanks(context.Background(), []*v1.ToolStats{
		{ToolID: 1, CurrentRank: &one, PrevRank: &two, UpdatedAt: updatedAt},
		{ToolID: 2, CurrentRank: &two, UpdatedAt: updatedAt},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsAdapter_SaveRanks_RollsBackOnFailure(t *testing.T) {
	adapter, mock, db := newMockStatsAdapter(t)
	defer db.Close()

	updatedAt := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)
	one := 1

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta(querySaveRanks))
	mock.ExpectExec(regexp.QuoteMeta(querySaveRanks)).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := adapter.SaveRanks(context.Background(), []*v1.ToolStats{
		{ToolID: 1, CurrentRank: &one, UpdatedAt: updatedAt},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsAdapter_ListRanked_Filters(t *testing.T) {
	adapter, mock, db := newMockStatsAdapter(t)
	defer db.Close()

	updatedAt := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)
	createdAt := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	expected := queryListRankedBase +
		" AND t.platform = $1 AND t.tool_type = $2 ORDER BY s.current_rank ASC LIMIT $3"

	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs(v1.PlatformMT4, "ea", 10).
		WillReturnRows(sqlmock.NewRows(rankedColumns()).
			AddRow(int64(1), 10, 5, 2, 40.0, 38.0, int64(1), nil, updatedAt,
				int64(1), "grid-master", "Grid Master", v1.PlatformMT4, "ea", createdAt))

	ranked, err := adapter.ListRanked(context.Background(), storage.RankedFilter{
		Platform: v1.PlatformMT4,
		ToolType: "ea",
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	require.Equal(t, "grid-master", ranked[0].Tool.Slug)
	require.Equal(t, 1, *ranked[0].Stats.CurrentRank)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsAdapter_ListRanked_NoFilters(t *testing.T) {
	adapter, mock, db := newMockStatsAdapter(t)
	defer db.Close()

	expected := queryListRankedBase + " ORDER BY s.current_rank ASC"
	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WillReturnRows(sqlmock.NewRows(rankedColumns()))

	ranked, err := adapter.ListRanked(context.Background(), storage.RankedFilter{})
	require.NoError(t, err)
	require.Empty(t, ranked)
	require.NoError(t, mock.ExpectationsWereMet())
}
