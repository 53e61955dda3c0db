// Package rankings is the public read side of the weekly ranking: it serves
// the precomputed ranked list and never computes anything itself.
package rankings

import (
	"context"
	"fmt"
	"time"

	"github.com/toolradar-lab/toolradar/internal/core/storage"
)

const defaultLimit = 50

// Query narrows the ranked list.
type Query struct {
	Platform string
	ToolType string
	Limit    int
}

// Row is one tool's line in the public ranking response.
type Row struct {
	Rank       int    `json:"rank"`
	RankChange string `json:"rank_change"`

	ToolID   int64  `json:"tool_id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	ToolType string `json:"tool_type"`

	Score           float64 `json:"score"`
	WeekViews       int     `json:"week_views"`
	WeekClicks      int     `json:"week_clicks"`
	WeekShares      int     `json:"week_shares"`
	WeekAvgDuration float64 `json:"week_avg_duration"`
}

// Response is the full ranking payload. UpdatedAt is the newest snapshot
// timestamp in the list, nil when no cycle has run yet.
type Response struct {
	UpdatedAt *time.Time `json:"updated_at"`
	Count     int        `json:"count"`
	Rankings  []Row      `json:"rankings"`
}

// Service reads ranked snapshots.
type Service struct {
	stats storage.StatsStore
}

func NewService(stats storage.StatsStore) *Service {
	if stats == nil {
		panic("rankings: stats store must not be nil")
	}
	return &Service{stats: stats}
}

// List returns the ranked tools matching the query, ordered by rank.
func (s *Service) List(ctx context.Context, q Query) (*Response, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.stats.ListRanked(ctx, storage.RankedFilter{
		Platform: q.Platform,
		ToolType: q.ToolType,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list ranked: %w", err)
	}

	resp := &Response{Rankings: make([]Row, 0, len(rows))}
	for _, r := range rows {
		resp.Rankings = append(resp.Rankings, Row{
			Rank:            *r.Stats.CurrentRank,
			RankChange:      r.Stats.RankChange(),
			ToolID:          r.Tool.ID,
			Slug:            r.Tool.Slug,
			Name:            r.Tool.Name,
			Platform:        r.Tool.Platform,
			ToolType:        r.Tool.ToolType,
			Score:           r.Stats.WeekScore,
			WeekViews:       r.Stats.WeekViews,
			WeekClicks:      r.Stats.WeekClicks,
			WeekShares:      r.Stats.WeekShares,
			WeekAvgDuration: r.Stats.WeekAvgDuration,
		})

		if resp.UpdatedAt == nil || r.Stats.UpdatedAt.After(*resp.UpdatedAt) {
			at := r.Stats.UpdatedAt
			resp.UpdatedAt = &at
		}
	}
	resp.Count = len(resp.Rankings)
	return resp, nil
}
