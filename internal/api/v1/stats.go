package v1

import (
	"strconv"
	"time"
)

// RankChangeNew marks a tool that had no rank in the previous cycle.
const RankChangeNew = "NEW"

// ToolStats is the rolling weekly snapshot kept per catalog tool.
// The four counters and the average are recomputed from scratch by every
// aggregation cycle; the score is a cache of the scoring formula over them.
type ToolStats struct {
	ToolID int64 `json:"tool_id"`

	WeekViews       int     `json:"week_views"`
	WeekClicks      int     `json:"week_clicks"`
	WeekShares      int     `json:"week_shares"`
	WeekAvgDuration float64 `json:"week_avg_duration"`

	WeekScore float64 `json:"week_score"`

	// CurrentRank is nil until the tool has been through a ranking cycle.
	CurrentRank *int `json:"current_rank"`

	// PrevRank holds the rank from the previous cycle, captured immediately
	// before CurrentRank is overwritten. This is the only rank history kept.
	PrevRank *int `json:"prev_rank"`

	UpdatedAt time.Time `json:"updated_at"`
}

// RankChange renders the cycle-over-cycle movement for display:
// "NEW" for first-time entries, "→" for no movement, "↑n"/"↓n" otherwise.
func (s *ToolStats) RankChange() string {
	if s.PrevRank == nil {
		return RankChangeNew
	}
	if s.CurrentRank == nil {
		return "---"
	}

	delta := *s.PrevRank - *s.CurrentRank
	switch {
	case delta > 0:
		return "↑" + strconv.Itoa(delta)
	case delta < 0:
		return "↓" + strconv.Itoa(-delta)
	default:
		return "→"
	}
}

// RankDelta returns the signed movement (positive = moved up) and whether a
// previous rank exists to compare against.
func (s *ToolStats) RankDelta() (int, bool) {
	if s.PrevRank == nil || s.CurrentRank == nil {
		return 0, false
	}
	return *s.PrevRank - *s.CurrentRank, true
}
