package ranking

import (
	"sort"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
)

// Entry pairs one tool's stats with the secondary sort key used to break
// score ties. Name ordering makes equal-score runs reproducible.
type Entry struct {
	Stats    *v1.ToolStats
	ToolName string
}

// Assign sorts entries by descending score (ties broken by tool name
// ascending) and assigns dense ranks 1..N in place. Before a rank is
// overwritten it is copied into PrevRank, which is the only mechanism by
// which rank history survives across cycles.
//
// Every entry ranks: zero-activity tools score 0.0 and still participate.
func Assign(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Stats.WeekScore != entries[j].Stats.WeekScore {
			return entries[i].Stats.WeekScore > entries[j].Stats.WeekScore
		}
		return entries[i].ToolName < entries[j].ToolName
	})

	for i, e := range entries {
		if e.Stats.CurrentRank != nil {
			prev := *e.Stats.CurrentRank
			e.Stats.PrevRank = &prev
		}
		rank := i + 1
		e.Stats.CurrentRank = &rank
	}
}
