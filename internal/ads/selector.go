package ads

import (
	"math/rand"
	"sort"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
)

// pickPriority returns the single best candidate: lowest priority value
// first, ties broken by higher weight, then newest creative. Deterministic
// for a fixed candidate set.
func pickPriority(candidates []*v1.AdCreative) *v1.AdCreative {
	if len(candidates) == 0 {
		return nil
	}

	ordered := make([]*v1.AdCreative, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		if ordered[i].Weight != ordered[j].Weight {
			return ordered[i].Weight > ordered[j].Weight
		}
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})
	return ordered[0]
}

// pickWeighted draws one candidate with probability proportional to its
// weight. Zero-weight creatives stay eligible but are never drawn; when
// every candidate weighs zero there is nothing to draw from.
func pickWeighted(candidates []*v1.AdCreative, rng *rand.Rand) *v1.AdCreative {
	total := 0
	for _, c := range candidates {
		if c.Weight > 0 {
			total += c.Weight
		}
	}
	if total == 0 {
		return nil
	}

	n := rng.Intn(total)
	for _, c := range candidates {
		if c.Weight <= 0 {
			continue
		}
		n -= c.Weight
		if n < 0 {
			return c
		}
	}
	// Unreachable while total matches the positive weights above.
	return candidates[len(candidates)-1]
}
