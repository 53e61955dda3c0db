package v1

import (
	"time"

	"github.com/google/uuid"
)

// Ad placements are the fixed slot names the frontend can render into.
const (
	PlacementHomepageMiddle = "homepage-middle"
	PlacementHomepageBottom = "homepage-bottom"
	PlacementSidebarTop     = "sidebar-top"
	PlacementBlogMiddle     = "blog-middle"
	PlacementBlogBottom     = "blog-bottom"
)

var validPlacements = map[string]bool{
	PlacementHomepageMiddle: true,
	PlacementHomepageBottom: true,
	PlacementSidebarTop:     true,
	PlacementBlogMiddle:     true,
	PlacementBlogBottom:     true,
}

// ValidPlacement reports whether placement names a known ad slot.
func ValidPlacement(placement string) bool { return validPlacements[placement] }

// AdCreative is one editor-managed creative plus its live counters.
// Markup is an opaque blob; the core never parses it.
type AdCreative struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Markup    string    `json:"ad_code"`
	Placement string    `json:"placement"`

	// Priority orders creatives for the priority strategy; lower shows first.
	Priority int `json:"priority"`

	// Weight drives the weighted-random strategy. Zero weight keeps the
	// creative eligible but never drawn.
	Weight int `json:"weight"`

	StartsAt *time.Time `json:"start_date"`
	EndsAt   *time.Time `json:"end_date"`

	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`

	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Eligible reports whether the creative may be selected at the given instant:
// active, and inside its optional start/end window.
func (a *AdCreative) Eligible(now time.Time) bool {
	if !a.Active {
		return false
	}
	if a.StartsAt != nil && now.Before(*a.StartsAt) {
		return false
	}
	if a.EndsAt != nil && now.After(*a.EndsAt) {
		return false
	}
	return true
}

// CTR is the derived click-through rate in percent. Never stored: always
// recomputed from its two inputs.
func (a *AdCreative) CTR() float64 {
	if a.Impressions == 0 {
		return 0.0
	}
	return float64(a.Clicks) / float64(a.Impressions) * 100
}
