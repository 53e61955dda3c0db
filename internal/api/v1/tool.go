package v1

import "time"

// Tool platforms known to the catalog.
const (
	PlatformMT4         = "mt4"
	PlatformMT5         = "mt5"
	PlatformTradingView = "tradingview"
)

// Tool is the catalog collaborator's view of a tracked item. The analytics
// core only reads these display attributes; catalog CRUD lives elsewhere.
type Tool struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Platform  string    `json:"platform"`
	ToolType  string    `json:"tool_type"`
	CreatedAt time.Time `json:"created_at"`
}
