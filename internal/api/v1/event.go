package v1

import (
	"fmt"
	"time"
)

// Event kinds. Each recorded interaction against a tool is exactly one of these.
const (
	KindView     = "view"
	KindDuration = "duration"
	KindShare    = "share"
	KindClick    = "click"
)

// Share channels accepted for KindShare events.
const (
	ShareTwitter  = "twitter"
	ShareFacebook = "facebook"
	ShareLine     = "line"
	ShareCopy     = "copy"
)

// MinCountedDurationSeconds is the dwell-time floor. Duration events below it
// are stored but excluded from the weekly average.
const MinCountedDurationSeconds = 10

// Event is one immutable recorded interaction against a tool.
// Events are append-only: written once at ingestion, read by the aggregation
// job, and removed only by the retention sweeper.
type Event struct {
	// Seq is a monotonic sequence number assigned by the database (BIGSERIAL).
	// Not exposed in the public API.
	Seq int64 `json:"-"`

	// ToolID references the catalog tool this interaction belongs to.
	ToolID int64 `json:"tool_id"`

	// Kind is one of view, duration, share, click.
	Kind string `json:"event_type"`

	// DurationSeconds carries the dwell time for KindDuration events.
	// Zero for every other kind.
	DurationSeconds int `json:"duration_seconds,omitempty"`

	// ShareChannel carries the share destination for KindShare events.
	ShareChannel string `json:"share_platform,omitempty"`

	// IP and UserAgent are captured from the transport layer for bot analysis.
	IP        string `json:"-"`
	UserAgent string `json:"-"`

	// OccurredAt is assigned server-side at write time.
	OccurredAt time.Time `json:"occurred_at"`
}

// TrackRequest is the public body shape of POST /v1/events/track.
type TrackRequest struct {
	ToolID          int64  `json:"tool_id"`
	EventType       string `json:"event_type"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	SharePlatform   string `json:"share_platform,omitempty"`
}

var validKinds = map[string]bool{
	KindView:     true,
	KindDuration: true,
	KindShare:    true,
	KindClick:    true,
}

var validShareChannels = map[string]bool{
	ShareTwitter:  true,
	ShareFacebook: true,
	ShareLine:     true,
	ShareCopy:     true,
}

// ValidKind reports whether kind is a known event kind.
func ValidKind(kind string) bool { return validKinds[kind] }

// ValidShareChannel reports whether channel is a known share destination.
func ValidShareChannel(channel string) bool { return validShareChannels[channel] }

// Validate ensures the request carries every field its event kind requires.
func (r *TrackRequest) Validate() error {
	if r.ToolID <= 0 {
		return fmt.Errorf("tool_id is required")
	}

	if !ValidKind(r.EventType) {
		return fmt.Errorf("unknown event_type %q", r.EventType)
	}

	if r.EventType == KindDuration && r.DurationSeconds <= 0 {
		return fmt.Errorf("duration_seconds must be a positive integer for duration events")
	}

	if r.EventType == KindShare && !ValidShareChannel(r.SharePlatform) {
		return fmt.Errorf("unknown share_platform %q", r.SharePlatform)
	}

	return nil
}
