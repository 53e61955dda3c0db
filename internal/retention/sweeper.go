// Package retention enforces the event-log retention policy. Only raw events
// are ever removed; aggregated stats and ranks are left untouched, so
// historical rankings survive their source events.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/toolradar-lab/toolradar/internal/core/storage"
	"github.com/toolradar-lab/toolradar/internal/metrics"
)

const defaultRetentionDays = 30

// Params controls one sweep. Zero values fall back to defaults.
type Params struct {
	// RetentionDays is how far back events are kept; 30 when unset.
	RetentionDays int

	// DryRun reports what would be deleted without deleting.
	DryRun bool
}

// Report is the outcome of one sweep, built from the pre-delete breakdown so
// operators see what was removed even after the rows are gone.
type Report struct {
	Cutoff time.Time `json:"cutoff"`

	Deleted int64            `json:"deleted"`
	ByKind  map[string]int64 `json:"by_kind"`

	OldestRemaining *time.Time `json:"oldest_remaining,omitempty"`
	TableSizeBytes  int64      `json:"table_size_bytes"`

	DryRun    bool `json:"dry_run"`
	AlertSent bool `json:"alert_sent"`
}

// Notifier receives the large-deletion alert. Delivery failures are logged
// and never fail the sweep.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// LogNotifier writes alerts to the structured log. It is the default sink
// when no external channel is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, subject, body string) error {
	slog.Warn("[Retention] "+subject, "detail", body)
	return nil
}

// Sweeper deletes events older than the retention horizon.
type Sweeper struct {
	events         storage.EventStore
	notifier       Notifier
	alertThreshold int64
	nowFn          func() time.Time
}

// NewSweeper wires a sweeper. alertThreshold is the deletion count above
// which the notifier fires; <=0 disables the alert.
func NewSweeper(events storage.EventStore, notifier Notifier, alertThreshold int64) *Sweeper {
	if events == nil {
		panic("retention: event store must not be nil")
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Sweeper{
		events:         events,
		notifier:       notifier,
		alertThreshold: alertThreshold,
		nowFn:          func() time.Time { return time.Now().UTC() },
	}
}

// Sweep runs one retention pass. The per-kind breakdown is captured before
// the delete, so the report stays accurate; a sweep over an already-clean
// table is a cheap no-op.
func (s *Sweeper) Sweep(ctx context.Context, p Params) (Report, error) {
	retentionDays := p.RetentionDays
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}

	cutoff := s.nowFn().AddDate(0, 0, -retentionDays)
	report := Report{Cutoff: cutoff, DryRun: p.DryRun, ByKind: map[string]int64{}}

	breakdown, err := s.events.BreakdownOlderThan(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("retention breakdown: %w", err)
	}
	report.ByKind = breakdown.ByKind

	if size, err := s.events.TableSizeBytes(ctx); err != nil {
		slog.Warn("[Retention] Table size unavailable", "error", err)
	} else {
		report.TableSizeBytes = size
	}

	if breakdown.Total == 0 {
		slog.Info("[Retention] Nothing to sweep", "cutoff", cutoff)
		return report, nil
	}

	if p.DryRun {
		report.Deleted = breakdown.Total
		s.lookupOldest(ctx, &report)
		slog.Info("[Retention] Dry run",
			"cutoff", cutoff,
			"would_delete", breakdown.Total,
		)
		return report, nil
	}

	deleted, err := s.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("delete events: %w", err)
	}
	report.Deleted = deleted
	metrics.EventsDeleted.Add(float64(deleted))

	s.lookupOldest(ctx, &report)

	slog.Info("[Retention] Sweep complete",
		"cutoff", cutoff,
		"deleted", deleted,
		"by_kind", breakdown.ByKind,
	)

	if s.alertThreshold > 0 && deleted > s.alertThreshold {
		subject := "Large retention deletion"
		body := fmt.Sprintf("deleted %d events older than %s (threshold %d)",
			deleted, cutoff.Format(time.RFC3339), s.alertThreshold)
		if err := s.notifier.Notify(ctx, subject, body); err != nil {
			slog.Error("[Retention] Alert delivery failed", "error", err)
		} else {
			report.AlertSent = true
		}
	}

	return report, nil
}

// lookupOldest fills in the oldest surviving event timestamp. On dry runs
// this is the pre-delete value. Best effort: a lookup failure is logged and
// leaves the field nil.
func (s *Sweeper) lookupOldest(ctx context.Context, report *Report) {
	if oldest, ok, err := s.events.OldestRemaining(ctx); err != nil {
		slog.Warn("[Retention] Oldest-remaining lookup failed", "error", err)
	} else if ok {
		report.OldestRemaining = &oldest
	}
}
