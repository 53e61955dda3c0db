// Package aggregation implements the weekly stats rebuild: it reads the
// event window, recomputes per-tool counters and scores from scratch, and
// then reranks the whole catalog in one pass.
package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/core/ranking"
	"github.com/toolradar-lab/toolradar/internal/core/scoring"
	"github.com/toolradar-lab/toolradar/internal/core/storage"
	"github.com/toolradar-lab/toolradar/internal/metrics"
)

const (
	defaultWindowDays  = 7
	defaultWorkerCount = 8
)

// Params controls one aggregation run. Zero values fall back to defaults,
// so Params{} is a valid "run with configured behavior" request.
type Params struct {
	// WindowDays is the lookback window; 7 when unset.
	WindowDays int

	// DryRun computes everything but writes nothing.
	DryRun bool
}

// Report summarizes one completed run.
type Report struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	ToolsProcessed int `json:"tools_processed"`
	ToolsFailed    int `json:"tools_failed"`
	Ranked         int `json:"ranked"`

	DryRun  bool          `json:"dry_run"`
	Elapsed time.Duration `json:"elapsed_ms"`
}

// Job is the scheduled aggregation unit. Run is safe to invoke repeatedly:
// every run recomputes the window from the event log, so a rerun over an
// unchanged log is a no-op beyond refreshed timestamps.
type Job struct {
	events  storage.EventStore
	stats   storage.StatsStore
	catalog storage.ToolCatalog
	weights scoring.Weights
	workers int
	nowFn   func() time.Time
}

// NewJob wires an aggregation job over its three stores.
func NewJob(events storage.EventStore, stats storage.StatsStore, catalog storage.ToolCatalog, weights scoring.Weights, workerCount int) *Job {
	if events == nil || stats == nil || catalog == nil {
		panic("aggregation: stores must not be nil")
	}
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	return &Job{
		events:  events,
		stats:   stats,
		catalog: catalog,
		weights: weights,
		workers: workerCount,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one full aggregation cycle: window counts, per-tool upserts,
// then ranking. A tool that fails to upsert is logged and counted but never
// aborts the run; the ranking phase starts only after every upsert settled.
func (j *Job) Run(ctx context.Context, p Params) (Report, error) {
	started := j.nowFn()

	windowDays := p.WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	end := started
	start := end.AddDate(0, 0, -windowDays)

	report := Report{WindowStart: start, WindowEnd: end, DryRun: p.DryRun}

	slog.Info("[Aggregation] Starting run",
		"window_start", start,
		"window_end", end,
		"workers", j.workers,
		"dry_run", p.DryRun,
	)

	tools, err := j.catalog.ListTools(ctx)
	if err != nil {
		metrics.AggregationRuns.WithLabelValues("error").Inc()
		return report, fmt.Errorf("list tools: %w", err)
	}

	counts, err := j.events.WindowCounts(ctx, start, end)
	if err != nil {
		metrics.AggregationRuns.WithLabelValues("error").Inc()
		return report, fmt.Errorf("window counts: %w", err)
	}

	countsByTool := make(map[int64]storage.WindowCounts, len(counts))
	for _, c := range counts {
		countsByTool[c.ToolID] = c
	}

	// Phase 1: per-tool counter upserts, bounded fan-out. Tools with no
	// events in the window still get a zeroed row so they rank at 0.0.
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.workers)

	for _, tool := range tools {
		tool := tool
		g.Go(func() error {
			c := countsByTool[tool.ID]

			row := &v1.ToolStats{
				ToolID:          tool.ID,
				WeekViews:       c.Views,
				WeekClicks:      c.Clicks,
				WeekShares:      c.Shares,
				WeekAvgDuration: c.AvgDuration,
				WeekScore:       j.weights.Score(c.Views, c.Clicks, c.Shares, c.AvgDuration),
				UpdatedAt:       end,
			}

			if p.DryRun {
				return nil
			}
			if err := j.stats.UpsertWindow(gctx, row); err != nil {
				failed.Add(1)
				slog.Error("[Aggregation] Tool upsert failed", "tool_id", tool.ID, "error", err)
			}
			return nil
		})
	}
	// Workers swallow per-tool errors, so Wait only reflects ctx cancellation.
	if err := g.Wait(); err != nil {
		metrics.AggregationRuns.WithLabelValues("error").Inc()
		return report, fmt.Errorf("upsert phase: %w", err)
	}

	report.ToolsProcessed = len(tools) - int(failed.Load())
	report.ToolsFailed = int(failed.Load())

	if p.DryRun {
		// Ranking is skipped on dry runs, so Ranked stays 0.
		report.Elapsed = j.nowFn().Sub(started)
		slog.Info("[Aggregation] Dry run complete", "tools", len(tools), "elapsed", report.Elapsed)
		metrics.AggregationRuns.WithLabelValues("ok").Inc()
		return report, nil
	}

	// Phase 2: rank over the persisted snapshot. Reading back what phase 1
	// wrote keeps ranks consistent with stored scores even when some
	// upserts failed this cycle.
	ranked, err := j.rank(ctx, tools, end)
	if err != nil {
		metrics.AggregationRuns.WithLabelValues("error").Inc()
		return report, err
	}
	report.Ranked = ranked

	report.Elapsed = j.nowFn().Sub(started)
	metrics.AggregationRuns.WithLabelValues("ok").Inc()

	slog.Info("[Aggregation] Run complete",
		"tools_processed", report.ToolsProcessed,
		"tools_failed", report.ToolsFailed,
		"ranked", report.Ranked,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

func (j *Job) rank(ctx context.Context, tools []*v1.Tool, at time.Time) (int, error) {
	all, err := j.stats.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stats: %w", err)
	}

	namesByID := make(map[int64]string, len(tools))
	for _, t := range tools {
		namesByID[t.ID] = t.Name
	}

	entries := make([]ranking.Entry, 0, len(all))
	for _, row := range all {
		entries = append(entries, ranking.Entry{
			Stats:    row,
			ToolName: namesByID[row.ToolID],
		})
	}

	ranking.Assign(entries)

	for _, e := range entries {
		e.Stats.UpdatedAt = at
	}
	if err := j.stats.SaveRanks(ctx, all); err != nil {
		return 0, fmt.Errorf("save ranks: %w", err)
	}
	return len(entries), nil
}
