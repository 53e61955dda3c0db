// Package storagetest provides in-memory storage.* implementations shared by
// package tests. Behavior mirrors the postgres adapters closely enough that
// the jobs and handlers can be exercised without a database.
package storagetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/core/storage"
)

// Clock is a controllable time source for deterministic tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// EventStore is an in-memory storage.EventStore.
type EventStore struct {
	mu      sync.Mutex
	events  []*v1.Event
	nextSeq int64
	clock   *Clock

	// SaveErr, when set, is returned by SaveEvent.
	SaveErr error
	// SizeBytes is reported by TableSizeBytes.
	SizeBytes int64
}

func NewEventStore(clock *Clock) *EventStore {
	return &EventStore{nextSeq: 1, clock: clock}
}

func (s *EventStore) SaveEvent(_ context.Context, event *v1.Event) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	event.Seq = s.nextSeq
	s.nextSeq++
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock.Now()
	}
	stored := *event
	s.events = append(s.events, &stored)
	return nil
}

// Seed inserts an event with an explicit timestamp, bypassing the clock.
func (s *EventStore) Seed(toolID int64, kind string, durationSeconds int, occurredAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, &v1.Event{
		Seq:             s.nextSeq,
		ToolID:          toolID,
		Kind:            kind,
		DurationSeconds: durationSeconds,
		OccurredAt:      occurredAt,
	})
	s.nextSeq++
}

func (s *EventStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *EventStore) WindowCounts(_ context.Context, start, end time.Time) ([]storage.WindowCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type acc struct {
		views, clicks, shares int
		durationSum           int
		durationN             int
	}
	byTool := make(map[int64]*acc)

	for _, e := range s.events {
		if e.OccurredAt.Before(start) || e.OccurredAt.After(end) {
			continue
		}
		a := byTool[e.ToolID]
		if a == nil {
			a = &acc{}
			byTool[e.ToolID] = a
		}
		switch e.Kind {
		case v1.KindView:
			a.views++
		case v1.KindClick:
			a.clicks++
		case v1.KindShare:
			a.shares++
		case v1.KindDuration:
			if e.DurationSeconds >= v1.MinCountedDurationSeconds {
				a.durationSum += e.DurationSeconds
				a.durationN++
			}
		}
	}

	counts := make([]storage.WindowCounts, 0, len(byTool))
	for toolID, a := range byTool {
		c := storage.WindowCounts{
			ToolID: toolID,
			Views:  a.views,
			Clicks: a.clicks,
			Shares: a.shares,
		}
		if a.durationN > 0 {
			c.AvgDuration = float64(a.durationSum) / float64(a.durationN)
		}
		counts = append(counts, c)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].ToolID < counts[j].ToolID })
	return counts, nil
}

func (s *EventStore) Summary(_ context.Context, windowStart time.Time) (storage.EventSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := storage.EventSummary{
		ByKind:         make(map[string]int64),
		TableSizeBytes: s.SizeBytes,
	}
	for _, e := range s.events {
		summary.TotalEvents++
		summary.ByKind[e.Kind]++
		if !e.OccurredAt.Before(windowStart) {
			summary.WindowEvents++
		}
	}
	return summary, nil
}

func (s *EventStore) BreakdownOlderThan(_ context.Context, cutoff time.Time) (storage.RetentionBreakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	breakdown := storage.RetentionBreakdown{ByKind: make(map[string]int64)}
	for _, e := range s.events {
		if e.OccurredAt.Before(cutoff) {
			breakdown.ByKind[e.Kind]++
			breakdown.Total++
		}
	}
	return breakdown, nil
}

func (s *EventStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, e := range s.events {
		if e.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return deleted, nil
}

func (s *EventStore) OldestRemaining(_ context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest time.Time
	for _, e := range s.events {
		if oldest.IsZero() || e.OccurredAt.Before(oldest) {
			oldest = e.OccurredAt
		}
	}
	return oldest, !oldest.IsZero(), nil
}

func (s *EventStore) TableSizeBytes(context.Context) (int64, error) {
	return s.SizeBytes, nil
}

// Catalog is an in-memory storage.ToolCatalog.
type Catalog struct {
	mu    sync.Mutex
	tools map[int64]*v1.Tool
}

func NewCatalog(tools ...*v1.Tool) *Catalog {
	c := &Catalog{tools: make(map[int64]*v1.Tool)}
	for _, t := range tools {
		c.tools[t.ID] = t
	}
	return c
}

func (c *Catalog) GetTool(_ context.Context, id int64) (*v1.Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tools[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, storage.ErrToolNotFound
}

func (c *Catalog) ListTools(context.Context) ([]*v1.Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tools := make([]*v1.Tool, 0, len(c.tools))
	for _, t := range c.tools {
		copied := *t
		tools = append(tools, &copied)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].ID < tools[j].ID })
	return tools, nil
}

// StatsStore is an in-memory storage.StatsStore joined against a Catalog for
// the ranked read path.
type StatsStore struct {
	mu      sync.Mutex
	rows    map[int64]*v1.ToolStats
	catalog *Catalog

	// UpsertErrFor fails UpsertWindow for specific tool ids, to exercise the
	// per-tool failure path.
	UpsertErrFor map[int64]error
}

func NewStatsStore(catalog *Catalog) *StatsStore {
	return &StatsStore{rows: make(map[int64]*v1.ToolStats), catalog: catalog}
}

func (s *StatsStore) UpsertWindow(_ context.Context, stats *v1.ToolStats) error {
	if err, ok := s.UpsertErrFor[stats.ToolID]; ok {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rows[stats.ToolID]
	if !ok {
		copied := *stats
		copied.CurrentRank = nil
		copied.PrevRank = nil
		s.rows[stats.ToolID] = &copied
		return nil
	}

	existing.WeekViews = stats.WeekViews
	existing.WeekClicks = stats.WeekClicks
	existing.WeekShares = stats.WeekShares
	existing.WeekAvgDuration = stats.WeekAvgDuration
	existing.WeekScore = stats.WeekScore
	existing.UpdatedAt = stats.UpdatedAt
	return nil
}

func (s *StatsStore) ListAll(context.Context) ([]*v1.ToolStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*v1.ToolStats, 0, len(s.rows))
	for _, row := range s.rows {
		copied := *row
		copied.CurrentRank = clonedIntPtr(row.CurrentRank)
		copied.PrevRank = clonedIntPtr(row.PrevRank)
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ToolID < all[j].ToolID })
	return all, nil
}

func (s *StatsStore) SaveRanks(_ context.Context, stats []*v1.ToolStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range stats {
		row, ok := s.rows[st.ToolID]
		if !ok {
			continue
		}
		row.CurrentRank = clonedIntPtr(st.CurrentRank)
		row.PrevRank = clonedIntPtr(st.PrevRank)
		row.UpdatedAt = st.UpdatedAt
	}
	return nil
}

func (s *StatsStore) ListRanked(ctx context.Context, filter storage.RankedFilter) ([]storage.RankedRow, error) {
	s.mu.Lock()
	rows := make([]*v1.ToolStats, 0, len(s.rows))
	for _, row := range s.rows {
		if row.CurrentRank == nil {
			continue
		}
		copied := *row
		copied.CurrentRank = clonedIntPtr(row.CurrentRank)
		copied.PrevRank = clonedIntPtr(row.PrevRank)
		rows = append(rows, &copied)
	}
	s.mu.Unlock()

	var ranked []storage.RankedRow
	for _, row := range rows {
		tool, err := s.catalog.GetTool(ctx, row.ToolID)
		if err != nil {
			continue
		}
		if filter.Platform != "" && tool.Platform != filter.Platform {
			continue
		}
		if filter.ToolType != "" && tool.ToolType != filter.ToolType {
			continue
		}
		ranked = append(ranked, storage.RankedRow{Stats: *row, Tool: *tool})
	}

	sort.Slice(ranked, func(i, j int) bool {
		return *ranked[i].Stats.CurrentRank < *ranked[j].Stats.CurrentRank
	})
	if filter.Limit > 0 && len(ranked) > filter.Limit {
		ranked = ranked[:filter.Limit]
	}
	return ranked, nil
}

// Stats returns the stored row for a tool, or nil.
func (s *StatsStore) Stats(toolID int64) *v1.ToolStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[toolID]
	if !ok {
		return nil
	}
	copied := *row
	copied.CurrentRank = clonedIntPtr(row.CurrentRank)
	copied.PrevRank = clonedIntPtr(row.PrevRank)
	return &copied
}

// AdStore is an in-memory storage.AdStore.
type AdStore struct {
	mu  sync.Mutex
	ads map[uuid.UUID]*v1.AdCreative
}

func NewAdStore(ads ...*v1.AdCreative) *AdStore {
	s := &AdStore{ads: make(map[uuid.UUID]*v1.AdCreative)}
	for _, ad := range ads {
		copied := *ad
		s.ads[ad.ID] = &copied
	}
	return s
}

func (s *AdStore) Get(_ context.Context, id uuid.UUID) (*v1.AdCreative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ad, ok := s.ads[id]
	if !ok {
		return nil, storage.ErrAdNotFound
	}
	copied := *ad
	return &copied, nil
}

func (s *AdStore) ListEligible(_ context.Context, placement string, now time.Time) ([]*v1.AdCreative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var eligible []*v1.AdCreative
	for _, ad := range s.ads {
		if ad.Placement != placement || !ad.Eligible(now) {
			continue
		}
		copied := *ad
		eligible = append(eligible, &copied)
	}
	sortAds(eligible)
	return eligible, nil
}

func (s *AdStore) ListByPlacement(_ context.Context, placement string) ([]*v1.AdCreative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ads []*v1.AdCreative
	for _, ad := range s.ads {
		if placement != "" && ad.Placement != placement {
			continue
		}
		copied := *ad
		ads = append(ads, &copied)
	}
	sortAds(ads)
	return ads, nil
}

func (s *AdStore) IncrementImpressions(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ad, ok := s.ads[id]
	if !ok {
		return storage.ErrAdNotFound
	}
	ad.Impressions++
	return nil
}

func (s *AdStore) IncrementClicks(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ad, ok := s.ads[id]
	if !ok {
		return storage.ErrAdNotFound
	}
	ad.Clicks++
	return nil
}

func sortAds(ads []*v1.AdCreative) {
	sort.Slice(ads, func(i, j int) bool {
		if ads[i].Priority != ads[j].Priority {
			return ads[i].Priority < ads[j].Priority
		}
		if ads[i].Weight != ads[j].Weight {
			return ads[i].Weight > ads[j].Weight
		}
		return ads[i].CreatedAt.After(ads[j].CreatedAt)
	})
}

func clonedIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
