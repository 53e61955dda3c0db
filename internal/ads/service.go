// Package ads serves the ad-rotation surface: strategy-based selection over
// eligible creatives plus the impression/click counter endpoints.
package ads

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/config"
	"github.com/toolradar-lab/toolradar/internal/core/storage"
	"github.com/toolradar-lab/toolradar/internal/metrics"
)

// Service selects creatives and maintains their live counters.
type Service struct {
	store           storage.AdStore
	defaultStrategy string
	nowFn           func() time.Time

	// rng feeds the weighted strategy. Guarded because gin handlers run
	// concurrently and rand.Rand is not goroutine-safe.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService wires the ad service. defaultStrategy applies when a request
// names none.
func NewService(store storage.AdStore, defaultStrategy string) *Service {
	if store == nil {
		panic("ads: store must not be nil")
	}
	if defaultStrategy == "" {
		defaultStrategy = config.StrategyWeightedRandom
	}
	return &Service{
		store:           store,
		defaultStrategy: defaultStrategy,
		nowFn:           func() time.Time { return time.Now().UTC() },
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Select picks one eligible creative for the placement and records the
// impression. Returns nil with no error when no creative fills the slot.
func (s *Service) Select(ctx context.Context, placement, strategy string) (*v1.AdCreative, error) {
	if strategy == "" {
		strategy = s.defaultStrategy
	}
	if strategy != config.StrategyPriority && strategy != config.StrategyWeightedRandom {
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}

	candidates, err := s.store.ListEligible(ctx, placement, s.nowFn())
	if err != nil {
		return nil, fmt.Errorf("list eligible creatives: %w", err)
	}

	var picked *v1.AdCreative
	switch strategy {
	case config.StrategyPriority:
		picked = pickPriority(candidates)
	case config.StrategyWeightedRandom:
		s.rngMu.Lock()
		picked = pickWeighted(candidates, s.rng)
		s.rngMu.Unlock()
	}

	if picked == nil {
		metrics.AdNoFill.WithLabelValues(placement).Inc()
		return nil, nil
	}

	// The impression is counted at selection time: a served creative is a
	// shown creative from the counter's point of view.
	if err := s.store.IncrementImpressions(ctx, picked.ID); err != nil {
		slog.Error("Failed to count impression", "ad_id", picked.ID, "error", err)
	} else {
		picked.Impressions++
	}

	metrics.AdSelections.WithLabelValues(placement, strategy).Inc()
	return picked, nil
}

// RecordImpression counts one externally reported impression.
func (s *Service) RecordImpression(ctx context.Context, id uuid.UUID) error {
	return s.store.IncrementImpressions(ctx, id)
}

// RecordClick counts one click on a creative.
func (s *Service) RecordClick(ctx context.Context, id uuid.UUID) error {
	return s.store.IncrementClicks(ctx, id)
}

// StatsRow is one creative's performance line in the stats report.
type StatsRow struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Placement   string    `json:"placement"`
	Active      bool      `json:"is_active"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	CTR         float64   `json:"ctr"`
}

// Stats reports counters and derived CTR for every creative, optionally
// narrowed to one placement. Inactive creatives are included so historical
// performance stays visible.
func (s *Service) Stats(ctx context.Context, placement string) ([]StatsRow, error) {
	ads, err := s.store.ListByPlacement(ctx, placement)
	if err != nil {
		return nil, fmt.Errorf("list creatives: %w", err)
	}

	rows := make([]StatsRow, 0, len(ads))
	for _, ad := range ads {
		rows = append(rows, StatsRow{
			ID:          ad.ID,
			Name:        ad.Name,
			Placement:   ad.Placement,
			Active:      ad.Active,
			Impressions: ad.Impressions,
			Clicks:      ad.Clicks,
			CTR:         ad.CTR(),
		})
	}
	return rows, nil
}
