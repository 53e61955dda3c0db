package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "github.com/toolradar-lab/toolradar/internal/api/v1"
	"github.com/toolradar-lab/toolradar/internal/core/storage/storagetest"
)

type recordingNotifier struct {
	calls int
	err   error
}

func (n *recordingNotifier) Notify(context.Context, string, string) error {
	n.calls++
	return n.err
}

func newSweepFixture(t *testing.T, threshold int64) (*Sweeper, *storagetest.EventStore, *recordingNotifier, *storagetest.Clock) {
	t.Helper()
	clock := storagetest.NewClock(time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC))
	store := storagetest.NewEventStore(clock)
	notifier := &recordingNotifier{}
	sweeper := NewSweeper(store, notifier, threshold)
	sweeper.nowFn = clock.Now
	return sweeper, store, notifier, clock
}

func TestSweep_DeletesOnlyExpiredEvents(t *testing.T) {
	sweeper, store, _, clock := newSweepFixture(t, 0)

	store.Seed(1, v1.KindView, 0, clock.Now().AddDate(0, 0, -40))
	store.Seed(1, v1.KindClick, 0, clock.Now().AddDate(0, 0, -31))
	store.Seed(1, v1.KindView, 0, clock.Now().AddDate(0, 0, -5))

	report, err := sweeper.Sweep(context.Background(), Params{})
	require.NoError(t, err)

	require.Equal(t, int64(2), report.Deleted)
	require.Equal(t, int64(1), report.ByKind[v1.KindView])
	require.Equal(t, int64(1), report.ByKind[v1.KindClick])
	require.Equal(t, 1, store.Count())

	require.NotNil(t, report.OldestRemaining)
	require.Equal(t, clock.Now().AddDate(0, 0, -5), *report.OldestRemaining)
}

func TestSweep_EmptyTableIsNoOp(t *testing.T) {
	sweeper, _, _, _ := newSweepFixture(t, 0)

	report, err := sweeper.Sweep(context.Background(), Params{})
	require.NoError(t, err)
	require.Zero(t, report.Deleted)
	require.Nil(t, report.OldestRemaining)
}

func TestSweep_IsIdempotent(t *testing.T) {
	sweeper, store, _, clock := newSweepFixture(t, 0)
	store.Seed(1, v1.KindView, 0, clock.Now().AddDate(0, 0, -45))

	first, err := sweeper.Sweep(context.Background(), Params{})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.Deleted)

	second, err := sweeper.Sweep(context.Background(), Params{})
	require.NoError(t, err)
	require.Zero(t, second.Deleted)
	require.Zero(t, store.Count())
}

func TestSweep_DryRunReportsWithoutDeleting(t *testing.T) {
	sweeper, store, _, clock := newSweepFixture(t, 0)
	oldest := clock.Now().AddDate(0, 0, -60)
	store.Seed(1, v1.KindView, 0, oldest)
	store.Seed(1, v1.KindShare, 0, clock.Now().AddDate(0, 0, -60))

	report, err := sweeper.Sweep(context.Background(), Params{DryRun: true})
	require.NoError(t, err)

	require.True(t, report.DryRun)
	require.Equal(t, int64(2), report.Deleted)
	require.Equal(t, 2, store.Count(), "dry run must not delete")
	require.NotNil(t, report.OldestRemaining)
	require.True(t, report.OldestRemaining.Equal(oldest), "dry run reports the pre-delete oldest event")
}

func TestSweep_CustomRetentionDays(t *testing.T) {
	sweeper, store, _, clock := newSweepFixture(t, 0)
	store.Seed(1, v1.KindView, 0, clock.Now().AddDate(0, 0, -10))

	report, err := sweeper.Sweep(context.Background(), Params{RetentionDays: 7})
	require.NoError(t, err)
	require.Equal(t, int64(1), report.Deleted)
	require.Zero(t, store.Count())
}

func TestSweep_LargeDeletionFiresAlert(t *testing.T) {
	sweeper, store, notifier, clock := newSweepFixture(t, 3)
	for i := 0; i < 5; i++ {
		store.Seed(1, v1.KindView, 0, clock.Now().AddDate(0, 0, -40))
	}

	report, err := sweeper.Sweep(context.Background(), Params{})
	require.NoError(t, err)
	require.True(t, report.AlertSent)
	require.Equal(t, 1, notifier.calls)
}

func TestSweep_AlertBelowThresholdNotSent(t *testing.T) {
	sweeper, store, notifier, clock := newSweepFixture(t, 10)
	store.Seed(1, v1.KindView, 0, clock.Now().AddDate(0, 0, -40))

	report, err := sweeper.Sweep(context.Background(), Params{})
	require.NoError(t, err)
	require.False(t, report.AlertSent)
	require.Zero(t, notifier.calls)
}

func TestSweep_AlertFailureDoesNotFailSweep(t *testing.T) {
	sweeper, store, notifier, clock := newSweepFixture(t, 1)
	notifier.err = errors.New("smtp unavailable")
	for i := 0; i < 3; i++ {
		store.Seed(1, v1.KindView, 0, clock.Now().AddDate(0, 0, -40))
	}

	report, err := sweeper.Sweep(context.Background(), Params{})
	require.NoError(t, err)
	require.Equal(t, int64(3), report.Deleted)
	require.False(t, report.AlertSent)
	require.Equal(t, 1, notifier.calls)
}
