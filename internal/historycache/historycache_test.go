package historycache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffler/reportmaster/internal/historycache"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/kv/memkv"
	"github.com/shuffler/reportmaster/internal/reportstore"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func configID() idutil.Triple {
	return idutil.Triple{CustomerID: 1, ProjectID: 1, ID: 7}
}

func baseID() idutil.ReportID {
	return idutil.ReportID{CustomerID: 1, ProjectID: 1, ReportConfigID: 7}
}

func TestInProgress_FalseWhenNeverStarted(t *testing.T) {
	ctx := context.Background()
	reports := reportstore.New(memkv.New(), reportstore.WithClock(fixedClock(time.Unix(1000, 0))))
	cache := historycache.New(reports, nil)

	inProgress, err := cache.InProgress(ctx, configID(), 10, 10)
	require.NoError(t, err)
	assert.False(t, inProgress)
}

func TestInProgress_TrueAfterRecordStart(t *testing.T) {
	ctx := context.Background()
	reports := reportstore.New(memkv.New(), reportstore.WithClock(fixedClock(time.Unix(1000, 0))))
	cache := historycache.New(reports, nil)

	id, err := reports.StartNewReport(ctx, baseID(), 10, 10, true, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)
	cache.RecordStart(configID(), 10, 10, id)

	inProgress, err := cache.InProgress(ctx, configID(), 10, 10)
	require.NoError(t, err)
	assert.True(t, inProgress)
}

func TestInProgress_ClearsOnceReportTerminal(t *testing.T) {
	ctx := context.Background()
	reports := reportstore.New(memkv.New(), reportstore.WithClock(fixedClock(time.Unix(1000, 0))))
	cache := historycache.New(reports, nil)

	id, err := reports.StartNewReport(ctx, baseID(), 10, 10, true, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)
	cache.RecordStart(configID(), 10, 10, id)
	require.NoError(t, reports.EndReport(ctx, id, true, ""))

	inProgress, err := cache.InProgress(ctx, configID(), 10, 10)
	require.NoError(t, err)
	assert.False(t, inProgress)

	successOrInProgress, err := cache.CompletedSuccessfullyOrInProgress(ctx, configID(), 10, 10)
	require.NoError(t, err)
	assert.True(t, successOrInProgress)
}

func TestCompletedSuccessfullyOrInProgress_DiscoveredByBulkScan(t *testing.T) {
	ctx := context.Background()
	reports := reportstore.New(memkv.New(), reportstore.WithClock(fixedClock(time.Unix(1000, 0))))

	id, err := reports.StartNewReport(ctx, baseID(), 10, 10, true, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)
	require.NoError(t, reports.EndReport(ctx, id, true, ""))

	// A fresh cache, with no RecordStart call, must still discover this
	// completed report via its first-access bulk scan.
	cache := historycache.New(reports, nil)
	ok, err := cache.CompletedSuccessfullyOrInProgress(ctx, configID(), 10, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompletedSuccessfullyOrInProgress_FalseForFailedWindow(t *testing.T) {
	ctx := context.Background()
	reports := reportstore.New(memkv.New(), reportstore.WithClock(fixedClock(time.Unix(1000, 0))))

	id, err := reports.StartNewReport(ctx, baseID(), 10, 10, true, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)
	require.NoError(t, reports.EndReport(ctx, id, false, "boom"))

	cache := historycache.New(reports, nil)
	ok, err := cache.CompletedSuccessfullyOrInProgress(ctx, configID(), 10, 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInProgress_PriorLifetimeInProgressIsNotTrusted(t *testing.T) {
	ctx := context.Background()
	reports := reportstore.New(memkv.New(), reportstore.WithClock(fixedClock(time.Unix(1000, 0))))

	// Simulate a report left IN_PROGRESS by a crashed prior process: no
	// RecordStart call ever happened in this process's cache.
	_, err := reports.StartNewReport(ctx, baseID(), 10, 10, true, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)

	cache := historycache.New(reports, nil)
	inProgress, err := cache.InProgress(ctx, configID(), 10, 10)
	require.NoError(t, err)
	assert.False(t, inProgress)
}
