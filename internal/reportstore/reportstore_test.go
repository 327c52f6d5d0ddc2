package reportstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/kv/memkv"
	"github.com/shuffler/reportmaster/internal/reportstore"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newStore(now time.Time) *reportstore.Store {
	return reportstore.New(memkv.New(), reportstore.WithClock(fixedClock(now)))
}

func baseID() idutil.ReportID {
	return idutil.ReportID{CustomerID: 1, ProjectID: 1, ReportConfigID: 7}
}

func TestStartNewReport_AllocatesIDAndWritesInProgress(t *testing.T) {
	ctx := context.Background()
	store := newStore(time.Unix(1000, 0))

	id, err := store.StartNewReport(ctx, baseID(), 100, 100, true, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)
	assert.NotZero(t, id.InstanceID)
	assert.Equal(t, int64(1000), id.CreationTimeSeconds)

	m, err := store.GetMetadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, reportstore.InProgress, m.State)
	assert.Equal(t, int64(1000), m.StartTimeSeconds)
}

func TestCreateDependentReport_FailsIfAlreadyExists(t *testing.T) {
	ctx := context.Background()
	store := newStore(time.Unix(1000, 0))
	parent, err := store.StartNewReport(ctx, baseID(), 100, 100, true, idutil.ReportTypeJoint, []uint32{0, 1})
	require.NoError(t, err)

	dep, err := store.CreateDependentReport(ctx, parent, 1, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)
	m, err := store.GetMetadata(ctx, dep)
	require.NoError(t, err)
	assert.Equal(t, reportstore.WaitingToStart, m.State)

	_, err = store.CreateDependentReport(ctx, parent, 1, idutil.ReportTypeHistogram, []uint32{0})
	assert.Error(t, err)
}

func TestStartDependentReport_RequiresWaitingToStart(t *testing.T) {
	ctx := context.Background()
	store := newStore(time.Unix(1000, 0))
	parent, err := store.StartNewReport(ctx, baseID(), 100, 100, true, idutil.ReportTypeJoint, []uint32{0, 1})
	require.NoError(t, err)
	dep, err := store.CreateDependentReport(ctx, parent, 1, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)

	require.NoError(t, store.StartDependentReport(ctx, dep))
	m, err := store.GetMetadata(ctx, dep)
	require.NoError(t, err)
	assert.Equal(t, reportstore.InProgress, m.State)

	assert.Error(t, store.StartDependentReport(ctx, dep))
}

func TestEndReport_SetsTerminalStateAndAppendsMessage(t *testing.T) {
	ctx := context.Background()
	store := newStore(time.Unix(1000, 0))
	id, err := store.StartNewReport(ctx, baseID(), 100, 100, true, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)

	require.NoError(t, store.EndReport(ctx, id, false, "upstream failure"))
	m, err := store.GetMetadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, reportstore.Terminated, m.State)
	require.Len(t, m.InfoMessages, 1)
	assert.Equal(t, "upstream failure", m.InfoMessages[0].Message)
}

func TestAddReportRows_RejectsMismatchedPayloadType(t *testing.T) {
	ctx := context.Background()
	store := newStore(time.Unix(1000, 0))
	id, err := store.StartNewReport(ctx, baseID(), 100, 100, true, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)

	err = store.AddReportRows(ctx, id, []reportstore.Row{{Type: reportstore.RowJoint}})
	assert.Error(t, err)
}

func TestAddReportRowsAndGetReport_OnlyReturnsRowsWhenCompleted(t *testing.T) {
	ctx := context.Background()
	store := newStore(time.Unix(1000, 0))
	id, err := store.StartNewReport(ctx, baseID(), 100, 100, true, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)

	rows := []reportstore.Row{
		{Type: reportstore.RowHistogram, Histogram: reportstore.HistogramPayload{Value: "apple", CountEstimate: 3}},
		{Type: reportstore.RowHistogram, Histogram: reportstore.HistogramPayload{Value: "banana", CountEstimate: 1}},
	}
	require.NoError(t, store.AddReportRows(ctx, id, rows))

	_, gotRows, err := store.GetReport(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, gotRows) // still IN_PROGRESS

	require.NoError(t, store.EndReport(ctx, id, true, ""))
	m, gotRows, err := store.GetReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, reportstore.CompletedSuccessfully, m.State)
	require.Len(t, gotRows, 2)
}

func TestQueryReports_ScansTimeWindowAndPaginates(t *testing.T) {
	ctx := context.Background()
	store := reportstore.New(memkv.New())

	var ids []idutil.ReportID
	base := baseID()
	for i := 0; i < 3; i++ {
		id, err := store.StartNewReport(ctx, base, idutil.DayIndex(100+i), idutil.DayIndex(100+i), true, idutil.ReportTypeHistogram, []uint32{0})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	result, err := store.QueryReports(ctx, base.CustomerID, base.ProjectID, base.ReportConfigID, 0, -1, 10, "")
	require.NoError(t, err)
	assert.Len(t, result.Metadata, 3)
	assert.Empty(t, result.PaginationToken)

	page1, err := store.QueryReports(ctx, base.CustomerID, base.ProjectID, base.ReportConfigID, 0, -1, 2, "")
	require.NoError(t, err)
	require.Len(t, page1.Metadata, 2)
	require.NotEmpty(t, page1.PaginationToken)

	page2, err := store.QueryReports(ctx, base.CustomerID, base.ProjectID, base.ReportConfigID, 0, -1, 2, page1.PaginationToken)
	require.NoError(t, err)
	assert.Len(t, page2.Metadata, 1)
}

func TestDeleteAllForReportConfig_PurgesMetadataAndRows(t *testing.T) {
	ctx := context.Background()
	store := newStore(time.Unix(1000, 0))
	id, err := store.StartNewReport(ctx, baseID(), 100, 100, true, idutil.ReportTypeHistogram, []uint32{0})
	require.NoError(t, err)
	require.NoError(t, store.AddReportRows(ctx, id, []reportstore.Row{{Type: reportstore.RowHistogram}}))

	require.NoError(t, store.DeleteAllForReportConfig(ctx, id.CustomerID, id.ProjectID, id.ReportConfigID))

	_, err = store.GetMetadata(ctx, id)
	assert.Error(t, err)
}
