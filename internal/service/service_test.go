package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/kv/memkv"
	"github.com/shuffler/reportmaster/internal/reportstore"
	"github.com/shuffler/reportmaster/internal/service"
)

// fakeEnqueuer records every chain handed to it without running generation.
type fakeEnqueuer struct {
	mu     sync.Mutex
	chains [][]idutil.ReportID
	err    error
}

func (f *fakeEnqueuer) Enqueue(chain []idutil.ReportID) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chains = append(f.chains, chain)
	return nil
}

func triple(id uint32) idutil.Triple {
	return idutil.Triple{CustomerID: 1, ProjectID: 1, ID: id}
}

func TestStartReport_SingleVariableConfigEnqueuesOneReport(t *testing.T) {
	ctx := context.Background()
	reports := reportstore.New(memkv.New())
	cfg := config.ReportConfig{
		ID:         triple(7),
		MetricID:   5,
		ReportType: idutil.ReportTypeHistogram,
		Variable:   []config.Variable{{MetricPart: "url"}},
	}
	registry := config.NewRegistry(nil, nil, []config.ReportConfig{cfg})
	enq := &fakeEnqueuer{}
	svc := service.New(registry, reports, enq, nil)

	idString, err := svc.StartReportByConfigID(ctx, 1, 1, 7, 10, 10)
	require.NoError(t, err)
	require.NotEmpty(t, idString)

	require.Len(t, enq.chains, 1)
	assert.Len(t, enq.chains[0], 1)

	id, err := idutil.DecodeReportID(idString)
	require.NoError(t, err)
	m, err := reports.GetMetadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, reportstore.InProgress, m.State)
}

func TestStartReport_TwoVariableConfigEnqueuesChainAndReturnsJointID(t *testing.T) {
	ctx := context.Background()
	reports := reportstore.New(memkv.New())
	cfg := config.ReportConfig{
		ID:         triple(7),
		MetricID:   5,
		ReportType: idutil.ReportTypeJoint,
		Variable:   []config.Variable{{MetricPart: "url"}, {MetricPart: "country"}},
	}
	registry := config.NewRegistry(nil, nil, []config.ReportConfig{cfg})
	enq := &fakeEnqueuer{}
	svc := service.New(registry, reports, enq, nil)

	idString, err := svc.StartReportByConfigID(ctx, 1, 1, 7, 10, 10)
	require.NoError(t, err)

	require.Len(t, enq.chains, 1)
	require.Len(t, enq.chains[0], 3)

	id, err := idutil.DecodeReportID(idString)
	require.NoError(t, err)
	m, err := reports.GetMetadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, idutil.ReportTypeJoint, m.ReportType)
	assert.Equal(t, uint32(2), id.SequenceNum)
}

func TestStartReport_UnknownConfigIsNotFound(t *testing.T) {
	ctx := context.Background()
	reports := reportstore.New(memkv.New())
	registry := config.NewRegistry(nil, nil, nil)
	svc := service.New(registry, reports, &fakeEnqueuer{}, nil)

	_, err := svc.StartReportByConfigID(ctx, 1, 1, 999, 10, 10)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestGetReport_JointMetadataCarriesSiblingIDs(t *testing.T) {
	ctx := context.Background()
	reports := reportstore.New(memkv.New())
	cfg := config.ReportConfig{
		ID:         triple(7),
		MetricID:   5,
		ReportType: idutil.ReportTypeJoint,
		Variable:   []config.Variable{{MetricPart: "url"}, {MetricPart: "country"}},
	}
	registry := config.NewRegistry(nil, nil, []config.ReportConfig{cfg})
	enq := &fakeEnqueuer{}
	svc := service.New(registry, reports, enq, nil)

	idString, err := svc.StartReportByConfigID(ctx, 1, 1, 7, 10, 10)
	require.NoError(t, err)
	id, err := idutil.DecodeReportID(idString)
	require.NoError(t, err)
	require.NoError(t, reports.EndReport(ctx, id, true, ""))

	metadata, _, err := svc.GetReport(ctx, idString)
	require.NoError(t, err)
	assert.NotEmpty(t, metadata.Var1ReportIDString)
	assert.NotEmpty(t, metadata.Var2ReportIDString)

	var1, err := idutil.DecodeReportID(metadata.Var1ReportIDString)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), var1.SequenceNum)
}

func TestQueryReports_EmitsPagesUntilExhausted(t *testing.T) {
	ctx := context.Background()
	reports := reportstore.New(memkv.New())
	registry := config.NewRegistry(nil, nil, nil)
	svc := service.New(registry, reports, &fakeEnqueuer{}, nil)

	for i := 0; i < 3; i++ {
		_, err := reports.StartNewReport(ctx, idutil.ReportID{CustomerID: 1, ProjectID: 1, ReportConfigID: 7}, 1, 1, true, idutil.ReportTypeHistogram, []uint32{0})
		require.NoError(t, err)
	}

	var total int
	err := svc.QueryReports(ctx, 1, 1, 7, 0, 1<<62, func(batch []reportstore.Metadata) error {
		total += len(batch)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}
