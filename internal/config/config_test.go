package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/idutil"
)

func triple(id uint32) idutil.Triple {
	return idutil.Triple{CustomerID: 1, ProjectID: 1, ID: id}
}

func TestRegistry_LooksUpByTriple(t *testing.T) {
	metric := config.Metric{ID: triple(1), Name: "page_views", Parts: map[string]config.PartDataType{"url": config.PartDataTypeString}}
	enc := config.EncodingConfig{ID: triple(2), Algorithm: config.Forculus, Threshold: 2}
	rc := config.ReportConfig{
		ID:                     triple(3),
		AggregationEpochType:   config.EpochDay,
		ReportFinalizationDays: 3,
		Variable:               []config.Variable{{MetricPart: "url"}},
		ReportType:             idutil.ReportTypeHistogram,
	}
	reg := config.NewRegistry([]config.Metric{metric}, []config.EncodingConfig{enc}, []config.ReportConfig{rc})

	gotMetric, ok := reg.Metric(triple(1))
	require.True(t, ok)
	assert.Equal(t, "page_views", gotMetric.Name)
	assert.True(t, gotMetric.HasPart("url"))
	assert.False(t, gotMetric.HasPart("missing"))

	gotEnc, ok := reg.EncodingConfig(triple(2))
	require.True(t, ok)
	assert.Equal(t, config.Forculus, gotEnc.Algorithm)

	gotRC, ok := reg.ReportConfig(triple(3))
	require.True(t, ok)
	assert.NoError(t, gotRC.Validate())

	_, ok = reg.Metric(triple(99))
	assert.False(t, ok)
}

func TestReportConfig_Validate(t *testing.T) {
	base := config.ReportConfig{ID: triple(1), Variable: []config.Variable{{MetricPart: "a"}}, ReportType: idutil.ReportTypeHistogram}
	assert.NoError(t, base.Validate())

	noVars := base
	noVars.Variable = nil
	assert.Error(t, noVars.Validate())

	jointWithOneVar := base
	jointWithOneVar.ReportType = idutil.ReportTypeJoint
	assert.Error(t, jointWithOneVar.Validate())

	jointWithTwoVars := jointWithOneVar
	jointWithTwoVars.Variable = []config.Variable{{MetricPart: "a"}, {MetricPart: "b"}}
	assert.NoError(t, jointWithTwoVars.Validate())

	tooManyVars := base
	tooManyVars.Variable = []config.Variable{{MetricPart: "a"}, {MetricPart: "b"}, {MetricPart: "c"}}
	assert.Error(t, tooManyVars.Validate())
}

func TestAggregationEpochType_EpochIndex(t *testing.T) {
	when, err := time.Parse("2006-01-02", "2024-03-14")
	require.NoError(t, err)
	d := idutil.DayIndexFromTime(when)
	assert.Equal(t, d, config.EpochDay.EpochIndex(d))
	assert.Equal(t, d.WeekIndex(), config.EpochWeek.EpochIndex(d))
	assert.Equal(t, d.MonthIndex(), config.EpochMonth.EpochIndex(d))
}
