package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/decoder"
	"github.com/shuffler/reportmaster/internal/engine"
	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/idutil"
)

func encodingConfigID(id uint32) idutil.Triple {
	return idutil.Triple{CustomerID: 1, ProjectID: 1, ID: id}
}

func registryWith(ec config.EncodingConfig) *config.Registry {
	return config.NewRegistry(nil, []config.EncodingConfig{ec}, nil)
}

func TestEngine_DispatchesToThresholdAdapter(t *testing.T) {
	reg := registryWith(config.EncodingConfig{ID: encodingConfigID(1), Algorithm: config.Forculus, Threshold: 2})
	e := engine.New(reg, config.EpochDay, nil)
	profile := engine.SystemProfile{OS: "fuchsia"}

	part := engine.Part{EncodingConfigID: encodingConfigID(1), Algorithm: config.Forculus, Payload: decoder.ThresholdPart{Ciphertext: "apple"}}
	assert.True(t, e.ProcessObservationPart(10, part, profile))
	assert.True(t, e.ProcessObservationPart(10, part, profile))

	rows, err := e.PerformAnalysis()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "apple", rows[0].Histogram.Value)
	assert.Equal(t, "fuchsia", rows[0].SystemProfile["os"])
}

func TestEngine_RejectsUnknownEncodingConfig(t *testing.T) {
	reg := config.NewRegistry(nil, nil, nil)
	e := engine.New(reg, config.EpochDay, nil)
	part := engine.Part{EncodingConfigID: encodingConfigID(99), Algorithm: config.Forculus, Payload: decoder.ThresholdPart{Ciphertext: "x"}}
	assert.False(t, e.ProcessObservationPart(1, part, engine.SystemProfile{}))
}

func TestEngine_RejectsAlgorithmMismatch(t *testing.T) {
	reg := registryWith(config.EncodingConfig{ID: encodingConfigID(1), Algorithm: config.RapporBasic})
	e := engine.New(reg, config.EpochDay, nil)
	part := engine.Part{EncodingConfigID: encodingConfigID(1), Algorithm: config.Forculus, Payload: decoder.ThresholdPart{Ciphertext: "x"}}
	assert.False(t, e.ProcessObservationPart(1, part, engine.SystemProfile{}))
}

func TestEngine_HeterogeneousEncodingConfigsInOneProfileIsUnimplemented(t *testing.T) {
	reg := config.NewRegistry(nil, []config.EncodingConfig{
		{ID: encodingConfigID(1), Algorithm: config.Forculus, Threshold: 1},
		{ID: encodingConfigID(2), Algorithm: config.Forculus, Threshold: 1},
	}, nil)
	e := engine.New(reg, config.EpochDay, nil)
	profile := engine.SystemProfile{OS: "fuchsia"}

	assert.True(t, e.ProcessObservationPart(1, engine.Part{EncodingConfigID: encodingConfigID(1), Algorithm: config.Forculus, Payload: decoder.ThresholdPart{Ciphertext: "a"}}, profile))
	assert.False(t, e.ProcessObservationPart(1, engine.Part{EncodingConfigID: encodingConfigID(2), Algorithm: config.Forculus, Payload: decoder.ThresholdPart{Ciphertext: "b"}}, profile))

	_, err := e.PerformAnalysis()
	assert.ErrorIs(t, err, errs.Unimplemented)
}

func TestEngine_NoObservationsIsPreconditionFailed(t *testing.T) {
	e := engine.New(config.NewRegistry(nil, nil, nil), config.EpochDay, nil)
	_, err := e.PerformAnalysis()
	assert.ErrorIs(t, err, errs.PreconditionFailed)
}
