package decoder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/decoder"
	"github.com/shuffler/reportmaster/internal/errs"
)

func TestThresholdAdapter_DropsGroupsBelowThreshold(t *testing.T) {
	a := decoder.NewThresholdAdapter(2, config.EpochDay, nil)

	assert.True(t, a.ProcessObservationPart(10, decoder.ThresholdPart{Ciphertext: "apple"}))
	assert.True(t, a.ProcessObservationPart(10, decoder.ThresholdPart{Ciphertext: "apple"}))
	assert.True(t, a.ProcessObservationPart(10, decoder.ThresholdPart{Ciphertext: "apple"}))
	assert.True(t, a.ProcessObservationPart(10, decoder.ThresholdPart{Ciphertext: "banana"}))

	rows, err := a.PerformAnalysis()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "apple", rows[0].Histogram.Value)
	assert.Equal(t, float64(3), rows[0].Histogram.CountEstimate)
}

func TestThresholdAdapter_GroupsByEpoch(t *testing.T) {
	a := decoder.NewThresholdAdapter(2, config.EpochDay, nil)
	a.ProcessObservationPart(10, decoder.ThresholdPart{Ciphertext: "apple"})
	a.ProcessObservationPart(10, decoder.ThresholdPart{Ciphertext: "apple"})
	a.ProcessObservationPart(11, decoder.ThresholdPart{Ciphertext: "apple"})
	a.ProcessObservationPart(11, decoder.ThresholdPart{Ciphertext: "apple"})

	rows, err := a.PerformAnalysis()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(4), rows[0].Histogram.CountEstimate)
	assert.Equal(t, 2, a.NumEpochs("apple"))
}

func TestThresholdAdapter_RejectsEmptyCiphertext(t *testing.T) {
	a := decoder.NewThresholdAdapter(1, config.EpochDay, nil)
	assert.False(t, a.ProcessObservationPart(1, decoder.ThresholdPart{}))
	assert.False(t, a.ProcessObservationPart(1, "not a threshold part"))
	assert.Equal(t, uint64(2), a.MalformedCount())
}

func TestBasicAdapter_UnbiasedEstimate(t *testing.T) {
	categories := []string{"a", "b", "c"}
	a := decoder.NewBasicAdapter(categories, 0.1, 0.9)
	// Every report claims category "a": bit 0 set w.p. q, others w.p. p.
	// Simulate the noiseless limit by setting exactly the expected number
	// of bits: bit "a" in 900 of 1000 reports, bits "b"/"c" in 100.
	for i := 0; i < 1000; i++ {
		a.ProcessObservationPart(0, decoder.BasicPart{Bits: []bool{i < 900, i >= 900, i >= 900}})
	}
	rows, err := a.PerformAnalysis()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// category "a": (900 - 1000*0.1) / 0.8 = 1000, the true count.
	assert.InDelta(t, 1000, rows[0].Histogram.CountEstimate, 50)
	// categories "b"/"c": (100 - 1000*0.1) / 0.8 = 0.
	assert.InDelta(t, 0, rows[1].Histogram.CountEstimate, 200)
}

func TestBasicAdapter_RejectsWrongBitCount(t *testing.T) {
	a := decoder.NewBasicAdapter([]string{"a", "b"}, 0.1, 0.9)
	assert.False(t, a.ProcessObservationPart(0, decoder.BasicPart{Bits: []bool{true}}))
	assert.Equal(t, uint64(1), a.MalformedCount())
}

func TestStringAdapter_IsUnimplemented(t *testing.T) {
	a := decoder.NewStringAdapter()
	assert.False(t, a.ProcessObservationPart(0, decoder.BasicPart{}))
	_, err := a.PerformAnalysis()
	assert.ErrorIs(t, err, errs.Unimplemented)
}
