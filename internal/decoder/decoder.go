// Package decoder implements the Decoder Adapter contract (spec §4.4): a
// uniform interface wrapping each privacy-preserving analyzer variant. The
// privacy-preserving decoders' cryptographic internals (the Forculus
// secret-sharing reconstruction, the RAPPOR estimators' full derivation)
// are out of scope per spec §1 — adapters here implement the *grouping,
// thresholding, and aggregation* contract the engine depends on, calling
// out explicitly where a real cryptographic primitive would plug in.
package decoder

import (
	"math"

	"go.uber.org/atomic"

	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/reportstore"
)

// Adapter is the uniform interface every privacy-algorithm variant
// implements (spec §4.4). part is an opaque observation-part payload;
// each adapter type-asserts the shape it expects and returns false for
// anything else, mirroring the engine's consistency check one layer up.
type Adapter interface {
	ProcessObservationPart(dayIndex idutil.DayIndex, part interface{}) bool
	PerformAnalysis() ([]reportstore.Row, error)
}

// ThresholdPart is one Forculus-encoded observation part: a ciphertext
// share to be grouped with others from the same epoch. Reconstructing the
// plaintext from a threshold of shares is the out-of-scope cryptographic
// step; this adapter models it with the pluggable Decrypt func below.
type ThresholdPart struct {
	Ciphertext string
}

// Decrypt reconstructs a plaintext from a ciphertext once a group has
// reached its threshold. The default, DefaultDecrypt, is a stand-in for the
// real Forculus reconstruction (out of scope): it treats the ciphertext
// value itself as already carrying the recoverable plaintext, since every
// share contributed to one ciphertext group is, by construction, a share
// of the same underlying value.
type Decrypt func(ciphertext string) (plaintext string, ok bool)

// DefaultDecrypt is the stand-in decrypter used when none is supplied.
func DefaultDecrypt(ciphertext string) (string, bool) {
	return ciphertext, true
}

type thresholdGroupKey struct {
	epochIndex idutil.DayIndex
	ciphertext string
}

type thresholdGroup struct {
	count     int
	decoded   bool
	plaintext string
}

// ThresholdAdapter is the threshold-secret-sharing adapter (spec §4.4).
type ThresholdAdapter struct {
	threshold int
	epochType config.AggregationEpochType
	decrypt   Decrypt

	groups    map[thresholdGroupKey]*thresholdGroup
	malformed atomic.Uint64
}

// NewThresholdAdapter builds a threshold adapter for one encoding config.
// decrypt may be nil to use DefaultDecrypt.
func NewThresholdAdapter(threshold int, epochType config.AggregationEpochType, decrypt Decrypt) *ThresholdAdapter {
	if decrypt == nil {
		decrypt = DefaultDecrypt
	}
	return &ThresholdAdapter{
		threshold: threshold,
		epochType: epochType,
		decrypt:   decrypt,
		groups:    make(map[thresholdGroupKey]*thresholdGroup),
	}
}

// ProcessObservationPart groups part by (epoch_index, ciphertext) and
// advances that group's contribution count (spec §4.4).
func (a *ThresholdAdapter) ProcessObservationPart(dayIndex idutil.DayIndex, part interface{}) bool {
	p, ok := part.(ThresholdPart)
	if !ok || p.Ciphertext == "" {
		a.malformed.Inc()
		return false
	}
	key := thresholdGroupKey{epochIndex: a.epochType.EpochIndex(dayIndex), ciphertext: p.Ciphertext}
	g, ok := a.groups[key]
	if !ok {
		g = &thresholdGroup{}
		a.groups[key] = g
	}
	g.count++
	if !g.decoded && g.count >= a.threshold {
		if plaintext, ok := a.decrypt(p.Ciphertext); ok {
			g.decoded = true
			g.plaintext = plaintext
		}
	}
	return true
}

// MalformedCount returns the number of rejected inputs seen so far
// (spec §8 property 6).
func (a *ThresholdAdapter) MalformedCount() uint64 {
	return a.malformed.Load()
}

// NumEpochs returns the diagnostic epoch count for a recovered plaintext:
// the number of distinct epochs in which that plaintext met threshold.
// Computed but deliberately not surfaced in report rows (spec §9 open
// question); exposed here only for diagnostics and tests.
func (a *ThresholdAdapter) NumEpochs(plaintext string) int {
	n := 0
	for _, g := range a.groups {
		if g.decoded && g.plaintext == plaintext {
			n++
		}
	}
	return n
}

// PerformAnalysis emits one row per recovered plaintext, with
// count_estimate equal to the total number of observations that decoded to
// it across every epoch that met threshold (spec §4.4).
func (a *ThresholdAdapter) PerformAnalysis() ([]reportstore.Row, error) {
	totals := make(map[string]float64)
	for _, g := range a.groups {
		if !g.decoded {
			continue
		}
		totals[g.plaintext] += float64(g.count)
	}
	rows := make([]reportstore.Row, 0, len(totals))
	for plaintext, total := range totals {
		rows = append(rows, reportstore.Row{
			Type:      reportstore.RowHistogram,
			Histogram: reportstore.HistogramPayload{Value: plaintext, CountEstimate: total},
		})
	}
	return rows, nil
}

// BasicPart is one basic-categorical-RAPPOR-encoded observation part: a
// randomized-response bit vector, one bit per configured category.
type BasicPart struct {
	Bits []bool
}

// BasicAdapter is the basic (categorical) randomized-response adapter
// (spec §4.4). It accumulates per-category bit sums and, at finalize time,
// applies the standard unbiased RAPPOR estimator: for flip probabilities p
// (false positive) and q (true positive), the unbiased estimate of
// category i's true count is (sum_i - N*p) / (q - p).
type BasicAdapter struct {
	categories []string
	probP      float64
	probQ      float64

	sums      []float64
	total     float64
	malformed atomic.Uint64
}

// NewBasicAdapter builds a basic-RR adapter for one encoding config.
func NewBasicAdapter(categories []string, probP, probQ float64) *BasicAdapter {
	return &BasicAdapter{
		categories: categories,
		probP:      probP,
		probQ:      probQ,
		sums:       make([]float64, len(categories)),
	}
}

// ProcessObservationPart adds one bit vector to the running per-category
// sums (spec §4.4).
func (a *BasicAdapter) ProcessObservationPart(_ idutil.DayIndex, part interface{}) bool {
	p, ok := part.(BasicPart)
	if !ok || len(p.Bits) != len(a.categories) {
		a.malformed.Inc()
		return false
	}
	for i, bit := range p.Bits {
		if bit {
			a.sums[i]++
		}
	}
	a.total++
	return true
}

// MalformedCount returns the number of rejected inputs seen so far.
func (a *BasicAdapter) MalformedCount() uint64 {
	return a.malformed.Load()
}

// PerformAnalysis runs the per-category unbiased estimator, returning
// (count_estimate, std_error) per category (spec §4.4).
func (a *BasicAdapter) PerformAnalysis() ([]reportstore.Row, error) {
	denom := a.probQ - a.probP
	rows := make([]reportstore.Row, 0, len(a.categories))
	for i, category := range a.categories {
		estimate := (a.sums[i] - a.total*a.probP) / denom
		stdErr := math.Sqrt(a.total*a.probP*(1-a.probP)) / math.Abs(denom)
		rows = append(rows, reportstore.Row{
			Type: reportstore.RowHistogram,
			Histogram: reportstore.HistogramPayload{
				Value:         category,
				CountEstimate: estimate,
				StdError:      stdErr,
			},
		})
	}
	return rows, nil
}

// StringAdapter is the string randomized-response adapter placeholder
// (spec §4.4): process_observation_part always rejects, perform_analysis
// always returns errs.Unimplemented. A real string-RR estimator is out of
// scope (spec §1).
type StringAdapter struct{}

// NewStringAdapter builds the string-RR placeholder adapter.
func NewStringAdapter() *StringAdapter {
	return &StringAdapter{}
}

func (a *StringAdapter) ProcessObservationPart(_ idutil.DayIndex, _ interface{}) bool {
	return false
}

func (a *StringAdapter) PerformAnalysis() ([]reportstore.Row, error) {
	return nil, errs.Unimplemented
}
