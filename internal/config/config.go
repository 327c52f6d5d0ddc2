// Package config holds the explicit, immutable configuration records that
// describe metrics, encoding configs, and report configs (spec §3), plus a
// read-only in-memory registry snapshot keyed by their (customer, project,
// id) triple. There is no flag/file loader here: per spec §1 and §9's
// "Global flags/config loading" note, a loader is an external collaborator
// that constructs one of these registries and hands it to the rest of the
// system; this package only defines the records and the lookup contract.
package config

import (
	"fmt"

	"github.com/shuffler/reportmaster/internal/idutil"
)

// PartDataType is the declared type of one metric part.
type PartDataType uint8

const (
	PartDataTypeString PartDataType = iota
	PartDataTypeInt
	PartDataTypeBlob
	PartDataTypeIndex
)

// Metric names a set of parts, each with a declared data type. An
// observation whose parts do not match its metric's declared parts is
// malformed (spec §3).
type Metric struct {
	ID    idutil.Triple
	Name  string
	Parts map[string]PartDataType
}

// HasPart reports whether name is a declared part of this metric.
func (m Metric) HasPart(name string) bool {
	_, ok := m.Parts[name]
	return ok
}

// EncodingAlgorithm is the privacy-preserving scheme an EncodingConfig
// describes, matching the discriminant carried by every observation part
// (spec §3, §4.4).
type EncodingAlgorithm uint8

const (
	// Forculus is the threshold/secret-sharing scheme.
	Forculus EncodingAlgorithm = iota
	// RapporBasic is bit-vector randomized response over a fixed category list.
	RapporBasic
	// RapporString is string-categorical randomized response (spec §4.4,
	// unimplemented at the adapter level).
	RapporString
)

func (a EncodingAlgorithm) String() string {
	switch a {
	case Forculus:
		return "FORCULUS"
	case RapporBasic:
		return "RAPPOR_BASIC"
	case RapporString:
		return "RAPPOR_STRING"
	default:
		return "UNKNOWN"
	}
}

// EncodingConfig describes one decoding algorithm and its parameters.
// Only the fields the engine and adapters actually consult are modeled;
// additional per-algorithm parameters not needed by this repository's
// adapters (e.g. Forculus modulus) are out of scope per spec §1.
type EncodingConfig struct {
	ID        idutil.Triple
	Algorithm EncodingAlgorithm

	// Threshold is the Forculus decryption threshold: the number of
	// distinct contributions to a ciphertext group required to recover
	// the plaintext.
	Threshold int

	// Categories is the fixed, ordered category list for RapporBasic.
	Categories []string
	// ProbP and ProbQ are the basic-RAPPOR per-bit flip probabilities
	// (probability a 0 is flipped to 1, and a 1 is kept as 1).
	ProbP, ProbQ float64
}

// AggregationEpochType controls how the threshold adapter groups
// observations into epochs for threshold decoding (spec §3, §4.4).
type AggregationEpochType uint8

const (
	EpochDay AggregationEpochType = iota
	EpochWeek
	EpochMonth
)

func (e AggregationEpochType) String() string {
	switch e {
	case EpochDay:
		return "DAY"
	case EpochWeek:
		return "WEEK"
	case EpochMonth:
		return "MONTH"
	default:
		return "UNKNOWN"
	}
}

// EpochIndex derives the epoch-aligned day index for d per this epoch type.
func (e AggregationEpochType) EpochIndex(d idutil.DayIndex) idutil.DayIndex {
	switch e {
	case EpochWeek:
		return d.WeekIndex()
	case EpochMonth:
		return d.MonthIndex()
	default:
		return d
	}
}

// Variable points at one metric part and optionally supplies per-encoding
// auxiliary data (e.g. a RAPPOR candidate list override).
type Variable struct {
	MetricPart string
	Candidates []string
}

// ReportConfig declares one report's aggregation policy and shape
// (spec §3).
type ReportConfig struct {
	ID                     idutil.Triple
	MetricID               uint32
	AggregationEpochType   AggregationEpochType
	ReportFinalizationDays int
	Variable               []Variable
	ReportType             idutil.ReportType
}

// Validate enforces the variable-count / report-type pairing the report
// generator relies on (spec §4.6 step 2-3).
func (r ReportConfig) Validate() error {
	if len(r.Variable) < 1 || len(r.Variable) > 2 {
		return fmt.Errorf("report config %s: must declare 1 or 2 variables, got %d", r.ID, len(r.Variable))
	}
	if r.ReportType == idutil.ReportTypeHistogram && len(r.Variable) != 1 {
		return fmt.Errorf("report config %s: HISTOGRAM requires exactly one variable", r.ID)
	}
	if r.ReportType == idutil.ReportTypeJoint && len(r.Variable) != 2 {
		return fmt.Errorf("report config %s: JOINT requires exactly two variables", r.ID)
	}
	return nil
}

// Registry is a read-only snapshot of every configured metric, encoding
// config, and report config, keyed by triple. Registries are built once by
// an external loader (out of scope, spec §1) and handed to the rest of the
// system; nothing in this repository mutates one after construction.
type Registry struct {
	metrics         map[idutil.Triple]Metric
	encodingConfigs map[idutil.Triple]EncodingConfig
	reportConfigs   map[idutil.Triple]ReportConfig
}

// NewRegistry builds an immutable registry from the given records. It does
// not validate cross-references (e.g. that a report config's variables name
// real metric parts) — that is checked lazily wherever the reference is
// resolved (spec §4.6 step 3), matching the original's lazy-validation
// style.
func NewRegistry(metrics []Metric, encodingConfigs []EncodingConfig, reportConfigs []ReportConfig) *Registry {
	r := &Registry{
		metrics:         make(map[idutil.Triple]Metric, len(metrics)),
		encodingConfigs: make(map[idutil.Triple]EncodingConfig, len(encodingConfigs)),
		reportConfigs:   make(map[idutil.Triple]ReportConfig, len(reportConfigs)),
	}
	for _, m := range metrics {
		r.metrics[m.ID] = m
	}
	for _, e := range encodingConfigs {
		r.encodingConfigs[e.ID] = e
	}
	for _, c := range reportConfigs {
		r.reportConfigs[c.ID] = c
	}
	return r
}

// Metric returns the metric with the given triple and whether it exists.
func (r *Registry) Metric(id idutil.Triple) (Metric, bool) {
	m, ok := r.metrics[id]
	return m, ok
}

// EncodingConfig returns the encoding config with the given triple and
// whether it exists.
func (r *Registry) EncodingConfig(id idutil.Triple) (EncodingConfig, bool) {
	e, ok := r.encodingConfigs[id]
	return e, ok
}

// ReportConfig returns the report config with the given triple and whether
// it exists.
func (r *Registry) ReportConfig(id idutil.Triple) (ReportConfig, bool) {
	c, ok := r.reportConfigs[id]
	return c, ok
}

// ReportConfigs returns every report config in the registry, in no
// particular order. The scheduler iterates this once per tick.
func (r *Registry) ReportConfigs() []ReportConfig {
	out := make([]ReportConfig, 0, len(r.reportConfigs))
	for _, c := range r.reportConfigs {
		out = append(out, c)
	}
	return out
}
