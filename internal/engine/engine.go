// Package engine implements the Histogram Analysis Engine (spec §4.5): a
// per-report-instance decoder multiplexer that groups observations by
// (system-profile, encoding-config) and dispatches to the matching
// internal/decoder adapter, then combines the adapters' outputs into one
// histogram.
package engine

import (
	"fmt"
	"sort"

	"github.com/shuffler/reportmaster/internal/analyzerlog"
	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/decoder"
	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/reportstore"
)

// SystemProfile is the client environment fingerprint an observation part
// is tagged with; the engine keys its per-profile adapter maps by its
// string form.
type SystemProfile struct {
	OS        string
	ARCH      string
	BoardName string
}

func (p SystemProfile) fingerprint() string {
	return fmt.Sprintf("%s/%s/%s", p.OS, p.ARCH, p.BoardName)
}

// Part is one observation part to analyze: the opaque decoder payload plus
// the encoding config it claims to have been encoded with.
type Part struct {
	EncodingConfigID idutil.Triple
	Algorithm        config.EncodingAlgorithm
	Payload          interface{}
}

type profileGroup struct {
	profile          SystemProfile
	encodingConfigID idutil.Triple
	extraConfigIDs   map[idutil.Triple]bool
	adapter          decoder.Adapter
}

// Engine is constructed per report instance with a live config registry.
type Engine struct {
	registry  *config.Registry
	log       analyzerlog.Component
	epochType config.AggregationEpochType

	// groups is keyed by system-profile fingerprint; each group tracks the
	// single encoding config it has committed to, and any conflicting IDs
	// seen afterward (for the UNIMPLEMENTED diagnostic at PerformAnalysis).
	groups map[string]*profileGroup
}

// New constructs an Engine for one report instance.
func New(registry *config.Registry, epochType config.AggregationEpochType, log analyzerlog.Component) *Engine {
	if log == nil {
		log = analyzerlog.NewNop()
	}
	return &Engine{
		registry:  registry,
		log:       log,
		epochType: epochType,
		groups:    make(map[string]*profileGroup),
	}
}

// ProcessObservationPart looks up the encoding config, checks it against
// the part's algorithm discriminant, and dispatches to the (profile,
// encoding-config) adapter, creating one on first use (spec §4.5).
func (e *Engine) ProcessObservationPart(dayIndex idutil.DayIndex, part Part, profile SystemProfile) bool {
	ec, ok := e.registry.EncodingConfig(part.EncodingConfigID)
	if !ok {
		e.log.Warnf("encoding config %s not found", part.EncodingConfigID)
		return false
	}
	if ec.Algorithm != part.Algorithm {
		e.log.Warnf("encoding config %s has algorithm %s, part claims %s", part.EncodingConfigID, ec.Algorithm, part.Algorithm)
		return false
	}

	key := profile.fingerprint()
	g, ok := e.groups[key]
	if !ok {
		g = &profileGroup{
			profile:          profile,
			encodingConfigID: part.EncodingConfigID,
			extraConfigIDs:   make(map[idutil.Triple]bool),
			adapter:          e.newAdapter(ec),
		}
		e.groups[key] = g
	}
	if part.EncodingConfigID != g.encodingConfigID {
		g.extraConfigIDs[part.EncodingConfigID] = true
		return false
	}
	return g.adapter.ProcessObservationPart(dayIndex, part.Payload)
}

func (e *Engine) newAdapter(ec config.EncodingConfig) decoder.Adapter {
	switch ec.Algorithm {
	case config.Forculus:
		return decoder.NewThresholdAdapter(ec.Threshold, e.epochType, nil)
	case config.RapporBasic:
		return decoder.NewBasicAdapter(ec.Categories, ec.ProbP, ec.ProbQ)
	default:
		return decoder.NewStringAdapter()
	}
}

// PerformAnalysis runs every populated group's adapter and concatenates
// the rows, attaching each group's system profile diagnostic (spec §4.5).
// Returns errs.Unimplemented if any group saw more than one encoding
// config, and errs.PreconditionFailed if no group was ever populated.
func (e *Engine) PerformAnalysis() ([]reportstore.Row, error) {
	if len(e.groups) == 0 {
		return nil, fmt.Errorf("%w: no valid observations", errs.PreconditionFailed)
	}

	// Deterministic iteration order for reproducible diagnostics and tests.
	keys := make([]string, 0, len(e.groups))
	for k := range e.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows []reportstore.Row
	for _, k := range keys {
		g := e.groups[k]
		if len(g.extraConfigIDs) > 0 {
			ids := []idutil.Triple{g.encodingConfigID}
			for id := range g.extraConfigIDs {
				ids = append(ids, id)
			}
			return nil, fmt.Errorf("%w: profile %s observed heterogeneous encoding configs %v", errs.Unimplemented, g.profile.fingerprint(), ids)
		}
		groupRows, err := g.adapter.PerformAnalysis()
		if err != nil {
			return nil, err
		}
		profile := map[string]string{"os": g.profile.OS, "arch": g.profile.ARCH, "board_name": g.profile.BoardName}
		for _, row := range groupRows {
			row.SystemProfile = profile
			rows = append(rows, row)
		}
	}
	return rows, nil
}
