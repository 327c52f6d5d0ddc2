package reportgen

import (
	"context"
	"strconv"

	"github.com/shuffler/reportmaster/internal/analyzerlog"
	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/obsstore"
	"github.com/shuffler/reportmaster/internal/reportstore"
)

// RawDumpReport is an iterator over decoded, unencoded observations for one
// RAW_DUMP report (spec §4.6.1, named after the original's
// RawDumpReportRowIterator). It wraps a query of the Observation Store and
// refills its page only once the current one is exhausted, carrying
// forward the pagination token. A malformed observation — one missing a
// requested part, or whose part's bytes don't match the metric's declared
// data type — is logged and skipped rather than aborting the stream.
type RawDumpReport struct {
	obs        *obsstore.Store
	log        analyzerlog.Component
	customerID uint32
	projectID  uint32
	metricID   uint32
	startDay   idutil.DayIndex
	endDay     idutil.DayIndex
	metric     config.Metric
	partNames  []string

	page      []obsstore.Row
	pageIndex int
	token     string
	started   bool
	eof       bool

	pendingSet bool
	pending    *reportstore.Row
}

// NewRawDumpReport builds a raw-dump iterator over one metric's observations
// in [startDay, endDay], projected to partNames.
func NewRawDumpReport(obs *obsstore.Store, log analyzerlog.Component, customerID, projectID, metricID uint32, startDay, endDay idutil.DayIndex, metric config.Metric, partNames []string) *RawDumpReport {
	if log == nil {
		log = analyzerlog.NewNop()
	}
	return &RawDumpReport{
		obs:        obs,
		log:        log,
		customerID: customerID,
		projectID:  projectID,
		metricID:   metricID,
		startDay:   startDay,
		endDay:     endDay,
		metric:     metric,
		partNames:  partNames,
		pageIndex:  -1,
	}
}

// Reset returns the iterator to its initial, unstarted state.
func (r *RawDumpReport) Reset() {
	r.page = nil
	r.pageIndex = -1
	r.token = ""
	r.started = false
	r.eof = false
	r.pending = nil
	r.pendingSet = false
}

// HasMoreRows reports whether a subsequent NextRow call would yield a row.
// It may need to fetch a page from the observation store to find out, so
// it buffers the row it found until NextRow consumes it.
func (r *RawDumpReport) HasMoreRows(ctx context.Context) (bool, error) {
	if !r.pendingSet {
		row, ok, err := r.advance(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			r.pending = &row
		}
		r.pendingSet = true
	}
	return r.pending != nil, nil
}

// NextRow returns the next valid row, or (zero, false, nil) at EOF.
func (r *RawDumpReport) NextRow(ctx context.Context) (reportstore.Row, bool, error) {
	return r.Next(ctx)
}

// Next is the idiomatic equivalent of the NextRow/HasMoreRows pair: it
// advances the iterator and returns the next row to emit, skipping
// malformed observations internally, or (zero, false, nil) once the query
// is exhausted. internal/reportgen drives the iterator through this method.
func (r *RawDumpReport) Next(ctx context.Context) (reportstore.Row, bool, error) {
	if r.pendingSet {
		row, ok := r.pending, r.pending != nil
		r.pending, r.pendingSet = nil, false
		if !ok {
			return reportstore.Row{}, false, nil
		}
		return *row, true, nil
	}
	return r.advance(ctx)
}

// advance does the actual work of Next, ignoring any buffered pending row.
func (r *RawDumpReport) advance(ctx context.Context) (reportstore.Row, bool, error) {
	for {
		if r.eof {
			return reportstore.Row{}, false, nil
		}
		if r.pageIndex+1 >= len(r.page) {
			if r.started && r.token == "" {
				r.eof = true
				return reportstore.Row{}, false, nil
			}
			result, err := r.obs.QueryObservations(ctx, r.customerID, r.projectID, r.metricID, r.startDay, r.endDay, r.partNames, queryPageSize, r.token)
			if err != nil {
				return reportstore.Row{}, false, err
			}
			r.started = true
			r.page = result.Rows
			r.pageIndex = -1
			r.token = result.PaginationToken
			continue
		}
		r.pageIndex++
		row, ok := r.buildRow(r.page[r.pageIndex])
		if !ok {
			continue
		}
		return row, true, nil
	}
}

// buildRow projects one observation row to a RAW_DUMP report row, rejecting
// (logging, not failing) observations that don't satisfy the metric's
// declared parts.
func (r *RawDumpReport) buildRow(obsRow obsstore.Row) (reportstore.Row, bool) {
	parts := make(map[string][]byte, len(r.partNames))
	for _, name := range r.partNames {
		raw, ok := obsRow.Parts[name]
		if !ok {
			r.log.Warnf("raw dump: observation is missing part %q", name)
			return reportstore.Row{}, false
		}
		dataType, ok := r.metric.Parts[name]
		if !ok {
			r.log.Warnf("raw dump: part %q is not declared on the metric", name)
			return reportstore.Row{}, false
		}
		if !matchesDataType(dataType, raw) {
			r.log.Warnf("raw dump: part %q has the wrong data type for the metric", name)
			return reportstore.Row{}, false
		}
		parts[name] = raw
	}
	return reportstore.Row{
		Type: reportstore.RowRawDump,
		RawDump: reportstore.RawDumpPayload{
			SystemProfile: obsRow.SystemProfile,
			Parts:         parts,
		},
	}, true
}

// matchesDataType reports whether raw is a plausible encoding of t. String
// and Blob parts accept any bytes; Int and Index parts must parse as
// decimal integers, matching this repository's fixed-width-ASCII
// convention for numeric fields (internal/idutil).
func matchesDataType(t config.PartDataType, raw []byte) bool {
	switch t {
	case config.PartDataTypeInt:
		_, err := strconv.ParseInt(string(raw), 10, 64)
		return err == nil
	case config.PartDataTypeIndex:
		_, err := strconv.ParseUint(string(raw), 10, 32)
		return err == nil
	case config.PartDataTypeString, config.PartDataTypeBlob:
		return true
	default:
		return false
	}
}
