// Package reportgen implements the Report Generator (spec §4.6): given one
// IN_PROGRESS report ID, it fetches the report's config and metric, scans
// the relevant observations page by page, feeds the Histogram Analysis
// Engine (or the raw-dump iterator), and writes the resulting rows back to
// the Report Store.
package reportgen

import (
	"context"
	"fmt"

	"github.com/shuffler/reportmaster/internal/analyzerlog"
	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/decoder"
	"github.com/shuffler/reportmaster/internal/engine"
	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/obsstore"
	"github.com/shuffler/reportmaster/internal/reportstore"
)

// queryPageSize is the observation-store page size the generator scans in
// (spec §4.6 step 5).
const queryPageSize = 1000

// Generator orchestrates one report instance.
type Generator struct {
	obs      *obsstore.Store
	reports  *reportstore.Store
	registry *config.Registry
	log      analyzerlog.Component
}

// New builds a Generator. log may be nil, in which case generation is silent.
func New(obs *obsstore.Store, reports *reportstore.Store, registry *config.Registry, log analyzerlog.Component) *Generator {
	if log == nil {
		log = analyzerlog.NewNop()
	}
	return &Generator{obs: obs, reports: reports, registry: registry, log: log}
}

// GenerateReport runs report id to completion, writing its rows to the
// Report Store (spec §4.6). It does not transition the report's state —
// the executor does that around this call (spec §4.7).
func (g *Generator) GenerateReport(ctx context.Context, id idutil.ReportID) error {
	metadata, err := g.reports.GetMetadata(ctx, id)
	if err != nil {
		return err
	}
	if metadata.State != reportstore.InProgress {
		return fmt.Errorf("%w: report %s is %s, not IN_PROGRESS", errs.PreconditionFailed, id, metadata.State)
	}

	reportConfigID := idutil.Triple{CustomerID: id.CustomerID, ProjectID: id.ProjectID, ID: id.ReportConfigID}
	reportConfig, ok := g.registry.ReportConfig(reportConfigID)
	if !ok {
		return fmt.Errorf("%w: report config %s", errs.NotFound, reportConfigID)
	}
	if err := reportConfig.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errs.InvalidArgument, err)
	}

	metricID := idutil.Triple{CustomerID: id.CustomerID, ProjectID: id.ProjectID, ID: reportConfig.MetricID}
	metric, ok := g.registry.Metric(metricID)
	if !ok {
		return fmt.Errorf("%w: metric %s", errs.NotFound, metricID)
	}

	variables := make([]config.Variable, 0, len(metadata.VariableIndices))
	for _, idx := range metadata.VariableIndices {
		if int(idx) >= len(reportConfig.Variable) {
			return fmt.Errorf("%w: variable index %d out of range for report config %s", errs.InvalidArgument, idx, reportConfigID)
		}
		variables = append(variables, reportConfig.Variable[idx])
	}
	for _, v := range variables {
		if !metric.HasPart(v.MetricPart) {
			return fmt.Errorf("%w: variable %q is not a declared part of metric %s", errs.InvalidArgument, v.MetricPart, metricID)
		}
	}

	switch metadata.ReportType {
	case idutil.ReportTypeHistogram:
		if len(variables) != 1 {
			return fmt.Errorf("%w: HISTOGRAM report analyzes exactly one variable, got %d", errs.InvalidArgument, len(variables))
		}
		return g.generateHistogramReport(ctx, id, reportConfig, metadata, variables[0])
	case idutil.ReportTypeJoint:
		return fmt.Errorf("%w: JOINT reports are not yet implemented", errs.Unimplemented)
	case idutil.ReportTypeRawDump:
		return g.generateRawDumpReport(ctx, id, reportConfig, metadata, metric, variables)
	default:
		return fmt.Errorf("%w: unrecognized report_type %s for report %s", errs.InvalidArgument, metadata.ReportType, id)
	}
}

// generateHistogramReport scans observations in pages of queryPageSize,
// feeding the one requested part to the engine, then writes the resulting
// histogram rows (spec §4.6 steps 5-6).
func (g *Generator) generateHistogramReport(ctx context.Context, id idutil.ReportID, rc config.ReportConfig, metadata reportstore.Metadata, variable config.Variable) error {
	eng := engine.New(g.registry, rc.AggregationEpochType, g.log)

	token := ""
	for {
		result, err := g.obs.QueryObservations(ctx, id.CustomerID, id.ProjectID, rc.MetricID, metadata.FirstDayIndex, metadata.LastDayIndex, []string{variable.MetricPart}, queryPageSize, token)
		if err != nil {
			return err
		}
		for _, row := range result.Rows {
			raw, ok := row.Parts[variable.MetricPart]
			if !ok {
				continue
			}
			part, err := decoder.DecodePart(raw)
			if err != nil {
				g.log.Warnf("report %s: skipping malformed observation part: %v", id, err)
				continue
			}
			profile := engine.SystemProfile{
				OS:        row.SystemProfile["os"],
				ARCH:      row.SystemProfile["arch"],
				BoardName: row.SystemProfile["board_name"],
			}
			eng.ProcessObservationPart(row.Metadata.DayIndex, engine.Part{
				EncodingConfigID: part.EncodingConfigID,
				Algorithm:        part.Algorithm,
				Payload:          part.Payload(),
			}, profile)
		}
		if result.PaginationToken == "" {
			break
		}
		token = result.PaginationToken
	}

	rows, err := eng.PerformAnalysis()
	if err != nil {
		return err
	}
	return g.reports.AddReportRows(ctx, id, rows)
}

// generateRawDumpReport drains the raw-dump iterator (§4.6.1) and writes
// every row it yields.
func (g *Generator) generateRawDumpReport(ctx context.Context, id idutil.ReportID, rc config.ReportConfig, metadata reportstore.Metadata, metric config.Metric, variables []config.Variable) error {
	partNames := make([]string, 0, len(variables))
	for _, v := range variables {
		partNames = append(partNames, v.MetricPart)
	}
	iter := NewRawDumpReport(g.obs, g.log, id.CustomerID, id.ProjectID, rc.MetricID, metadata.FirstDayIndex, metadata.LastDayIndex, metric, partNames)

	var rows []reportstore.Row
	for {
		row, ok, err := iter.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return g.reports.AddReportRows(ctx, id, rows)
}
