// Package service implements the ReportStarter capability and the three
// public RPCs (spec §6) by wiring together the config registry, the
// report store, and the executor. It is the only package that is allowed
// to depend on all three — internal/scheduler, by contrast, depends only
// on the narrow ReportStarter interface declared in starter.go, which is
// what breaks the original's cyclic header dependency between the
// scheduler and the report-master service (spec §9).
package service

import (
	"context"
	"fmt"

	"github.com/shuffler/reportmaster/internal/analyzerlog"
	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/reportstore"
)

// maxQueryReportsBatch bounds one QueryReports stream batch (spec §6).
const maxQueryReportsBatch = 100

// Enqueuer is the capability this package needs from internal/executor.
type Enqueuer interface {
	Enqueue(chain []idutil.ReportID) error
}

// Service implements ReportStarter plus the three public RPCs.
type Service struct {
	registry *config.Registry
	reports  *reportstore.Store
	exec     Enqueuer
	log      analyzerlog.Component
}

// New builds a Service. log may be nil.
func New(registry *config.Registry, reports *reportstore.Store, exec Enqueuer, log analyzerlog.Component) *Service {
	if log == nil {
		log = analyzerlog.NewNop()
	}
	return &Service{registry: registry, reports: reports, exec: exec, log: log}
}

// Metadata is report metadata enriched with the fields the public GetReport
// RPC exposes beyond the store's raw record (spec §6): the metric parts the
// report's variables resolve to, and — for a JOINT report — the two
// sibling marginal report IDs.
type Metadata struct {
	reportstore.Metadata
	MetricParts        []string
	Var1ReportIDString string
	Var2ReportIDString string
}

// StartReportByConfigID implements the public RPC (spec §6): resolves
// report_config_id against the registry, then delegates to StartReport.
func (s *Service) StartReportByConfigID(ctx context.Context, customerID, projectID, reportConfigID uint32, firstDay, lastDay idutil.DayIndex) (string, error) {
	cfg, ok := s.registry.ReportConfig(idutil.Triple{CustomerID: customerID, ProjectID: projectID, ID: reportConfigID})
	if !ok {
		return "", fmt.Errorf("%w: report config %d:%d:%d", errs.NotFound, customerID, projectID, reportConfigID)
	}
	id, err := s.StartReport(ctx, cfg, firstDay, lastDay, "")
	if err != nil {
		return "", err
	}
	return id.Encode(), nil
}

// StartReport implements the ReportStarter capability (spec §9) and backs
// the public StartReport RPC: single-variable configs allocate one report;
// two-variable (JOINT) configs allocate var-1, var-2, and the JOINT report
// itself as one dependency chain (spec §6). The returned ID is the chain's
// last entry — the sole report for a single-variable config, or the JOINT
// report for a two-variable one. exportName is accepted for parity with
// the original's report_starter.start_report signature; report export is
// out of scope (spec §1) so it is not otherwise consulted.
func (s *Service) StartReport(ctx context.Context, cfg config.ReportConfig, firstDay, lastDay idutil.DayIndex, exportName string) (idutil.ReportID, error) {
	if err := cfg.Validate(); err != nil {
		return idutil.ReportID{}, fmt.Errorf("%w: %v", errs.PreconditionFailed, err)
	}
	base := idutil.ReportID{CustomerID: cfg.ID.CustomerID, ProjectID: cfg.ID.ProjectID, ReportConfigID: cfg.ID.ID}

	if len(cfg.Variable) == 1 {
		id, err := s.reports.StartNewReport(ctx, base, firstDay, lastDay, false, cfg.ReportType, []uint32{0})
		if err != nil {
			return idutil.ReportID{}, fmt.Errorf("%w: %v", errs.Aborted, err)
		}
		if err := s.exec.Enqueue([]idutil.ReportID{id}); err != nil {
			return idutil.ReportID{}, err
		}
		return id, nil
	}

	var1, err := s.reports.StartNewReport(ctx, base, firstDay, lastDay, false, idutil.ReportTypeHistogram, []uint32{0})
	if err != nil {
		return idutil.ReportID{}, fmt.Errorf("%w: %v", errs.Aborted, err)
	}
	var2, err := s.reports.CreateDependentReport(ctx, var1, 1, idutil.ReportTypeHistogram, []uint32{1})
	if err != nil {
		return idutil.ReportID{}, fmt.Errorf("%w: %v", errs.Aborted, err)
	}
	joint, err := s.reports.CreateDependentReport(ctx, var1, 2, idutil.ReportTypeJoint, []uint32{0, 1})
	if err != nil {
		return idutil.ReportID{}, fmt.Errorf("%w: %v", errs.Aborted, err)
	}
	if err := s.exec.Enqueue([]idutil.ReportID{var1, var2, joint}); err != nil {
		return idutil.ReportID{}, err
	}
	return joint, nil
}

// GetReport implements the public RPC (spec §6).
func (s *Service) GetReport(ctx context.Context, reportIDString string) (Metadata, []reportstore.Row, error) {
	id, err := idutil.DecodeReportID(reportIDString)
	if err != nil {
		return Metadata{}, nil, fmt.Errorf("%w: %v", errs.InvalidArgument, err)
	}
	m, rows, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return Metadata{}, nil, err
	}

	reportConfigID := idutil.Triple{CustomerID: id.CustomerID, ProjectID: id.ProjectID, ID: id.ReportConfigID}
	cfg, ok := s.registry.ReportConfig(reportConfigID)
	if !ok {
		return Metadata{}, nil, fmt.Errorf("%w: report config %s", errs.NotFound, reportConfigID)
	}

	parts := make([]string, 0, len(m.VariableIndices))
	for _, idx := range m.VariableIndices {
		if int(idx) < len(cfg.Variable) {
			parts = append(parts, cfg.Variable[idx].MetricPart)
		}
	}
	out := Metadata{Metadata: m, MetricParts: parts}
	if m.ReportType == idutil.ReportTypeJoint {
		var1, var2 := id, id
		var1.SequenceNum, var2.SequenceNum = 0, 1
		out.Var1ReportIDString = var1.Encode()
		out.Var2ReportIDString = var2.Encode()
	}
	return out, rows, nil
}

// QueryReports implements the public streaming RPC (spec §6), invoking
// emit once per page of at most maxQueryReportsBatch metadata records. A
// non-nil error from emit (e.g. the gRPC transport failing mid-stream)
// stops the scan immediately.
func (s *Service) QueryReports(ctx context.Context, customerID, projectID, reportConfigID uint32, firstTimestamp, limitTimestamp int64, emit func([]reportstore.Metadata) error) error {
	token := ""
	for {
		result, err := s.reports.QueryReports(ctx, customerID, projectID, reportConfigID, firstTimestamp, limitTimestamp, maxQueryReportsBatch, token)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.Aborted, err)
		}
		if len(result.Metadata) > 0 {
			if err := emit(result.Metadata); err != nil {
				return err
			}
		}
		if result.PaginationToken == "" {
			return nil
		}
		token = result.PaginationToken
	}
}
