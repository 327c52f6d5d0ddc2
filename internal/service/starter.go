package service

import (
	"context"

	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/idutil"
)

// ReportStarter is the narrow capability internal/scheduler depends on to
// start a new report (spec §9 "Cyclic header" redesign note). The
// report-master service implements it; the scheduler never imports the
// service's full gRPC surface, which is what breaks the original's cyclic
// dependency between the report scheduler and the report-master service.
type ReportStarter interface {
	StartReport(ctx context.Context, cfg config.ReportConfig, firstDay, lastDay idutil.DayIndex, exportName string) (idutil.ReportID, error)
}
