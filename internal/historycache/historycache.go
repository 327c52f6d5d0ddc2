// Package historycache implements the Report History Cache (spec §4.9): a
// process-local memo of which (report_config_id, first_day, last_day)
// windows have already completed successfully or are currently in flight,
// so the scheduler's tick loop doesn't have to re-scan the Report Store's
// metadata table on every tick. The first access to a given report config
// pays for one bulk scan; every access after that is a point lookup.
package historycache

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/shuffler/reportmaster/internal/analyzerlog"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/reportstore"
)

// completion is the tri-state success verdict for one window (spec §4.9).
type completion uint8

const (
	completionUnknown completion = iota
	completionYes
	completionNo
)

type windowKey struct {
	reportConfigID idutil.Triple
	first, last    idutil.DayIndex
}

type entry struct {
	completedSuccessfully completion
	inProgressReportID    *idutil.ReportID
}

// Cache is the Report History Cache. One Cache instance is shared across
// every report config the scheduler iterates; the first-access bulk scan is
// deduplicated per report_config_id, and the shared mutex is not held while
// a scan reads the store, so scans for different configs never block each
// other.
type Cache struct {
	reports *reportstore.Store
	log     analyzerlog.Component

	mu      sync.Mutex
	entries map[windowKey]*entry
	scanned map[idutil.Triple]bool

	scanGroup singleflight.Group
}

// New builds a Cache over reports. log may be nil.
func New(reports *reportstore.Store, log analyzerlog.Component) *Cache {
	if log == nil {
		log = analyzerlog.NewNop()
	}
	return &Cache{
		reports: reports,
		log:     log,
		entries: make(map[windowKey]*entry),
		scanned: make(map[idutil.Triple]bool),
	}
}

// InProgress reports whether a report for this window is currently in
// flight (spec §4.9). If the report store has since moved the recorded ID
// to a terminal state, the cache updates itself — clearing the in-progress
// marker, and on terminal-success recording completed_successfully — before
// answering.
func (c *Cache) InProgress(ctx context.Context, reportConfigID idutil.Triple, first, last idutil.DayIndex) (bool, error) {
	if err := c.ensureScanned(ctx, reportConfigID); err != nil {
		return false, err
	}

	key := windowKey{reportConfigID, first, last}
	c.mu.Lock()
	e := c.entries[key]
	var id *idutil.ReportID
	if e != nil {
		id = e.inProgressReportID
	}
	c.mu.Unlock()
	if id == nil {
		return false, nil
	}

	m, err := c.reports.GetMetadata(ctx, *id)
	if err != nil {
		return false, fmt.Errorf("history cache: checking in-progress report %s: %w", *id, err)
	}
	if !m.State.IsTerminal() {
		return true, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e = c.entryLocked(key)
	e.inProgressReportID = nil
	if m.State == reportstore.CompletedSuccessfully {
		e.completedSuccessfully = completionYes
	}
	return false, nil
}

// CompletedSuccessfullyOrInProgress reports whether this window either
// already succeeded or is currently being generated (spec §4.9).
func (c *Cache) CompletedSuccessfullyOrInProgress(ctx context.Context, reportConfigID idutil.Triple, first, last idutil.DayIndex) (bool, error) {
	inProgress, err := c.InProgress(ctx, reportConfigID, first, last)
	if err != nil {
		return false, err
	}
	if inProgress {
		return true, nil
	}

	if err := c.ensureScanned(ctx, reportConfigID); err != nil {
		return false, err
	}
	key := windowKey{reportConfigID, first, last}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	return e != nil && e.completedSuccessfully == completionYes, nil
}

// RecordStart notes that reportID now owns this window (spec §4.9); called
// by the scheduler immediately after a successful ReportStarter.StartReport.
func (c *Cache) RecordStart(reportConfigID idutil.Triple, first, last idutil.DayIndex, reportID idutil.ReportID) {
	key := windowKey{reportConfigID, first, last}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	e.inProgressReportID = &reportID
}

func (c *Cache) entryLocked(key windowKey) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// ensureScanned performs the one bulk metadata scan for reportConfigID on
// first access (spec §4.9), collapsing concurrent first-accesses for the
// same config into a single scan via singleflight. Prior-lifetime
// IN_PROGRESS/WAITING_TO_START rows are deliberately ignored here — per
// spec §4.9's crash semantics, only terminal rows (success or failure) seed
// the cache; nothing is trusted as "in flight" except what this process's
// own RecordStart calls have noted.
func (c *Cache) ensureScanned(ctx context.Context, reportConfigID idutil.Triple) error {
	c.mu.Lock()
	already := c.scanned[reportConfigID]
	c.mu.Unlock()
	if already {
		return nil
	}

	_, err, _ := c.scanGroup.Do(reportConfigID.String(), func() (interface{}, error) {
		c.mu.Lock()
		already := c.scanned[reportConfigID]
		c.mu.Unlock()
		if already {
			return nil, nil
		}

		token := ""
		for {
			result, err := c.reports.QueryReports(ctx, reportConfigID.CustomerID, reportConfigID.ProjectID, reportConfigID.ID, 0, math.MaxInt64, 1000, token)
			if err != nil {
				return nil, err
			}
			c.mu.Lock()
			for _, m := range result.Metadata {
				c.applyScannedMetadataLocked(reportConfigID, m)
			}
			c.mu.Unlock()
			if result.PaginationToken == "" {
				break
			}
			token = result.PaginationToken
		}

		c.mu.Lock()
		c.scanned[reportConfigID] = true
		c.mu.Unlock()
		c.log.Debugf("history cache: bulk scan complete for report config %s", reportConfigID)
		return nil, nil
	})
	return err
}

func (c *Cache) applyScannedMetadataLocked(reportConfigID idutil.Triple, m reportstore.Metadata) {
	if !m.State.IsTerminal() {
		return
	}
	key := windowKey{reportConfigID, m.FirstDayIndex, m.LastDayIndex}
	e := c.entryLocked(key)
	if m.State == reportstore.CompletedSuccessfully {
		e.completedSuccessfully = completionYes
	} else if e.completedSuccessfully != completionYes {
		e.completedSuccessfully = completionNo
	}
}
