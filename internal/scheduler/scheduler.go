// Package scheduler implements the Report Scheduler (spec §4.8): one
// tick loop that, on each wake, decides which (first-day, last-day)
// windows are due for every registered DAY-epoch report config and starts
// them through the injected ReportStarter capability.
package scheduler

import (
	"context"
	"time"

	"github.com/shuffler/reportmaster/internal/analyzerlog"
	"github.com/shuffler/reportmaster/internal/config"
	"github.com/shuffler/reportmaster/internal/historycache"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/service"
)

// defaultSleepInterval is the default time between ticks (spec §4.8 step 1).
const defaultSleepInterval = 17 * time.Minute

// defaultMakeupDays is the default backfill window (spec §5 resource bounds).
const defaultMakeupDays = 30

// Scheduler owns the tick loop. Construct with New and drive it with Run,
// which blocks until ctx is canceled.
type Scheduler struct {
	registry *config.Registry
	history  *historycache.Cache
	starter  service.ReportStarter
	log      analyzerlog.Component
	now      func() time.Time

	sleepInterval time.Duration
	makeupDays    int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSleepInterval overrides the default ~17 minute tick period.
func WithSleepInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.sleepInterval = d }
}

// WithMakeupDays overrides the default 30-day DAY-epoch backfill window.
func WithMakeupDays(days int) Option {
	return func(s *Scheduler) { s.makeupDays = days }
}

// WithClock overrides the time source used to compute "today". Tests use
// this to pin the scheduler's notion of now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New builds a Scheduler. log may be nil.
func New(registry *config.Registry, history *historycache.Cache, starter service.ReportStarter, log analyzerlog.Component, opts ...Option) *Scheduler {
	if log == nil {
		log = analyzerlog.NewNop()
	}
	s := &Scheduler{
		registry:      registry,
		history:       history,
		starter:       starter,
		log:           log,
		now:           time.Now,
		sleepInterval: defaultSleepInterval,
		makeupDays:    defaultMakeupDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops forever, ticking immediately and then every sleepInterval,
// until ctx is canceled (spec §4.8 step 1: "waking early on shutdown").
func (s *Scheduler) Run(ctx context.Context) {
	s.Tick(ctx)
	ticker := time.NewTicker(s.sleepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduling pass over every registered report config (spec
// §4.8 steps 2-3). Exported so tests (and a caller that wants control over
// its own loop) can drive a single pass deterministically.
func (s *Scheduler) Tick(ctx context.Context) {
	today := idutil.Today(s.now)
	for _, cfg := range s.registry.ReportConfigs() {
		if cfg.AggregationEpochType != config.EpochDay {
			// WEEK, MONTH: not implemented (spec §4.8 step 3).
			continue
		}
		s.tickDayEpochConfig(ctx, cfg, today)
	}
}

func (s *Scheduler) tickDayEpochConfig(ctx context.Context, cfg config.ReportConfig, today idutil.DayIndex) {
	for offset := s.makeupDays; offset >= 0; offset-- {
		d := today - idutil.DayIndex(offset)
		if d > today {
			// DayIndex is unsigned; today - offset wrapped below zero.
			continue
		}
		should, err := s.shouldStart(ctx, cfg, d, today)
		if err != nil {
			s.log.Errorf("scheduler: report config %s day %d: should_start check failed: %v", cfg.ID, d, err)
			continue
		}
		if !should {
			continue
		}
		s.startReport(ctx, cfg, d, d)
	}
}

// shouldStart implements spec §4.8 "should_start(config, d, today)".
func (s *Scheduler) shouldStart(ctx context.Context, cfg config.ReportConfig, d, today idutil.DayIndex) (bool, error) {
	inProgress, err := s.history.InProgress(ctx, cfg.ID, d, d)
	if err != nil {
		return false, err
	}
	if inProgress {
		return false, nil
	}

	finalized := int64(d)+int64(cfg.ReportFinalizationDays) <= int64(today)
	if finalized {
		completed, err := s.history.CompletedSuccessfullyOrInProgress(ctx, cfg.ID, d, d)
		if err != nil {
			return false, err
		}
		return !completed, nil
	}
	return true, nil
}

func (s *Scheduler) startReport(ctx context.Context, cfg config.ReportConfig, first, last idutil.DayIndex) {
	id, err := s.starter.StartReport(ctx, cfg, first, last, "")
	if err != nil {
		s.log.Errorf("scheduler: report config %s window [%d,%d]: start_report failed: %v", cfg.ID, first, last, err)
		return
	}
	s.history.RecordStart(cfg.ID, first, last, id)
	s.log.Infof("scheduler: started report %s for config %s window [%d,%d]", id, cfg.ID, first, last)
}
