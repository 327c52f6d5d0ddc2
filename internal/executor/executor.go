// Package executor implements the Report Executor (spec §4.7): one worker
// goroutine draining a bounded FIFO queue of dependency chains, serializing
// report generation and driving each report's state transitions. The
// bounded-channel-plus-condition-variable shape mirrors the worker/queue
// idiom used throughout the teacher's defaultforwarder transaction workers
// (one input channel per worker, drained by a single goroutine per worker,
// with a separate synchronization primitive for idle detection — a
// channel alone can tell you "empty", never "idle").
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/shuffler/reportmaster/internal/analyzerlog"
	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/reportstore"
)

// queueCapacity bounds the number of chains the executor will hold before
// rejecting new work with errs.Aborted (spec §4.7).
const queueCapacity = 50000

// Generator is the capability the executor needs from internal/reportgen;
// declared narrowly here so the executor does not depend on that package's
// full surface.
type Generator interface {
	GenerateReport(ctx context.Context, id idutil.ReportID) error
}

// Executor owns one worker goroutine and a bounded FIFO queue of dependency
// chains (spec §4.7).
type Executor struct {
	reports   *reportstore.Store
	generator Generator
	log       analyzerlog.Component

	queue chan []idutil.ReportID

	mu       sync.Mutex
	idleCond *sync.Cond
	idle     bool
	shutDown bool
	wg       sync.WaitGroup
}

// New builds an Executor and starts its worker goroutine.
func New(reports *reportstore.Store, generator Generator, log analyzerlog.Component) *Executor {
	if log == nil {
		log = analyzerlog.NewNop()
	}
	e := &Executor{
		reports:   reports,
		generator: generator,
		log:       log,
		queue:     make(chan []idutil.ReportID, queueCapacity),
		idle:      true,
	}
	e.idleCond = sync.NewCond(&e.mu)
	e.wg.Add(1)
	go e.run()
	return e
}

// Enqueue submits one dependency chain for sequential generation (spec
// §4.7). Every ID must already be complete (allocated by the report
// store); the chain must be non-empty.
func (e *Executor) Enqueue(chain []idutil.ReportID) error {
	if len(chain) == 0 {
		return fmt.Errorf("%w: empty dependency chain", errs.InvalidArgument)
	}
	for i, id := range chain {
		if !id.IsComplete() {
			return fmt.Errorf("%w: chain[%d]=%s is not a complete report id", errs.InvalidArgument, i, id)
		}
	}

	// The send happens under mu so the worker cannot finish the chain and
	// mark itself idle before idle is cleared here.
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutDown {
		return fmt.Errorf("%w: executor is shutting down", errs.Aborted)
	}

	select {
	case e.queue <- chain:
		e.idle = false
		return nil
	default:
		return fmt.Errorf("%w: queue is at capacity (%d)", errs.Aborted, queueCapacity)
	}
}

// run is the single worker loop: pop a chain, process it to completion,
// repeat. It exits once the queue is drained and shutdown was requested.
func (e *Executor) run() {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		e.idle = true
		e.idleCond.Broadcast()
		e.mu.Unlock()

		chain, ok := <-e.queue
		if !ok {
			return
		}

		e.mu.Lock()
		e.idle = false
		e.mu.Unlock()

		e.processChain(chain)

		e.mu.Lock()
		shutDown := e.shutDown && len(e.queue) == 0
		e.mu.Unlock()
		if shutDown {
			e.mu.Lock()
			e.idle = true
			e.idleCond.Broadcast()
			e.mu.Unlock()
			return
		}
	}
}

// processChain walks one dependency chain in order (spec §4.7). After the
// first failure, every remaining ID is terminated with a diagnostic
// explaining the upstream failure rather than generated.
func (e *Executor) processChain(chain []idutil.ReportID) {
	ctx := context.Background()
	failed := false
	for _, id := range chain {
		if failed {
			e.terminate(ctx, id, "upstream report in this chain failed")
			continue
		}

		metadata, err := e.reports.GetMetadata(ctx, id)
		if err != nil {
			e.log.Errorf("executor: report %s: metadata unavailable: %v", id, err)
			_ = e.reports.EndReport(ctx, id, false, "metadata unavailable")
			failed = true
			continue
		}

		switch metadata.State {
		case reportstore.WaitingToStart:
			if err := e.reports.StartDependentReport(ctx, id); err != nil {
				e.log.Errorf("executor: report %s: failed to start: %v", id, err)
				_ = e.reports.EndReport(ctx, id, false, err.Error())
				failed = true
				continue
			}
		case reportstore.InProgress:
			// Already started; proceed straight to generation.
		default:
			e.log.Errorf("executor: report %s: unexpected state %s, not a fresh report", id, metadata.State)
			failed = true
			continue
		}

		if err := e.generator.GenerateReport(ctx, id); err != nil {
			e.log.Errorf("executor: report %s: generation failed: %v", id, err)
			_ = e.reports.EndReport(ctx, id, false, err.Error())
			failed = true
			continue
		}
		if err := e.reports.EndReport(ctx, id, true, ""); err != nil {
			e.log.Errorf("executor: report %s: failed to mark complete: %v", id, err)
			failed = true
		}
	}
}

func (e *Executor) terminate(ctx context.Context, id idutil.ReportID, reason string) {
	if err := e.reports.EndReport(ctx, id, false, reason); err != nil {
		e.log.Errorf("executor: report %s: failed to terminate: %v", id, err)
	}
}

// WaitUntilIdle blocks until the queue is empty and the worker is waiting
// for new work (spec §4.7). Used by graceful shutdown and by tests.
func (e *Executor) WaitUntilIdle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for !(e.idle && len(e.queue) == 0) {
		e.idleCond.Wait()
	}
}

// Shutdown flips the shut_down flag, closes the queue, and waits for the
// worker to exit (spec §4.7 "on destruction"). New Enqueue calls are
// rejected from then on, but the worker is not interrupted: it finishes the
// chain in progress and every chain already queued, then exits. Chains are
// not cut short at an ID boundary.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	e.shutDown = true
	e.mu.Unlock()
	close(e.queue)
	e.wg.Wait()
}
