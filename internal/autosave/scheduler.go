// Package autosave debounces graph mutations into a single persistence call
// after a quiet period. Saves never overlap: a timer or explicit flush that
// fires while a save is in flight queues exactly one follow-up save, so the
// latest quiescent definition always eventually persists.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quantsight/flowcanvas/internal/metrics"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

// DefaultQuietPeriod is the policy default between the last mutation and
// the persistence call.
const DefaultQuietPeriod = 2 * time.Second

// SaveFunc hands a definition snapshot to the persistence collaborator.
type SaveFunc func(ctx context.Context, def workflow.Definition) error

// Scheduler arms a quiet-period timer on every mutation; only the final
// state after a burst is persisted. A save failure keeps the state dirty so
// the next flush or debounce window retries it; nothing is lost client-side.
type Scheduler struct {
	quiet time.Duration
	save  SaveFunc
	ctx   context.Context

	mu      sync.Mutex
	timer   *time.Timer
	latest  workflow.Definition
	dirty   bool
	saving  bool
	pending bool
	done    chan struct{} // closed when the in-flight save resolves
	stopped bool
}

// New creates a Scheduler. ctx bounds timer-fired saves; quiet <= 0 falls
// back to DefaultQuietPeriod.
func New(ctx context.Context, quiet time.Duration, save SaveFunc) *Scheduler {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Scheduler{quiet: quiet, save: save, ctx: ctx}
}

// OnMutation records the new snapshot and re-arms the quiet-period timer.
// Another mutation before the timer fires resets it.
func (s *Scheduler) OnMutation(def workflow.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.latest = def
	s.dirty = true
	s.rearmLocked(s.quiet)
}

// FlushNow cancels any pending timer and persists immediately, waiting out
// an in-flight save first. A clean scheduler is a no-op.
func (s *Scheduler) FlushNow(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		if s.stopped {
			s.mu.Unlock()
			return nil
		}
		if s.saving {
			done := s.done
			s.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if !s.dirty {
			s.mu.Unlock()
			return nil
		}
		return s.runSaveLocked(ctx)
	}
}

// Stop cancels any pending timer without flushing. Unsaved edits are
// discarded; warning the user beforehand is the UI's job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Dirty reports whether unsaved mutations exist.
func (s *Scheduler) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// rearmLocked (re)schedules the debounce timer. Caller holds mu.
func (s *Scheduler) rearmLocked(d time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, s.fire)
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.stopped || !s.dirty {
		s.mu.Unlock()
		return
	}
	if s.saving {
		// Queue a single follow-up behind the in-flight save.
		s.pending = true
		s.mu.Unlock()
		return
	}
	_ = s.runSaveLocked(s.ctx)
}

// runSaveLocked performs one save. Caller holds mu; the lock is released
// while the persistence call is outstanding so editing is never blocked.
func (s *Scheduler) runSaveLocked(ctx context.Context) error {
	snap := s.latest.Clone()
	s.saving = true
	s.dirty = false
	s.done = make(chan struct{})
	s.mu.Unlock()

	err := s.save(ctx, snap)

	s.mu.Lock()
	s.saving = false
	close(s.done)
	if err != nil {
		// Dirty flag preserved: the next debounce window retries.
		s.dirty = true
		if !s.stopped {
			s.rearmLocked(s.quiet)
		}
		metrics.AutosaveRuns.WithLabelValues("error").Inc()
		slog.Warn("autosave failed", "workflow_id", snap.ID, "err", err)
	} else {
		metrics.AutosaveRuns.WithLabelValues("ok").Inc()
		slog.Debug("autosave complete", "workflow_id", snap.ID)
	}
	if s.pending {
		s.pending = false
		if s.dirty && !s.stopped {
			go s.fire()
		}
	}
	s.mu.Unlock()
	return err
}
