// Package watch repeats a fleet check on a cron schedule. Runs are skipped while the previous one is
// still active and can be postponed until the host is quiet enough for a browser session.
package watch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"
)

//go:generate moq -out mocks/cron.go -pkg mocks -skip-ensure -fmt goimports . Cron
//go:generate moq -out mocks/host_checker.go -pkg mocks -skip-ensure -fmt goimports . HostChecker

// Cron is the part of robfig/cron the watcher uses
type Cron interface {
	Start()
	Stop() context.Context
	Schedule(schedule cron.Schedule, cmd cron.Job) cron.EntryID
}

// HostChecker tells if the host is within the limits
type HostChecker interface {
	Check(l Limits) (bool, string)
}

// Watcher runs Job on every tick of Spec
type Watcher struct {
	Cron        Cron
	Spec        string // standard 5-field cron spec or a descriptor like @every 10m
	Job         func(ctx context.Context) error
	Host        HostChecker // nil disables host limits
	Limits      Limits
	MaxPostpone time.Duration // zero skips the run when limits are exceeded
	CheckEvery  time.Duration // host recheck interval while postponed, 30s if not set
	Jitter      time.Duration // random delay before each run, up to this value

	active atomic.Bool
}

// Do schedules the job and blocks until ctx is canceled
func (w *Watcher) Do(ctx context.Context) error {
	sched, err := cron.ParseStandard(w.Spec)
	if err != nil {
		return fmt.Errorf("can't parse schedule %q: %w", w.Spec, err)
	}
	w.Cron.Schedule(sched, cron.FuncJob(func() { w.tick(ctx) }))
	log.Printf("[INFO] watching with %q, next run at %s", w.Spec, sched.Next(time.Now()).Format(time.RFC3339))
	w.Cron.Start()
	<-ctx.Done()
	log.Print("[DEBUG] terminate watcher")
	<-w.Cron.Stop().Done()
	return nil
}

// tick runs the job once unless another run is active or the host stays busy
func (w *Watcher) tick(ctx context.Context) {
	if !w.active.CompareAndSwap(false, true) {
		log.Printf("[WARN] previous run is still active, skip")
		return
	}
	defer w.active.Store(false)

	if w.Jitter > 0 {
		select {
		case <-time.After(rand.N(w.Jitter)): //nolint:gosec // not security related
		case <-ctx.Done():
			return
		}
	}
	if !w.waitForHost(ctx) {
		return
	}
	if err := w.Job(ctx); err != nil {
		log.Printf("[WARN] watch run failed, %v", err)
	}
}

// waitForHost returns true if the job should run
func (w *Watcher) waitForHost(ctx context.Context) bool {
	if w.Host == nil || w.Limits.empty() {
		return true
	}
	ok, reason := w.Host.Check(w.Limits)
	if ok {
		return true
	}
	if w.MaxPostpone <= 0 {
		log.Printf("[INFO] run skipped, %s", reason)
		return false
	}
	log.Printf("[INFO] run postponed up to %v, %s", w.MaxPostpone, reason)

	every := w.CheckEvery
	if every <= 0 {
		every = 30 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	deadline := time.NewTimer(w.MaxPostpone)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			if ok, reason = w.Host.Check(w.Limits); ok {
				return true
			}
			log.Printf("[DEBUG] host still busy, %s", reason)
		case <-deadline.C:
			log.Printf("[WARN] max postpone reached, running anyway")
			return true
		case <-ctx.Done():
			return false
		}
	}
}
