package application

import (
	"context"
	"fmt"
	"time"

	"pulp/domain/interfaces"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// SweepResult counts what one sweep pass changed
type SweepResult struct {
	WindowsLocked     int
	WindowsExpired    int
	AdvantagesExpired int
}

// SweepWorker runs the periodic window and advantage sweeps
type SweepWorker struct {
	windows    interfaces.WindowService
	advantages interfaces.AdvantageService
	interval   time.Duration
	onSweep    func(SweepResult)
}

// NewSweepWorker creates a sweep worker that runs every interval
func NewSweepWorker(windows interfaces.WindowService, advantages interfaces.AdvantageService, interval time.Duration) *SweepWorker {
	return &SweepWorker{
		windows:    windows,
		advantages: advantages,
		interval:   interval,
	}
}

// OnSweep registers a callback invoked after every pass
func (w *SweepWorker) OnSweep(fn func(SweepResult)) {
	w.onSweep = fn
}

// Start schedules the sweep and returns a function that stops it
func (w *SweepWorker) Start(ctx context.Context) (func(), error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			if _, err := w.RunOnce(ctx); err != nil {
				log.WithError(err).Error("Sweep pass failed")
			}
		}),
		gocron.WithName("pulp-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule sweep: %w", err)
	}

	scheduler.Start()
	log.WithField("interval", w.interval).Info("Sweep worker started")

	return func() {
		if err := scheduler.Shutdown(); err != nil {
			log.WithError(err).Error("Failed to stop sweep worker")
			return
		}
		log.Info("Sweep worker stopped")
	}, nil
}

// RunOnce locks windows past their deadline, expires stale locked windows and
// expires advantages past their expiry. Every step runs even if an earlier
// one fails; the first error is returned.
func (w *SweepWorker) RunOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	var firstErr error
	record := func(step string, err error) {
		if err == nil {
			return
		}
		log.WithFields(log.Fields{
			"step":  step,
			"error": err,
		}).Error("Sweep step failed")
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", step, err)
		}
	}

	locked, err := w.windows.LockExpiredWindows(ctx)
	record("lock windows", err)
	result.WindowsLocked = locked

	expired, err := w.windows.ExpireStaleWindows(ctx)
	record("expire windows", err)
	result.WindowsExpired = expired

	advantages, err := w.advantages.ExpireAllAdvantages(ctx)
	record("expire advantages", err)
	result.AdvantagesExpired = advantages

	if result.WindowsLocked+result.WindowsExpired+result.AdvantagesExpired > 0 {
		log.WithFields(log.Fields{
			"windowsLocked":     result.WindowsLocked,
			"windowsExpired":    result.WindowsExpired,
			"advantagesExpired": result.AdvantagesExpired,
		}).Info("Sweep pass changed state")
	}

	if w.onSweep != nil {
		w.onSweep(result)
	}
	return result, firstErr
}
