package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"rsiwatch/internal/alerting"
	"rsiwatch/internal/metrics"
	"rsiwatch/internal/scheduler"
	"rsiwatch/internal/storage"
)

// Schedule runs the fetch pipeline on the configured interval until
// interrupted. An advisory lock keeps concurrent deployments from running
// the same day twice.
func (a *App) Schedule(ctx context.Context, opts ScheduleOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var runStore storage.RunStore
	var locker storage.AdvisoryLocker
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	} else {
		runStore = store
		locker = store
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	var mgr *metrics.Manager
	if a.Config.Metrics.Enabled {
		mgr = metrics.NewManager()
		go func() {
			if err := mgr.Serve(ctx, a.Config.Metrics.Addr, a.Logger); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	notifier := a.newNotifier()

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Scheduler.Interval,
		AlignToStart:   a.Config.Scheduler.AlignToBucket,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		RunImmediately: opts.RunImmediately,
	}, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting scheduled fetching")

	err = sched.Run(ctx, func(ctx context.Context, runAt time.Time) error {
		return a.scheduledRun(ctx, runStore, locker, notifier, mgr)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("scheduler terminated with error")
		return err
	}

	a.Logger.Info().Msg("scheduled fetching stopped")
	return nil
}

func (a *App) scheduledRun(ctx context.Context, store storage.RunStore, locker storage.AdvisoryLocker, notifier alerting.Notifier, mgr *metrics.Manager) error {
	unlock, proceed, err := a.acquireLock(ctx, locker)
	if err != nil {
		return err
	}
	if !proceed {
		a.Logger.Debug().Msg("skip run because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	_, err = a.executeRun(ctx, FetchOptions{}, store, notifier, mgr)
	return err
}

func (a *App) acquireLock(ctx context.Context, locker storage.AdvisoryLocker) (func(), bool, error) {
	key := a.Config.Scheduler.AdvisoryLockKey
	if key == 0 || locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := locker.TryAdvisoryLock(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
