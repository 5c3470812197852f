package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/DachengChen/floatwords/applog"
	"github.com/DachengChen/floatwords/idle"
	"github.com/DachengChen/floatwords/spawner"
	"github.com/DachengChen/floatwords/tui"
)

func runTUI(parent context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	activity := idle.NewActivity(nil)
	sched := a.scheduler(activity)
	a.ctl.Startup()
	a.ctl.Start()

	changes, err := a.store.Watch(ctx, 0)
	if err != nil {
		applog.Warn("settings watcher unavailable", "err", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watchTexts(gctx, a)
	})
	g.Go(func() error {
		// Quitting the UI ends the other goroutines.
		defer cancel()
		return tui.Run(gctx, tui.Deps{
			Controller:      a.ctl,
			Scheduler:       sched,
			Activity:        activity,
			Settings:        a.store,
			SettingsChanges: changes,
			Lifetime:        a.cfg.Spawn.Lifetime,
		})
	})
	return g.Wait()
}

func runHeadless(parent context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// No keyboard to watch, so the user always counts as idle.
	sched := a.scheduler(idle.Fallback{})
	a.ctl.Startup()
	a.ctl.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx, spawner.NewPrinter(os.Stdout, a.cfg.Spawn.Lifetime, nil))
	})
	g.Go(func() error {
		return watchTexts(gctx, a)
	})
	g.Go(func() error {
		changes, err := a.store.Watch(gctx, 0)
		if err != nil {
			applog.Warn("settings watcher unavailable", "err", err)
			return nil
		}
		for keys := range changes {
			a.ctl.ApplySettings(keys)
			sched.ApplySettings(keys, a.store)
		}
		return nil
	})
	return g.Wait()
}

// watchTexts reloads the local texts file on change. A watcher that cannot
// start only loses hot reload.
func watchTexts(ctx context.Context, a *app) error {
	if err := a.local.Reload(ctx, 0); err != nil {
		applog.Warn("texts watcher unavailable", "path", a.local.Path(), "err", err)
	}
	return nil
}
