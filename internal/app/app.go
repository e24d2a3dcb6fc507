// Package app wires configuration, logging, scheduling, the control loop,
// notifications, storage, and reports into one lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"surveybot/internal/config"
	"surveybot/internal/notifier"
	"surveybot/internal/reports"
	"surveybot/internal/reviews"
	"surveybot/internal/runner"
	"surveybot/internal/scheduler"
	"surveybot/internal/storage"
	logx "surveybot/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	fanout *notifier.Fanout
	store  storage.Store
	sched  *scheduler.Scheduler
	loop   *runner.Loop
	rep    *reports.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	// Notifier channels exist before the log service so warn+ records can
	// be forwarded to chat from the first Apply() on.
	bootLog := logx.NewConsole(cfg.Logging.Level)
	channels, err := mapNotifierChannels(cfg.Notifier)
	if err != nil {
		return nil, err
	}
	fanout := notifier.NewFanout(bootLog.With(logx.String("comp", "notifier")), channels...)

	logSvc, log := logx.New(mapLoggingConfig(cfg), fanout)
	log = log.With(logx.String("comp", "app"))

	loc, err := mapLocation(cfg.Scheduler)
	if err != nil {
		return nil, err
	}

	policy, err := mapPolicy(cfg.Scheduler)
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(mapStatePath(cfg.Scheduler), policy,
		scheduler.WithClock(scheduler.SystemClock(loc)),
		scheduler.WithLogger(log.With(logx.String("comp", "scheduler"))),
	)
	if err != nil {
		return nil, err
	}

	// Storage (optional)
	var store storage.Store
	if sc, err := mapStorageConfig(cfg.Storage); err != nil {
		return nil, err
	} else if st, err := storage.Open(sc, log.With(logx.String("comp", "storage"))); err != nil {
		return nil, err
	} else if st != nil {
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	rev := reviews.New(mapReviewsDir(cfg.Reviews), cfg.Reviews.Files,
		reviews.WithLogger(log.With(logx.String("comp", "reviews"))))

	drvCfg, err := mapDryRunConfig(cfg.Runner)
	if err != nil {
		return nil, err
	}
	driver := runner.NewDryRun(drvCfg, log.With(logx.String("comp", "driver")))

	loop := runner.NewLoop(log.With(logx.String("comp", "loop")), sched, driver, rev,
		runner.WithNotifier(fanout),
		runner.WithStore(store),
		runner.WithLoopClock(scheduler.SystemClock(loc)),
	)

	rep := reports.New(mapReportsConfig(cfg.Reports), loc, sched, store, fanout,
		log.With(logx.String("comp", "reports")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		fanout:  fanout,
		store:   store,
		sched:   sched,
		loop:    loop,
		rep:     rep,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if err := a.rep.Start(runCtx); err != nil {
		cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.loop.Run(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()

	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(runCtx, sub)
	}()

	a.notifySystemd(runCtx)

	st := a.sched.Status()
	a.log.Info("app started",
		logx.Int("today_count", st.TodayCount),
		logx.Int("daily_quota", st.DailyQuota),
		logx.String("window", st.WindowStart+"-"+st.WindowEnd))
	return nil
}

// reloadLoop applies hot-reloadable sections of a committed config. The
// scheduler policy and runner pacing are wired at construction; changes
// there take effect on restart and are called out in the log.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: only the newest config matters.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			a.logs.Apply(mapLoggingConfig(cfg))
			a.log.Info("config reloaded; logging settings applied")
			a.log.Warn("scheduler, runner, notifier and storage changes take effect on restart")
		}
	}
}

// notifySystemd signals readiness and keeps the watchdog fed when the
// process runs under a systemd unit with WatchdogSec set. Outside systemd
// both calls are no-ops.
func (a *App) notifySystemd(ctx context.Context) {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("systemd readiness notification failed", logx.Err(err))
	} else if ok {
		a.log.Debug("systemd notified: ready")
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}

func (a *App) Stop(ctx context.Context) error {
	a.log.Info("stopping")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.cancel != nil {
		a.cancel()
	}
	a.rep.Stop()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown deadline reached; exiting with goroutines pending")
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
