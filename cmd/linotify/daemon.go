package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"linotify/internal/config"
	"linotify/internal/metrics"
	"linotify/internal/relay"
	"linotify/internal/runtime/supervisor"
	"linotify/internal/scheduler"
	"linotify/internal/server"
	logx "linotify/pkg/logx"
	"linotify/pkg/systemd"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Poll on a schedule until stopped",
	Long: `Run the poll cycle on daemon.schedule (cron expression, Go duration or HH:MM).
Overlapping ticks are skipped. With daemon.listen set, /healthz and /metrics
are served. Logging and schedule changes in the config file apply without
a restart.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runDaemon(ctx, cfg)
	},
}

func schedulerConfig(c config.DaemonConfig) scheduler.Config {
	return scheduler.Config{
		Schedule:   c.Schedule,
		Timezone:   c.Timezone,
		RunTimeout: c.RunTimeoutDuration(),
	}
}

func runDaemon(ctx context.Context, cfg *config.Config) error {
	if err := scheduler.Validate(schedulerConfig(cfg.Daemon)); err != nil {
		return &config.Error{Field: "daemon.schedule", Reason: err.Error()}
	}

	logs, log := logx.NewService(loggingConfig(cfg.Logging))
	defer logs.Close()

	ledger, err := openLedger(cfg, log)
	if err != nil {
		return err
	}
	defer ledger.Close()

	m := metrics.New()
	r, err := newRelay(cfg, ledger, log, m)
	if err != nil {
		return err
	}

	sup := supervisor.New(ctx,
		supervisor.WithLogger(log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)

	sched := scheduler.New(func(ctx context.Context) {
		if _, err := r.Run(ctx); errors.Is(err, relay.ErrRunInProgress) {
			log.Warn("previous run still in progress; tick skipped")
		}
	}, log)
	if err := sched.Start(sup.Context(), schedulerConfig(cfg.Daemon)); err != nil {
		return err
	}
	defer sched.Stop()

	if cfg.Daemon.RunOnStart {
		sup.Go0("run.initial", func(context.Context) { sched.RunNow() })
	}

	if addr := strings.TrimSpace(cfg.Daemon.Listen); addr != "" {
		srv := server.New(addr, r, m.Handler(), log)
		sup.Go("http", srv.Run)
	}

	watchConfig(sup, cfg, logs, sched, log)
	notifySystemd(sup, log)

	log.Info("daemon started",
		logx.String("sink", cfg.Sink.Kind),
		logx.String("storage", cfg.Storage.Driver),
		logx.String("order", cfg.Delivery.Order),
		logx.String("next_run", sched.Next().Format(time.RFC3339)),
	)

	<-sup.Context().Done()
	if err := sup.Err(); err != nil {
		log.Error("daemon stopping after component failure", logx.Err(err))
	} else {
		log.Info("daemon stopping")
	}
	_ = systemd.Stopping()
	sched.Stop()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return sup.Stop(stopCtx)
}

// watchConfig hot-applies logging and schedule changes from the config file.
// Other sections are reported and need a restart.
func watchConfig(sup *supervisor.Supervisor, cfg *config.Config, logs *logx.Service, sched *scheduler.Scheduler, log logx.Logger) {
	if strings.TrimSpace(cfgPath) == "" {
		return
	}
	cm := config.NewManager(cfgPath, os.Getenv)
	cm.SetLogger(log.With(logx.String("comp", "config")))
	cm.SetValidator(func(ctx context.Context, c *config.Config) error {
		applyFlags(c)
		return scheduler.Validate(schedulerConfig(c.Daemon))
	})
	cm.Commit(cfg)

	sub := cm.Subscribe(4)
	sup.GoRestart("config.watch", cm.Watch)
	sup.Go0("config.reload", func(ctx context.Context) {
		defer cm.Unsubscribe(sub)
		applied := cfg
		for {
			select {
			case <-ctx.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				applyFlags(next)
				sections, attrs, restart := config.SummarizeConfigChange(applied, next)
				if len(sections) == 0 {
					log.Debug("config reload received, but no effective changes detected")
					continue
				}
				if err := logs.Apply(loggingConfig(next.Logging)); err != nil {
					log.Warn("log file not applied", logx.Err(err))
				}
				if err := sched.Reschedule(schedulerConfig(next.Daemon)); err != nil {
					log.Warn("schedule not applied", logx.Err(err))
				}
				applied = next

				attrs = append(attrs, logx.String("changed", strings.Join(sections, ",")))
				log.Info("config reloaded", attrs...)
				if restart {
					log.Warn("some changes take effect after restart", logx.String("changed", strings.Join(sections, ",")))
				}
			}
		}
	})
}

// notifySystemd reports readiness and, when the unit sets WatchdogSec, pets
// the watchdog. Outside systemd these are no-ops.
func notifySystemd(sup *supervisor.Supervisor, log logx.Logger) {
	if ok, err := systemd.Ready(); err != nil {
		log.Warn("systemd notify failed", logx.Err(err))
	} else if ok {
		log.Debug("systemd notified ready")
	}

	if interval := systemd.WatchdogInterval(); interval > 0 {
		sup.Go0("systemd.watchdog", func(ctx context.Context) {
			systemd.Watchdog(ctx, interval)
		})
	}
}
