package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	logx "linotify/pkg/logx"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one poll cycle and exit",
	Long: `Fetch the account events once, notify every event not yet in the ledger,
and record it. Exits non-zero on the first failure; events handled before
the failure stay recorded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logs, log := logx.NewService(loggingConfig(cfg.Logging))
		defer logs.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if d := cfg.Daemon.RunTimeoutDuration(); d > 0 {
			var c context.CancelFunc
			ctx, c = context.WithTimeout(ctx, d)
			defer c()
		}

		ledger, err := openLedger(cfg, log)
		if err != nil {
			return err
		}
		defer ledger.Close()

		r, err := newRelay(cfg, ledger, log, nil)
		if err != nil {
			return err
		}
		_, err = r.Run(ctx)
		return err
	},
}
