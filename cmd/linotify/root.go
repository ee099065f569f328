package main

import (
	"os"

	"github.com/spf13/cobra"

	"linotify/internal/config"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "linotify",
	Short:         "Relay Linode account events to Slack or Telegram",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv("LINOTIFY_CONFIG"), "config file (json, yaml or toml); optional")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(checkCmd)
}

// loadConfig reads and fully validates the configuration. Nothing else
// touches the network or the ledger before this succeeds.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Read(cfgPath, os.Getenv)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}
