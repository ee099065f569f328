package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"linotify/internal/scheduler"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and print it with secrets redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		spec, err := scheduler.ParseSchedule(cfg.Daemon.Schedule)
		if err != nil {
			return fmt.Errorf("daemon.schedule: %w", err)
		}

		out := cmd.OutOrStdout()
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg.Redacted()); err != nil {
			return err
		}
		fmt.Fprintf(out, "configuration ok; daemon schedule: %s\n", spec)
		return nil
	},
}
