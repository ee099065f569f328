package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"linotify/internal/config"
	logx "linotify/pkg/logx"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the notification ledger",
}

var (
	ledgerLimit int
	ledgerJSON  bool
)

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded events, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read(cfgPath, os.Getenv)
		if err != nil {
			return err
		}
		if err := cfg.ValidateStorage(); err != nil {
			return err
		}

		ledger, err := openLedger(cfg, logx.NewConsole("warn"))
		if err != nil {
			return err
		}
		defer ledger.Close()

		ctx := cmd.Context()
		if err := ledger.EnsureSchema(ctx); err != nil {
			return err
		}
		rows, err := ledger.List(ctx, ledgerLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if ledgerJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, "No events recorded")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tACTION\tSTATUS\tUSERNAME\tTYPE\tLABEL")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Created, r.Action, r.Status, r.Username, r.Type, r.Label)
		}
		return w.Flush()
	},
}

func init() {
	ledgerListCmd.Flags().IntVarP(&ledgerLimit, "limit", "n", 20, "maximum rows; 0 lists everything")
	ledgerListCmd.Flags().BoolVar(&ledgerJSON, "json", false, "output as JSON")
	ledgerCmd.AddCommand(ledgerListCmd)
}
