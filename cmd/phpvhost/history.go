package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"phpvhost/internal/ui"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent register/remove operations",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of operations to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if a.history == nil {
		return fmt.Errorf("operation history is unavailable")
	}

	records, err := a.history.ListOperations(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		ui.Infof("No operations recorded yet.")
		return nil
	}

	fmt.Printf("%-20s %-10s %-28s %-8s %s\n", "WHEN", "ACTION", "DOMAIN", "STATUS", "ERROR")
	for _, r := range records {
		errMsg := ""
		if r.ErrorMessage != nil {
			errMsg = *r.ErrorMessage
		}
		fmt.Printf("%-20s %-10s %-28s %-8s %s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Action,
			r.Domain,
			r.Status,
			errMsg,
		)
	}

	return nil
}
