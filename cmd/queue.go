package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List progress waiting to be synced",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		entries, err := d.queue.Entries(cmd.Context())
		if err != nil {
			return fmt.Errorf("read queue: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "Queue is empty.")
			return nil
		}

		fmt.Fprintf(out, "%-4s  %-19s  %-10s  %s\n", "#", "Queued", "Mode", "Category")
		fmt.Fprintln(out, strings.Repeat("─", 52))
		for i, e := range entries {
			category := e.Category
			if category == "" {
				category = "-"
			}
			fmt.Fprintf(out, "%-4d  %-19s  %-10s  %s\n",
				i+1, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Mode, category)
		}
		return nil
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard queued progress without sending it",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		ctx := cmd.Context()
		n, err := d.queue.Len(ctx)
		if err != nil {
			return fmt.Errorf("read queue: %w", err)
		}
		if err := d.queue.Clear(ctx); err != nil {
			return fmt.Errorf("clear queue: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Discarded %d entr%s.\n", n, plural(n, "y", "ies"))
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueClearCmd)
}
