package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the session journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sessionID, _ := cmd.Flags().GetInt64("session")

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		events, err := d.backend.Journal().SessionEvents(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if sessionID != 0 {
			events = filterSession(events, sessionID)
		}
		if limit > 0 && len(events) > limit {
			events = events[len(events)-limit:]
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No session events found.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-8s  %-14s  %-9s  %s\n",
			"Seq", "Timestamp", "Session", "Action", "Mode", "Detail")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for _, e := range events {
			fmt.Fprintf(out, "%-5d  %-19s  %-8d  %-14s  %-9s  %s\n",
				e.Sequence,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.SessionID,
				e.Action,
				e.Mode,
				truncate(e.Detail, 40),
			)
		}
		return nil
	},
}

var historyCallsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Show recent calls to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		failed, _ := cmd.Flags().GetBool("failed")

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		calls, err := d.backend.Journal().RemoteCalls(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query calls: %w", err)
		}
		if failed {
			kept := calls[:0]
			for _, c := range calls {
				if !c.Success {
					kept = append(kept, c)
				}
			}
			calls = kept
		}
		if limit > 0 && len(calls) > limit {
			calls = calls[len(calls)-limit:]
		}

		out := cmd.OutOrStdout()
		if len(calls) == 0 {
			fmt.Fprintln(out, "No calls found.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-26s  %-7s  %-2s  %s\n",
			"Seq", "Timestamp", "Operation", "Ms", "OK", "Error")
		fmt.Fprintln(out, strings.Repeat("─", 90))

		var ok, totalMs int64
		for _, c := range calls {
			mark := "✓"
			if c.Success {
				ok++
			} else {
				mark = "✗"
			}
			totalMs += c.LatencyMs
			fmt.Fprintf(out, "%-5d  %-19s  %-26s  %-7d  %-2s  %s\n",
				c.Sequence,
				c.Timestamp.Local().Format("2006-01-02 15:04:05"),
				c.Operation,
				c.LatencyMs,
				mark,
				truncate(c.ErrorMessage, 30),
			)
		}
		fmt.Fprintln(out, strings.Repeat("─", 90))
		fmt.Fprintf(out, "%d calls, %d ok, avg %dms\n", len(calls), ok, totalMs/int64(len(calls)))
		return nil
	},
}

func filterSession(events []store.SessionEvent, id int64) []store.SessionEvent {
	var out []store.SessionEvent
	for _, e := range events {
		if e.SessionID == id {
			out = append(out, e)
		}
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func init() {
	historyCmd.PersistentFlags().IntP("limit", "n", 20, "Number of rows to show (0 = all)")
	historyCmd.Flags().Int64P("session", "s", 0, "Only show events of this session")
	historyCallsCmd.Flags().Bool("failed", false, "Only show failed calls")

	historyCmd.AddCommand(historyCallsCmd)
}
