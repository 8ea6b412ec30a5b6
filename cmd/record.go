package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a learned word",
	Long:  "Record one learned word. Offline, the word is queued and replayed on the next sync.",
	RunE: func(cmd *cobra.Command, args []string) error {
		rawMode, _ := cmd.Flags().GetString("mode")
		category, _ := cmd.Flags().GetString("category")
		mode, err := remote.ParseMode(rawMode)
		if err != nil {
			return err
		}

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		ctx := cmd.Context()
		if d.probe(ctx) {
			// Replay older entries first so the server sees them in order.
			_ = d.syncer.TrySync(ctx)
		}

		queued, err := d.recorder.Record(ctx, mode, category)
		if err != nil {
			return fmt.Errorf("record progress: %w", err)
		}
		out := cmd.OutOrStdout()
		if !queued {
			fmt.Fprintln(out, "Recorded.")
			return nil
		}
		n, err := d.queue.Len(ctx)
		if err != nil {
			return fmt.Errorf("read queue: %w", err)
		}
		fmt.Fprintf(out, "Saved offline (%d pending). Run `yachay sync` when you are back online.\n", n)
		return nil
	},
}

func init() {
	recordCmd.Flags().StringP("mode", "m", "", "Learning mode: detection or practice")
	recordCmd.Flags().StringP("category", "c", "", "Vocabulary category (e.g. animals)")
	_ = recordCmd.MarkFlagRequired("mode")
}
