package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/offline"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/remote"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/ui/components"
	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/ui/theme"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show your learning progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		ctx := cmd.Context()
		if refresh {
			if err := refreshProgress(ctx, d); err != nil {
				d.logger.Warn("showing local progress", "error", err)
			}
		}

		snap, err := d.snaps.Load(ctx)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		pending, err := d.queue.Len(ctx)
		if err != nil {
			return fmt.Errorf("read queue: %w", err)
		}
		lastSync, synced, err := d.snaps.LastSync(ctx)
		if err != nil {
			return fmt.Errorf("read last sync: %w", err)
		}

		out := cmd.OutOrStdout()
		renderProgress(out, snap)
		fmt.Fprintln(out)
		if synced {
			fmt.Fprintf(out, "Last sync: %s\n", lastSync.Local().Format("2006-01-02 15:04"))
		} else {
			fmt.Fprintln(out, "Last sync: never")
		}
		if pending > 0 {
			fmt.Fprintln(out, theme.Warning.Render(fmt.Sprintf("%d entr%s waiting to sync", pending, plural(pending, "y", "ies"))))
		}
		return nil
	},
}

// refreshProgress pulls the server's snapshot. Pending entries are replayed
// first, which refreshes as a side effect.
func refreshProgress(ctx context.Context, d *deps) error {
	if !d.probe(ctx) {
		return offline.ErrOffline
	}
	pending, err := d.queue.Len(ctx)
	if err != nil {
		return err
	}
	if pending > 0 {
		_, err := d.syncer.Drain(ctx)
		return err
	}
	snap, err := d.authority.GetUserProgress(ctx)
	if err != nil {
		return fmt.Errorf("fetch progress: %w", err)
	}
	return d.snaps.Replace(ctx, snap)
}

func renderProgress(out io.Writer, snap *remote.ProgressSnapshot) {
	bar := components.NewProgressBar(
		fmt.Sprintf("Level %d", snap.Level),
		components.LevelProgress(snap.Level, snap.TotalWords, offline.WordsPerLevel),
		true, 40)
	fmt.Fprintln(out, bar.View())
	fmt.Fprintf(out, "%d words learned, next level at %d\n", snap.TotalWords, snap.WordsToNextLevel)
	fmt.Fprintf(out, "Detection %d  Practice %d  Streak %d day%s\n",
		snap.DetectionWords, snap.PracticeWords, snap.Streak, plural(snap.Streak, "", "s"))

	if len(snap.StatsByCategory) > 0 {
		categories := make([]string, 0, len(snap.StatsByCategory))
		for c := range snap.StatsByCategory {
			categories = append(categories, c)
		}
		slices.Sort(categories)
		parts := make([]string, 0, len(categories))
		for _, c := range categories {
			parts = append(parts, fmt.Sprintf("%s %d", c, snap.StatsByCategory[c]))
		}
		fmt.Fprintf(out, "Categories: %s\n", strings.Join(parts, ", "))
	}

	if len(snap.ActivityByDay) > 0 {
		fmt.Fprintln(out)
		for _, a := range snap.ActivityByDay {
			fmt.Fprintf(out, "%s  %s %d\n", a.Date, strings.Repeat("█", min(a.Count, 30)), a.Count)
		}
	}
}

func init() {
	progressCmd.Flags().BoolP("refresh", "r", false, "Sync and fetch the latest progress from the server first")
}
