package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rafaMESCOBAR/QuechuaApp-Yachay-sub001/internal/offline"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay queued progress to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.close()

		if watch {
			return runSyncWatch(cmd, d)
		}

		ctx := cmd.Context()
		d.probe(ctx)

		out := cmd.OutOrStdout()
		res, err := d.syncer.Drain(ctx)
		switch {
		case errors.Is(err, offline.ErrOffline):
			fmt.Fprintln(out, "Offline: nothing was sent.")
			return nil
		case err != nil:
			return fmt.Errorf("sync: %w", err)
		}

		if res.Replayed == 0 {
			fmt.Fprintln(out, "Nothing to sync.")
			return nil
		}
		fmt.Fprintf(out, "Synced %d entr%s.\n", res.Replayed, plural(res.Replayed, "y", "ies"))
		if !res.Refreshed {
			fmt.Fprintln(out, "Progress could not be refreshed; showing the local estimate until next sync.")
		}
		return nil
	},
}

// runSyncWatch keeps probing the server and drains the queue on every
// reconnect until interrupted.
func runSyncWatch(cmd *cobra.Command, d *deps) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d.logger.Info("watching for connectivity", "offline", d.monitor == nil)

	g, ctx := errgroup.WithContext(ctx)
	if d.monitor != nil {
		g.Go(func() error { return d.monitor.Run(ctx) })
	}
	g.Go(func() error { return d.syncer.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	syncCmd.Flags().BoolP("watch", "w", false, "Keep running and sync whenever the server becomes reachable")
}
