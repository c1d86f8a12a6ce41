package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"translation-backend/internal/poller"
)

var watchCmd = &cobra.Command{
	Use:   "watch <run-id>",
	Short: "Poll a run until it completes or fails",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("interval")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		state := watch(ctx, args[0], client.Fetch, os.Stdout, poller.WithInterval(interval))
		if state.Err != nil {
			return eris.Wrap(state.Err, "watch")
		}
		return nil
	},
}

// watch polls runID, printing each observation, and returns the final state
// once the run settles, a fetch fails or ctx ends.
func watch(ctx context.Context, runID string, fetch poller.FetchFunc, out io.Writer, opts ...poller.Option) poller.State {
	var last string
	opts = append(opts, poller.WithOnUpdate(func(s poller.State) {
		line := formatState(s)
		if line == last {
			return
		}
		last = line
		_, _ = fmt.Fprintln(out, line)
	}))
	p := poller.New(runID, fetch, opts...)
	p.Start(ctx)
	select {
	case <-p.Done():
	case <-ctx.Done():
		p.Stop()
	}
	return p.State()
}

func init() {
	watchCmd.Flags().Duration("interval", poller.DefaultInterval, "delay between status fetches")
	rootCmd.AddCommand(watchCmd)
}

func formatState(s poller.State) string {
	if s.Err != nil {
		return fmt.Sprintf("error: %v", s.Err)
	}
	snap := s.Snapshot
	line := fmt.Sprintf("%s  status=%s", snap.UpdatedAt.Local().Format(time.TimeOnly), snap.Status)
	if snap.N8NStatus != "" {
		line += " worker=" + snap.N8NStatus
	}
	if snap.IsActive {
		line += " active"
	}
	if snap.Discarded {
		line += " discarded"
	}
	return line
}
