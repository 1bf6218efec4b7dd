package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var syncTimeout time.Duration

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Trigger a sync run and wait for it to finish",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 15*time.Minute, "Maximum time to wait for the run")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), syncTimeout)
	defer cancel()

	runID, err := a.svc.Start(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("run %s started\n", runID)

	status, err := a.svc.Wait(ctx, runID, 500*time.Millisecond)
	if err != nil {
		return fmt.Errorf("waiting for run %s: %w", runID, err)
	}

	fmt.Printf("run %s %s: %d created, %d updated, %d skipped, %d failed\n",
		status.RunID, status.State,
		status.Counts.Created, status.Counts.Updated,
		status.Counts.Skipped, status.Counts.Failed)
	for _, msg := range status.Errors {
		fmt.Fprintf(os.Stderr, "  error: %s\n", msg)
	}
	if status.Reason != "" {
		fmt.Fprintf(os.Stderr, "  reason: %s\n", status.Reason)
	}

	if status.State != "completed" {
		os.Exit(2)
	}
	return nil
}
