package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Manage replication runs",
	Long: `Replicates notice records from the upstream portal.

Modes:
  incremental - replicate from the cursor up to now and advance the cursor
  range       - replicate a given window and advance the cursor
  backfill    - replicate from a given date up to the cursor, cursor untouched
  replay      - re-replicate a given window, cursor untouched`,
}

var syncStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a replication run",
	RunE:  runSyncStart,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show the state of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncStatus,
}

var syncCancelCmd = &cobra.Command{
	Use:   "cancel <run-id>",
	Short: "Cancel a running run",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncCancel,
}

var syncListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runSyncList,
}

var (
	syncMode string
	syncFrom string
	syncTo   string
	syncWait bool
)

func init() {
	syncStartCmd.Flags().StringVar(&syncMode, "mode", "incremental",
		"run mode: incremental, range, backfill or replay")
	syncStartCmd.Flags().StringVar(&syncFrom, "from", "", "window start (YYYY-MM-DD or RFC3339)")
	syncStartCmd.Flags().StringVar(&syncTo, "to", "", "window end (YYYY-MM-DD or RFC3339)")
	syncStartCmd.Flags().BoolVar(&syncWait, "wait", false, "block until the run finishes")

	syncCmd.AddCommand(syncStartCmd)
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncCancelCmd)
	syncCmd.AddCommand(syncListCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSyncStart(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	window, err := parseWindow(syncFrom, syncTo)
	if err != nil {
		return err
	}

	run, err := syncService.Start(context.Background(), domain.SyncMode(syncMode), window)
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	cmd.Printf("Started run %s (%s)\n", run.ID, run.Mode)

	if syncWait {
		syncService.Wait(run.ID)
		final, err := syncService.Status(context.Background(), run.ID)
		if err != nil {
			return fmt.Errorf("fetching final status: %w", err)
		}
		printRun(cmd, final)
		if final.Status == domain.RunFailed {
			return fmt.Errorf("run failed: %s", final.Error)
		}
	}
	return nil
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	run, err := syncService.Status(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("fetching run: %w", err)
	}
	printRun(cmd, run)
	return nil
}

func runSyncCancel(cmd *cobra.Command, args []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	if err := syncService.Cancel(context.Background(), args[0]); err != nil {
		return fmt.Errorf("cancelling run: %w", err)
	}
	cmd.Printf("Cancellation requested for run %s\n", args[0])
	return nil
}

func runSyncList(cmd *cobra.Command, _ []string) error {
	if runStore == nil {
		return errors.New("run store not configured")
	}

	runs, err := runStore.List(context.Background(), 20)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}
	for _, run := range runs {
		cmd.Printf("%s  %-11s  %-9s  scanned=%d inserted=%d skipped=%d errors=%d\n",
			run.ID, run.Mode, run.Status,
			run.Stats.Scanned, run.Stats.Inserted, run.Stats.SkippedExisting, run.Stats.Errors)
	}
	return nil
}

func printRun(cmd *cobra.Command, run *domain.SyncRun) {
	cmd.Printf("Run:        %s\n", run.ID)
	cmd.Printf("Collection: %s\n", run.Collection)
	cmd.Printf("Mode:       %s\n", run.Mode)
	cmd.Printf("Status:     %s\n", run.Status)
	cmd.Printf("Window:     [%s, %s)\n",
		run.Window.Start.Format(time.RFC3339), run.Window.End.Format(time.RFC3339))
	cmd.Printf("Progress:   scanned=%d inserted=%d skipped=%d errors=%d\n",
		run.Stats.Scanned, run.Stats.Inserted, run.Stats.SkippedExisting, run.Stats.Errors)
	if run.Error != "" {
		cmd.Printf("Error:      %s\n", run.Error)
	}
}

// parseWindow accepts plain dates or full RFC3339 timestamps for either
// bound. Empty strings leave the bound zero so the supervisor computes it
// from the mode.
func parseWindow(from, to string) (domain.SyncWindow, error) {
	var window domain.SyncWindow
	var err error
	if from != "" {
		if window.Start, err = parseTimestamp(from); err != nil {
			return domain.SyncWindow{}, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to != "" {
		if window.End, err = parseTimestamp(to); err != nil {
			return domain.SyncWindow{}, fmt.Errorf("invalid --to: %w", err)
		}
	}
	return window, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
