package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Download attachments for pending records",
	Long: `Claims pending records, downloads their attachments and ingests each
downloaded file. Safe to run from several processes at once: the claim is
atomic, so no record is ever worked on twice.`,
	RunE: runDispatch,
}

var dispatchLimit int

func init() {
	dispatchCmd.Flags().IntVar(&dispatchLimit, "limit", 10, "maximum records to claim")
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatch(cmd *cobra.Command, _ []string) error {
	if dispatchService == nil {
		return errors.New("dispatch service not configured")
	}

	summary, err := dispatchService.Dispatch(context.Background(), dispatchLimit)
	if err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}

	cmd.Printf("Dispatched %d records: %d succeeded, %d failed\n",
		summary.Processed, summary.Succeeded, summary.Failed)
	for _, outcome := range summary.Outcomes {
		if outcome.Error != "" {
			cmd.Printf("  %s: %s\n", outcome.Input, outcome.Error)
		}
	}
	return nil
}
