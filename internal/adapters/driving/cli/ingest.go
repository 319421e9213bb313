package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a single file into a unit",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Ingest every file waiting in the input directory",
	RunE:  runProcess,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(processCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	result, err := ingestionService.Upload(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	switch {
	case result.Quarantined:
		cmd.Printf("Quarantined %s: %v\n", args[0], result.Err)
	case result.UnitID == "":
		cmd.Printf("Skipped %s: not a processable file\n", args[0])
	case result.FromCache:
		cmd.Printf("Unit %s (route %s, from cache)\n", result.UnitID, result.Route)
	default:
		cmd.Printf("Unit %s (route %s)\n", result.UnitID, result.Route)
	}
	return nil
}

func runProcess(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	summary, err := ingestionService.ProcessNow(context.Background())
	if err != nil {
		return fmt.Errorf("process failed: %w", err)
	}

	cmd.Printf("Processed %d files: %d succeeded, %d failed\n",
		summary.Processed, summary.Succeeded, summary.Failed)
	for _, outcome := range summary.Outcomes {
		if outcome.Error != "" {
			cmd.Printf("  %s: %s\n", outcome.Input, outcome.Error)
		} else {
			cmd.Printf("  %s -> %s\n", outcome.Input, outcome.UnitID)
		}
	}
	return nil
}
