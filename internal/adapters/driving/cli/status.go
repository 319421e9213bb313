package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/noticeflow/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [unit-id]",
	Short: "Show a unit's manifest, or queue counts without arguments",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return printManifest(cmd, args[0])
	}
	return printQueue(cmd)
}

func printManifest(cmd *cobra.Command, unitID string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	manifest, err := ingestionService.Status(context.Background(), unitID)
	if err != nil {
		return fmt.Errorf("fetching manifest: %w", err)
	}
	cmd.Println(string(manifest))
	return nil
}

func printQueue(cmd *cobra.Command) error {
	if recordStore == nil {
		return errors.New("record store not configured")
	}

	counts, err := recordStore.CountByStatus(context.Background())
	if err != nil {
		return fmt.Errorf("counting records: %w", err)
	}

	order := []domain.RecordStatus{
		domain.RecordPending,
		domain.RecordDownloading,
		domain.RecordProcessing,
		domain.RecordError,
	}
	for _, status := range order {
		cmd.Printf("%-12s %d\n", status, counts[status])
	}
	return nil
}
