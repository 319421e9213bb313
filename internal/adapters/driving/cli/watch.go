package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// InputWatcher streams paths of files dropped into the input root.
type InputWatcher interface {
	Watch(ctx context.Context) <-chan string
	Close() error
}

// watcherFactory builds the watcher lazily so the command can fail with
// a readable error when the input root is missing.
var watcherFactory func() (InputWatcher, error)

// SetWatcherFactory injects the input watcher constructor.
func SetWatcherFactory(f func() (InputWatcher, error)) {
	watcherFactory = f
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest files as they land in the input directory",
	Long: `Watches the input root and ingests every file that appears. Files
already present when the watcher starts are ingested first, so inputs that
arrived while noticeflow was down are never missed.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}
	if watcherFactory == nil {
		return errors.New("input watcher not configured")
	}

	watcher, err := watcherFactory()
	if err != nil {
		return err
	}
	defer watcher.Close() //nolint:errcheck // Best-effort close on exit

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Println("Watching for input files. Press Ctrl+C to stop.")
	for path := range watcher.Watch(ctx) {
		result, err := ingestionService.Upload(ctx, path)
		switch {
		case err != nil:
			cmd.Printf("%s: %v\n", path, err)
		case result.Quarantined:
			cmd.Printf("%s: quarantined (%v)\n", path, result.Err)
		case result.UnitID == "":
			cmd.Printf("%s: skipped\n", path)
		default:
			cmd.Printf("%s -> %s (%s)\n", path, result.UnitID, result.Route)
		}
	}
	return nil
}
