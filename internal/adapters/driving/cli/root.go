// Package cli provides the noticeflow command line interface.
//
// Commands hold no business logic: each one validates its arguments,
// calls the matching driving port and renders the result. Services are
// injected once at startup through Configure; a command invoked before
// its service is configured fails with a clear error instead of
// panicking.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driving"
	"github.com/custodia-labs/noticeflow/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// Injected services. Tests swap these for mocks.
var (
	ingestionService driving.Ingestor
	dispatchService  driving.Dispatcher
	syncService      driving.SyncSupervisor
	runStore         driven.SyncRunStore
	recordStore      driven.SourceRecordStore
	configStore      driven.ConfigStore
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "noticeflow",
	Short: "Replicate procurement notices and ingest their attachments",
	Long: `noticeflow replicates procurement notices from an upstream portal,
downloads their attachments and turns each input into a processing unit:
files are classified by their real byte signature, archives are safely
unpacked and every unit gets a content-addressed id and a manifest.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"enable debug logging on stderr")
}

// Services bundles everything the commands call.
type Services struct {
	Ingestor   driving.Ingestor
	Dispatcher driving.Dispatcher
	Sync       driving.SyncSupervisor
	Runs       driven.SyncRunStore
	Records    driven.SourceRecordStore
	Config     driven.ConfigStore
}

// Configure injects the services the commands depend on.
func Configure(s Services) {
	ingestionService = s.Ingestor
	dispatchService = s.Dispatcher
	syncService = s.Sync
	runStore = s.Runs
	recordStore = s.Records
	configStore = s.Config
}

// SetVersion records the build version shown by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
