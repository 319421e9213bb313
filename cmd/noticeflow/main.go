package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/noticeflow/internal/adapters/driven/cache"
	"github.com/custodia-labs/noticeflow/internal/adapters/driven/command"
	configfile "github.com/custodia-labs/noticeflow/internal/adapters/driven/config/file"
	"github.com/custodia-labs/noticeflow/internal/adapters/driven/feed"
	"github.com/custodia-labs/noticeflow/internal/adapters/driven/fetch"
	"github.com/custodia-labs/noticeflow/internal/adapters/driven/quarantine"
	"github.com/custodia-labs/noticeflow/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/noticeflow/internal/adapters/driving/cli"
	"github.com/custodia-labs/noticeflow/internal/adapters/driving/webhook"
	"github.com/custodia-labs/noticeflow/internal/classify"
	"github.com/custodia-labs/noticeflow/internal/core/services"
	"github.com/custodia-labs/noticeflow/internal/extract"
	"github.com/custodia-labs/noticeflow/internal/workspace"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := configfile.NewConfigStore(os.Getenv("NOTICEFLOW_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	cfg := configfile.PipelineConfig(configStore)

	layout, err := workspace.New(configStore.GetString("workspace.root"))
	if err != nil {
		return fmt.Errorf("preparing workspace: %w", err)
	}

	store, err := sqlite.NewStore(configStore.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close() //nolint:errcheck // Best-effort close on exit

	hashCache, err := cache.New(store.HashCache(), configStore.GetInt("storage.cache_size"))
	if err != nil {
		return fmt.Errorf("building hash cache: %w", err)
	}

	runner := command.New()
	classifier := classify.New(runner)
	extractor := extract.New(classifier, runner, cfg)
	quarantineStore := quarantine.New(layout)
	assembler := services.NewUnitAssembler(store.UnitStore(), hashCache, layout, cfg)
	router := services.NewIngestionRouter(
		classifier, extractor, quarantineStore, assembler, store.UnitStore(), layout, cfg)

	fetcher := fetch.New(cfg)
	dispatcher := services.NewDownloadDispatcher(
		store.SourceRecordStore(), fetcher, router, layout, cfg)

	collection := configStore.GetString("feed.collection")
	if collection == "" {
		collection = "fed44"
	}
	feedClient := feed.New(configStore.GetString("feed.base_url"), collection, cfg)
	supervisor := services.NewSyncRunSupervisor(
		feedClient, store.SourceRecordStore(), store.CursorStore(), store.SyncRunStore())

	cli.Configure(cli.Services{
		Ingestor:   router,
		Dispatcher: dispatcher,
		Sync:       supervisor,
		Runs:       store.SyncRunStore(),
		Records:    store.SourceRecordStore(),
		Config:     configStore,
	})
	cli.SetWebhookServer(webhook.New(router, configStore.GetString("webhook.secret")))
	cli.SetWatcherFactory(func() (cli.InputWatcher, error) {
		return workspace.NewWatcher(layout)
	})
	cli.SetVersion(version)

	return cli.Execute()
}
