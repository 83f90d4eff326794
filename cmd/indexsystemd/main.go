// Command indexsystemd is the CLI entry point over one index system
// instance: initialise a project's config, ingest a unit-record store,
// query it by USR, or run as a long-lived watching daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dreampiggy/indexstore-db/internal/config"
	"github.com/dreampiggy/indexstore-db/internal/debug"
	"github.com/dreampiggy/indexstore-db/internal/indexsystem"
	ix "github.com/dreampiggy/indexstore-db/internal/ixtypes"
	"github.com/dreampiggy/indexstore-db/internal/storelib"
	"github.com/dreampiggy/indexstore-db/internal/version"

	"github.com/urfave/cli/v2"
)

// loggingDelegate logs lifecycle events; it is the delegate used for every
// CLI invocation, which has no richer integration (editor, build system)
// driving the daemon.
type loggingDelegate struct{}

func (loggingDelegate) ProcessingAddedPending(count int) {
	debug.LogIndexing("pending units: +%d\n", count)
}

func (loggingDelegate) ProcessingCompleted(count int) {
	debug.LogIndexing("units completed: %d\n", count)
}

func (loggingDelegate) ProcessedStoreUnit(info ix.StoreUnitInfo) {
	debug.LogIndexing("processed unit %q -> %s\n", info.Name, info.OutputPath)
}

func (loggingDelegate) UnitIsOutOfDate(info ix.StoreUnitInfo, initiated time.Time, hint ix.OutOfDateTriggerHint, synchronous bool) {
	debug.LogIndexing("unit %q is out of date (sync=%v): %s\n", info.Name, synchronous, hint.Description())
}

func main() {
	debug.SetDebugOutput(os.Stderr)

	app := &cli.App{
		Name:                   "indexsystemd",
		Usage:                  "Persistent, queryable compiler symbol index",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (config and relative store paths resolve from here)",
				Value:   ".",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a default .indexstoredb.kdl config in the project root",
				Action: func(c *cli.Context) error {
					root := c.String("root")
					kdlPath := filepath.Join(root, ".indexstoredb.kdl")
					if _, err := os.Stat(kdlPath); err == nil {
						return fmt.Errorf("%s already exists", kdlPath)
					}
					return os.WriteFile(kdlPath, []byte(defaultKDL), 0o644)
				},
			},
			{
				Name:  "ingest",
				Usage: "Ingest every unit record under the configured store path once, then exit",
				Action: func(c *cli.Context) error {
					cfg, facade, err := openFacade(c, false)
					if err != nil {
						return err
					}
					defer facade.Close()
					facade.PollForUnitChangesAndWait()
					debug.LogIndexing("ingested store at %s into %s\n", cfg.Store.StorePath, cfg.Store.DatabaseBasePath)
					return nil
				},
			},
			{
				Name:  "poll",
				Usage: "Run as a long-lived daemon, watching the store path until interrupted",
				Action: runDaemon,
			},
			{
				Name:  "version",
				Usage: "Print detailed build and version information",
				Action: func(c *cli.Context) error {
					fmt.Println(version.FullInfo())
					return nil
				},
			},
			{
				Name:  "query",
				Usage: "Query the index",
				Subcommands: []*cli.Command{
					{
						Name:      "usr",
						Usage:     "Print every definition occurrence of a USR",
						ArgsUsage: "<usr>",
						Action:    queryUSR,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		debug.FatalAndExit("%v\n", err)
	}
}

func openFacade(c *cli.Context, readonly bool) (*config.Config, *indexsystem.Facade, error) {
	root := c.String("root")
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	provider := storelib.NewDefaultProvider("indexstore-db")
	facade, err := indexsystem.New(indexsystem.Params{
		StorePath:                   cfg.Store.StorePath,
		DatabaseBasePath:            cfg.Store.DatabaseBasePath,
		StoreLibraryProvider:        provider,
		Delegate:                    loggingDelegate{},
		UseExplicitOutputUnits:      cfg.Store.UseExplicitOutputUnits,
		Readonly:                    readonly || cfg.Store.Readonly,
		EnableOutOfDateFileWatching: cfg.Store.EnableOutOfDateFileWatching,
		ListenToUnitEvents:          cfg.Store.ListenToUnitEvents,
		WaitUntilDoneInitializing:   true,
		InitialDBSize:               cfg.Store.InitialDBSizeBytes,
		WatchDebounceMs:             cfg.Ingestion.WatchDebounceMs,
		ParallelWorkers:             cfg.Ingestion.ParallelWorkers,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start index system: %w", err)
	}
	return cfg, facade, nil
}

func queryUSR(c *cli.Context) error {
	usr := c.Args().First()
	if usr == "" {
		return fmt.Errorf("usage: indexsystemd query usr <usr>")
	}

	_, facade, err := openFacade(c, true)
	if err != nil {
		return err
	}
	defer facade.Close()

	found := false
	facade.ForeachCanonicalSymbolOccurrenceByUSR(ix.USR(usr), func(occ ix.SymbolOccurrence) bool {
		found = true
		fmt.Printf("%s\t%s\t%s:%d\n", occ.Symbol.Name, occ.Symbol.Kind, occ.Location.Path, occ.Location.Line)
		return true
	})
	if !found {
		fmt.Printf("no definitions found for %s\n", usr)
	}
	return nil
}

func runDaemon(c *cli.Context) error {
	cfg, facade, err := openFacade(c, false)
	if err != nil {
		return err
	}
	defer facade.Close()

	debug.LogIndexing("index system ready at %s (db %s), build %s\n", cfg.Store.StorePath, cfg.Store.DatabaseBasePath, version.BuildID())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		debug.LogIndexing("received signal %v, shutting down\n", sig)
		cancel()

		shutdownTimer := time.NewTimer(5 * time.Second)
		defer shutdownTimer.Stop()
		done := make(chan struct{})
		go func() {
			facade.PollForUnitChangesAndWait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownTimer.C:
			debug.LogIndexing("graceful drain timed out, exiting anyway\n")
		}
	case <-ctx.Done():
	}

	return nil
}

const defaultKDL = `project {
    name "my-project"
}
store {
    store_path ".indexstoredb/store"
    database_base_path ".indexstoredb/db"
    enable_out_of_date_file_watching true
}
ingestion {
    watch_mode true
    watch_debounce_ms 300
}
`
