// Package config holds the facade's construction parameters and loads them
// from a project-local KDL file, layering a project .indexstoredb.kdl over
// built-in defaults.
package config

import (
	"os"
	"runtime"
)

// Config is the merged configuration for one IndexFacade instance.
type Config struct {
	Version     int
	Project     Project
	Store       Store
	Ingestion   Ingestion
	Performance Performance
}

// Project describes the workspace the index covers.
type Project struct {
	Root string
	Name string
}

// Store holds the on-disk locations and construction flags passed straight
// through to IndexFacade's init sequence.
type Store struct {
	StorePath                  string
	DatabaseBasePath            string
	UseExplicitOutputUnits      bool
	Readonly                    bool
	EnableOutOfDateFileWatching bool
	ListenToUnitEvents          bool
	WaitUntilDoneInitializing   bool
	InitialDBSizeBytes          int64 // 0 = no hint
}

// Ingestion controls the datastore's directory scan and file-watch
// behaviour.
type Ingestion struct {
	WatchMode          bool
	WatchDebounceMs    int
	ParallelWorkers    int // 0 = auto-detect (NumCPU)
	PollIntervalMs     int
}

// Performance bounds background resource usage.
type Performance struct {
	MaxGoroutines int
}

// Default returns the built-in configuration, rooted at the current
// working directory.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		Version: 1,
		Project: Project{Root: cwd},
		Store: Store{
			StorePath:                   ".indexstoredb/store",
			DatabaseBasePath:            ".indexstoredb/db",
			UseExplicitOutputUnits:      false,
			Readonly:                    false,
			EnableOutOfDateFileWatching: true,
			ListenToUnitEvents:          true,
			WaitUntilDoneInitializing:   false,
		},
		Ingestion: Ingestion{
			WatchMode:       true,
			WatchDebounceMs: 300,
			ParallelWorkers: 0,
			PollIntervalMs:  500,
		},
		Performance: Performance{
			MaxGoroutines: runtime.NumCPU(),
		},
	}
}

// Load reads the .indexstoredb.kdl config in the project root directory
// path. parseKDL seeds its result from the same defaults as Default(), so a
// missing or partial file still yields a fully populated Config; a missing
// file is not an error.
func Load(path string) (*Config, error) {
	fileCfg, err := LoadKDL(path)
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		return fileCfg, nil
	}
	cfg := Default()
	if cfg.Ingestion.ParallelWorkers <= 0 {
		cfg.Ingestion.ParallelWorkers = runtime.NumCPU()
	}
	return cfg, nil
}
