// Package indexsystem is the façade and coordination core of the index:
// it owns construction and lifetime of every collaborator, forwards the
// query/mutation surface to them, and implements the one piece of real
// logic that does not belong to any single collaborator — dynamic-dispatch
// call-occurrence resolution.
package indexsystem

import (
	"log"
	"os"
	"time"

	"github.com/dreampiggy/indexstore-db/internal/canonpath"
	"github.com/dreampiggy/indexstore-db/internal/database"
	"github.com/dreampiggy/indexstore-db/internal/datastore"
	pkgerrors "github.com/dreampiggy/indexstore-db/internal/errors"
	"github.com/dreampiggy/indexstore-db/internal/filepathindex"
	"github.com/dreampiggy/indexstore-db/internal/symbolindex"
	"github.com/dreampiggy/indexstore-db/internal/visibility"
)

// Params are the Facade's construction parameters, mirroring
// IndexSystemImpl::init's argument list in the C++ original. The facade
// constructs every collaborator itself, the way IndexSystemImpl::init
// builds SymIndex/PathIndex/VisibilityChecker/IndexStore directly rather
// than receiving them — StoreLibraryProvider and Delegate are the only two
// genuinely external inputs.
type Params struct {
	StorePath                   string
	DatabaseBasePath            string
	StoreLibraryProvider        StoreLibraryProvider
	Delegate                    Delegate
	UseExplicitOutputUnits      bool
	Readonly                    bool
	EnableOutOfDateFileWatching bool
	ListenToUnitEvents          bool
	WaitUntilDoneInitializing   bool
	InitialDBSize               int64 // 0 = no hint
	WatchDebounceMs             int
	ParallelWorkers             int // 0 = sequential
}

// Facade is the constructed, owned handle over one index instance. It
// exclusively owns every collaborator's lifetime; Close releases them all.
type Facade struct {
	db         Database
	symIndex   SymbolIndex
	pathIndex  FilePathIndex
	visibility VisibilityChecker
	datastore  IndexDatastore
	dispatcher *DelegateDispatcher
	resolver   *CallOccurrenceResolver
}

// New runs the construction sequence from spec.md §4.2, exiting early and
// releasing whatever was already opened on the first failure.
func New(p Params) (*Facade, error) {
	dispatcher := NewDelegateDispatcher(p.Delegate)

	db, err := database.Open(p.DatabaseBasePath, p.Readonly, p.InitialDBSize)
	if err != nil {
		dispatcher.Close()
		return nil, pkgerrors.NewConstructionError(pkgerrors.ErrorTypeDatabaseOpen, "open database", err)
	}

	if _, err := p.StoreLibraryProvider.LibraryForStorePath(p.StorePath); err != nil {
		db.Close()
		dispatcher.Close()
		return nil, pkgerrors.NewConstructionError(pkgerrors.ErrorTypeNoStoreLibrary, "resolve store library", err)
	}

	if !p.Readonly {
		if err := os.MkdirAll(p.StorePath, 0o755); err != nil {
			// Non-fatal: recorded only. The next step to touch the store
			// path will likely fail instead, matching the source's own
			// tolerated ordering.
			log.Print(pkgerrors.NewConstructionError(pkgerrors.ErrorTypeStorePathCreate, "create store path", err))
		}
	}

	paths := canonpath.New()
	visChecker := visibility.New(db, paths, p.UseExplicitOutputUnits)
	symIndex := symbolindex.New(db)
	pathIndex := filepathindex.New(db, paths)

	debounceMs := p.WatchDebounceMs
	if debounceMs <= 0 {
		debounceMs = 300
	}
	ds, err := datastore.New(datastore.Params{
		DB:                          db,
		Paths:                       paths,
		Visibility:                  visChecker,
		Dispatcher:                  dispatcher,
		StorePath:                   p.StorePath,
		UseExplicitOutputUnits:      p.UseExplicitOutputUnits,
		Readonly:                    p.Readonly,
		EnableOutOfDateFileWatching: p.EnableOutOfDateFileWatching,
		ListenToUnitEvents:          p.ListenToUnitEvents,
		WaitUntilDoneInitializing:   p.WaitUntilDoneInitializing,
		ParallelWorkers:             p.ParallelWorkers,
	}, debounceMs)
	if err != nil {
		db.Close()
		dispatcher.Close()
		return nil, pkgerrors.NewConstructionError(pkgerrors.ErrorTypeIngestionInit, "start ingestion", err)
	}

	if p.WaitUntilDoneInitializing {
		// The initial scan has already run; drain the notifications it queued.
		dispatcher.Wait()
	}

	return &Facade{
		db:         db,
		symIndex:   symIndex,
		pathIndex:  pathIndex,
		visibility: visChecker,
		datastore:  ds,
		dispatcher: dispatcher,
		resolver:   NewCallOccurrenceResolver(symIndex),
	}, nil
}

// Close releases every owned collaborator, datastore first so no further
// ingestion can touch the database after it closes.
func (f *Facade) Close() error {
	if err := f.datastore.Close(); err != nil {
		return err
	}
	f.dispatcher.Close()
	return f.db.Close()
}

// --- Mutating operations, forwarded per spec.md §4.2 ---

// RegisterMainFiles forwards to VisibilityChecker.
func (f *Facade) RegisterMainFiles(paths []string, productName string) {
	f.visibility.RegisterMainFiles(paths, productName)
}

// UnregisterMainFiles forwards to VisibilityChecker.
func (f *Facade) UnregisterMainFiles(paths []string, productName string) {
	f.visibility.UnregisterMainFiles(paths, productName)
}

// AddUnitOutFilePaths updates visibility before ingestion, in that order:
// visibility must reflect the change before ingestion consumes it, so that
// newly-ingested records can be visibility-classified immediately.
func (f *Facade) AddUnitOutFilePaths(paths []string, waitForProcessing bool) {
	f.visibility.AddUnitOutFilePaths(paths)
	f.datastore.AddUnitOutFilePaths(paths, waitForProcessing)
}

// RemoveUnitOutFilePaths updates visibility before ingestion, matching
// AddUnitOutFilePaths's ordering.
func (f *Facade) RemoveUnitOutFilePaths(paths []string, waitForProcessing bool) {
	f.visibility.RemoveUnitOutFilePaths(paths)
	f.datastore.RemoveUnitOutFilePaths(paths, waitForProcessing)
}

// IsUnitOutOfDateByDirtyFiles forwards to IndexDatastore.
func (f *Facade) IsUnitOutOfDateByDirtyFiles(unitOutputPath string, dirtyFiles []string) bool {
	return f.datastore.IsUnitOutOfDateByDirtyFiles(unitOutputPath, dirtyFiles)
}

// IsUnitOutOfDateByModTime forwards to IndexDatastore.
func (f *Facade) IsUnitOutOfDateByModTime(unitOutputPath string, modTime time.Time) bool {
	return f.datastore.IsUnitOutOfDateByModTime(unitOutputPath, modTime)
}

// CheckUnitContainingFileIsOutOfDate forwards to IndexDatastore.
func (f *Facade) CheckUnitContainingFileIsOutOfDate(path string) {
	f.datastore.CheckUnitContainingFileIsOutOfDate(path)
}

// PurgeStaleData forwards to IndexDatastore.
func (f *Facade) PurgeStaleData() {
	f.datastore.PurgeStaleData()
}

// PollForUnitChangesAndWait is a fence: on return, every unit-record change
// visible at entry has been ingested and every delegate notification it
// produced has been delivered.
func (f *Facade) PollForUnitChangesAndWait() {
	f.datastore.PollForUnitChangesAndWait()
	f.dispatcher.Wait()
}
