// Package datastore is the ingestion pipeline: it discovers unit records
// under a store path, loads them into the database, keeps the symbol and
// file-path indexes current, and (optionally) watches the store path for
// further changes. Grounded on internal/indexing/watcher.go,
// internal/indexing/pipeline.go and internal/indexing/debounced_rebuilder.go
// in the teacher repo.
package datastore

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/dreampiggy/indexstore-db/internal/canonpath"
	"github.com/dreampiggy/indexstore-db/internal/database"
	ix "github.com/dreampiggy/indexstore-db/internal/ixtypes"
)

// dispatcher is the subset of indexsystem.DelegateDispatcher's method set
// the datastore drives ingestion progress through.
type dispatcher interface {
	ProcessingAddedPending(numActions int)
	ProcessingCompleted(numActions int)
	ProcessedStoreUnit(info ix.StoreUnitInfo)
	UnitIsOutOfDate(info ix.StoreUnitInfo, outOfDateModTime time.Time, hint ix.OutOfDateTriggerHint, synchronous bool)
}

// visibilityChecker is the subset of visibility.Checker the datastore
// consults and updates during ingestion.
type visibilityChecker interface {
	AddUnitOutFilePaths(paths []string)
	RemoveUnitOutFilePaths(paths []string)
	IsVisible(outPath string) bool
}

// Params configures a Store.
type Params struct {
	DB                          *database.DB
	Paths                       *canonpath.Cache
	Visibility                  visibilityChecker
	Dispatcher                  dispatcher
	StorePath                   string
	UseExplicitOutputUnits      bool
	Readonly                    bool
	EnableOutOfDateFileWatching bool
	ListenToUnitEvents          bool
	WaitUntilDoneInitializing   bool
	ParallelWorkers             int // 0 = sequential
}

// Store implements indexsystem.IndexDatastore: a directory of
// "*.unit.json" unit records under StorePath, optionally watched for
// changes via fsnotify with a debounce window.
type Store struct {
	params Params

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	watcher *fsnotify.Watcher

	mu         sync.Mutex
	debounced  map[string]bool
	debounceAt time.Time
	timer      *time.Timer
	debounceMs int

	// loadMu serializes writes to params.DB: go-sqlite3 rejects concurrent
	// writers from separate connections with "database is locked", so the
	// parallel scanAll workers that share one *sql.DB still take turns here.
	loadMu sync.Mutex
}

// unitRecord is the on-disk shape ingestion parses. It stands in for the
// C++ original's binary unit-record format — out of scope to reproduce
// byte-for-byte, so ingestion here reads a JSON equivalent carrying the
// same information the symbol/file-path indexes need.
type unitRecord struct {
	Name              string          `json:"name"`
	OutputPath        string          `json:"output_path"`
	IsMain            bool            `json:"is_main"`
	DependencyModTime int64           `json:"dependency_mod_time"`
	Symbols           []recordSymbol  `json:"symbols"`
	Occurrences       []recordOccur   `json:"occurrences"`
	Includes          []recordInclude `json:"includes"`
}

type recordSymbol struct {
	USR  string `json:"usr"`
	Name string `json:"name"`
	Kind int    `json:"kind"`
}

type recordOccur struct {
	USR       string          `json:"usr"`
	Roles     int             `json:"roles"`
	Path      string          `json:"path"`
	Line      int             `json:"line"`
	Relations []recordRelation `json:"relations"`
}

type recordRelation struct {
	USR   string `json:"usr"`
	Roles int    `json:"roles"`
}

type recordInclude struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Line   int    `json:"line"`
}

// New builds the ingestion pipeline, performs an initial scan of
// params.StorePath, and — when EnableOutOfDateFileWatching is set and the
// store is writable — starts the fsnotify watch loop.
func New(params Params, watchDebounceMs int) (*Store, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		params:     params,
		ctx:        ctx,
		cancel:     cancel,
		debounced:  make(map[string]bool),
		debounceMs: watchDebounceMs,
	}

	if err := s.scanAll(); err != nil {
		cancel()
		return nil, err
	}

	if params.EnableOutOfDateFileWatching && !params.Readonly {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			cancel()
			return nil, err
		}
		s.watcher = w
		if err := w.Add(params.StorePath); err != nil {
			log.Printf("datastore: failed to watch %s: %v", params.StorePath, err)
		}
		s.wg.Add(1)
		go s.watchLoop()
	}

	return s, nil
}

// scanAll globs StorePath for unit records and ingests each one. Reading and
// parsing fan out across a bounded worker pool (params.ParallelWorkers); the
// database writes each worker triggers are serialized through loadMu.
func (s *Store) scanAll() error {
	matches, err := doublestar.Glob(os.DirFS(s.params.StorePath), "**/*.unit.json")
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	s.notifyAddedPending(len(matches))

	g := new(errgroup.Group)
	workers := s.params.ParallelWorkers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for _, rel := range matches {
		rel := rel
		g.Go(func() error {
			s.ingestFile(filepath.Join(s.params.StorePath, rel))
			return nil
		})
	}
	g.Wait()

	s.notifyCompleted(len(matches))
	return nil
}

func (s *Store) notifyAddedPending(n int) {
	if s.params.Dispatcher != nil {
		s.params.Dispatcher.ProcessingAddedPending(n)
	}
}

func (s *Store) notifyCompleted(n int) {
	if s.params.Dispatcher != nil {
		s.params.Dispatcher.ProcessingCompleted(n)
	}
}

func (s *Store) ingestFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Printf("datastore: read %s: %v", path, err)
		return
	}
	var rec unitRecord
	if err := json.Unmarshal(content, &rec); err != nil {
		log.Printf("datastore: parse %s: %v", path, err)
		return
	}
	s.loadMu.Lock()
	err = s.loadUnit(rec)
	s.loadMu.Unlock()
	if err != nil {
		log.Printf("datastore: load %s: %v", path, err)
		return
	}
	if s.params.Dispatcher != nil {
		s.params.Dispatcher.ProcessedStoreUnit(ix.StoreUnitInfo{
			Name:              rec.Name,
			OutputPath:        ix.UnitOutputPath(rec.OutputPath),
			DependencyModTime: time.Unix(rec.DependencyModTime, 0),
			IsMain:            rec.IsMain,
		})
	}
}

func (s *Store) loadUnit(rec unitRecord) error {
	conn := s.params.DB.Conn()

	var unitID int64
	res, err := conn.Exec(
		`INSERT INTO units(name, output_path, is_main, dependency_mod_time) VALUES (?, ?, ?, ?)
		 ON CONFLICT(output_path) DO UPDATE SET name = excluded.name, is_main = excluded.is_main, dependency_mod_time = excluded.dependency_mod_time`,
		rec.Name, rec.OutputPath, rec.IsMain, rec.DependencyModTime)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && id != 0 {
		unitID = id
	} else {
		row := conn.QueryRow(`SELECT id FROM units WHERE output_path = ?`, rec.OutputPath)
		if err := row.Scan(&unitID); err != nil {
			return err
		}
	}

	for _, sym := range rec.Symbols {
		if _, err := conn.Exec(
			`INSERT INTO symbols(usr, name, kind) VALUES (?, ?, ?)
			 ON CONFLICT(usr) DO UPDATE SET name = excluded.name, kind = excluded.kind`,
			sym.USR, sym.Name, sym.Kind); err != nil {
			return err
		}
	}

	fileIDs := make(map[string]int64)
	fileID := func(path string) (int64, error) {
		cp := string(s.params.Paths.Canonicalize(path))
		if id, ok := fileIDs[cp]; ok {
			return id, nil
		}
		if _, err := conn.Exec(`INSERT OR IGNORE INTO files(canonical_path) VALUES (?)`, cp); err != nil {
			return 0, err
		}
		row := conn.QueryRow(`SELECT id FROM files WHERE canonical_path = ?`, cp)
		var id int64
		if err := row.Scan(&id); err != nil {
			return 0, err
		}
		fileIDs[cp] = id
		if rec.IsMain {
			if _, err := conn.Exec(`INSERT OR IGNORE INTO unit_files(unit_id, file_id) VALUES (?, ?)`, unitID, id); err != nil {
				return 0, err
			}
		}
		return id, nil
	}

	for _, occ := range rec.Occurrences {
		fID, err := fileID(occ.Path)
		if err != nil {
			return err
		}
		if _, err := conn.Exec(`INSERT OR IGNORE INTO unit_files(unit_id, file_id) VALUES (?, ?)`, unitID, fID); err != nil {
			return err
		}
		res, err := conn.Exec(
			`INSERT INTO occurrences(usr, roles, file_id, unit_id, line) VALUES (?, ?, ?, ?, ?)`,
			occ.USR, occ.Roles, fID, unitID, occ.Line)
		if err != nil {
			return err
		}
		occID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, rel := range occ.Relations {
			if _, err := conn.Exec(`INSERT INTO relations(occurrence_id, related_usr, roles) VALUES (?, ?, ?)`,
				occID, rel.USR, rel.Roles); err != nil {
				return err
			}
		}
	}

	for _, inc := range rec.Includes {
		srcID, err := fileID(inc.Source)
		if err != nil {
			return err
		}
		dstID, err := fileID(inc.Target)
		if err != nil {
			return err
		}
		if _, err := conn.Exec(`INSERT INTO includes(source_file_id, target_file_id, unit_id, line) VALUES (?, ?, ?, ?)`,
			srcID, dstID, unitID, inc.Line); err != nil {
			return err
		}
	}

	if rec.OutputPath != "" {
		s.params.Visibility.AddUnitOutFilePaths([]string{rec.OutputPath})
	}
	return nil
}

// watchLoop mirrors FileWatcher.processEvents: fsnotify events are
// debounced before triggering a re-scan, so a burst of writes to the same
// unit record collapses into one ingestion pass.
func (s *Store) watchLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			s.scheduleDebouncedScan()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("datastore: watch error: %v", err)
		}
	}
}

func (s *Store) scheduleDebouncedScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(time.Duration(s.debounceMs)*time.Millisecond, func() {
		if err := s.scanAll(); err != nil {
			log.Printf("datastore: rescan: %v", err)
		}
	})
}

// IsUnitOutOfDateByDirtyFiles reports whether any of dirtyFiles is
// recorded as a file of unitOutputPath.
func (s *Store) IsUnitOutOfDateByDirtyFiles(unitOutputPath string, dirtyFiles []string) bool {
	dirty := make(map[string]bool, len(dirtyFiles))
	for _, f := range dirtyFiles {
		dirty[string(s.params.Paths.Canonicalize(f))] = true
	}
	out := false
	conn := s.params.DB.Conn()
	rows, err := conn.Query(
		`SELECT f.canonical_path FROM unit_files uf
		 JOIN files f ON f.id = uf.file_id
		 JOIN units u ON u.id = uf.unit_id
		 WHERE u.output_path = ?`, unitOutputPath)
	if err != nil {
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			continue
		}
		if dirty[path] {
			out = true
			break
		}
	}
	return out
}

// IsUnitOutOfDateByModTime reports whether unitOutputPath's recorded
// dependency mod time precedes modTime.
func (s *Store) IsUnitOutOfDateByModTime(unitOutputPath string, modTime time.Time) bool {
	var recorded int64
	row := s.params.DB.Conn().QueryRow(`SELECT dependency_mod_time FROM units WHERE output_path = ?`, unitOutputPath)
	if err := row.Scan(&recorded); err != nil {
		return false
	}
	return recorded < modTime.Unix()
}

// CheckUnitContainingFileIsOutOfDate notifies the dispatcher for every main
// unit containing file whose on-disk mod time is newer than what is
// recorded.
func (s *Store) CheckUnitContainingFileIsOutOfDate(file string) {
	cp := string(s.params.Paths.Canonicalize(file))
	info, err := os.Stat(file)
	if err != nil {
		return
	}
	conn := s.params.DB.Conn()
	rows, err := conn.Query(
		`SELECT u.name, u.output_path, u.dependency_mod_time, u.is_main FROM units u
		 JOIN unit_files uf ON uf.unit_id = u.id
		 JOIN files f ON f.id = uf.file_id
		 WHERE f.canonical_path = ? AND u.is_main = 1`, cp)
	if err != nil {
		return
	}
	defer rows.Close()
	for rows.Next() {
		var name, outPath string
		var depModTime int64
		var isMain int
		if err := rows.Scan(&name, &outPath, &depModTime, &isMain); err != nil {
			continue
		}
		if info.ModTime().Unix() <= depModTime {
			continue
		}
		unitInfo := ix.StoreUnitInfo{Name: name, OutputPath: ix.UnitOutputPath(outPath), IsMain: isMain != 0}
		if s.params.Dispatcher != nil {
			s.params.Dispatcher.UnitIsOutOfDate(unitInfo, info.ModTime(), ix.DependentFileTriggerHint{FilePath: file}, false)
		}
	}
}

// AddUnitOutFilePaths registers paths as live and, if waitForProcessing,
// forces an immediate synchronous re-scan before returning.
func (s *Store) AddUnitOutFilePaths(paths []string, waitForProcessing bool) {
	s.params.Visibility.AddUnitOutFilePaths(paths)
	if waitForProcessing {
		_ = s.scanAll()
	}
}

// RemoveUnitOutFilePaths un-registers paths.
func (s *Store) RemoveUnitOutFilePaths(paths []string, waitForProcessing bool) {
	s.params.Visibility.RemoveUnitOutFilePaths(paths)
	_ = waitForProcessing
}

// PurgeStaleData deletes every unit whose output path is no longer visible.
func (s *Store) PurgeStaleData() {
	conn := s.params.DB.Conn()
	rows, err := conn.Query(`SELECT id, output_path FROM units`)
	if err != nil {
		return
	}
	var stale []int64
	for rows.Next() {
		var id int64
		var outPath string
		if err := rows.Scan(&id, &outPath); err != nil {
			continue
		}
		if !s.params.Visibility.IsVisible(outPath) {
			stale = append(stale, id)
		}
	}
	rows.Close()

	for _, id := range stale {
		if err := s.params.DB.DeleteUnitData(id); err != nil {
			log.Printf("datastore: purge unit %d: %v", id, err)
		}
	}
}

// PollForUnitChangesAndWait re-scans the store path synchronously, then
// returns once ingestion of anything found has completed. Combined with the
// dispatcher's Wait() by the facade, this gives pollForUnitChangesAndWait
// its fence guarantee.
func (s *Store) PollForUnitChangesAndWait() {
	if err := s.scanAll(); err != nil {
		log.Printf("datastore: poll: %v", err)
	}
}

// Close stops the watch loop, if any, and releases its resources.
func (s *Store) Close() error {
	s.cancel()
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.wg.Wait()
	return nil
}
