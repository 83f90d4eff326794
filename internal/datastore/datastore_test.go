package datastore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dreampiggy/indexstore-db/internal/canonpath"
	"github.com/dreampiggy/indexstore-db/internal/database"
	ix "github.com/dreampiggy/indexstore-db/internal/ixtypes"
)

type fakeDispatcher struct {
	addedPending []int
	completed    []int
	processed    []string
	outOfDate    []string
}

func (d *fakeDispatcher) ProcessingAddedPending(n int) { d.addedPending = append(d.addedPending, n) }
func (d *fakeDispatcher) ProcessingCompleted(n int)    { d.completed = append(d.completed, n) }
func (d *fakeDispatcher) ProcessedStoreUnit(info ix.StoreUnitInfo) {
	d.processed = append(d.processed, info.Name)
}
func (d *fakeDispatcher) UnitIsOutOfDate(info ix.StoreUnitInfo, modTime time.Time, hint ix.OutOfDateTriggerHint, synchronous bool) {
	d.outOfDate = append(d.outOfDate, info.Name)
}

type fakeVisibility struct {
	added   []string
	removed []string
}

func (v *fakeVisibility) AddUnitOutFilePaths(paths []string)    { v.added = append(v.added, paths...) }
func (v *fakeVisibility) RemoveUnitOutFilePaths(paths []string) { v.removed = append(v.removed, paths...) }
func (v *fakeVisibility) IsVisible(outPath string) bool         { return true }

func newTestStore(t *testing.T, storePath string, dispatcher *fakeDispatcher, vis *fakeVisibility) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath, false, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(Params{
		DB:         db,
		Paths:      canonpath.New(),
		Visibility: vis,
		Dispatcher: dispatcher,
		StorePath:  storePath,
	}, 50)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeRecord(t *testing.T, dir, name string, rec unitRecord) {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNew_IngestsExistingUnitRecordsOnScan(t *testing.T) {
	storePath := t.TempDir()
	writeRecord(t, storePath, "a.unit.json", unitRecord{
		Name:       "unit-a",
		OutputPath: "/out/a.o",
		IsMain:     true,
		Symbols:    []recordSymbol{{USR: "c:@F@f", Name: "f", Kind: int(ix.KindFunction)}},
	})

	dispatcher := &fakeDispatcher{}
	vis := &fakeVisibility{}
	newTestStore(t, storePath, dispatcher, vis)

	if len(dispatcher.processed) != 1 || dispatcher.processed[0] != "unit-a" {
		t.Fatalf("expected unit-a to be processed, got %v", dispatcher.processed)
	}
	if len(vis.added) != 1 || vis.added[0] != "/out/a.o" {
		t.Fatalf("expected /out/a.o registered as visible, got %v", vis.added)
	}
}

func TestPollForUnitChangesAndWait_PicksUpNewRecord(t *testing.T) {
	storePath := t.TempDir()
	dispatcher := &fakeDispatcher{}
	vis := &fakeVisibility{}
	s := newTestStore(t, storePath, dispatcher, vis)

	writeRecord(t, storePath, "b.unit.json", unitRecord{Name: "unit-b", OutputPath: "/out/b.o"})
	s.PollForUnitChangesAndWait()

	if len(dispatcher.processed) != 1 || dispatcher.processed[0] != "unit-b" {
		t.Fatalf("expected unit-b to be processed after poll, got %v", dispatcher.processed)
	}
}

func TestIsUnitOutOfDateByDirtyFiles(t *testing.T) {
	storePath := t.TempDir()
	srcFile := filepath.Join(storePath, "src.go")
	os.WriteFile(srcFile, []byte("package x"), 0o644)

	writeRecord(t, storePath, "u.unit.json", unitRecord{
		Name:       "unit-u",
		OutputPath: "/out/u.o",
		IsMain:     true,
		Occurrences: []recordOccur{
			{USR: "c:@F@f", Roles: int(ix.RoleDefinition), Path: srcFile, Line: 1},
		},
	})

	dispatcher := &fakeDispatcher{}
	vis := &fakeVisibility{}
	s := newTestStore(t, storePath, dispatcher, vis)

	if !s.IsUnitOutOfDateByDirtyFiles("/out/u.o", []string{srcFile}) {
		t.Fatal("expected unit to be out of date when one of its files is dirty")
	}
	if s.IsUnitOutOfDateByDirtyFiles("/out/u.o", []string{filepath.Join(storePath, "other.go")}) {
		t.Fatal("expected unit to stay up to date when dirty files are unrelated")
	}
}
