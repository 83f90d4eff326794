package indexsystem

import (
	"sync"
	"testing"
	"time"

	ix "github.com/dreampiggy/indexstore-db/internal/ixtypes"
)

type recordingDelegate struct {
	mu     sync.Mutex
	events []string
}

func (d *recordingDelegate) record(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, s)
}

func (d *recordingDelegate) ProcessingAddedPending(n int)        { d.record("added") }
func (d *recordingDelegate) ProcessingCompleted(n int)           { d.record("completed") }
func (d *recordingDelegate) ProcessedStoreUnit(ix.StoreUnitInfo) { d.record("unit") }
func (d *recordingDelegate) UnitIsOutOfDate(ix.StoreUnitInfo, time.Time, ix.OutOfDateTriggerHint, bool) {
	d.record("outofdate")
}

func (d *recordingDelegate) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func TestDelegateDispatcher_SerializesInOrder(t *testing.T) {
	delegate := &recordingDelegate{}
	d := NewDelegateDispatcher(delegate)

	d.ProcessingAddedPending(1)
	d.ProcessedStoreUnit(ix.StoreUnitInfo{Name: "a"})
	d.ProcessingCompleted(1)
	d.Wait()

	got := delegate.snapshot()
	want := []string{"added", "unit", "completed"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	d.Close()
}

func TestDelegateDispatcher_NilDelegateIsNoop(t *testing.T) {
	d := NewDelegateDispatcher(nil)
	d.ProcessingAddedPending(5)
	d.ProcessedStoreUnit(ix.StoreUnitInfo{})
	d.UnitIsOutOfDate(ix.StoreUnitInfo{}, time.Now(), ix.DependentFileTriggerHint{FilePath: "x"}, true)
	d.Wait()
	d.Close()
}

func TestDelegateDispatcher_SynchronousOutOfDateRunsInline(t *testing.T) {
	delegate := &recordingDelegate{}
	d := NewDelegateDispatcher(delegate)
	defer d.Close()

	d.UnitIsOutOfDate(ix.StoreUnitInfo{}, time.Now(), ix.DependentFileTriggerHint{FilePath: "x"}, true)

	got := delegate.snapshot()
	if len(got) != 1 || got[0] != "outofdate" {
		t.Fatalf("expected synchronous delivery to be visible immediately, got %v", got)
	}
}

func TestDelegateDispatcher_PanicRecovered(t *testing.T) {
	delegate := &panickingDelegate{}
	d := NewDelegateDispatcher(delegate)
	d.ProcessingAddedPending(1)
	d.Wait()
	d.Close()
}

type panickingDelegate struct{}

func (panickingDelegate) ProcessingAddedPending(int)                                               { panic("boom") }
func (panickingDelegate) ProcessingCompleted(int)                                                  {}
func (panickingDelegate) ProcessedStoreUnit(ix.StoreUnitInfo)                                       {}
func (panickingDelegate) UnitIsOutOfDate(ix.StoreUnitInfo, time.Time, ix.OutOfDateTriggerHint, bool) {}
