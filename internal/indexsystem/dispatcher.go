package indexsystem

import (
	"log"
	"sync"
	"time"

	"github.com/dreampiggy/indexstore-db/internal/ixtypes"
)

// Delegate is the user-supplied consumer of ingestion-progress events. A nil
// Delegate is a valid, fully inert choice: every DelegateDispatcher method
// becomes a no-op.
type Delegate interface {
	ProcessingAddedPending(numActions int)
	ProcessingCompleted(numActions int)
	ProcessedStoreUnit(info ixtypes.StoreUnitInfo)
	UnitIsOutOfDate(info ixtypes.StoreUnitInfo, outOfDateModTime time.Time, hint ixtypes.OutOfDateTriggerHint, synchronous bool)
}

// DelegateDispatcher serialises and decouples progress callbacks to a
// user-supplied Delegate through a single FIFO task queue, so that
// ingestion threads never block on a slow consumer. unitIsOutOfDate calls
// with synchronous=true bypass the queue entirely and run inline.
type DelegateDispatcher struct {
	delegate Delegate
	tasks    chan func()
	wg       sync.WaitGroup
}

// NewDelegateDispatcher wraps delegate, which may be nil.
func NewDelegateDispatcher(delegate Delegate) *DelegateDispatcher {
	d := &DelegateDispatcher{
		delegate: delegate,
		tasks:    make(chan func(), 256),
	}
	if delegate != nil {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *DelegateDispatcher) run() {
	defer d.wg.Done()
	for task := range d.tasks {
		d.safeInvoke(task)
	}
}

// safeInvoke recovers from a panicking delegate callback so one bad
// consumer cannot corrupt or kill the queue.
func (d *DelegateDispatcher) safeInvoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("indexsystem: delegate callback panicked: %v", r)
		}
	}()
	fn()
}

func (d *DelegateDispatcher) post(task func()) {
	if d.delegate == nil {
		return
	}
	d.tasks <- func() { d.safeInvoke(task) }
}

// ProcessingAddedPending notifies the delegate that numActions new units
// were queued. Posted; returns immediately.
func (d *DelegateDispatcher) ProcessingAddedPending(numActions int) {
	delegate := d.delegate
	d.post(func() { delegate.ProcessingAddedPending(numActions) })
}

// ProcessingCompleted notifies the delegate that numActions units
// finished. Posted; returns immediately.
func (d *DelegateDispatcher) ProcessingCompleted(numActions int) {
	delegate := d.delegate
	d.post(func() { delegate.ProcessingCompleted(numActions) })
}

// ProcessedStoreUnit notifies the delegate that one unit was processed.
// Posted; returns immediately.
func (d *DelegateDispatcher) ProcessedStoreUnit(info ixtypes.StoreUnitInfo) {
	delegate := d.delegate
	d.post(func() { delegate.ProcessedStoreUnit(info) })
}

// UnitIsOutOfDate notifies the delegate that a unit was found out of date.
// When synchronous is true this bypasses the queue and runs inline on the
// caller's goroutine before returning, so the caller observes the
// delegate's side effects immediately; it may interleave with
// queue-drained deliveries running on other goroutines. Otherwise it is
// posted like the other three methods.
func (d *DelegateDispatcher) UnitIsOutOfDate(info ixtypes.StoreUnitInfo, outOfDateModTime time.Time, hint ixtypes.OutOfDateTriggerHint, synchronous bool) {
	if d.delegate == nil {
		return
	}
	if synchronous {
		d.safeInvoke(func() { d.delegate.UnitIsOutOfDate(info, outOfDateModTime, hint, true) })
		return
	}
	delegate := d.delegate
	d.post(func() { delegate.UnitIsOutOfDate(info, outOfDateModTime, hint, false) })
}

// Wait blocks until every task enqueued before this call has drained. For
// testing only.
func (d *DelegateDispatcher) Wait() {
	if d.delegate == nil {
		return
	}
	done := make(chan struct{})
	d.tasks <- func() { close(done) }
	<-done
}

// Close stops the dispatcher's worker goroutine once the queue drains. The
// dispatcher must not be used after Close returns.
func (d *DelegateDispatcher) Close() {
	if d.delegate == nil {
		return
	}
	close(d.tasks)
	d.wg.Wait()
}
