package datastore

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures the watch-loop goroutine New starts is always joined by
// Close before a test exits.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}
