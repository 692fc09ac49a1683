package enforcement

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/dsrhaslab/paio-stage/internal/status"
)

// NoopObject is the bypass enforcement mechanism: it copies the ticket's
// buffer (if any) into the result and marks success, without otherwise
// affecting the request. It is also the object installed as a channel's
// no-match fallback (spec.md §4.7).
//
// In shared mode the enforcement counter is protected by a mutex, matching
// an object referenced concurrently by several channel workers; in
// exclusive (non-shared) mode the counter is a lock-free atomic, matching a
// single fast-path caller.
type NoopObject struct {
	id     int64
	shared bool

	mu      sync.Mutex
	counter uint64

	atomicCounter atomic.Uint64
}

// NewNoopObject constructs a NoopObject with the given identifier.
func NewNoopObject(id int64, shared bool) *NoopObject {
	return &NoopObject{id: id, shared: shared}
}

// ID returns the object's identifier.
func (n *NoopObject) ID() int64 { return n.id }

// Enforce bypasses the request: it copies the ticket's buffer (if present)
// into result and always reports success.
func (n *NoopObject) Enforce(ticket core.Ticket, result *core.Result) {
	if n.shared {
		n.mu.Lock()
		n.counter++
		n.mu.Unlock()
	} else {
		n.atomicCounter.Add(1)
	}

	result.SetStatus(core.ResultSuccess)
	if buf := ticket.Buffer(); len(buf) > 0 {
		result.SetContent(buf)
	}
}

// Configure is a no-op for NoopObject; it always succeeds.
func (n *NoopObject) Configure(_ int, _ []int64) status.Status {
	return status.OK()
}

// CollectStatistics always reports status.Error: a NoopObject has nothing
// to report beyond its enforcement counter (exposed via Counter).
func (n *NoopObject) CollectStatistics(_ *StatisticsRaw) status.Status {
	return status.Error()
}

// Counter returns the total number of times Enforce has run.
func (n *NoopObject) Counter() uint64 {
	if n.shared {
		n.mu.Lock()
		defer n.mu.Unlock()
		return n.counter
	}
	return n.atomicCounter.Load()
}

// String renders the NoopObject for debugging.
func (n *NoopObject) String() string {
	return fmt.Sprintf("NoopObject {%d, shared=%t, counter=%d}", n.id, n.shared, n.Counter())
}
