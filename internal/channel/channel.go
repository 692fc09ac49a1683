package channel

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/dsrhaslab/paio-stage/internal/differentiation"
	"github.com/dsrhaslab/paio-stage/internal/enforcement"
	"github.com/dsrhaslab/paio-stage/internal/status"
)

// Stats is the generic channel-level statistics container: a running count
// of requests and total bytes enforced. It intentionally stays generic (no
// per-operation breakdown) matching the original's documented TODO to
// replace ad-hoc structs with a dedicated statistics class — this is that
// class, not a faithful reproduction of unfinished upstream work.
type Stats struct {
	TotalOperations uint64
	TotalBytes      uint64
}

// Channel is a stream-like abstraction through which I/O requests flow.
// Each Channel owns one or more EnforcementObjects, selected per-request by
// an object-level differentiation token, and a SubmissionQueue/
// CompletionQueue pair that lets a request either be enforced synchronously
// (fast path) or asynchronously via a background worker.
type Channel struct {
	id int64

	submission *SubmissionQueue
	completion *CompletionQueue

	statsMu sync.Mutex
	stats   Stats

	workerOnce sync.Once
	running    atomic.Bool
}

// NewChannel constructs a Channel with the given identifier and no-match
// fallback object (spec.md §4.7).
func NewChannel(id int64, noMatch enforcement.Object) *Channel {
	completion := NewCompletionQueue()
	return &Channel{
		id:         id,
		submission: NewSubmissionQueue(completion, noMatch),
		completion: completion,
	}
}

// ID returns the Channel's identifier.
func (c *Channel) ID() int64 { return c.id }

// Start launches the background worker goroutine that drains the
// submission queue. Safe to call more than once; only the first call has
// an effect.
func (c *Channel) Start() {
	c.workerOnce.Do(func() {
		c.running.Store(true)
		go c.submission.Run()
	})
}

// Stop signals the background worker to exit.
func (c *Channel) Stop() {
	c.running.Store(false)
	c.submission.Stop()
}

// Enforce applies the Channel's EnforcementObject service over ticket. When
// async is true, the request is queued for the background worker and this
// call blocks on the completion queue for the matching result; when false,
// enforcement runs synchronously on the calling goroutine (the common,
// lower-latency path — spec.md §4.7's fast path).
func (c *Channel) Enforce(ticket core.Ticket, async bool) core.Result {
	var result core.Result
	if async {
		c.submission.Enqueue(ticket)
		result = c.completion.Dequeue(ticket.TicketID())
	} else {
		result = c.submission.EnqueueFastPath(ticket)
	}

	c.statsMu.Lock()
	c.stats.TotalOperations++
	c.stats.TotalBytes += uint64(ticket.BufferSize())
	c.statsMu.Unlock()

	return result
}

// CollectObjectStatistics collects statistics from the EnforcementObject
// registered under token.
func (c *Channel) CollectObjectStatistics(token uint32, raw *enforcement.StatisticsRaw) status.Status {
	return c.submission.CollectEnforcementObjectStatistics(token, raw)
}

// CollectGeneralStatistics returns a snapshot of the Channel's own
// request/byte counters.
func (c *Channel) CollectGeneralStatistics() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// CreateEnforcementObject registers a new EnforcementObject under the
// routing token computed from diffTuple.
func (c *Channel) CreateEnforcementObject(obj enforcement.Object, diffTuple differentiation.ObjectDifferentiationTuple, builder *differentiation.ObjectDifferentiationBuilder) status.Status {
	token := builder.BuildToken(diffTuple)
	return c.submission.CreateEnforcementObject(token, obj)
}

// ConfigureEnforcementObject adjusts the tuning knobs of the object
// registered under token.
func (c *Channel) ConfigureEnforcementObject(token uint32, op int, values []int64) status.Status {
	return c.submission.ConfigureEnforcementObject(token, op, values)
}

// DefineObjectDifferentiation reconfigures which classifiers participate in
// this Channel's object-routing token.
func (c *Channel) DefineObjectDifferentiation(mask differentiation.ObjectSelectorMask) {
	c.submission.DefineObjectDifferentiation(mask)
}

// ObjectDifferentiationBuilder returns the builder the Channel's
// SubmissionQueue uses internally to route Tickets, so that callers
// creating an EnforcementObject compute the very same token Enforce will
// later use to find it.
func (c *Channel) ObjectDifferentiationBuilder() *differentiation.ObjectDifferentiationBuilder {
	return c.submission.diffBuilder
}

// String renders the Channel for debugging.
func (c *Channel) String() string {
	s := c.CollectGeneralStatistics()
	return fmt.Sprintf("Channel {%d, ops=%d, bytes=%d}\n%s", c.id, s.TotalOperations, s.TotalBytes, c.submission.String())
}
