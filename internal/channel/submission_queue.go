package channel

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/dsrhaslab/paio-stage/internal/differentiation"
	"github.com/dsrhaslab/paio-stage/internal/enforcement"
	"github.com/dsrhaslab/paio-stage/internal/status"
)

// DefaultDequeueTimeout bounds how long the background worker blocks
// waiting for a Ticket before re-checking whether the queue was stopped,
// mirroring the original's m_timeout_dequeue poll.
const DefaultDequeueTimeout = 100 * time.Millisecond

type objectEntry struct {
	token uint32
	obj   enforcement.Object
}

// SubmissionQueue is the ingress half of a Channel: it buffers Tickets,
// routes each to the EnforcementObject selected by its differentiation
// token, and deposits the outcome into a paired CompletionQueue.
type SubmissionQueue struct {
	mu      sync.Mutex
	notEmpty *sync.Cond
	queue   *list.List // of core.Ticket

	isRunning      atomic.Bool
	dequeueTimeout time.Duration

	completion *CompletionQueue

	objectsMu     sync.Mutex
	objects       []objectEntry
	noMatchObject enforcement.Object

	diffBuilder *differentiation.ObjectDifferentiationBuilder
}

// NewSubmissionQueue constructs a SubmissionQueue paired with completion,
// falling back to noMatch when no EnforcementObject matches a Ticket's
// token (spec.md §4.7's no-match no-op fallback).
func NewSubmissionQueue(completion *CompletionQueue, noMatch enforcement.Object) *SubmissionQueue {
	sq := &SubmissionQueue{
		queue:          list.New(),
		dequeueTimeout: DefaultDequeueTimeout,
		completion:     completion,
		noMatchObject:  noMatch,
		diffBuilder:    differentiation.NewObjectDifferentiationBuilder(),
	}
	sq.notEmpty = sync.NewCond(&sq.mu)
	sq.isRunning.Store(true)
	return sq
}

// Size returns the number of Tickets currently queued.
func (sq *SubmissionQueue) Size() int {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.queue.Len()
}

// Enqueue stores ticket for asynchronous enforcement by the background
// worker (Run).
func (sq *SubmissionQueue) Enqueue(ticket core.Ticket) {
	sq.mu.Lock()
	defer sq.mu.Unlock()

	wasEmpty := sq.queue.Len() == 0
	sq.queue.PushBack(ticket)
	if wasEmpty {
		sq.notEmpty.Broadcast()
	}
}

// EnqueueFastPath enforces ticket synchronously on the calling goroutine,
// bypassing the queue entirely — used when the caller can tolerate being
// blocked on enforcement itself rather than an async round-trip.
func (sq *SubmissionQueue) EnqueueFastPath(ticket core.Ticket) core.Result {
	return sq.enforceMechanism(ticket)
}

// dequeueOne blocks until a Ticket is available or the queue is stopped and
// the poll interval elapses, returning (ticket, true) or (zero, false).
func (sq *SubmissionQueue) dequeueOne() (core.Ticket, bool) {
	sq.mu.Lock()
	defer sq.mu.Unlock()

	for sq.queue.Len() == 0 {
		if !sq.isRunning.Load() {
			return core.Ticket{}, false
		}
		waited := waitWithTimeout(sq.notEmpty, &sq.mu, sq.dequeueTimeout)
		if !waited && !sq.isRunning.Load() {
			return core.Ticket{}, false
		}
	}

	front := sq.queue.Front()
	sq.queue.Remove(front)
	return front.Value.(core.Ticket), true
}

// Run drives the background worker loop: dequeue a Ticket, enforce it, and
// deposit the Result into the paired CompletionQueue. It returns at its next
// loop check after Stop has been called; Tickets still queued at that point
// are not enforced.
func (sq *SubmissionQueue) Run() {
	for sq.isRunning.Load() {
		ticket, ok := sq.dequeueOne()
		if !ok {
			continue
		}
		result := sq.enforceMechanism(ticket)
		sq.completion.Enqueue(result)
	}
}

// Stop signals the background worker to exit at its next poll.
func (sq *SubmissionQueue) Stop() {
	sq.isRunning.Store(false)
	sq.mu.Lock()
	sq.notEmpty.Broadcast()
	sq.mu.Unlock()
}

// buildObjectToken computes the routing token for a Ticket's classifiers.
func (sq *SubmissionQueue) buildObjectToken(ticket core.Ticket) uint32 {
	return sq.diffBuilder.BuildToken(differentiation.ObjectDifferentiationTuple{
		OperationType:    ticket.OperationType(),
		OperationContext: ticket.OperationContext(),
	})
}

// enforceMechanism selects the EnforcementObject for ticket's token and
// applies it, falling back to noMatchObject if nothing matches.
func (sq *SubmissionQueue) enforceMechanism(ticket core.Ticket) core.Result {
	token := sq.buildObjectToken(ticket)

	sq.objectsMu.Lock()
	defer sq.objectsMu.Unlock()

	result := core.NewResult(ticket.TicketID())
	if obj := sq.selectEnforcementObjectLocked(token); obj != nil {
		obj.Enforce(ticket, &result)
	} else {
		sq.noMatchObject.Enforce(ticket, &result)
	}
	return result
}

// selectEnforcementObjectLocked performs a linear scan over the object
// registry. Callers must hold objectsMu. Linear scan matches the original
// (object counts per channel are small; spec.md does not require O(1)
// lookup here).
func (sq *SubmissionQueue) selectEnforcementObjectLocked(token uint32) enforcement.Object {
	for _, e := range sq.objects {
		if e.token == token {
			return e.obj
		}
	}
	return nil
}

// CreateEnforcementObject registers obj under token. It is an error to
// register a second object under a token already in use (idempotent
// creation is the rule table's job, not the queue's).
func (sq *SubmissionQueue) CreateEnforcementObject(token uint32, obj enforcement.Object) status.Status {
	sq.objectsMu.Lock()
	defer sq.objectsMu.Unlock()

	if sq.selectEnforcementObjectLocked(token) != nil {
		slog.Error("channel: enforcement object already exists for token", "token", token, "id", obj.ID())
		return status.Error()
	}
	sq.objects = append(sq.objects, objectEntry{token: token, obj: obj})
	slog.Debug("channel: created enforcement object", "token", token, "id", obj.ID(), "total", len(sq.objects))
	return status.OK()
}

// ConfigureEnforcementObject dispatches a configure operation to the object
// registered under token.
func (sq *SubmissionQueue) ConfigureEnforcementObject(token uint32, op int, values []int64) status.Status {
	sq.objectsMu.Lock()
	defer sq.objectsMu.Unlock()

	obj := sq.selectEnforcementObjectLocked(token)
	if obj == nil {
		return status.Error()
	}
	return obj.Configure(op, values)
}

// CollectEnforcementObjectStatistics drains statistics from the object
// registered under token, falling back to the no-match object when no
// object is registered (matching the original's documented quirk of
// reporting the no-match object's stats rather than an outright error).
func (sq *SubmissionQueue) CollectEnforcementObjectStatistics(token uint32, raw *enforcement.StatisticsRaw) status.Status {
	sq.objectsMu.Lock()
	defer sq.objectsMu.Unlock()

	obj := sq.selectEnforcementObjectLocked(token)
	if obj == nil {
		return sq.noMatchObject.CollectStatistics(raw)
	}
	return obj.CollectStatistics(raw)
}

// DefineObjectDifferentiation reconfigures which classifiers participate in
// object-token construction.
func (sq *SubmissionQueue) DefineObjectDifferentiation(mask differentiation.ObjectSelectorMask) {
	sq.diffBuilder.SetClassifiers(mask)
	sq.diffBuilder.BindBuilder()
}

// String renders the registered enforcement objects for debugging.
func (sq *SubmissionQueue) String() string {
	sq.objectsMu.Lock()
	defer sq.objectsMu.Unlock()

	out := "enforcement objects: "
	for _, e := range sq.objects {
		out += fmt.Sprintf("{ %d; %s }\n", e.token, e.obj.String())
	}
	return out
}

// waitWithTimeout blocks on cond for at most timeout, returning true if it
// was (plausibly) woken by a signal rather than the timeout. sync.Cond has
// no native timed wait, so this spins a helper goroutine that re-locks and
// broadcasts after the deadline — the same trick the standard library's
// own internal timed-wait helpers use.
func waitWithTimeout(cond *sync.Cond, mu *sync.Mutex, timeout time.Duration) bool {
	done := make(chan struct{})
	timer := time.AfterFunc(timeout, func() {
		mu.Lock()
		close(done)
		cond.Broadcast()
		mu.Unlock()
	})

	cond.Wait()

	select {
	case <-done:
		timer.Stop()
		return false
	default:
		timer.Stop()
		return true
	}
}
