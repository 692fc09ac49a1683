// Package channel implements the submission/completion queue pair and the
// Channel abstraction that routes Tickets to EnforcementObjects: a
// stream-like path through which every intercepted I/O request flows on its
// way to being enforced (spec.md §4.7).
package channel

import (
	"container/list"
	"sync"

	"github.com/dsrhaslab/paio-stage/internal/core"
)

// CompletionQueue stores the Results of previously enforced requests until
// their matching caller dequeues them by ticket identifier. Enqueue and
// Dequeue are both thread-safe.
type CompletionQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	queue    *list.List // of core.Result
}

// NewCompletionQueue constructs an empty CompletionQueue.
func NewCompletionQueue() *CompletionQueue {
	q := &CompletionQueue{queue: list.New()}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Size returns the number of Results currently queued.
func (q *CompletionQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queue.Len()
}

// Enqueue stores result, waking every goroutine blocked in Dequeue so each
// can re-scan for its own ticket. A waiter parked on a ticket that is not
// yet present must be woken on every arrival, not just the empty->nonempty
// transition: otherwise an enqueue into an already-nonempty queue would
// never reach a waiter blocked on the element it just added.
func (q *CompletionQueue) Enqueue(result core.Result) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.queue.PushBack(result)
	q.notEmpty.Broadcast()
}

// Dequeue blocks until a Result matching ticketID is available, then
// removes and returns it, wherever in the queue it sits. Results can be
// enqueued out of order relative to the tickets that produced them, so a
// caller waiting on ticket_id=T must still receive it even if it is not at
// the head of the queue when it first looks (spec.md §9, scenario 7).
func (q *CompletionQueue) Dequeue(ticketID uint64) core.Result {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		for e := q.queue.Front(); e != nil; e = e.Next() {
			if e.Value.(core.Result).TicketID() == ticketID {
				q.queue.Remove(e)
				return e.Value.(core.Result)
			}
		}

		q.notEmpty.Wait()
	}
}
