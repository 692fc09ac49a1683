package core

import "fmt"

// Ticket characterizes an I/O request of a given workflow: its cost
// (payload), the number of operations it represents, and an optional copy
// of its buffer content. buffer_len == 0 iff the buffer is absent — a
// Ticket never distinguishes a nil buffer from an empty one.
type Ticket struct {
	ticketID         uint64
	totalOperations  int
	payload          int64
	operationType    int
	operationContext int
	buffer           []byte
}

// NewTicket builds a Ticket without buffer content (e.g. for rate limiting,
// where only the request's cost matters).
func NewTicket(ticketID uint64, totalOperations int, payload int64, operationType, operationContext int) Ticket {
	return Ticket{
		ticketID:         ticketID,
		totalOperations:  totalOperations,
		payload:          payload,
		operationType:    operationType,
		operationContext: operationContext,
	}
}

// NewTicketWithBuffer builds a Ticket carrying a deep copy of data.
func NewTicketWithBuffer(ticketID uint64, totalOperations int, payload int64, operationType, operationContext int, data []byte) Ticket {
	t := NewTicket(ticketID, totalOperations, payload, operationType, operationContext)
	if len(data) > 0 {
		t.buffer = append([]byte(nil), data...)
	}
	return t
}

// TicketID returns the ticket's monotonically assigned identifier.
func (t Ticket) TicketID() uint64 { return t.ticketID }

// TotalOperations returns the number of operations the request represents.
func (t Ticket) TotalOperations() int { return t.totalOperations }

// Payload returns the I/O cost (in tokens, or any unit the enforcement
// object defines) of this ticket, as given at construction; no minimum is
// enforced here (the rate limiter floors a payload below 1 to a cost of 1).
func (t Ticket) Payload() int64 { return t.payload }

// OperationType returns the ticket's operation-type classifier.
func (t Ticket) OperationType() int { return t.operationType }

// OperationContext returns the ticket's operation-context classifier.
func (t Ticket) OperationContext() int { return t.operationContext }

// BufferSize returns the size of the ticket's content buffer.
func (t Ticket) BufferSize() int { return len(t.buffer) }

// Buffer returns the ticket's content, or nil if it carries none. Callers
// must not mutate the returned slice.
func (t Ticket) Buffer() []byte { return t.buffer }

// Clone returns a Ticket sharing the same classifiers with a deep copy of
// the buffer, matching the original's copy-constructor semantics.
func (t Ticket) Clone() Ticket {
	clone := t
	if len(t.buffer) > 0 {
		clone.buffer = append([]byte(nil), t.buffer...)
	}
	return clone
}

// String renders the Ticket for debugging.
func (t Ticket) String() string {
	return fmt.Sprintf("Ticket {%d, %d, %d, %d, %d, %d}",
		t.ticketID, t.totalOperations, t.payload, t.operationType, t.operationContext, len(t.buffer))
}
