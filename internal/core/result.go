package core

import (
	"fmt"
	"log/slog"
)

// ResultStatus is the outcome of enforcing a request, distinct from
// status.Status: it is the payload-level status carried in a Result, not
// the control-plane-facing Status used by configure/collect.
type ResultStatus int

const (
	// ResultNone is the zero value: no enforcement has happened yet.
	ResultNone ResultStatus = iota
	// ResultSuccess marks a request that was enforced without error.
	ResultSuccess
	// ResultError marks a fatal condition encountered during enforcement.
	ResultError
)

// String renders the ResultStatus for debugging/logging.
func (r ResultStatus) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultError:
		return "error"
	default:
		return "none"
	}
}

// Result carries the outcome of enforcing a Ticket: its status, and
// optionally the content produced (or passed through) by the enforcement
// object. A Result without content MUST NOT expose a non-nil buffer; the
// invariant is has_content iff content_len > 0.
type Result struct {
	ticketID   uint64
	status     ResultStatus
	hasContent bool
	content    []byte
}

// NewResult builds an empty Result for the given ticket, status ResultNone.
func NewResult(ticketID uint64) Result {
	return Result{ticketID: ticketID, status: ResultNone}
}

// NewResultWithStatus builds a Result without content.
func NewResultWithStatus(ticketID uint64, status ResultStatus) Result {
	return Result{ticketID: ticketID, status: status}
}

// NewResultWithContent builds a Result carrying a deep copy of buffer.
func NewResultWithContent(ticketID uint64, status ResultStatus, buffer []byte) Result {
	r := Result{ticketID: ticketID, status: status}
	if len(buffer) > 0 {
		r.hasContent = true
		r.content = append([]byte(nil), buffer...)
	}
	return r
}

// TicketID returns the identifier of the Ticket this Result responds to.
func (r Result) TicketID() uint64 { return r.ticketID }

// Status returns the Result's status.
func (r Result) Status() ResultStatus { return r.status }

// HasContent reports whether the Result carries content.
func (r Result) HasContent() bool { return r.hasContent }

// ContentSize returns the size of the Result's content buffer.
func (r Result) ContentSize() int { return len(r.content) }

// Content returns the Result's content buffer. Reading it when HasContent
// is false is a programming error: the original implementation asserts
// this as a precondition; here it returns nil silently to the caller but
// logs the misuse, matching spec.md §4.1's "MUST be logged but not
// propagated as failure."
func (r Result) Content() []byte {
	if !r.hasContent {
		slog.Error("core: Content read on a Result with has_content=false", "ticket_id", r.ticketID)
		return nil
	}
	return r.content
}

// SetTicketID updates the Result's ticket identifier.
func (r *Result) SetTicketID(id uint64) { r.ticketID = id }

// SetStatus updates the Result's status.
func (r *Result) SetStatus(status ResultStatus) { r.status = status }

// SetHasContent updates the Result's has_content flag. Setting it to true
// while no content has been set is a programming error and is logged,
// matching spec.md §4.1.
func (r *Result) SetHasContent(hasContent bool) {
	if hasContent && len(r.content) == 0 {
		slog.Error("core: SetHasContent(true) with no content set", "ticket_id", r.ticketID)
	}
	r.hasContent = hasContent
}

// SetContent replaces the Result's content with a deep copy of buffer and
// updates has_content accordingly.
func (r *Result) SetContent(buffer []byte) {
	if len(buffer) == 0 {
		r.hasContent = false
		r.content = nil
		return
	}
	r.hasContent = true
	r.content = append([]byte(nil), buffer...)
}

// String renders the Result for debugging.
func (r Result) String() string {
	return fmt.Sprintf("Result {%d, %s, %t, %d}", r.ticketID, r.status, r.hasContent, len(r.content))
}
