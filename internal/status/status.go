// Package status implements PAIO's closed error taxonomy. A Status is the
// only way enforcement objects, rule tables, and the control-plane handlers
// report success or failure; it is never a Go error, so callers branch on
// its predicates instead of inspecting error strings.
package status

// Code is the closed set of status codes a Status can carry.
type Code int

const (
	codeNoStatus Code = iota
	codeOK
	codeNotFound
	codeNotSupported
	codeError
	codeEnforced
)

// Status reports the outcome of a configure/collect/rule-table operation.
// The zero value is NoStatus, matching the original's default-constructed
// PStatus before any constructor has run.
type Status struct {
	code Code
}

// OK constructs a Status with code ok.
func OK() Status { return Status{code: codeOK} }

// NotFound constructs a Status with code not_found.
func NotFound() Status { return Status{code: codeNotFound} }

// NotSupported constructs a Status with code not_supported.
func NotSupported() Status { return Status{code: codeNotSupported} }

// Error constructs a Status with code error.
func Error() Status { return Status{code: codeError} }

// Enforced constructs a Status with code enforced.
func Enforced() Status { return Status{code: codeEnforced} }

// NoStatus constructs the uninitialized Status.
func NoStatus() Status { return Status{code: codeNoStatus} }

// IsOK reports whether the Status carries code ok.
func (s Status) IsOK() bool { return s.code == codeOK }

// IsNotFound reports whether the Status carries code not_found.
func (s Status) IsNotFound() bool { return s.code == codeNotFound }

// IsNotSupported reports whether the Status carries code not_supported.
func (s Status) IsNotSupported() bool { return s.code == codeNotSupported }

// IsError reports whether the Status carries code error.
func (s Status) IsError() bool { return s.code == codeError }

// IsEnforced reports whether the Status carries code enforced.
func (s Status) IsEnforced() bool { return s.code == codeEnforced }

// String renders the fixed, documented stringification of the Status.
func (s Status) String() string {
	switch s.code {
	case codeOK:
		return "ok"
	case codeNotFound:
		return "not_found"
	case codeNotSupported:
		return "not_supported"
	case codeError:
		return "error"
	case codeEnforced:
		return "enforced"
	default:
		return "no_status"
	}
}
