// Package networking implements the control-plane side of a data plane
// stage: the two-phase handshake that discovers the southbound socket, and
// the long-lived southbound handler that applies housekeeping,
// differentiation, and enforcement operations against a running Stage
// (spec.md §4.10, §6). Wire values are fixed-layout and exchanged in big
// endian, matching the original's documented "same endianness" contract —
// the Go side picks and sticks to one instead of negotiating it.
package networking

import (
	"encoding/binary"
	"fmt"
	"io"
)

// OperationType is the top-level dispatch code carried by every
// ControlOperation header.
type OperationType int32

const (
	OpUnknown OperationType = iota
	OpStageHandshake
	OpStageReady
	OpCreateHousekeepingRule
	OpCreateDifferentiationRule
	OpCreateEnforcementRule
	OpCollectStatistics
	OpExecuteHousekeepingRules
	OpRemoveRule
)

// String renders the OperationType name, for logging.
func (t OperationType) String() string {
	switch t {
	case OpStageHandshake:
		return "stage_handshake"
	case OpStageReady:
		return "stage_ready"
	case OpCreateHousekeepingRule:
		return "create_housekeeping_rule"
	case OpCreateDifferentiationRule:
		return "create_differentiation_rule"
	case OpCreateEnforcementRule:
		return "create_enforcement_rule"
	case OpCollectStatistics:
		return "collect_statistics"
	case OpExecuteHousekeepingRules:
		return "execute_housekeeping_rules"
	case OpRemoveRule:
		return "remove_rule"
	default:
		return "unknown"
	}
}

// OperationSubtype distinguishes between sub-kinds of an OperationType —
// today only create_housekeeping_rule needs one (create_channel vs
// create_object).
type OperationSubtype int32

const (
	SubtypeNone OperationSubtype = iota
	SubtypeCreateChannel
	SubtypeCreateObject
)

// controlOperationWireSize is the fixed, padding-free byte size of a
// ControlOperation header: three int32 fields.
const controlOperationWireSize = 12

// ControlOperation is the fixed-layout header a southbound handler reads
// before every operation body (spec.md §6).
type ControlOperation struct {
	Type    OperationType
	Subtype OperationSubtype
	Size    int32
}

// MarshalBinary encodes op as a 12-byte big-endian record.
func (op ControlOperation) MarshalBinary() []byte {
	buf := make([]byte, controlOperationWireSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(op.Type))
	binary.BigEndian.PutUint32(buf[4:8], uint32(op.Subtype))
	binary.BigEndian.PutUint32(buf[8:12], uint32(op.Size))
	return buf
}

// ReadControlOperation reads and decodes one ControlOperation header from
// r. A non-nil error (including io.EOF on a clean connection close) is
// fatal to the caller's read loop.
func ReadControlOperation(r io.Reader) (ControlOperation, error) {
	buf := make([]byte, controlOperationWireSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return ControlOperation{}, err
	}
	return ControlOperation{
		Type:    OperationType(binary.BigEndian.Uint32(buf[0:4])),
		Subtype: OperationSubtype(binary.BigEndian.Uint32(buf[4:8])),
		Size:    int32(binary.BigEndian.Uint32(buf[8:12])),
	}, nil
}

// WriteControlOperation writes op's header to w, returning the number of
// bytes written. A non-positive count (with a nil error, which should not
// happen with io.Writer's contract, but is checked defensively at the call
// site per spec.md §7) signals a fatal connection error.
func WriteControlOperation(w io.Writer, op ControlOperation) (int, error) {
	return w.Write(op.MarshalBinary())
}

// putFixedString copies s into a zero-padded field of exactly size bytes,
// returning an error if s does not fit.
func putFixedString(dst []byte, size int, s string) error {
	if len(s) > size {
		return fmt.Errorf("networking: field exceeds maximum size %d: %q", size, s)
	}
	for i := range dst[:size] {
		dst[i] = 0
	}
	copy(dst, s)
	return nil
}

// getFixedString reads a zero-padded fixed-size field back into a string,
// trimming at the first NUL byte.
func getFixedString(src []byte) string {
	n := 0
	for n < len(src) && src[n] != 0 {
		n++
	}
	return string(src[:n])
}
