package networking

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync"
	"sync/atomic"

	"github.com/dsrhaslab/paio-stage/internal/enforcement"
	"github.com/dsrhaslab/paio-stage/internal/metrics"
	"github.com/dsrhaslab/paio-stage/internal/rules"
	"github.com/dsrhaslab/paio-stage/internal/stage"
	"github.com/dsrhaslab/paio-stage/internal/status"
)

// wireRuleID synthesizes identifiers for rules submitted over the wire
// without one of their own (the create_housekeeping_rule body carries no
// rule_id, unlike a rules-file line — spec.md §6). Rule-file-loaded rules
// keep the ids the file assigned; these never collide with them in
// practice since a deployment picks one source or the other per rule kind.
var wireRuleID atomic.Uint64

func nextWireRuleID() uint64 {
	return 1<<63 | wireRuleID.Add(1)
}

// ackCode maps a status.Status onto the single byte an ack body carries.
// The ordering matches the closed status taxonomy (spec.md §7).
func ackCode(st status.Status) byte {
	switch {
	case st.IsOK():
		return 0
	case st.IsNotFound():
		return 1
	case st.IsNotSupported():
		return 2
	case st.IsEnforced():
		return 4
	default:
		return 3 // error, including the zero/no-status value
	}
}

// SouthboundConnectionHandler runs the long-lived Phase 2 of the
// control-plane protocol: it repeatedly reads a ControlOperation header and
// dispatches on its operation_type, applying the decoded body against a
// Stage's Core and acknowledging the result (spec.md §4.10).
//
// Reads and writes are guarded by separate mutexes (the two-lock
// discipline) so a slow write never blocks an unrelated read, while each
// direction is still internally serialized. No lock is held across the
// Core call in between.
type SouthboundConnectionHandler struct {
	conn net.Conn
	st   *stage.Stage
	m    *metrics.Metrics

	readMu  sync.Mutex
	writeMu sync.Mutex

	shutdown *atomic.Bool
}

// NewSouthboundConnectionHandler wraps an already-connected southbound
// socket, dispatching operations against st until shutdown flips. m is
// optional; pass nil to skip control-plane metrics recording.
func NewSouthboundConnectionHandler(conn net.Conn, st *stage.Stage, shutdown *atomic.Bool, m *metrics.Metrics) *SouthboundConnectionHandler {
	return &SouthboundConnectionHandler{conn: conn, st: st, shutdown: shutdown, m: m}
}

// Listen runs the dispatch loop until shutdown flips or the socket errors.
// It never returns a value; connection errors are logged and end the loop,
// matching the original's "non-positive byte count is a fatal connection
// error" rule.
func (h *SouthboundConnectionHandler) Listen() {
	for !h.shutdown.Load() {
		op, err := h.readControlOperationFromSocket()
		if err != nil {
			slog.Error("networking: southbound: fatal read error, closing", "error", err)
			return
		}
		if op.Type == OpStageHandshake {
			slog.Error("networking: southbound: received stage_handshake on southbound socket, rejecting")
			h.writeAck(op, status.Error())
			continue
		}
		if err := h.handleControlOperation(op); err != nil {
			slog.Error("networking: southbound: fatal dispatch error, closing", "operation", op.Type, "error", err)
			return
		}
	}
}

// readControlOperationFromSocket reads just the header under readMu;
// handlers that take a body read it afterward under a second, separate
// readMu acquisition (see each handle* method).
func (h *SouthboundConnectionHandler) readControlOperationFromSocket() (ControlOperation, error) {
	h.readMu.Lock()
	defer h.readMu.Unlock()
	return ReadControlOperation(h.conn)
}

func (h *SouthboundConnectionHandler) writeAck(op ControlOperation, st status.Status) (int, error) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	n, err := WriteControlOperation(h.conn, ControlOperation{Type: op.Type, Subtype: op.Subtype, Size: 1})
	if err != nil {
		return n, err
	}
	bn, err := h.conn.Write([]byte{ackCode(st)})
	return n + bn, err
}

// handleControlOperation dispatches a decoded header to the matching
// handler. A returned error is a fatal connection error (spec.md §7); a
// handled-but-rejected operation instead writes an error ack and returns
// nil so the loop continues serving the connection.
func (h *SouthboundConnectionHandler) handleControlOperation(op ControlOperation) error {
	var err error
	switch op.Type {
	case OpStageReady:
		err = h.handleStageReady(op)
	case OpCreateHousekeepingRule:
		err = h.handleCreateHousekeepingRule(op)
	case OpCreateDifferentiationRule:
		err = h.handleCreateDifferentiationRule(op)
	case OpCreateEnforcementRule:
		err = h.handleCreateEnforcementRule(op)
	case OpCollectStatistics:
		err = h.handleCollectStatistics(op)
	case OpExecuteHousekeepingRules:
		err = h.handleExecuteHousekeepingRules(op)
	case OpRemoveRule:
		err = h.handleRemoveRule(op)
	default:
		n, werr := h.writeAck(op, status.Error())
		if werr == nil && n <= 0 {
			werr = fmt.Errorf("networking: southbound: ack write returned %d bytes", n)
		}
		err = werr
	}
	if h.m != nil {
		h.m.RecordControlPlaneOperation(op.Type.String(), err != nil)
	}
	return err
}

func (h *SouthboundConnectionHandler) handleStageReady(op ControlOperation) error {
	h.st.MarkReady()
	n, err := h.writeAck(op, status.Enforced())
	return requireWritten(n, err)
}

func (h *SouthboundConnectionHandler) handleCreateHousekeepingRule(op ControlOperation) error {
	h.readMu.Lock()
	raw, rerr := readBody(h.conn, op.Size)
	h.readMu.Unlock()
	if rerr != nil {
		return rerr
	}

	var st status.Status
	switch op.Subtype {
	case SubtypeCreateChannel:
		body, err := ParseCreateChannelBody(raw)
		if err != nil {
			st = status.Error()
			break
		}
		rule := rules.NewHousekeepingRule(nextWireRuleID(), rules.HousekeepingCreateChannel, body.ChannelID, -1,
			[]int64{int64(body.ChannelSelectorMask), body.WorkflowID, body.OperationType, body.OperationContext})
		st = h.st.Core().InsertHousekeepingRule(rule)

	case SubtypeCreateObject:
		body, err := ParseCreateObjectBody(raw)
		if err != nil {
			st = status.Error()
			break
		}
		properties := append([]int64{int64(body.Variant), 0, body.OperationType, body.OperationContext}, body.Configurations...)
		rule := rules.NewHousekeepingRule(nextWireRuleID(), rules.HousekeepingCreateObject, body.ChannelID, body.ObjectID, properties)
		st = h.st.Core().InsertHousekeepingRule(rule)

	default:
		st = status.NotSupported()
	}

	n, err := h.writeAck(op, st)
	return requireWritten(n, err)
}

func (h *SouthboundConnectionHandler) handleCreateDifferentiationRule(op ControlOperation) error {
	h.readMu.Lock()
	raw, rerr := readBody(h.conn, op.Size)
	h.readMu.Unlock()
	if rerr != nil {
		return rerr
	}

	var st status.Status
	body, err := ParseDifferentiationRuleBody(raw)
	if err != nil {
		st = status.Error()
	} else {
		typ := rules.DifferentiationChannel
		if body.IsObjectLevel {
			typ = rules.DifferentiationEnforcementObject
		}
		rule := rules.NewDifferentiationRule(uint64(body.RuleID), typ, body.ChannelID, body.EnforcementObjectID,
			uint32(body.WorkflowID), uint32(body.OperationType), uint32(body.OperationContext))
		st = h.st.Core().InsertDifferentiationRule(rule)
	}

	n, werr := h.writeAck(op, st)
	return requireWritten(n, werr)
}

func (h *SouthboundConnectionHandler) handleCreateEnforcementRule(op ControlOperation) error {
	h.readMu.Lock()
	raw, rerr := readBody(h.conn, op.Size)
	h.readMu.Unlock()
	if rerr != nil {
		return rerr
	}

	var st status.Status
	body, err := ParseEnforcementRuleBody(raw)
	if err != nil {
		st = status.Error()
	} else {
		configs := make([]int64, 0, len(body.Properties))
		for _, p := range body.Properties {
			if p != -1 {
				configs = append(configs, p)
			}
		}
		rule := rules.NewEnforcementRule(uint64(body.RuleID), body.ChannelID, body.EnforcementObjectID,
			int(body.EnforcementOperation), configs)
		st = h.st.Core().InsertEnforcementRule(rule)
	}

	n, werr := h.writeAck(op, st)
	return requireWritten(n, werr)
}

func (h *SouthboundConnectionHandler) handleCollectStatistics(op ControlOperation) error {
	h.readMu.Lock()
	raw, rerr := readBody(h.conn, op.Size)
	h.readMu.Unlock()
	if rerr != nil {
		return rerr
	}

	req, err := ParseCollectStatisticsRequest(raw)
	if err != nil {
		n, werr := h.writeAck(op, status.Error())
		return requireWritten(n, werr)
	}

	result, st := h.st.Core().CollectObjectStatistics(req.ChannelID, req.ObjectID)

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	body := marshalStatistics(result)
	n, werr := WriteControlOperation(h.conn, ControlOperation{Type: op.Type, Size: int32(len(body) + 1)})
	if werr == nil {
		var bn int
		bn, werr = h.conn.Write(append([]byte{ackCode(st)}, body...))
		n += bn
	}
	return requireWritten(n, werr)
}

func (h *SouthboundConnectionHandler) handleExecuteHousekeepingRules(op ControlOperation) error {
	st := h.st.Core().ExecuteHousekeepingRules()
	n, err := h.writeAck(op, st)
	return requireWritten(n, err)
}

func (h *SouthboundConnectionHandler) handleRemoveRule(op ControlOperation) error {
	h.readMu.Lock()
	raw, rerr := readBody(h.conn, op.Size)
	h.readMu.Unlock()
	if rerr != nil {
		return rerr
	}

	var st status.Status
	body, err := ParseRemoveRuleBody(raw)
	if err != nil {
		st = status.Error()
	} else {
		st = h.st.Core().RemoveRule(uint64(body.RuleID))
	}

	n, werr := h.writeAck(op, st)
	return requireWritten(n, werr)
}

// marshalStatistics renders collected statistics entries as a
// length-prefixed sequence of (normalized_empty_bucket, tokens_left,
// timestamp_micros) triples. Float fields are carried as their IEEE-754
// bit patterns to stay within the fixed-width wire scheme.
func marshalStatistics(raw enforcement.StatisticsRaw) []byte {
	buf := appendI32(nil, int32(len(raw.Entries)))
	for _, e := range raw.Entries {
		buf = appendI32(buf, int32(math.Float32bits(e.NormalizedEmptyBucket)))
		buf = appendI64(buf, int64(math.Float64bits(e.TokensLeft)))
		buf = appendI64(buf, e.TimestampMicros)
	}
	return buf
}

// requireWritten enforces the "non-positive byte count is a fatal
// connection error" rule from spec.md §7/§4.10.
func requireWritten(n int, err error) error {
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("networking: southbound: write returned %d bytes", n)
	}
	return nil
}
