package networking

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/dsrhaslab/paio-stage/internal/stage"
)

// HandshakeConnectionHandler runs the one-shot Phase 1 of the control-plane
// protocol: it submits the stage's identity to the control plane and reads
// back the (address, port) the southbound handler must then connect to
// (spec.md §4.10). It is used once, then discarded — the original joins its
// thread before the southbound thread starts, which this type's single
// blocking call mirrors directly.
type HandshakeConnectionHandler struct {
	conn net.Conn

	readMu  sync.Mutex
	writeMu sync.Mutex

	infoMu         sync.RWMutex
	southboundAddr string
	southboundPort int32
}

// NewHandshakeConnectionHandler wraps an already-connected control-plane
// socket.
func NewHandshakeConnectionHandler(conn net.Conn) *HandshakeConnectionHandler {
	return &HandshakeConnectionHandler{conn: conn}
}

// PerformHandshake writes info as a StageInfoRaw and blocks for the
// control plane's StageHandshakeRaw response, recording the southbound
// socket address/port under a mutex before returning them.
func (h *HandshakeConnectionHandler) PerformHandshake(info stage.Info) (string, int32, error) {
	raw, err := NewStageInfoRaw(info)
	if err != nil {
		return "", 0, fmt.Errorf("networking: handshake: %w", err)
	}
	body, err := raw.MarshalBinary()
	if err != nil {
		return "", 0, fmt.Errorf("networking: handshake: %w", err)
	}

	h.writeMu.Lock()
	n, werr := WriteControlOperation(h.conn, ControlOperation{Type: OpStageHandshake, Size: int32(len(body))})
	if werr == nil {
		var bn int
		bn, werr = h.conn.Write(body)
		n += bn
	}
	h.writeMu.Unlock()
	if werr != nil || n <= 0 {
		return "", 0, fmt.Errorf("networking: handshake: write failed: %w", werr)
	}

	h.readMu.Lock()
	op, rerr := ReadControlOperation(h.conn)
	if rerr == nil && op.Type != OpStageHandshake {
		rerr = fmt.Errorf("networking: handshake: unexpected response operation %s", op.Type)
	}
	var resp StageHandshakeRaw
	if rerr == nil {
		resp, rerr = ReadStageHandshakeRaw(h.conn)
	}
	h.readMu.Unlock()
	if rerr != nil {
		return "", 0, fmt.Errorf("networking: handshake: read failed: %w", rerr)
	}

	h.infoMu.Lock()
	h.southboundAddr = resp.Address
	h.southboundPort = resp.Port
	h.infoMu.Unlock()

	slog.Info("networking: handshake complete", "stage", info.Name, "southbound_addr", resp.Address, "southbound_port", resp.Port)
	return resp.Address, resp.Port, nil
}

// SouthboundSocketName returns the address recorded by the last successful
// handshake.
func (h *HandshakeConnectionHandler) SouthboundSocketName() string {
	h.infoMu.RLock()
	defer h.infoMu.RUnlock()
	return h.southboundAddr
}

// SouthboundSocketPort returns the port recorded by the last successful
// handshake.
func (h *HandshakeConnectionHandler) SouthboundSocketPort() int32 {
	h.infoMu.RLock()
	defer h.infoMu.RUnlock()
	return h.southboundPort
}
