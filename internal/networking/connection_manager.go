package networking

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/dsrhaslab/paio-stage/internal/metrics"
	"github.com/dsrhaslab/paio-stage/internal/stage"
)

// Agent bridges a Stage's Core with the control plane: it is the handle
// the ConnectionManager drives, reaching the Stage's ready and shutdown
// flags only through the Stage itself. The ConnectionManager's interrupted
// flag is its own: Stage.Shutdown does not set it, and
// DisconnectFromControlPlane does not set the Stage's shutdown flag.
type Agent struct {
	st *stage.Stage
}

// NewAgent wraps st for control-plane access.
func NewAgent(st *stage.Stage) *Agent { return &Agent{st: st} }

// Stage returns the Agent's underlying Stage.
func (a *Agent) Stage() *stage.Stage { return a.st }

// ConnectionOptions selects how the ConnectionManager reaches the control
// plane: a dial network ("unix" or "tcp") and the address/port pair to
// connect to for the initial handshake.
type ConnectionOptions struct {
	Network string
	Address string
	Port    int32
}

// dialTarget renders (network, address) the way net.Dial expects it.
func (o ConnectionOptions) dialTarget() (string, string) {
	if o.Network == "unix" || o.Port < 0 {
		return "unix", o.Address
	}
	return "tcp", fmt.Sprintf("%s:%d", o.Address, o.Port)
}

// ConnectionManager owns the single socket file descriptor a stage uses to
// reach the control plane, and sequences the two-phase protocol over it:
// a one-shot handshake (which may hand off to a *different* socket for the
// long-lived southbound stream — spec.md §4.10), then the southbound
// dispatch loop.
type ConnectionManager struct {
	options ConnectionOptions
	agent   *Agent
	metrics *metrics.Metrics

	mu             sync.Mutex
	controlConn    net.Conn
	southboundConn net.Conn

	interrupted atomic.Bool
}

// NewConnectionManager constructs a ConnectionManager for agent, not yet
// connected. m is optional; pass nil to skip control-plane metrics.
func NewConnectionManager(options ConnectionOptions, agent *Agent, m *metrics.Metrics) *ConnectionManager {
	return &ConnectionManager{options: options, agent: agent, metrics: m}
}

// Connect dials the control plane's handshake endpoint.
func (m *ConnectionManager) Connect() error {
	network, address := m.options.dialTarget()
	conn, err := net.Dial(network, address)
	if err != nil {
		return fmt.Errorf("networking: connect: %w", err)
	}
	m.mu.Lock()
	m.controlConn = conn
	m.mu.Unlock()
	slog.Info("networking: connected to control plane", "network", network, "address", address)
	return nil
}

// SpawnHandshakeListeningThread runs the handshake to completion on the
// calling goroutine — the original joins this thread before starting the
// southbound one, which a direct (non-goroutine) call achieves for free.
// It dials and connects the southbound socket the response names, storing
// it for SpawnSouthboundListeningThread.
func (m *ConnectionManager) SpawnHandshakeListeningThread() error {
	m.mu.Lock()
	conn := m.controlConn
	m.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("networking: handshake: not connected")
	}

	handler := NewHandshakeConnectionHandler(conn)
	address, port, err := handler.PerformHandshake(m.agent.Stage().Info())
	if err != nil {
		return err
	}

	network := "tcp"
	target := fmt.Sprintf("%s:%d", address, port)
	if port < 0 {
		network = "unix"
		target = address
	}
	southbound, err := net.Dial(network, target)
	if err != nil {
		return fmt.Errorf("networking: southbound dial: %w", err)
	}

	m.mu.Lock()
	m.southboundConn = southbound
	m.mu.Unlock()
	return nil
}

// SpawnSouthboundListeningThread launches the long-lived southbound
// dispatch loop on a new goroutine, serving operations until
// DisconnectFromControlPlane flips the shared interrupted flag.
func (m *ConnectionManager) SpawnSouthboundListeningThread() error {
	m.mu.Lock()
	conn := m.southboundConn
	m.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("networking: southbound: no socket — run the handshake first")
	}

	handler := NewSouthboundConnectionHandler(conn, m.agent.Stage(), &m.interrupted, m.metrics)
	go handler.Listen()
	return nil
}

// IsConnectionInterrupted reports whether shutdown has been requested.
func (m *ConnectionManager) IsConnectionInterrupted() bool { return m.interrupted.Load() }

// SetConnectionInterrupted flips the shared shutdown flag, causing the
// southbound loop to exit at its next iteration.
func (m *ConnectionManager) SetConnectionInterrupted() { m.interrupted.Store(true) }

// DisconnectFromControlPlane signals shutdown and closes both sockets.
func (m *ConnectionManager) DisconnectFromControlPlane() error {
	m.SetConnectionInterrupted()
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	if m.southboundConn != nil {
		if err := m.southboundConn.Close(); err != nil {
			firstErr = err
		}
	}
	if m.controlConn != nil {
		if err := m.controlConn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SocketIdentifier renders a debug-friendly identifier for the control
// socket (the original exposes the raw file descriptor; Go exposes the
// local address instead, since net.Conn has no stable fd accessor).
func (m *ConnectionManager) SocketIdentifier() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.controlConn == nil {
		return "<disconnected>"
	}
	return m.controlConn.LocalAddr().String()
}

// String renders the ConnectionManager for debugging.
func (m *ConnectionManager) String() string {
	return fmt.Sprintf("ConnectionManager {%s, interrupted=%t}", m.SocketIdentifier(), m.interrupted.Load())
}
