package networking

import (
	"net"
	"strconv"
	"testing"

	"github.com/dsrhaslab/paio-stage/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcpListenerPort(t *testing.T, l net.Listener) int32 {
	t.Helper()
	addr := l.Addr().(*net.TCPAddr)
	return int32(addr.Port)
}

func TestConnectionManagerHandshakeAndSouthboundHandoff(t *testing.T) {
	controlListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer controlListener.Close()

	southboundListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer southboundListener.Close()

	southboundPort := tcpListenerPort(t, southboundListener)

	controlErr := make(chan error, 1)
	go func() {
		conn, err := controlListener.Accept()
		if err != nil {
			controlErr <- err
			return
		}
		defer conn.Close()
		if _, err := ReadControlOperation(conn); err != nil {
			controlErr <- err
			return
		}
		if _, err := ReadStageInfoRaw(conn); err != nil {
			controlErr <- err
			return
		}
		resp := StageHandshakeRaw{Address: "127.0.0.1", Port: southboundPort}
		body, err := resp.MarshalBinary()
		if err != nil {
			controlErr <- err
			return
		}
		if _, err := WriteControlOperation(conn, ControlOperation{Type: OpStageHandshake, Size: int32(len(body))}); err != nil {
			controlErr <- err
			return
		}
		_, err = conn.Write(body)
		controlErr <- err
	}()

	southboundAccept := make(chan net.Conn, 1)
	southboundErr := make(chan error, 1)
	go func() {
		conn, err := southboundListener.Accept()
		if err != nil {
			southboundErr <- err
			return
		}
		southboundAccept <- conn
		southboundErr <- nil
	}()

	st := stage.NewStage(0, "test-stage", "opt")
	agent := NewAgent(st)
	controlPort := tcpListenerPort(t, controlListener)
	cm := NewConnectionManager(ConnectionOptions{
		Network: "tcp",
		Address: "127.0.0.1",
		Port:    controlPort,
	}, agent, nil)

	require.NoError(t, cm.Connect())
	assert.NotEqual(t, "<disconnected>", cm.SocketIdentifier())

	require.NoError(t, cm.SpawnHandshakeListeningThread())
	require.NoError(t, <-controlErr)
	require.NoError(t, <-southboundErr)

	require.NoError(t, cm.SpawnSouthboundListeningThread())

	select {
	case conn := <-southboundAccept:
		defer conn.Close()
	default:
		t.Fatal("southbound connection was never accepted")
	}

	assert.False(t, cm.IsConnectionInterrupted())
	require.NoError(t, cm.DisconnectFromControlPlane())
	assert.True(t, cm.IsConnectionInterrupted())
}

func TestConnectionManagerSouthboundRequiresHandshakeFirst(t *testing.T) {
	st := stage.NewStage(0, "test-stage", "opt")
	cm := NewConnectionManager(ConnectionOptions{Network: "tcp", Address: "127.0.0.1", Port: 0}, NewAgent(st), nil)
	assert.Error(t, cm.SpawnSouthboundListeningThread())
}

func TestConnectionOptionsDialTargetPrefersUnixForNegativePort(t *testing.T) {
	o := ConnectionOptions{Network: "tcp", Address: "/tmp/paio.sock", Port: -1}
	network, address := o.dialTarget()
	assert.Equal(t, "unix", network)
	assert.Equal(t, "/tmp/paio.sock", address)
}

func TestConnectionOptionsDialTargetTCP(t *testing.T) {
	o := ConnectionOptions{Network: "tcp", Address: "127.0.0.1", Port: 9000}
	network, address := o.dialTarget()
	assert.Equal(t, "tcp", network)
	assert.Equal(t, "127.0.0.1:"+strconv.Itoa(9000), address)
}
