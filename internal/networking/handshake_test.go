package networking

import (
	"net"
	"testing"

	"github.com/dsrhaslab/paio-stage/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformHandshakeReturnsSouthboundAddress(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	serverErr := make(chan error, 1)
	go func() {
		op, err := ReadControlOperation(server)
		if err != nil {
			serverErr <- err
			return
		}
		if op.Type != OpStageHandshake {
			serverErr <- assert.AnError
			return
		}
		if _, err := ReadStageInfoRaw(server); err != nil {
			serverErr <- err
			return
		}
		resp := StageHandshakeRaw{Address: "10.0.0.1", Port: 9001}
		body, err := resp.MarshalBinary()
		if err != nil {
			serverErr <- err
			return
		}
		if _, err := WriteControlOperation(server, ControlOperation{Type: OpStageHandshake, Size: int32(len(body))}); err != nil {
			serverErr <- err
			return
		}
		_, err = server.Write(body)
		serverErr <- err
	}()

	h := NewHandshakeConnectionHandler(client)
	addr, port, err := h.PerformHandshake(stage.Info{Name: "test-stage"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", addr)
	assert.EqualValues(t, 9001, port)
	assert.Equal(t, addr, h.SouthboundSocketName())
	assert.Equal(t, port, h.SouthboundSocketPort())

	require.NoError(t, <-serverErr)
}
