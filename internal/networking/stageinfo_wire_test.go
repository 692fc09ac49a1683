package networking

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dsrhaslab/paio-stage/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStageInfoRawConvertsFields(t *testing.T) {
	info := stage.Info{Name: "my-stage", Opt: "opt", PID: 111, PPID: 222, Hostname: "host", LoginName: "user"}
	raw, err := NewStageInfoRaw(info)
	require.NoError(t, err)
	assert.Equal(t, "my-stage", raw.StageName)
	assert.EqualValues(t, 111, raw.PID)
}

func TestNewStageInfoRawRejectsOversizeName(t *testing.T) {
	info := stage.Info{Name: strings.Repeat("x", stageNameMax+1)}
	_, err := NewStageInfoRaw(info)
	assert.Error(t, err)
}

func TestStageInfoRawRoundTrip(t *testing.T) {
	raw := StageInfoRaw{
		StageName: "my-stage", StageEnv: "opt", PID: 111, PPID: 222,
		StageHostname: "host", StageLoginName: "user",
	}
	encoded, err := raw.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, encoded, stageInfoSize)

	got, err := ReadStageInfoRaw(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestStageHandshakeRawRoundTrip(t *testing.T) {
	h := StageHandshakeRaw{Address: "127.0.0.1", Port: 9000}
	encoded, err := h.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, encoded, handshakeSize)

	got, err := ReadStageHandshakeRaw(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestStageHandshakeRawRejectsOversizeAddress(t *testing.T) {
	h := StageHandshakeRaw{Address: strings.Repeat("x", addrMax+1)}
	_, err := h.MarshalBinary()
	assert.Error(t, err)
}
