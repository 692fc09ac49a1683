package stage

import (
	"testing"

	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStagePreCreatesChannelsAndIsReady(t *testing.T) {
	s := NewStage(3, "test-stage", "opt")
	assert.True(t, s.IsReady())
	assert.False(t, s.IsInterrupted())
	assert.Equal(t, 3, s.Core().ChannelCount())
}

func TestStageEnforceRequestRejectedWhenNotReady(t *testing.T) {
	s := &Stage{core: NewCore(), info: NewInfo("test-stage", "opt")}
	ctx := core.NewContext(1, 1, 1, 10, 1)

	_, st := s.EnforceRequest(ctx, nil, false)
	assert.True(t, st.IsNotSupported())
}

func TestStageEnforceRequestRejectedAfterShutdown(t *testing.T) {
	s := NewStage(1, "test-stage", "opt")
	s.Shutdown()
	assert.True(t, s.IsInterrupted())

	ctx := core.NewContext(1, 1, 1, 10, 1)
	_, st := s.EnforceRequest(ctx, nil, false)
	assert.True(t, st.IsNotSupported())
}

func TestStageMarkReadyFlipsReadyFlag(t *testing.T) {
	s := &Stage{core: NewCore(), info: NewInfo("test-stage", "opt")}
	require.False(t, s.IsReady())
	s.MarkReady()
	assert.True(t, s.IsReady())
}

func TestStageSetDescriptionUpdatesInfo(t *testing.T) {
	s := NewStage(0, "test-stage", "opt")
	s.SetDescription("a description")
	assert.Equal(t, "a description", s.Info().Description)
}

func TestNewStageFromRuleFilesRequiresHousekeepingFile(t *testing.T) {
	_, err := NewStageFromRuleFiles("test-stage", "opt", "/nonexistent/housekeeping.rules", "", "")
	assert.Error(t, err)
}
