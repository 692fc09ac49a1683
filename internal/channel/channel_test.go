package channel

import (
	"sync"
	"testing"

	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/dsrhaslab/paio-stage/internal/differentiation"
	"github.com/dsrhaslab/paio-stage/internal/enforcement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelEnforceSyncUpdatesStats(t *testing.T) {
	ch := NewChannel(1, enforcement.NewNoopObject(-1, true))

	ticket := core.NewTicketWithBuffer(1, 1, 10, 0, 0, []byte("payload"))
	result := ch.Enforce(ticket, false)

	assert.Equal(t, core.ResultSuccess, result.Status())

	stats := ch.CollectGeneralStatistics()
	assert.EqualValues(t, 1, stats.TotalOperations)
	assert.EqualValues(t, len("payload"), stats.TotalBytes)
}

func TestChannelEnforceAsyncRequiresStart(t *testing.T) {
	ch := NewChannel(1, enforcement.NewNoopObject(-1, true))
	ch.Start()
	defer ch.Stop()

	ticket := core.NewTicketWithBuffer(7, 1, 10, 0, 0, []byte("payload"))
	result := ch.Enforce(ticket, true)

	assert.EqualValues(t, 7, result.TicketID())
	assert.Equal(t, core.ResultSuccess, result.Status())
}

func TestChannelStartIsIdempotent(t *testing.T) {
	ch := NewChannel(1, enforcement.NewNoopObject(-1, true))
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch.Start()
		}()
	}
	wg.Wait()
	ch.Stop()
}

func TestChannelCreateAndConfigureEnforcementObject(t *testing.T) {
	ch := NewChannel(1, enforcement.NewNoopObject(-1, true))
	obj := enforcement.NewNoopObject(42, true)

	builder := ch.ObjectDifferentiationBuilder()
	tuple := differentiation.ObjectDifferentiationTuple{OperationType: 1, OperationContext: 2}
	st := ch.CreateEnforcementObject(obj, tuple, builder)
	require.True(t, st.IsOK())

	assert.True(t, ch.ConfigureEnforcementObject(builder.BuildToken(tuple), 0, nil).IsOK())
}
