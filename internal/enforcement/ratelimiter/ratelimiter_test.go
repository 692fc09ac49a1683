package ratelimiter

import (
	"testing"
	"time"

	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicRateLimiterEnforceAdmitsAndPassesThroughBuffer(t *testing.T) {
	drl := NewDynamicRateLimiter(1, 1000, time.Millisecond, ModeArithmetic, false, 0)
	defer drl.Close()

	ticket := core.NewTicketWithBuffer(1, 1, 10, 0, 0, []byte("payload"))
	result := core.NewResult(1)

	drl.Enforce(ticket, &result)

	assert.Equal(t, core.ResultSuccess, result.Status())
	require.True(t, result.HasContent())
	assert.Equal(t, "payload", string(result.Content()))
}

func TestDynamicRateLimiterConfigureInit(t *testing.T) {
	drl := NewDynamicRateLimiter(1, 10, time.Millisecond, ModeArithmetic, false, 0)
	defer drl.Close()

	st := drl.Configure(ConfigInit, []int64{50_000, 500})
	assert.True(t, st.IsOK())

	ticket := core.NewTicket(1, 1, 0, 0, 0)
	result := core.NewResult(1)
	drl.Enforce(ticket, &result) // payload<=0 floors to cost 1, must not block with capacity=500
	assert.Equal(t, core.ResultSuccess, result.Status())
}

func TestDynamicRateLimiterConfigureRejectsMissingValues(t *testing.T) {
	drl := NewDynamicRateLimiter(1, 10, time.Millisecond, ModeArithmetic, false, 0)
	defer drl.Close()

	assert.True(t, drl.Configure(ConfigInit, nil).IsNotSupported())
	assert.True(t, drl.Configure(ConfigRate, nil).IsNotSupported())
	assert.True(t, drl.Configure(ConfigRefill, nil).IsNotSupported())
	assert.True(t, drl.Configure(99, []int64{1}).IsNotSupported())
}

func TestDynamicRateLimiterCollectStatisticsErrorsWhenDisabled(t *testing.T) {
	drl := NewDynamicRateLimiter(1, 10, time.Millisecond, ModeArithmetic, false, 0)
	defer drl.Close()

	_, st := drl.CollectStatistics()
	assert.True(t, st.IsError())
}

func TestBasicIOCostFloorsAtOne(t *testing.T) {
	assert.Equal(t, 1.0, basicIOCost(0))
	assert.Equal(t, 1.0, basicIOCost(-5))
	assert.Equal(t, 42.0, basicIOCost(42))
}
