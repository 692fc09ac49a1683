package stage

import (
	"testing"

	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/dsrhaslab/paio-stage/internal/differentiation"
	"github.com/dsrhaslab/paio-stage/internal/enforcement"
	"github.com/dsrhaslab/paio-stage/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreEnforceRequestRoutesToMatchingChannel(t *testing.T) {
	c := NewCore()
	ctx := core.NewContext(1, 1, 1, 10, 1)
	tuple := differentiation.ChannelDifferentiationTuple{
		WorkflowID:       ctx.WorkflowID(),
		OperationType:    ctx.OperationType(),
		OperationContext: ctx.OperationContext(),
	}

	require.True(t, c.CreateChannel(5, differentiation.SelectChannelAll, tuple).IsOK())

	result, st := c.EnforceRequest(ctx, []byte("hi"), false)
	assert.True(t, st.IsEnforced())
	assert.Equal(t, core.ResultSuccess, result.Status())
}

func TestCoreEnforceRequestWithNoMatchingChannelErrors(t *testing.T) {
	c := NewCore()
	ctx := core.NewContext(1, 1, 1, 10, 1)

	_, st := c.EnforceRequest(ctx, []byte("hi"), false)
	assert.True(t, st.IsError())
}

func TestCoreCreateChannelRejectsDuplicateID(t *testing.T) {
	c := NewCore()
	require.True(t, c.CreateChannel(1, differentiation.SelectChannelAll, differentiation.ChannelDifferentiationTuple{}).IsOK())
	assert.True(t, c.CreateChannel(1, differentiation.SelectChannelAll, differentiation.ChannelDifferentiationTuple{}).IsError())
}

func TestCoreCreateAndConfigureEnforcementObject(t *testing.T) {
	c := NewCore()
	require.True(t, c.CreateChannel(1, differentiation.SelectChannelAll, differentiation.ChannelDifferentiationTuple{}).IsOK())

	tuple := differentiation.ObjectDifferentiationTuple{OperationType: 1, OperationContext: 2}
	st := c.CreateEnforcementObject(1, 10, enforcement.VariantNoop, tuple, nil)
	require.True(t, st.IsOK())

	st = c.ConfigureEnforcementObject(1, tuple, 0, nil)
	assert.True(t, st.IsOK())
}

func TestCoreCreateEnforcementObjectRequiresExistingChannel(t *testing.T) {
	c := NewCore()
	tuple := differentiation.ObjectDifferentiationTuple{OperationType: 1, OperationContext: 2}
	st := c.CreateEnforcementObject(99, 10, enforcement.VariantNoop, tuple, nil)
	assert.True(t, st.IsError())
}

func TestCoreApplyHousekeepingRuleCreateChannel(t *testing.T) {
	c := NewCore()
	rule := rules.NewHousekeepingRule(1, rules.HousekeepingCreateChannel, 5, -1, nil)
	assert.True(t, c.ApplyHousekeepingRule(rule).IsOK())
	assert.Equal(t, 1, c.ChannelCount())
}

func TestCoreApplyHousekeepingRuleCreateChannelWiresSelectorPropertiesForRouting(t *testing.T) {
	c := NewCore()
	rule := rules.NewHousekeepingRule(1, rules.HousekeepingCreateChannel, 5, -1,
		[]int64{int64(differentiation.SelectChannelAll), 1, 1, 1})
	require.True(t, c.ApplyHousekeepingRule(rule).IsOK())

	ctx := core.NewContext(1, 1, 1, 10, 1)
	result, st := c.EnforceRequest(ctx, []byte("hi"), false)
	assert.True(t, st.IsEnforced())
	assert.Equal(t, core.ResultSuccess, result.Status())
}

func TestCoreApplyHousekeepingRuleCreateObjectRequiresEnoughProperties(t *testing.T) {
	c := NewCore()
	c.CreateChannel(5, differentiation.SelectChannelAll, differentiation.ChannelDifferentiationTuple{})
	rule := rules.NewHousekeepingRule(2, rules.HousekeepingCreateObject, 5, 10, []int64{int64(enforcement.VariantNoop)})
	assert.True(t, c.ApplyHousekeepingRule(rule).IsError())
}

func TestCoreLoadRulesCreatesChannelsAndAppliesEnforcement(t *testing.T) {
	c := NewCore()
	parsed := rules.ParseResult{
		Housekeeping:    rules.NewHousekeepingTable(),
		Differentiation: rules.NewDifferentiationTable(),
		Enforcement:     rules.NewEnforcementTable(),
	}
	parsed.Housekeeping.Insert(rules.NewHousekeepingRule(1, rules.HousekeepingCreateChannel, 1, -1, nil))
	parsed.Housekeeping.Insert(rules.NewHousekeepingRule(2, rules.HousekeepingCreateObject, 1, 10,
		[]int64{int64(enforcement.VariantNoop), 0, 1, 2}))

	st := c.LoadRules(parsed)
	require.True(t, st.IsOK())
	assert.Equal(t, 1, c.ChannelCount())

	got, ok := parsed.Housekeeping.Get(1)
	require.True(t, ok)
	assert.True(t, got.Enforced)
}

func TestCoreInsertHousekeepingRuleAppliesImmediately(t *testing.T) {
	c := NewCore()
	rule := rules.NewHousekeepingRule(1, rules.HousekeepingCreateChannel, 7, -1, nil)
	st := c.InsertHousekeepingRule(rule)
	assert.True(t, st.IsEnforced())
	assert.Equal(t, 1, c.ChannelCount())
}

func TestCoreInsertHousekeepingRuleRejectsDuplicateID(t *testing.T) {
	c := NewCore()
	rule := rules.NewHousekeepingRule(1, rules.HousekeepingCreateChannel, 7, -1, nil)
	require.True(t, c.InsertHousekeepingRule(rule).IsEnforced())
	assert.True(t, c.InsertHousekeepingRule(rule).IsError())
}

func TestCoreInsertEnforcementRuleRequiresKnownObject(t *testing.T) {
	c := NewCore()
	rule := rules.NewEnforcementRule(1, 1, 1, 0, nil)
	assert.True(t, c.InsertEnforcementRule(rule).IsError())
}

func TestCoreExecuteHousekeepingRulesSkipsAlreadyEnforced(t *testing.T) {
	c := NewCore()
	rule := rules.NewHousekeepingRule(1, rules.HousekeepingCreateChannel, 1, -1, nil)
	require.True(t, c.InsertHousekeepingRule(rule).IsEnforced())

	st := c.ExecuteHousekeepingRules()
	assert.True(t, st.IsEnforced())
	assert.Equal(t, 1, c.ChannelCount())
}

func TestCoreCollectGeneralStatisticsUnknownChannel(t *testing.T) {
	c := NewCore()
	_, st := c.CollectGeneralStatistics(42)
	assert.True(t, st.IsNotFound())
}

func TestCoreRemoveRuleUnknownIDReturnsNotFound(t *testing.T) {
	c := NewCore()
	assert.True(t, c.RemoveRule(1).IsNotFound())
}

func TestCoreRemoveRuleRemovesFromWhicheverTableHoldsIt(t *testing.T) {
	c := NewCore()
	rule := rules.NewHousekeepingRule(1, rules.HousekeepingCreateChannel, 5, -1, nil)
	require.True(t, c.InsertHousekeepingRule(rule).IsEnforced())

	st := c.RemoveRule(1)
	assert.True(t, st.IsOK())

	_, ok := c.housekeeping.Get(1)
	assert.False(t, ok)
}
