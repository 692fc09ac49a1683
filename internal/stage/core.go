// Package stage assembles the Channel/EnforcementObject registry (Core)
// and the top-level Stage type that an interface layer embeds to turn
// intercepted I/O requests into enforced ones (spec.md §4.9, §4.10).
package stage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dsrhaslab/paio-stage/internal/channel"
	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/dsrhaslab/paio-stage/internal/differentiation"
	"github.com/dsrhaslab/paio-stage/internal/enforcement"
	"github.com/dsrhaslab/paio-stage/internal/rules"
	"github.com/dsrhaslab/paio-stage/internal/status"
)

// Core is the data plane stage's registry: every Channel it owns, the
// differentiation builder used to route a Context to one of them, and the
// rule tables (housekeeping/differentiation/enforcement) that describe how
// the registry was assembled and how it may still be reconfigured at
// runtime.
type Core struct {
	mu       sync.RWMutex
	channels map[int64]*channel.Channel

	// objectTokens maps a (channelID, objectID) pair to the routing token
	// it was registered under, so a control-plane operation addressing an
	// object by id (rather than by differentiation tuple) can still reach
	// it through the Channel's token-keyed object registry.
	objectTokens map[channelObjectKey]uint32

	// channelTokens maps a channel-level routing token (computed from the
	// selector tuple a create_channel rule specified) to the channel_id it
	// was registered under, mirroring objectTokens — this is what lets
	// selectChannel reach a channel created through the control plane or a
	// rules file rather than only one whose numeric id happens to equal
	// its own token by coincidence.
	channelTokens map[uint32]int64

	channelBuilder *differentiation.ChannelDifferentiationBuilder

	housekeeping    *rules.HousekeepingTable
	differentiation *rules.DifferentiationTable
	enforcement     *rules.EnforcementTable
}

type channelObjectKey struct {
	channelID int64
	objectID  int64
}

// NewCore constructs an empty Core with fresh rule tables.
func NewCore() *Core {
	return &Core{
		channels:        make(map[int64]*channel.Channel),
		objectTokens:    make(map[channelObjectKey]uint32),
		channelTokens:   make(map[uint32]int64),
		channelBuilder:  differentiation.NewChannelDifferentiationBuilder(),
		housekeeping:    rules.NewHousekeepingTable(),
		differentiation: rules.NewDifferentiationTable(),
		enforcement:     rules.NewEnforcementTable(),
	}
}

// channelToken computes the routing token for ctx using the Core's active
// channel-level selector set.
func (c *Core) channelToken(ctx core.Context) uint32 {
	return c.channelBuilder.BuildToken(differentiation.ChannelDifferentiationTuple{
		WorkflowID:       ctx.WorkflowID(),
		OperationType:    ctx.OperationType(),
		OperationContext: ctx.OperationContext(),
	})
}

// selectChannel returns the Channel registered under ctx's routing token,
// or nil if none matches.
func (c *Core) selectChannel(ctx core.Context) *channel.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.channelTokens[c.channelToken(ctx)]
	if !ok {
		return nil
	}
	return c.channels[id]
}

// EnforceRequest routes ctx/buffer to the matching Channel and enforces
// it, returning status.Enforced on success or status.Error if no Channel
// matched — there is no stage-wide no-op fallback above the Channel level;
// an unrouted request is a configuration gap, not a pass-through (spec.md
// §4.9, in contrast to a Channel's own no-match EnforcementObject
// fallback).
func (c *Core) EnforceRequest(ctx core.Context, buffer []byte, async bool) (core.Result, status.Status) {
	ch := c.selectChannel(ctx)
	if ch == nil {
		slog.Warn("stage: no channel matched request", "workflow_id", ctx.WorkflowID(), "operation_type", ctx.OperationType())
		return core.Result{}, status.Error()
	}

	ticket := core.NewTicketWithBuffer(nextTicketID(), ctx.TotalOperations(), int64(ctx.OperationSize()),
		ctx.OperationType(), ctx.OperationContext(), buffer)
	result := ch.Enforce(ticket, async)
	return result, status.Enforced()
}

// CreateChannel registers a new Channel under channel_id id, reachable by
// EnforceRequest through the routing token computed from tuple under the
// active selectors named by mask. Returns status.Error if id is already in
// use. Setting the active selector set is Core-wide (a single
// ChannelDifferentiationBuilder routes every request, matching the original's
// one routing table), so the mask supplied here takes effect for every
// channel lookup from this point on, not just this channel's.
func (c *Core) CreateChannel(id int64, mask differentiation.ChannelSelectorMask, tuple differentiation.ChannelDifferentiationTuple) status.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.channels[id]; exists {
		slog.Error("stage: channel already exists", "channel_id", id)
		return status.Error()
	}
	ch := channel.NewChannel(id, enforcement.NewNoopObject(-1, true))
	ch.Start()
	c.channels[id] = ch

	c.channelBuilder.SetClassifiers(mask)
	token := c.channelBuilder.BuildToken(tuple)
	c.channelTokens[token] = id

	slog.Debug("stage: created channel", "channel_id", id, "token", token, "total", len(c.channels))
	return status.OK()
}

// CreateEnforcementObject creates an EnforcementObject of variant under
// channelID, reachable at the token computed from diffTuple.
func (c *Core) CreateEnforcementObject(channelID int64, objectID int64, variant enforcement.Variant, diffTuple differentiation.ObjectDifferentiationTuple, configurations []int64) status.Status {
	c.mu.RLock()
	ch, ok := c.channels[channelID]
	c.mu.RUnlock()
	if !ok {
		return status.Error()
	}

	obj := newEnforcementObject(objectID, variant, configurations)
	st := ch.CreateEnforcementObject(obj, diffTuple, ch.ObjectDifferentiationBuilder())
	if st.IsOK() {
		c.mu.Lock()
		c.objectTokens[channelObjectKey{channelID, objectID}] = ch.ObjectDifferentiationBuilder().BuildToken(diffTuple)
		c.mu.Unlock()
	}
	return st
}

// newEnforcementObject constructs the Object for variant, applying initial
// configurations when provided.
func newEnforcementObject(id int64, variant enforcement.Variant, configurations []int64) enforcement.Object {
	switch variant {
	case enforcement.VariantDynamicRateLimiter:
		rate := 1000.0
		refill := 1 * time.Second
		if len(configurations) >= 2 {
			rate = float64(configurations[0])
			refill = time.Duration(configurations[1]) * time.Microsecond
		}
		return enforcement.NewDynamicRateLimiterObject(id, rate, refill, enforcement.DRLModeArithmetic, true, 60*time.Second)
	default:
		return enforcement.NewNoopObject(id, true)
	}
}

// ConfigureEnforcementObject dispatches a configure operation to the
// object reachable via channelID/diffTuple.
func (c *Core) ConfigureEnforcementObject(channelID int64, diffTuple differentiation.ObjectDifferentiationTuple, op int, values []int64) status.Status {
	c.mu.RLock()
	ch, ok := c.channels[channelID]
	c.mu.RUnlock()
	if !ok {
		return status.Error()
	}
	token := ch.ObjectDifferentiationBuilder().BuildToken(diffTuple)
	return ch.ConfigureEnforcementObject(token, op, values)
}

// ApplyHousekeepingRule enforces a single HousekeepingRule against the
// registry: create_channel/create_object mutate the registry; configure
// and remove are accepted but have no handler here and report
// status.NotSupported.
func (c *Core) ApplyHousekeepingRule(rule rules.HousekeepingRule) status.Status {
	switch rule.Operation {
	case rules.HousekeepingCreateChannel:
		mask := differentiation.SelectChannelAll
		var tuple differentiation.ChannelDifferentiationTuple
		if len(rule.Properties) >= 4 {
			mask = differentiation.ChannelSelectorMask(rule.Properties[0])
			tuple = differentiation.ChannelDifferentiationTuple{
				WorkflowID:       rule.Properties[1],
				OperationType:    int(rule.Properties[2]),
				OperationContext: int(rule.Properties[3]),
			}
		}
		return c.CreateChannel(rule.ChannelID, mask, tuple)

	case rules.HousekeepingCreateObject:
		if len(rule.Properties) < 4 {
			return status.Error()
		}
		variant := enforcement.Variant(rule.Properties[0])
		opType := int(rule.Properties[2])
		opContext := int(rule.Properties[3])
		tuple := differentiation.ObjectDifferentiationTuple{OperationType: opType, OperationContext: opContext}
		return c.CreateEnforcementObject(rule.ChannelID, rule.EnforcementObjectID, variant, tuple, rule.Properties[4:])

	case rules.HousekeepingConfigure:
		return status.NotSupported()

	case rules.HousekeepingRemove:
		return status.NotSupported()

	default:
		return status.NotSupported()
	}
}

// LoadRules applies a previously-parsed ParseResult: every housekeeping
// rule is enforced immediately (create-at-load, matching the original's
// design note that rules are "enforced at creation time to ease use"), and
// every enforcement rule is applied against the now-existing objects.
func (c *Core) LoadRules(parsed rules.ParseResult) status.Status {
	for _, hsk := range parsed.Housekeeping.All() {
		st := c.ApplyHousekeepingRule(hsk)
		if st.IsError() {
			slog.Error("stage: failed to apply housekeeping rule", "rule_id", hsk.RuleID)
			continue
		}
		parsed.Housekeeping.MarkEnforced(hsk.RuleID)
	}

	for _, enf := range parsed.Enforcement.All() {
		c.applyEnforcementRuleByObjectID(enf)
	}

	c.housekeeping = parsed.Housekeeping
	c.differentiation = parsed.Differentiation
	c.enforcement = parsed.Enforcement
	return status.OK()
}

// applyEnforcementRuleByObjectID resolves the channel and routing token for
// enf's (channel id, object id) pair — recorded at object-creation time,
// since EnforcementRules address objects by id rather than by
// differentiation tuple — and configures the matching object.
func (c *Core) applyEnforcementRuleByObjectID(enf rules.EnforcementRule) status.Status {
	c.mu.RLock()
	ch, okCh := c.channels[enf.ChannelID]
	token, okTok := c.objectTokens[channelObjectKey{enf.ChannelID, enf.EnforcementObjectID}]
	c.mu.RUnlock()
	if !okCh || !okTok {
		return status.Error()
	}
	return ch.ConfigureEnforcementObject(token, enf.OperationType, enf.Configurations)
}

// InsertHousekeepingRule stages rule into the housekeeping table and, if
// newly inserted, applies it immediately against the registry — matching
// LoadRules' create-at-insertion-time behavior, so a control-plane
// create_housekeeping_rule operation has the same effect as a line loaded
// from a rules file at startup.
func (c *Core) InsertHousekeepingRule(rule rules.HousekeepingRule) status.Status {
	c.mu.Lock()
	inserted := c.housekeeping.Insert(rule)
	c.mu.Unlock()
	if !inserted {
		return status.Error()
	}
	st := c.ApplyHousekeepingRule(rule)
	if st.IsError() {
		return st
	}
	c.mu.Lock()
	c.housekeeping.MarkEnforced(rule.RuleID)
	c.mu.Unlock()
	return status.Enforced()
}

// InsertDifferentiationRule stages rule into the differentiation table.
// Differentiation rules describe how a Context/Ticket is routed; applying
// the described selector mask against the live builders is left to a
// future DefineObjectDifferentiation/DefineChannelDifferentiation call, so
// this only records the rule (matching the original's documented
// entanglement between differentiation rules and the housekeeping rules
// that actually create the channel/object they describe).
func (c *Core) InsertDifferentiationRule(rule rules.DifferentiationRule) status.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.differentiation.Insert(rule) {
		return status.Error()
	}
	return status.OK()
}

// InsertEnforcementRule stages rule into the enforcement table and applies
// it immediately against the object it targets.
func (c *Core) InsertEnforcementRule(rule rules.EnforcementRule) status.Status {
	c.mu.Lock()
	inserted := c.enforcement.Insert(rule)
	c.mu.Unlock()
	if !inserted {
		return status.Error()
	}
	return c.applyEnforcementRuleByObjectID(rule)
}

// ExecuteHousekeepingRules applies every housekeeping rule staged so far
// that has not yet been enforced (spec.md §4.10's execute_housekeeping_rules
// control operation).
func (c *Core) ExecuteHousekeepingRules() status.Status {
	c.mu.RLock()
	pending := c.housekeeping.All()
	c.mu.RUnlock()

	for _, rule := range pending {
		if rule.Enforced {
			continue
		}
		if st := c.ApplyHousekeepingRule(rule); st.IsError() {
			slog.Error("stage: failed to execute pending housekeeping rule", "rule_id", rule.RuleID)
			continue
		}
		c.mu.Lock()
		c.housekeeping.MarkEnforced(rule.RuleID)
		c.mu.Unlock()
	}
	return status.Enforced()
}

// RemoveRule removes a previously-staged rule by id from every rule table
// that holds it (a rules-file create_channel/create_object line is staged
// under the same id in both the housekeeping and differentiation tables).
// Reports status.NotFound if none of the tables held it.
func (c *Core) RemoveRule(ruleID uint64) status.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.housekeeping.Remove(ruleID)
	removed = c.differentiation.Remove(ruleID) || removed
	removed = c.enforcement.Remove(ruleID) || removed
	if !removed {
		return status.NotFound()
	}
	return status.OK()
}

// CollectObjectStatistics gathers statistics from the EnforcementObject
// identified by (channelID, objectID), resolving the routing token through
// the Core's objectTokens registry.
func (c *Core) CollectObjectStatistics(channelID, objectID int64) (enforcement.StatisticsRaw, status.Status) {
	c.mu.RLock()
	ch, okCh := c.channels[channelID]
	token, okTok := c.objectTokens[channelObjectKey{channelID, objectID}]
	c.mu.RUnlock()
	if !okCh || !okTok {
		return enforcement.StatisticsRaw{}, status.NotFound()
	}

	var raw enforcement.StatisticsRaw
	st := ch.CollectObjectStatistics(token, &raw)
	return raw, st
}

// CollectGeneralStatistics gathers the request/byte counters of channelID.
func (c *Core) CollectGeneralStatistics(channelID int64) (channel.Stats, status.Status) {
	c.mu.RLock()
	ch, ok := c.channels[channelID]
	c.mu.RUnlock()
	if !ok {
		return channel.Stats{}, status.NotFound()
	}
	return ch.CollectGeneralStatistics(), status.OK()
}

// ChannelCount returns the number of registered channels.
func (c *Core) ChannelCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.channels)
}

// String renders a summary of the Core's registered channels.
func (c *Core) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := fmt.Sprintf("Core {%d channels}\n", len(c.channels))
	for _, ch := range c.channels {
		out += ch.String() + "\n"
	}
	return out
}

var ticketCounter struct {
	mu  sync.Mutex
	val uint64
}

// nextTicketID issues a monotonically increasing ticket identifier,
// standing in for the original's atomic ticket-id generator held by the
// interface layer.
func nextTicketID() uint64 {
	ticketCounter.mu.Lock()
	defer ticketCounter.mu.Unlock()
	ticketCounter.val++
	return ticketCounter.val
}
