// Package rules implements PAIO's three rule kinds — housekeeping,
// differentiation, and enforcement — and the line-oriented parser that
// loads them from a rules file (spec.md §4.8).
package rules

import (
	"fmt"

	"github.com/dsrhaslab/paio-stage/internal/status"
)

// HousekeepingOperation selects what a HousekeepingRule does: create a
// Channel, create an EnforcementObject, configure, or remove. Remove and
// configure-via-housekeeping are accepted tokens but have no stage-side
// handler yet, matching the original's "future work" note.
type HousekeepingOperation int

const (
	HousekeepingNoOp HousekeepingOperation = iota
	HousekeepingCreateChannel
	HousekeepingCreateObject
	HousekeepingConfigure
	HousekeepingRemove
)

// String renders the HousekeepingOperation.
func (op HousekeepingOperation) String() string {
	switch op {
	case HousekeepingCreateChannel:
		return "create_channel"
	case HousekeepingCreateObject:
		return "create_object"
	case HousekeepingConfigure:
		return "configure"
	case HousekeepingRemove:
		return "remove"
	default:
		return "no_op"
	}
}

// HousekeepingRule creates, configures, or removes a Channel or
// EnforcementObject. A value of -1 for ChannelID/EnforcementObjectID means
// the rule doesn't target that structure in particular.
type HousekeepingRule struct {
	RuleID              uint64
	Operation           HousekeepingOperation
	ChannelID           int64
	EnforcementObjectID int64
	Properties          []int64
	Enforced            bool
}

// NewHousekeepingRule constructs a HousekeepingRule; it is not marked
// enforced until the stage applies it.
func NewHousekeepingRule(ruleID uint64, op HousekeepingOperation, channelID, objectID int64, properties []int64) HousekeepingRule {
	return HousekeepingRule{
		RuleID:              ruleID,
		Operation:           op,
		ChannelID:           channelID,
		EnforcementObjectID: objectID,
		Properties:          append([]int64(nil), properties...),
	}
}

// PropertyAt returns the property at index, or -1 if out of bounds.
func (r HousekeepingRule) PropertyAt(index int) int64 {
	if index < 0 || index >= len(r.Properties) {
		return -1
	}
	return r.Properties[index]
}

// String renders the HousekeepingRule for debugging.
func (r HousekeepingRule) String() string {
	return fmt.Sprintf("HousekeepingRule {%d, %s, %d, %d, %v, enforced=%t}",
		r.RuleID, r.Operation, r.ChannelID, r.EnforcementObjectID, r.Properties, r.Enforced)
}

// HousekeepingTable stores HousekeepingRules keyed by RuleID. Insertion is
// idempotent by id: re-inserting an existing RuleID is a no-op, matching
// the "apply once" semantics expected of a rules file reload.
type HousekeepingTable struct {
	rules map[uint64]HousekeepingRule
	order []uint64
}

// NewHousekeepingTable constructs an empty HousekeepingTable.
func NewHousekeepingTable() *HousekeepingTable {
	return &HousekeepingTable{rules: make(map[uint64]HousekeepingRule)}
}

// Insert adds rule if its id is not already present. Returns false if the
// id already existed (the rule was not overwritten).
func (t *HousekeepingTable) Insert(rule HousekeepingRule) bool {
	if _, exists := t.rules[rule.RuleID]; exists {
		return false
	}
	t.rules[rule.RuleID] = rule
	t.order = append(t.order, rule.RuleID)
	return true
}

// Get returns the rule with the given id, if present.
func (t *HousekeepingTable) Get(ruleID uint64) (HousekeepingRule, bool) {
	r, ok := t.rules[ruleID]
	return r, ok
}

// MarkEnforced records that a rule has been applied to the stage,
// transitioning Enforced false->true. Re-marking an already-enforced rule
// returns status.Error rather than silently succeeding.
func (t *HousekeepingTable) MarkEnforced(ruleID uint64) status.Status {
	r, ok := t.rules[ruleID]
	if !ok {
		return status.NotFound()
	}
	if r.Enforced {
		return status.Error()
	}
	r.Enforced = true
	t.rules[ruleID] = r
	return status.OK()
}

// Remove deletes the rule with the given id, returning false if it was not
// present.
func (t *HousekeepingTable) Remove(ruleID uint64) bool {
	if _, ok := t.rules[ruleID]; !ok {
		return false
	}
	delete(t.rules, ruleID)
	for i, id := range t.order {
		if id == ruleID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns every rule in insertion order.
func (t *HousekeepingTable) All() []HousekeepingRule {
	out := make([]HousekeepingRule, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rules[id])
	}
	return out
}

// ByOperation filters rules by operation type, preserving insertion order.
func (t *HousekeepingTable) ByOperation(op HousekeepingOperation) []HousekeepingRule {
	var out []HousekeepingRule
	for _, id := range t.order {
		r := t.rules[id]
		if r.Operation == op {
			out = append(out, r)
		}
	}
	return out
}

// Size returns the number of rules in the table.
func (t *HousekeepingTable) Size() int { return len(t.rules) }
