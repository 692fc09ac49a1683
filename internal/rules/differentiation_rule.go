package rules

import "fmt"

// DifferentiationRuleType selects whether a DifferentiationRule configures
// channel-level or object-level I/O classification.
type DifferentiationRuleType int

const (
	DifferentiationNone DifferentiationRuleType = iota
	DifferentiationChannel
	DifferentiationEnforcementObject
)

// String renders the DifferentiationRuleType.
func (t DifferentiationRuleType) String() string {
	switch t {
	case DifferentiationChannel:
		return "channel_differentiation"
	case DifferentiationEnforcementObject:
		return "enforcement_object_differentiation"
	default:
		return "none"
	}
}

// DifferentiationRule classifies I/O requests at the channel or
// enforcement-object level, supplying the classifier values used to build
// a routing token (spec.md §4.12). The rules parser produces one alongside
// each create_channel/create_object HousekeepingRule; one can also be
// submitted standalone (a DIF rules-file line or a
// create_differentiation_rule control operation), and is then only recorded.
type DifferentiationRule struct {
	RuleID              uint64
	Type                DifferentiationRuleType
	ChannelID           int64
	EnforcementObjectID int64
	WorkflowID          uint32
	OperationType       uint32
	OperationContext    uint32
}

// NewDifferentiationRule constructs a DifferentiationRule.
func NewDifferentiationRule(ruleID uint64, typ DifferentiationRuleType, channelID, objectID int64, workflowID, opType, opContext uint32) DifferentiationRule {
	return DifferentiationRule{
		RuleID:              ruleID,
		Type:                typ,
		ChannelID:           channelID,
		EnforcementObjectID: objectID,
		WorkflowID:          workflowID,
		OperationType:       opType,
		OperationContext:    opContext,
	}
}

// String renders the DifferentiationRule for debugging.
func (r DifferentiationRule) String() string {
	return fmt.Sprintf("DifferentiationRule {%d, %s, %d, %d, %d, %d, %d}",
		r.RuleID, r.Type, r.ChannelID, r.EnforcementObjectID, r.WorkflowID, r.OperationType, r.OperationContext)
}

// DifferentiationTable stores DifferentiationRules keyed by RuleID, with
// the same idempotent-insert semantics as HousekeepingTable.
type DifferentiationTable struct {
	rules map[uint64]DifferentiationRule
	order []uint64
}

// NewDifferentiationTable constructs an empty DifferentiationTable.
func NewDifferentiationTable() *DifferentiationTable {
	return &DifferentiationTable{rules: make(map[uint64]DifferentiationRule)}
}

// Insert adds rule if its id is not already present.
func (t *DifferentiationTable) Insert(rule DifferentiationRule) bool {
	if _, exists := t.rules[rule.RuleID]; exists {
		return false
	}
	t.rules[rule.RuleID] = rule
	t.order = append(t.order, rule.RuleID)
	return true
}

// All returns every rule in insertion order.
func (t *DifferentiationTable) All() []DifferentiationRule {
	out := make([]DifferentiationRule, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rules[id])
	}
	return out
}

// Remove deletes the rule with the given id, returning false if it was not
// present.
func (t *DifferentiationTable) Remove(ruleID uint64) bool {
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

// Size returns the number of rules in the table.
func (t *DifferentiationTable) Size() int { return len(t.rules) }
