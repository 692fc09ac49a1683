package rules

import "fmt"

// EnforcementRule changes the runtime state of an existing
// EnforcementObject: which Channel/object it targets, which tuning
// operation to apply (object-variant-specific, e.g. DRL's init/rate/
// refill), and the operation's configuration values.
type EnforcementRule struct {
	RuleID              uint64
	ChannelID           int64
	EnforcementObjectID int64
	OperationType       int
	Configurations      []int64
}

// NewEnforcementRule constructs an EnforcementRule.
func NewEnforcementRule(ruleID uint64, channelID, objectID int64, operationType int, configurations []int64) EnforcementRule {
	return EnforcementRule{
		RuleID:              ruleID,
		ChannelID:           channelID,
		EnforcementObjectID: objectID,
		OperationType:       operationType,
		Configurations:      append([]int64(nil), configurations...),
	}
}

// String renders the EnforcementRule for debugging.
func (r EnforcementRule) String() string {
	return fmt.Sprintf("EnforcementRule {%d, %d, %d, %d, %v}",
		r.RuleID, r.ChannelID, r.EnforcementObjectID, r.OperationType, r.Configurations)
}

// EnforcementTable stores EnforcementRules keyed by RuleID, with the same
// idempotent-insert semantics as the other rule tables.
type EnforcementTable struct {
	rules map[uint64]EnforcementRule
	order []uint64
}

// NewEnforcementTable constructs an empty EnforcementTable.
func NewEnforcementTable() *EnforcementTable {
	return &EnforcementTable{rules: make(map[uint64]EnforcementRule)}
}

// Insert adds rule if its id is not already present.
func (t *EnforcementTable) Insert(rule EnforcementRule) bool {
	if _, exists := t.rules[rule.RuleID]; exists {
		return false
	}
	t.rules[rule.RuleID] = rule
	t.order = append(t.order, rule.RuleID)
	return true
}

// All returns every rule in insertion order.
func (t *EnforcementTable) All() []EnforcementRule {
	out := make([]EnforcementRule, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rules[id])
	}
	return out
}

// Remove deletes the rule with the given id, returning false if it was not
// present.
func (t *EnforcementTable) Remove(ruleID uint64) bool {
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
func (t *EnforcementTable) Size() int { return len(t.rules) }
