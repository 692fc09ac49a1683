package rules

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dsrhaslab/paio-stage/internal/differentiation"
	"github.com/dsrhaslab/paio-stage/internal/enforcement"
)

// Rule line markers. Each non-empty, non-comment line in a rules file
// begins with one of these, selecting which table the remaining
// whitespace-separated fields populate.
const (
	markerHousekeeping  = "HSK"
	markerDifferentiation = "DIF"
	markerEnforcement   = "ENF"
)

// Minimum field counts (excluding the marker token), mirroring the
// original's m_create_channel_rules_min_elements /
// m_create_object_rules_min_elements fixed minimums.
const (
	minFieldsCreateChannel = 7
	minFieldsCreateObject  = 8
	minFieldsConfigure     = 4
	minFieldsDifferentiation = 7
	minFieldsEnforcement   = 5
)

// ParseResult is the set of rule tables populated from a rules file.
type ParseResult struct {
	Housekeeping  *HousekeepingTable
	Differentiation *DifferentiationTable
	Enforcement   *EnforcementTable
}

// Parser reads a rules file, line by line, and stages each recognized
// line into the appropriate rule table. Unknown operation/object-type
// tokens fall back to no_op/-1 rather than aborting the parse, so that a
// single malformed line does not block the rest of the file (spec.md §6).
type Parser struct {
	result ParseResult
}

// NewParser constructs an empty Parser.
func NewParser() *Parser {
	return &Parser{
		result: ParseResult{
			Housekeeping:    NewHousekeepingTable(),
			Differentiation: NewDifferentiationTable(),
			Enforcement:     NewEnforcementTable(),
		},
	}
}

// Result returns the tables populated so far.
func (p *Parser) Result() ParseResult { return p.result }

// ParseFile opens path and parses every line via Parse.
func (p *Parser) ParseFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("rules: open %q: %w", path, err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse reads rule lines from r, returning the number of rules staged.
// Blank lines and lines beginning with '#' are skipped.
func (p *Parser) Parse(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	staged := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if p.parseLine(line) {
			staged++
		}
	}
	if err := scanner.Err(); err != nil {
		return staged, fmt.Errorf("rules: scan: %w", err)
	}
	return staged, nil
}

func (p *Parser) parseLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	marker, rest := fields[0], fields[1:]
	switch marker {
	case markerHousekeeping:
		return p.parseHousekeeping(rest)
	case markerDifferentiation:
		return p.parseDifferentiation(rest)
	case markerEnforcement:
		return p.parseEnforcement(rest)
	default:
		return false
	}
}

func parseUint64(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

// convertHousekeepingOperation converts a string token to a
// HousekeepingOperation, falling back to no_op for unlisted operations.
func convertHousekeepingOperation(op string) HousekeepingOperation {
	switch op {
	case "create_channel":
		return HousekeepingCreateChannel
	case "create_object":
		return HousekeepingCreateObject
	case "configure":
		return HousekeepingConfigure
	case "remove":
		return HousekeepingRemove
	default:
		return HousekeepingNoOp
	}
}

// convertObjectType converts a string token to an enforcement.Variant,
// falling back to VariantNoop for unlisted types.
func convertObjectType(s string) enforcement.Variant {
	switch s {
	case "drl", "dynamic_rate_limiter":
		return enforcement.VariantDynamicRateLimiter
	default:
		return enforcement.VariantNoop
	}
}

// convertEnforcementOperation converts a string operation token into its
// numeric configure-op value for the given object variant.
func convertEnforcementOperation(variant enforcement.Variant, op string) int {
	switch variant {
	case enforcement.VariantDynamicRateLimiter:
		switch op {
		case "init":
			return enforcement.DRLConfigInit
		case "rate":
			return enforcement.DRLConfigRate
		case "refill":
			return enforcement.DRLConfigRefill
		}
	}
	return -1
}

// parseHousekeeping handles "HSK <rule_id> <operation> ...".
//
// create_channel: rule_id create_channel channel_id context_type workflow_id operation_type operation_context
// create_object:  rule_id create_object  channel_id object_id object_type context_type operation_type operation_context [config...]
func (p *Parser) parseHousekeeping(fields []string) bool {
	if len(fields) < 2 {
		return false
	}
	ruleID := parseUint64(fields[0])
	op := convertHousekeepingOperation(fields[1])
	rest := fields[2:]

	switch op {
	case HousekeepingCreateChannel:
		if len(rest) < minFieldsCreateChannel-2 {
			return false
		}
		channelID := parseInt64(rest[0])
		ctxType, _ := ContextTypeFromString(rest[1])
		workflowID := parseInt64(rest[2])
		opType := ConvertDifferentiationDefinition(ctxType, rest[3])
		opContext := ConvertDifferentiationDefinition(ctxType, rest[4])

		rule := NewHousekeepingRule(ruleID, op, channelID, -1, []int64{int64(differentiation.SelectChannelAll), workflowID, opType, opContext})
		p.result.Housekeeping.Insert(rule)
		p.result.Differentiation.Insert(NewDifferentiationRule(ruleID, DifferentiationChannel, channelID, -1,
			uint32(workflowID), uint32(opType), uint32(opContext)))
		return true

	case HousekeepingCreateObject:
		if len(rest) < minFieldsCreateObject-2 {
			return false
		}
		channelID := parseInt64(rest[0])
		objectID := parseInt64(rest[1])
		variant := convertObjectType(rest[2])
		ctxType, _ := ContextTypeFromString(rest[3])
		opType := ConvertDifferentiationDefinition(ctxType, rest[4])
		opContext := ConvertDifferentiationDefinition(ctxType, rest[5])

		properties := []int64{int64(variant), int64(ctxType), opType, opContext}
		for _, extra := range rest[6:] {
			properties = append(properties, parseInt64(extra))
		}

		rule := NewHousekeepingRule(ruleID, op, channelID, objectID, properties)
		p.result.Housekeeping.Insert(rule)
		p.result.Differentiation.Insert(NewDifferentiationRule(ruleID, DifferentiationEnforcementObject, channelID, objectID,
			0, uint32(opType), uint32(opContext)))
		return true

	case HousekeepingConfigure, HousekeepingRemove:
		if len(rest) < minFieldsConfigure-2 {
			return false
		}
		channelID := parseInt64(rest[0])
		objectID := parseInt64(rest[1])
		var properties []int64
		for _, extra := range rest[2:] {
			properties = append(properties, parseInt64(extra))
		}
		p.result.Housekeeping.Insert(NewHousekeepingRule(ruleID, op, channelID, objectID, properties))
		return true

	default:
		// unknown operation: stage as no_op rather than discarding the line
		p.result.Housekeeping.Insert(NewHousekeepingRule(ruleID, HousekeepingNoOp, -1, -1, nil))
		return true
	}
}

// parseDifferentiation handles standalone "DIF" lines:
// rule_id type channel_id object_id context_type workflow_id operation_type operation_context
func (p *Parser) parseDifferentiation(fields []string) bool {
	if len(fields) < minFieldsDifferentiation {
		return false
	}
	ruleID := parseUint64(fields[0])

	var typ DifferentiationRuleType
	switch fields[1] {
	case "channel":
		typ = DifferentiationChannel
	case "object":
		typ = DifferentiationEnforcementObject
	default:
		typ = DifferentiationNone
	}

	channelID := parseInt64(fields[2])
	objectID := parseInt64(fields[3])
	ctxType, _ := ContextTypeFromString(fields[4])
	workflowID := parseInt64(fields[5])
	var opType, opContext int64 = -1, -1
	if len(fields) > 6 {
		opType = ConvertDifferentiationDefinition(ctxType, fields[6])
	}
	if len(fields) > 7 {
		opContext = ConvertDifferentiationDefinition(ctxType, fields[7])
	}

	p.result.Differentiation.Insert(NewDifferentiationRule(ruleID, typ, channelID, objectID,
		uint32(workflowID), uint32(opType), uint32(opContext)))
	return true
}

// parseEnforcement handles "ENF <rule_id> <channel_id> <object_id> <variant> <operation> [config...]".
func (p *Parser) parseEnforcement(fields []string) bool {
	if len(fields) < minFieldsEnforcement {
		return false
	}
	ruleID := parseUint64(fields[0])
	channelID := parseInt64(fields[1])
	objectID := parseInt64(fields[2])
	variant := convertObjectType(fields[3])
	opType := convertEnforcementOperation(variant, fields[4])

	var configs []int64
	for _, extra := range fields[5:] {
		configs = append(configs, parseInt64(extra))
	}

	p.result.Enforcement.Insert(NewEnforcementRule(ruleID, channelID, objectID, opType, configs))
	return true
}
