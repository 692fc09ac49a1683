// Package enforcement defines the EnforcementObject contract and its
// concrete variants: a bypass no-op and a dynamic (token-bucket) rate
// limiter. Channels hold a homogeneous slice of Object values — dispatch is
// a type switch / interface call, never a registry of plugins.
package enforcement

import (
	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/dsrhaslab/paio-stage/internal/status"
)

// Variant identifies the concrete kind of an EnforcementObject, as carried
// over the wire in a housekeeping create-object body.
type Variant int32

const (
	// VariantNoop bypasses the request without side effects.
	VariantNoop Variant = iota
	// VariantDynamicRateLimiter enforces a token-bucket rate limit.
	VariantDynamicRateLimiter
)

// String renders the Variant name.
func (v Variant) String() string {
	switch v {
	case VariantDynamicRateLimiter:
		return "dynamic-rate-limiter"
	default:
		return "noop"
	}
}

// StatsEntry is a single collected statistic sample from an EnforcementObject.
// For the rate limiter this is a token-bucket deficit sample; other variants
// may populate only a subset of the fields.
type StatsEntry struct {
	NormalizedEmptyBucket float32
	TokensLeft            float64
	TimestampMicros       int64
}

// StatisticsRaw is the generic container collect_statistics populates,
// grounded on paio::enforcement::ObjectStatisticsRaw.
type StatisticsRaw struct {
	Entries []StatsEntry
}

// Object is the common contract every enforcement mechanism implements.
// Enforce never fails outright for routing reasons (a no-match is handled
// one layer up, by the Channel); it may still set ResultError for a fatal
// condition encountered while enforcing.
type Object interface {
	// ID returns the object's stable identifier.
	ID() int64
	// Enforce applies the object's mechanism to ticket, writing the
	// outcome into result.
	Enforce(ticket core.Ticket, result *core.Result)
	// Configure adjusts the object's tuning knobs. op selects the
	// configuration operation; its meaning is variant-specific.
	Configure(op int, values []int64) status.Status
	// CollectStatistics reports the object's accumulated statistics, or
	// status.Error if the variant has nothing to report.
	CollectStatistics(raw *StatisticsRaw) status.Status
	// String renders the object for debugging.
	String() string
}
