package enforcement

import (
	"time"

	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/dsrhaslab/paio-stage/internal/enforcement/ratelimiter"
	"github.com/dsrhaslab/paio-stage/internal/status"
)

// Re-export the rate limiter's configure operations so callers dispatching
// on Variant never need to import the ratelimiter package directly.
const (
	DRLConfigInit   = ratelimiter.ConfigInit
	DRLConfigRate   = ratelimiter.ConfigRate
	DRLConfigRefill = ratelimiter.ConfigRefill
)

// DRLMode mirrors ratelimiter.Mode for callers that only import enforcement.
type DRLMode = ratelimiter.Mode

const (
	DRLModeArithmetic = ratelimiter.ModeArithmetic
	DRLModeThreaded   = ratelimiter.ModeThreaded
)

// DynamicRateLimiterObject adapts ratelimiter.DynamicRateLimiter to the
// Object interface, translating between its stats type and the generic
// StatisticsRaw container every variant reports through.
type DynamicRateLimiterObject struct {
	inner *ratelimiter.DynamicRateLimiter
}

// NewDynamicRateLimiterObject constructs a rate-limiting Object with the
// given identifier, initial rate, refill period, and refill mode.
func NewDynamicRateLimiterObject(id int64, rate float64, refillPeriod time.Duration, mode DRLMode, collectStats bool, gcWindow time.Duration) *DynamicRateLimiterObject {
	return &DynamicRateLimiterObject{
		inner: ratelimiter.NewDynamicRateLimiter(id, rate, refillPeriod, mode, collectStats, gcWindow),
	}
}

// ID returns the object's identifier.
func (d *DynamicRateLimiterObject) ID() int64 { return d.inner.ID() }

// Enforce blocks the caller until the ticket's cost is admitted.
func (d *DynamicRateLimiterObject) Enforce(ticket core.Ticket, result *core.Result) {
	d.inner.Enforce(ticket, result)
}

// Configure adjusts the underlying token bucket's tuning knobs.
func (d *DynamicRateLimiterObject) Configure(op int, values []int64) status.Status {
	return d.inner.Configure(op, values)
}

// CollectStatistics reports accumulated token-bucket deficit samples.
func (d *DynamicRateLimiterObject) CollectStatistics(raw *StatisticsRaw) status.Status {
	entries, st := d.inner.CollectStatistics()
	if st.IsError() {
		return st
	}
	for _, e := range entries {
		raw.Entries = append(raw.Entries, StatsEntry{
			NormalizedEmptyBucket: e.NormalizedEmptyBucket,
			TokensLeft:            e.TokensLeft,
			TimestampMicros:       e.Timestamp.UnixMicro(),
		})
	}
	return status.OK()
}

// Close releases the underlying token bucket's background refill goroutine.
func (d *DynamicRateLimiterObject) Close() {
	d.inner.Close()
}

// String renders the object for debugging.
func (d *DynamicRateLimiterObject) String() string {
	return d.inner.String()
}
