package ratelimiter

import (
	"fmt"
	"time"

	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/dsrhaslab/paio-stage/internal/status"
)

// Configure operations, grounded on enforcement_object_drl.cpp's
// initialize/configure_rate/configure_refill_window entry points.
const (
	// ConfigInit sets both the refill period and the rate/capacity at
	// once: values = [refillPeriodMicros, rate].
	ConfigInit int = iota
	// ConfigRate adjusts only the capacity: values = [rate].
	ConfigRate
	// ConfigRefill adjusts only the refill period, preserving the
	// effective rate: values = [refillPeriodMicros].
	ConfigRefill
)

// DynamicRateLimiter adapts a TokenBucket to the enforcement.Object
// contract. It computes a request's token cost with basicIOCost: a
// future extension reserves a debt/convergence term (estimateIOCost in
// the original), but it is unused dead code upstream and this
// implementation defaults to the pass-through basic cost, per spec.md §9.
type DynamicRateLimiter struct {
	id     int64
	bucket *TokenBucket
}

// NewDynamicRateLimiter constructs a DynamicRateLimiter with the given
// identifier, initial capacity/rate, refill period, and mode.
func NewDynamicRateLimiter(id int64, rate float64, refillPeriod time.Duration, mode Mode, collectStats bool, gcWindow time.Duration) *DynamicRateLimiter {
	return &DynamicRateLimiter{
		id:     id,
		bucket: NewTokenBucket(rate, refillPeriod, mode, collectStats, gcWindow),
	}
}

// ID returns the object's identifier.
func (d *DynamicRateLimiter) ID() int64 { return d.id }

// basicIOCost is the pass-through cost model: the ticket's own payload,
// with a floor of 1 so zero-payload operations (e.g. metadata calls) still
// consume a token.
func basicIOCost(payload int64) float64 {
	if payload <= 0 {
		return 1
	}
	return float64(payload)
}

// Enforce blocks the calling goroutine until the ticket's cost has been
// admitted by the token bucket, then copies through the ticket buffer and
// marks success — the rate limiter never rejects a request outright, it
// only delays it (spec.md §4.6).
func (d *DynamicRateLimiter) Enforce(ticket core.Ticket, result *core.Result) {
	cost := basicIOCost(ticket.Payload())
	d.bucket.TryConsume(cost)

	result.SetStatus(core.ResultSuccess)
	if buf := ticket.Buffer(); len(buf) > 0 {
		result.SetContent(buf)
	}
}

// Configure dispatches to the bucket's tuning operations.
func (d *DynamicRateLimiter) Configure(op int, values []int64) status.Status {
	switch op {
	case ConfigInit:
		if len(values) < 2 {
			return status.NotSupported()
		}
		d.bucket.Init(time.Duration(values[0])*time.Microsecond, float64(values[1]))
		return status.OK()
	case ConfigRate:
		if len(values) < 1 {
			return status.NotSupported()
		}
		d.bucket.SetRate(float64(values[0]))
		return status.OK()
	case ConfigRefill:
		if len(values) < 1 {
			return status.NotSupported()
		}
		d.bucket.SetRefillWindow(time.Duration(values[0]) * time.Microsecond)
		return status.OK()
	default:
		return status.NotSupported()
	}
}

// CollectStatistics drains the bucket's deficit-sample ring. The second
// return value is status.Error when the bucket was constructed without
// statistics collection enabled.
func (d *DynamicRateLimiter) CollectStatistics() ([]StatsEntry, status.Status) {
	entries, ok := d.bucket.CollectStatistics()
	if !ok {
		return nil, status.Error()
	}
	return entries, status.OK()
}

// Close releases the bucket's background refill goroutine, if any.
func (d *DynamicRateLimiter) Close() {
	d.bucket.Close()
}

// String renders the DynamicRateLimiter for debugging.
func (d *DynamicRateLimiter) String() string {
	return fmt.Sprintf("DynamicRateLimiter {%d, capacity=%.2f, tokens=%.2f, refill=%s}",
		d.id, d.bucket.Capacity(), d.bucket.Tokens(), d.bucket.RefillPeriod())
}
