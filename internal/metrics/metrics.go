// Package metrics provides lock-free counters for authcore observability.
//
// Counters live in cache-line-padded uint64 slots incremented via
// sync/atomic, so the write path is allocation-free. Export (OTel) lives
// in metrics/export/ and reads Snapshot values; this package performs no
// I/O and imports no sibling package.
package metrics

import "sync/atomic"

// MetricID identifies one counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricSecondFactorFailure
	MetricSecondFactorEnabled
	MetricSecondFactorDisabled
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricActionTokenIssued
	MetricActionTokenRedeemed
	MetricActionTokenRedeemFailure
	MetricEmailConfirmed
	MetricPasswordReset
	MetricSessionTokenIssued
	MetricGateAuthenticated
	MetricGateAnonymous

	MetricIDCount
)

// Config controls whether counters record anything.
type Config struct {
	Enabled bool
}

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the counter slots. A disabled instance is a no-op on
// every method, so callers never nil-check.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]paddedCounter
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// New creates a Metrics instance.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc atomically increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot deep-copies every counter.
func (m *Metrics) Snapshot() Snapshot {
	out := Snapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil || !m.enabled {
		return out
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		out.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return out
}
