package authcore

import internalmetrics "github.com/dinely/authcore/internal/metrics"

// MetricID identifies a specific counter in the in-process metrics.
type MetricID = internalmetrics.MetricID

// Counter IDs exported for snapshot consumers and exporters.
const (
	MetricLoginSuccess             = internalmetrics.MetricLoginSuccess
	MetricLoginFailure             = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited         = internalmetrics.MetricLoginRateLimited
	MetricSecondFactorFailure      = internalmetrics.MetricSecondFactorFailure
	MetricSecondFactorEnabled      = internalmetrics.MetricSecondFactorEnabled
	MetricSecondFactorDisabled     = internalmetrics.MetricSecondFactorDisabled
	MetricRegisterSuccess          = internalmetrics.MetricRegisterSuccess
	MetricRegisterDuplicate        = internalmetrics.MetricRegisterDuplicate
	MetricActionTokenIssued        = internalmetrics.MetricActionTokenIssued
	MetricActionTokenRedeemed      = internalmetrics.MetricActionTokenRedeemed
	MetricActionTokenRedeemFailure = internalmetrics.MetricActionTokenRedeemFailure
	MetricEmailConfirmed           = internalmetrics.MetricEmailConfirmed
	MetricPasswordReset            = internalmetrics.MetricPasswordReset
	MetricSessionTokenIssued       = internalmetrics.MetricSessionTokenIssued
	MetricGateAuthenticated        = internalmetrics.MetricGateAuthenticated
	MetricGateAnonymous            = internalmetrics.MetricGateAnonymous
)

// Metrics holds the engine's atomic counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot

// MetricsSnapshot returns a copy of the engine's counters. Disabled
// metrics yield an empty snapshot.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
