// Package otelexport bridges the engine's in-process counters into an
// OpenTelemetry meter. The engine keeps counting with plain atomics;
// this package registers one observable counter per engine metric and
// reads a snapshot on each collection cycle, so the hot path never
// touches the otel SDK.
package otelexport

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/dinely/authcore"
)

const scopeName = "github.com/dinely/authcore"

// Source yields counter snapshots. *authcore.Engine satisfies it.
type Source interface {
	MetricsSnapshot() authcore.MetricsSnapshot
}

var instrumentNames = map[authcore.MetricID]string{
	authcore.MetricLoginSuccess:             "authcore.login.success",
	authcore.MetricLoginFailure:             "authcore.login.failure",
	authcore.MetricLoginRateLimited:         "authcore.login.rate_limited",
	authcore.MetricSecondFactorFailure:      "authcore.second_factor.failure",
	authcore.MetricSecondFactorEnabled:      "authcore.second_factor.enabled",
	authcore.MetricSecondFactorDisabled:     "authcore.second_factor.disabled",
	authcore.MetricRegisterSuccess:          "authcore.register.success",
	authcore.MetricRegisterDuplicate:        "authcore.register.duplicate",
	authcore.MetricActionTokenIssued:        "authcore.action_token.issued",
	authcore.MetricActionTokenRedeemed:      "authcore.action_token.redeemed",
	authcore.MetricActionTokenRedeemFailure: "authcore.action_token.redeem_failure",
	authcore.MetricEmailConfirmed:           "authcore.email.confirmed",
	authcore.MetricPasswordReset:            "authcore.password.reset",
	authcore.MetricSessionTokenIssued:       "authcore.session_token.issued",
	authcore.MetricGateAuthenticated:        "authcore.gate.authenticated",
	authcore.MetricGateAnonymous:            "authcore.gate.anonymous",
}

// RegisterGlobal wires source into the process-global meter provider
// under the authcore instrumentation scope.
func RegisterGlobal(source Source) (metric.Registration, error) {
	return Register(otel.GetMeterProvider().Meter(scopeName), source)
}

// Register wires every engine counter into meter as an asynchronous
// counter. The returned registration unhooks the callback; call its
// Unregister before closing the engine.
func Register(meter metric.Meter, source Source) (metric.Registration, error) {
	counters := make(map[authcore.MetricID]metric.Int64ObservableCounter, len(instrumentNames))
	observables := make([]metric.Observable, 0, len(instrumentNames))

	for id, name := range instrumentNames {
		counter, err := meter.Int64ObservableCounter(name)
		if err != nil {
			return nil, err
		}
		counters[id] = counter
		observables = append(observables, counter)
	}

	return meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := source.MetricsSnapshot()
		for id, counter := range counters {
			observer.ObserveInt64(counter, int64(snapshot.Counters[id]))
		}
		return nil
	}, observables...)
}
