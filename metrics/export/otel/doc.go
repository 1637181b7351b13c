// Package otel publishes goGuard engine metrics through an OpenTelemetry Meter. Every
// counter becomes an Int64ObservableCounter and each latency bucket an
// Int64ObservableGauge; one callback reads the engine snapshot per collection.
// Callers own the MeterProvider.
package otel
