// Package prometheus renders goGuard engine metrics in the Prometheus text exposition
// format. Mount [Exporter.Handler] on your own mux; nothing is registered globally.
package prometheus
