// Package observe provides logging, metrics and tracing for the service.
//
// An [Observer] owns the OpenTelemetry providers selected by [Config] and
// hands out a [Logger], a [Tracer] and the domain [Metrics]. When the
// metrics exporter is "prometheus", [Observer.MetricsHandler] serves the
// collected instruments for scraping.
package observe
