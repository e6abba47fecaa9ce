// Package observability provides logging, metrics, and tracing for the
// gateway.
//
// Logging is a thin interface over zap so packages depend on Logger rather
// than on a concrete logger. Metrics live in a dedicated Prometheus registry
// exposed through Handler. Tracing uses OpenTelemetry with an optional OTLP
// gRPC exporter.
package observability
