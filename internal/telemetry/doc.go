// Package telemetry обеспечивает наблюдаемость StageGate.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Gate пишет метрики в textfile для node_exporter,
// monitor экспортирует их на /metrics endpoint.
package telemetry
