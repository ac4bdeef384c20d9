// Package middleware provides confirmation interceptors for the optimistic
// action registry.
//
// This package includes:
//   - OpenTelemetry tracing of every confirmation
//   - Prometheus metrics for pending actions and confirmation outcomes
//
// # OpenTelemetry
//
//	reg := optimistic.NewRegistry(
//	    optimistic.WithInterceptors(
//	        middleware.OpenTelemetry(middleware.WithTracerName("dashboard")),
//	    ),
//	)
//
// Each confirmation runs inside an "optimistic.confirm" span carrying the
// action ID and label. The span context is passed to Confirm, so HTTP
// clients and database drivers inherit the trace.
//
// The tracer comes from the global provider unless WithTracerProvider is
// used. Configure it in main() before creating registries:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//
// # Prometheus Metrics
//
//   - optimistic_pending_actions: confirmations currently in flight
//   - optimistic_confirmations_total: settled confirmations by label and outcome
//   - optimistic_confirmation_duration_seconds: confirmation latency by label
//
//	metrics, err := middleware.Prometheus(middleware.WithNamespace("dashboard"))
//	reg := optimistic.NewRegistry(optimistic.WithInterceptors(metrics))
//
//	http.Handle("/metrics", promhttp.Handler())
package middleware
