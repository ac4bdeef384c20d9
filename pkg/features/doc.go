// Package features groups the higher-level coordination APIs.
//
// # Subsystems
//
//   - optimistic: apply a change immediately, confirm it in the background,
//     and roll it back if the confirmation fails
//
// Related packages outside features:
//
//   - toast: rollback notifications for connected clients
//   - middleware: Prometheus and OpenTelemetry interceptors for confirmations
//
// # Usage
//
// Each subsystem is in its own sub-package and can be imported independently:
//
//	import "github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/features/optimistic"
package features
