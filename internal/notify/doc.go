// Package notify broadcasts toast events to browsers over WebSocket.
//
// Hub implements toast.Emitter. Every emitted event is encoded as
//
//	{"event": "optimist:toast", "detail": {...}}
//
// and written to each connected client. Clients that fail a write are
// dropped.
package notify
