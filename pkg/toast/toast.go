package toast

import (
	"context"
	"log/slog"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/features/optimistic"
)

// EventName is the event name dispatched for toasts.
// Client-side code should listen for this event.
const EventName = "optimist:toast"

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Emitter delivers custom events to the client.
type Emitter interface {
	Emit(name string, data any)
}

// ContextEmitter is an Emitter that can carry the context of the action
// being reported, e.g. for log and trace correlation.
type ContextEmitter interface {
	Emitter
	EmitContext(ctx context.Context, name string, data any)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(name string, data any)

// Emit calls f.
func (f EmitterFunc) Emit(name string, data any) {
	f(name, data)
}

// Show displays a toast notification to the user.
//
// The client receives a CustomEvent with:
//   - event.type = "optimist:toast"
//   - event.detail = { level: "success|error|warning|info", message: "..." }
func Show(e Emitter, level Type, message string) {
	e.Emit(EventName, map[string]any{
		"level":   string(level),
		"message": message,
	})
}

// Success shows a success toast.
//
//	toast.Success(hub, "Changes saved!")
func Success(e Emitter, message string) {
	Show(e, TypeSuccess, message)
}

// Error shows an error toast.
//
//	toast.Error(hub, "Failed to delete item")
func Error(e Emitter, message string) {
	Show(e, TypeError, message)
}

// Warning shows a warning toast.
func Warning(e Emitter, message string) {
	Show(e, TypeWarning, message)
}

// Info shows an info toast.
func Info(e Emitter, message string) {
	Show(e, TypeInfo, message)
}

// Notifier reports failed optimistic actions as error toasts.
type Notifier struct {
	emitter Emitter
}

// NewNotifier returns an optimistic.Notifier that emits through e.
func NewNotifier(e Emitter) *Notifier {
	return &Notifier{emitter: e}
}

// Notify implements optimistic.Notifier. ctx reaches the emitter when it
// implements ContextEmitter.
func (n *Notifier) Notify(ctx context.Context, info optimistic.ActionInfo, message string) {
	data := map[string]any{
		"level":    string(TypeError),
		"message":  message,
		"actionID": info.ID,
	}
	if ce, ok := n.emitter.(ContextEmitter); ok {
		ce.EmitContext(ctx, EventName, data)
		return
	}
	n.emitter.Emit(EventName, data)
}

// LogEmitter writes toast events to a logger. Useful when no client is
// connected, e.g. in CLI runs.
type LogEmitter struct {
	Logger *slog.Logger
}

// Emit implements Emitter.
func (l LogEmitter) Emit(name string, data any) {
	l.EmitContext(context.Background(), name, data)
}

// EmitContext implements ContextEmitter. The record is logged with ctx so
// handlers can attach trace and span IDs.
func (l LogEmitter) EmitContext(ctx context.Context, name string, data any) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fields, _ := data.(map[string]any)
	level := slog.LevelInfo
	if fields["level"] == string(TypeError) {
		level = slog.LevelError
	} else if fields["level"] == string(TypeWarning) {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "toast", "event", name, "detail", data)
}
