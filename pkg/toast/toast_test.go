package toast_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/features/optimistic"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/toast"
)

// mockEmitter captures emitted events for verification.
type mockEmitter struct {
	emittedEvents []emittedEvent
}

type emittedEvent struct {
	name string
	data any
}

func (m *mockEmitter) Emit(name string, data any) {
	m.emittedEvents = append(m.emittedEvents, emittedEvent{name, data})
}

func TestSuccess(t *testing.T) {
	e := &mockEmitter{}

	toast.Success(e, "Item saved!")

	if len(e.emittedEvents) != 1 {
		t.Fatalf("expected 1 event, got %d", len(e.emittedEvents))
	}

	event := e.emittedEvents[0]
	if event.name != toast.EventName {
		t.Errorf("expected event name %q, got %q", toast.EventName, event.name)
	}

	data := event.data.(map[string]any)
	if data["level"] != "success" {
		t.Errorf("expected level success, got %v", data["level"])
	}
	if data["message"] != "Item saved!" {
		t.Errorf("expected message 'Item saved!', got %v", data["message"])
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name string
		show func(toast.Emitter, string)
		want string
	}{
		{"error", toast.Error, "error"},
		{"warning", toast.Warning, "warning"},
		{"info", toast.Info, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &mockEmitter{}
			tt.show(e, "msg")
			data := e.emittedEvents[0].data.(map[string]any)
			if data["level"] != tt.want {
				t.Errorf("expected level %s, got %v", tt.want, data["level"])
			}
		})
	}
}

func TestNotifierReportsRollback(t *testing.T) {
	e := &mockEmitter{}
	reg := optimistic.NewRegistry(
		optimistic.WithNotifier(toast.NewNotifier(e)),
		optimistic.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)

	value := 1
	_, err := optimistic.Execute(context.Background(), reg, optimistic.Update[int, struct{}]{
		Label:    "archive",
		Snapshot: func() int { return value },
		Apply:    func() int { value = 2; return value },
		Confirm: func(context.Context) (struct{}, error) {
			return struct{}{}, errors.New("permission denied")
		},
		Revert: func(prev int) { value = prev },
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if len(e.emittedEvents) != 1 {
		t.Fatalf("expected 1 event, got %d", len(e.emittedEvents))
	}
	data := e.emittedEvents[0].data.(map[string]any)
	if data["level"] != "error" {
		t.Errorf("expected level error, got %v", data["level"])
	}
	if data["message"] != "Action failed: permission denied" {
		t.Errorf("expected failure message, got %v", data["message"])
	}
	if data["actionID"] != "archive-1" {
		t.Errorf("expected actionID archive-1, got %v", data["actionID"])
	}
}

func TestLogEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := toast.LogEmitter{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	toast.Error(e, "disk full")

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") {
		t.Errorf("expected ERROR level in %q", out)
	}
	if !strings.Contains(out, "disk full") {
		t.Errorf("expected message in %q", out)
	}
}

type ctxKey struct{}

// ctxHandler records the context value seen by each log record.
type ctxHandler struct {
	slog.Handler
	seen *[]any
}

func (h ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	*h.seen = append(*h.seen, ctx.Value(ctxKey{}))
	return h.Handler.Handle(ctx, r)
}

func TestNotifierPassesActionContext(t *testing.T) {
	var seen []any
	logger := slog.New(ctxHandler{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil), seen: &seen})
	reg := optimistic.NewRegistry(
		optimistic.WithNotifier(toast.NewNotifier(toast.LogEmitter{Logger: logger})),
		optimistic.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "span-7")
	value := 0
	_, err := optimistic.Execute(ctx, reg, optimistic.Update[int, struct{}]{
		Snapshot: func() int { return value },
		Apply:    func() int { value = 1; return value },
		Confirm: func(context.Context) (struct{}, error) {
			return struct{}{}, errors.New("timeout")
		},
		Revert: func(prev int) { value = prev },
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if len(seen) != 1 {
		t.Fatalf("expected 1 log record, got %d", len(seen))
	}
	if seen[0] != "span-7" {
		t.Errorf("expected action context in log record, got %v", seen[0])
	}
}
