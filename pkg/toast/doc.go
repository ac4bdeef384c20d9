// Package toast provides feedback notifications.
//
// Toasts are dispatched as "optimist:toast" custom events through an Emitter.
// The emitter decides the transport: the websocket hub in internal/notify
// broadcasts them to connected browsers, LogEmitter writes them to a logger.
//
// # Client-Side Handler
//
// The client-side handler is user-defined, allowing integration with
// any toast library:
//
//	window.addEventListener("optimist:toast", (e) => {
//	    const { level, message } = e.detail;
//	    toast[level](message);
//	});
//
// # Optimistic Failures
//
// Notifier adapts an Emitter to optimistic.Notifier, so every rolled back
// action shows an error toast:
//
//	reg := optimistic.NewRegistry(
//	    optimistic.WithNotifier(toast.NewNotifier(hub)),
//	)
//
// The toast carries the registry message ("Action failed: <error>") and
// the action ID under "actionID".
package toast
