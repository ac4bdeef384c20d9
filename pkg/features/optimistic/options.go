package optimistic

import (
	"context"
	"log/slog"
	"time"
)

// Notifier surfaces confirmation failures to the user.
// Notify receives the failed action and a message of the form
// "Action failed: <error message>".
type Notifier interface {
	Notify(ctx context.Context, info ActionInfo, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, info ActionInfo, message string)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, info ActionInfo, message string) {
	f(ctx, info, message)
}

// Interceptor wraps every confirmation call made by a Registry.
// Implementations must call next at most once. Once next has been called its
// error decides the outcome; what the interceptor returns, or a panic after
// next, does not change it. An interceptor that returns without calling next
// short-circuits the confirmation with its own error.
type Interceptor func(ctx context.Context, info ActionInfo, next func(context.Context) error) error

// Option configures a Registry.
type Option func(*Registry)

// WithNotifier sets the failure notification channel.
// Without this option failures are reported through the registry logger.
func WithNotifier(n Notifier) Option {
	return func(r *Registry) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithInterceptors appends confirmation interceptors. The first interceptor
// is the outermost.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(r *Registry) {
		for _, ic := range interceptors {
			if ic != nil {
				r.interceptors = append(r.interceptors, ic)
			}
		}
	}
}

// WithClock sets the time source used for ActionInfo.Started.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// logNotifier is the fallback Notifier.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(ctx context.Context, info ActionInfo, message string) {
	n.logger.WarnContext(ctx, message, "action_id", info.ID, "label", info.Label)
}
