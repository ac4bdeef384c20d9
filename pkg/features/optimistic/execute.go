package optimistic

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Update describes one optimistic change.
//
// Snapshot and Apply are called exactly once each, Snapshot first, on the
// goroutine that calls Start. Revert is called only if Confirm fails.
type Update[T any, R any] struct {
	// Label groups related actions; it becomes the prefix of the action ID.
	Label string

	// Snapshot reads the current value, used as the rollback value.
	Snapshot func() T

	// Apply applies the tentative value and returns it.
	Apply func() T

	// Confirm is the authoritative operation. It runs once.
	Confirm func(ctx context.Context) (R, error)

	// Revert restores the rollback value after a failed confirmation.
	Revert func(rollback T)

	// OnSuccess observes a successful confirmation. Optional.
	OnSuccess func(result R)

	// OnError observes a failed confirmation after rollback. Optional.
	OnError func(err error)
}

func (u Update[T, R]) validate() error {
	switch {
	case u.Snapshot == nil:
		return fmt.Errorf("%w: Snapshot is nil", ErrInvalidUpdate)
	case u.Apply == nil:
		return fmt.Errorf("%w: Apply is nil", ErrInvalidUpdate)
	case u.Confirm == nil:
		return fmt.Errorf("%w: Confirm is nil", ErrInvalidUpdate)
	case u.Revert == nil:
		return fmt.Errorf("%w: Revert is nil", ErrInvalidUpdate)
	}
	return nil
}

// Pending is the handle to a started optimistic action.
type Pending[R any] struct {
	id     string
	done   chan struct{}
	result R
	err    error
}

// ID returns the action ID.
func (p *Pending[R]) ID() string {
	return p.id
}

// Done is closed once the action has settled and its observers have run.
func (p *Pending[R]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the action settles. It returns the confirmation result,
// or the confirmation error after the rollback has been applied.
func (p *Pending[R]) Wait() (R, error) {
	<-p.done
	return p.result, p.err
}

// Start applies u optimistically, registers it and launches its confirmation.
//
// When Start returns without error the optimistic value has been applied and
// the action is counted by PendingCount. The confirmation runs on its own
// goroutine with ctx.
func Start[T any, R any](ctx context.Context, r *Registry, u Update[T, R]) (*Pending[R], error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidUpdate)
	}
	if err := u.validate(); err != nil {
		return nil, err
	}

	rollback := u.Snapshot()
	optimistic := u.Apply()
	info := r.register(u.Label, optimistic, rollback)

	p := &Pending[R]{id: info.ID, done: make(chan struct{})}
	go settle(ctx, r, info, u, rollback, p)
	return p, nil
}

// Execute runs Start and waits for the action to settle.
func Execute[T any, R any](ctx context.Context, r *Registry, u Update[T, R]) (R, error) {
	p, err := Start(ctx, r, u)
	if err != nil {
		var zero R
		return zero, err
	}
	return p.Wait()
}

// Values returns the optimistic and rollback values recorded for an
// outstanding action. ok is false if the action has settled or T does not
// match the Update it was started with.
func Values[T any](r *Registry, id string) (optimistic, rollback T, ok bool) {
	r.mu.Lock()
	a, found := r.actions[id]
	r.mu.Unlock()
	if !found {
		return optimistic, rollback, false
	}

	o, ok1 := a.optimistic.(T)
	rb, ok2 := a.rollback.(T)
	if !ok1 || !ok2 {
		return optimistic, rollback, false
	}
	return o, rb, true
}

func settle[T any, R any](ctx context.Context, r *Registry, info ActionInfo, u Update[T, R], rollback T, p *Pending[R]) {
	defer close(p.done)
	defer r.remove(info.ID)

	var result R
	start := time.Now()
	err := r.confirm(ctx, info, func(ctx context.Context) error {
		var err error
		result, err = u.Confirm(ctx)
		return err
	})

	if err == nil {
		r.remove(info.ID)
		r.logger.Debug("optimistic action confirmed",
			"action_id", info.ID,
			"duration", time.Since(start),
		)
		p.result = result
		if u.OnSuccess != nil {
			r.guard(info, "OnSuccess", func() { u.OnSuccess(result) })
		}
		return
	}

	r.guard(info, "Revert", func() { u.Revert(rollback) })
	r.remove(info.ID)
	r.logger.Info("optimistic action rolled back",
		"action_id", info.ID,
		"error", err,
	)

	p.err = err
	r.guard(info, "Notify", func() { r.notifier.Notify(ctx, info, FailureMessage(err)) })
	if u.OnError != nil {
		r.guard(info, "OnError", func() { u.OnError(err) })
	}
}

// confirm runs call through the interceptor chain.
//
// Once call has run, its error is the outcome: an interceptor cannot turn a
// committed confirmation into a rollback, by returning a different error or
// by panicking afterwards. A panic in Confirm, or in an interceptor before
// it reaches Confirm, becomes a *PanicError.
func (r *Registry) confirm(ctx context.Context, info ActionInfo, call func(context.Context) error) (err error) {
	var (
		called     bool
		confirmErr error
	)
	defer func() {
		v := recover()
		if v != nil && !called {
			err = &PanicError{ActionID: info.ID, Value: v, Stack: debug.Stack()}
			return
		}
		if v != nil {
			r.logger.Error("optimistic interceptor panicked after confirmation",
				"action_id", info.ID,
				"panic", v,
			)
		}
		if called {
			err = confirmErr
		}
	}()

	next := func(ctx context.Context) (err error) {
		defer func() {
			called = true
			confirmErr = err
		}()
		defer recoverInto(&err, info)
		return call(ctx)
	}
	for i := len(r.interceptors) - 1; i >= 0; i-- {
		ic, inner := r.interceptors[i], next
		next = func(ctx context.Context) error {
			return ic(ctx, info, inner)
		}
	}
	return next(ctx)
}

func recoverInto(err *error, info ActionInfo) {
	if v := recover(); v != nil {
		*err = &PanicError{ActionID: info.ID, Value: v, Stack: debug.Stack()}
	}
}

// guard runs a caller capability, logging instead of propagating a panic.
func (r *Registry) guard(info ActionInfo, name string, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("optimistic callback panicked",
				"action_id", info.ID,
				"callback", name,
				"panic", v,
			)
		}
	}()
	fn()
}
