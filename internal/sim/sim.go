// Package sim drives optimistic actions against an in-memory board.
//
// Each action increments one board key optimistically and is confirmed by a
// simulated backend with random latency and a configurable failure rate. A
// fixed seed makes the outcome of every action reproducible; only the
// settlement interleaving varies between runs.
package sim

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/config"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/features/optimistic"
)

// ErrRejected is returned by a simulated confirmation that fails.
var ErrRejected = errors.New("sim: backend rejected the change")

// Board is caller-owned state: a fixed set of integer counters.
type Board struct {
	mu     sync.Mutex
	values []int
}

// NewBoard creates a board with keys counters, all zero.
func NewBoard(keys int) *Board {
	return &Board{values: make([]int, keys)}
}

// Get returns the value of key k.
func (b *Board) Get(k int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.values[k]
}

func (b *Board) add(k, d int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[k] += d
	return b.values[k]
}

// Values returns a copy of all counters.
func (b *Board) Values() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.values...)
}

// Backend produces simulated confirmations.
type Backend struct {
	mu       sync.Mutex
	rng      *rand.Rand
	failRate float64
	min, max time.Duration
}

// NewBackend creates a Backend from cfg. A zero seed picks a random one.
func NewBackend(cfg config.SimulateConfig) *Backend {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Backend{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		failRate: cfg.FailRate,
		min:      cfg.MinLatency.Std(),
		max:      cfg.MaxLatency.Std(),
	}
}

// Confirmation returns the next simulated confirmation. Its latency and
// outcome are drawn when Confirmation is called, not when it runs.
func (b *Backend) Confirmation() func(ctx context.Context) (int, error) {
	b.mu.Lock()
	fail := b.rng.Float64() < b.failRate
	latency := b.min
	if span := b.max - b.min; span > 0 {
		latency += time.Duration(b.rng.Int64N(int64(span) + 1))
	}
	b.mu.Unlock()

	return func(ctx context.Context) (int, error) {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.C:
		}
		if fail {
			return 0, ErrRejected
		}
		return 1, nil
	}
}

// Report summarizes one Run. Starting from a zero board, the sum of Board
// equals Confirmed.
type Report struct {
	Confirmed  int           `json:"confirmed"`
	RolledBack int           `json:"rolledBack"`
	MaxPending int           `json:"maxPending"`
	Board      []int         `json:"board"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Increment returns an Update that adds one to key k.
//
// Actions on the same key overlap, so Revert compensates by subtracting its
// own increment instead of restoring the snapshot; restoring would discard
// increments confirmed after this one started.
func (b *Board) Increment(k int, label string, confirm func(ctx context.Context) (int, error)) optimistic.Update[int, int] {
	return optimistic.Update[int, int]{
		Label:    label,
		Snapshot: func() int { return b.Get(k) },
		Apply:    func() int { return b.add(k, 1) },
		Confirm:  confirm,
		Revert:   func(int) { b.add(k, -1) },
	}
}

// Run starts cfg.Actions concurrent optimistic increments on a fresh board,
// spreading them round-robin over cfg.Keys, and waits for all of them.
func Run(ctx context.Context, reg *optimistic.Registry, cfg config.SimulateConfig) (Report, error) {
	return RunOn(ctx, reg, NewBoard(cfg.Keys), NewBackend(cfg), cfg)
}

// RunOn is Run against caller-supplied state.
func RunOn(ctx context.Context, reg *optimistic.Registry, board *Board, backend *Backend, cfg config.SimulateConfig) (Report, error) {
	start := time.Now()
	var report Report

	pendings := make([]*optimistic.Pending[int], 0, cfg.Actions)
	for i := 0; i < cfg.Actions; i++ {
		key := i % len(board.values)
		p, err := optimistic.Start(ctx, reg, board.Increment(key, cfg.Label, backend.Confirmation()))
		if err != nil {
			return report, err
		}
		pendings = append(pendings, p)
		if n := reg.PendingCount(); n > report.MaxPending {
			report.MaxPending = n
		}
	}

	for _, p := range pendings {
		if _, err := p.Wait(); err != nil {
			report.RolledBack++
		} else {
			report.Confirmed++
		}
	}

	report.Board = board.Values()
	report.Elapsed = time.Since(start)
	return report, nil
}
