package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/config"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/features/optimistic"
)

func newRegistry() *optimistic.Registry {
	return optimistic.NewRegistry(optimistic.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func simConfig(actions, keys int, failRate float64) config.SimulateConfig {
	return config.SimulateConfig{
		Actions:    actions,
		Keys:       keys,
		FailRate:   failRate,
		MinLatency: config.Duration(time.Millisecond),
		MaxLatency: config.Duration(5 * time.Millisecond),
		Label:      "sim",
		Seed:       42,
	}
}

func TestRunAllConfirmed(t *testing.T) {
	reg := newRegistry()
	report, err := Run(context.Background(), reg, simConfig(12, 3, 0))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Confirmed != 12 || report.RolledBack != 0 {
		t.Errorf("Confirmed/RolledBack = %d/%d, want 12/0", report.Confirmed, report.RolledBack)
	}
	for k, v := range report.Board {
		if v != 4 {
			t.Errorf("Board[%d] = %d, want 4", k, v)
		}
	}
	if report.MaxPending < 1 {
		t.Errorf("MaxPending = %d, want >= 1", report.MaxPending)
	}
	if n := reg.PendingCount(); n != 0 {
		t.Errorf("PendingCount() after Run = %d, want 0", n)
	}
}

func TestRunAllRolledBack(t *testing.T) {
	reg := newRegistry()
	report, err := Run(context.Background(), reg, simConfig(8, 2, 1))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Confirmed != 0 || report.RolledBack != 8 {
		t.Errorf("Confirmed/RolledBack = %d/%d, want 0/8", report.Confirmed, report.RolledBack)
	}
	for k, v := range report.Board {
		if v != 0 {
			t.Errorf("Board[%d] = %d, want 0", k, v)
		}
	}
	if reg.IsPending("") {
		t.Error("IsPending(\"\") = true after Run")
	}
}

func TestRunSeedIsReproducible(t *testing.T) {
	cfg := simConfig(30, 30, 0.5)

	first, err := Run(context.Background(), newRegistry(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	second, err := Run(context.Background(), newRegistry(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if first.Confirmed != second.Confirmed {
		t.Errorf("Confirmed = %d then %d with the same seed", first.Confirmed, second.Confirmed)
	}
	for k := range first.Board {
		if first.Board[k] != second.Board[k] {
			t.Errorf("Board[%d] = %d then %d with the same seed", k, first.Board[k], second.Board[k])
		}
	}
}

func TestConfirmationHonorsContext(t *testing.T) {
	cfg := simConfig(1, 1, 0)
	cfg.MinLatency = config.Duration(time.Hour)
	cfg.MaxLatency = config.Duration(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBackend(cfg).Confirmation()(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Confirmation() error = %v, want context.Canceled", err)
	}
}

func TestRunCanceledRollsBack(t *testing.T) {
	cfg := simConfig(4, 4, 0)
	cfg.MinLatency = config.Duration(time.Hour)
	cfg.MaxLatency = config.Duration(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	report, err := Run(ctx, newRegistry(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.RolledBack != 4 {
		t.Errorf("RolledBack = %d, want 4", report.RolledBack)
	}
}

func TestRunSharedKeyBoardMatchesConfirmed(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42, 99} {
		cfg := simConfig(40, 1, 0.5)
		cfg.Seed = seed

		report, err := Run(context.Background(), newRegistry(), cfg)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		sum := 0
		for _, v := range report.Board {
			sum += v
		}
		if sum != report.Confirmed {
			t.Errorf("seed %d: sum(Board) = %d, want Confirmed = %d", seed, sum, report.Confirmed)
		}
		if report.Confirmed+report.RolledBack != 40 {
			t.Errorf("seed %d: settled = %d, want 40", seed, report.Confirmed+report.RolledBack)
		}
	}
}

func TestSlowFailureKeepsLaterConfirmation(t *testing.T) {
	reg := newRegistry()
	board := NewBoard(1)

	release := make(chan struct{})
	slow := board.Increment(0, "slow", func(ctx context.Context) (int, error) {
		<-release
		return 0, ErrRejected
	})
	var snapshot int
	revert := slow.Revert
	slow.Revert = func(prev int) {
		snapshot = prev
		revert(prev)
	}

	first, err := optimistic.Start(context.Background(), reg, slow)
	if err != nil {
		t.Fatalf("Start(slow) error = %v", err)
	}
	second, err := optimistic.Start(context.Background(), reg, board.Increment(0, "fast", func(context.Context) (int, error) {
		return 1, nil
	}))
	if err != nil {
		t.Fatalf("Start(fast) error = %v", err)
	}
	if _, err := second.Wait(); err != nil {
		t.Fatalf("fast Wait() error = %v", err)
	}

	close(release)
	if _, err := first.Wait(); !errors.Is(err, ErrRejected) {
		t.Fatalf("slow Wait() error = %v, want ErrRejected", err)
	}

	if snapshot != 0 {
		t.Errorf("Revert snapshot = %d, want 0", snapshot)
	}
	if got := board.Get(0); got != 1 {
		t.Errorf("Board[0] = %d, want 1 (the confirmed increment)", got)
	}
}
