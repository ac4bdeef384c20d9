package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/config"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/sim"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/tracing"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/toast"
)

func simulateCmd(flags *globalFlags) *cobra.Command {
	var (
		actions  int
		keys     int
		failRate float64
		seed     uint64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a batch of optimistic actions",
		Long: `Run a batch of concurrent optimistic increments against a simulated
backend and report how many were confirmed and how many rolled back.

Failed confirmations are reported as error toasts in the log.

Examples:
  optimist simulate
  optimist simulate --actions=200 --fail-rate=0.1
  optimist simulate --seed=42 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			f := cmd.Flags()
			if f.Changed("actions") {
				cfg.Simulate.Actions = actions
			}
			if f.Changed("keys") {
				cfg.Simulate.Keys = keys
			}
			if f.Changed("fail-rate") {
				cfg.Simulate.FailRate = failRate
			}
			if f.Changed("seed") {
				cfg.Simulate.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runSimulate(cmd, cfg, flags.json)
		},
	}

	cmd.Flags().IntVarP(&actions, "actions", "n", 0, "Number of actions (default from optimist.json)")
	cmd.Flags().IntVarP(&keys, "keys", "k", 0, "Number of board keys (default from optimist.json)")
	cmd.Flags().Float64VarP(&failRate, "fail-rate", "f", 0, "Probability a confirmation fails, 0 to 1")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for reproducible runs")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the report, or the error, as JSON")

	return cmd
}

func runSimulate(cmd *cobra.Command, cfg *config.Config, asJSON bool) error {
	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "optimist", cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	reg, err := newRegistry(cfg, logger, toast.NewNotifier(toast.LogEmitter{Logger: logger}), prometheus.NewRegistry())
	if err != nil {
		return err
	}

	report, err := sim.Run(ctx, reg, cfg.Simulate)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	success(out, "%d actions settled in %s", report.Confirmed+report.RolledBack, report.Elapsed.Round(1000000))
	info(out, "Confirmed:   %d", report.Confirmed)
	info(out, "Rolled back: %d", report.RolledBack)
	info(out, "Max pending: %d", report.MaxPending)
	info(out, "Board:       %v", report.Board)
	if report.RolledBack > 0 {
		warn(out, "%d optimistic changes were reverted", report.RolledBack)
	}
	return nil
}
