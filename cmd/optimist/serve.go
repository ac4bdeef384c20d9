package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/config"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/errors"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/notify"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/sim"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/tracing"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/features/optimistic"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/toast"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run simulations behind an HTTP API",
		Long: `Run a simulation batch every serve.interval and expose the registry
over HTTP.

Endpoints:
  GET  /healthz   liveness check
  GET  /metrics   Prometheus metrics
  GET  /actions   outstanding optimistic actions as JSON
  GET  /toasts    WebSocket stream of rollback toasts
  POST /simulate  run one batch now and return its report

On SIGINT or SIGTERM no new batches start and the server waits up to
serve.shutdownTimeout for outstanding actions to settle.

Examples:
  optimist serve
  optimist serve --addr=:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Serve.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from optimist.json)")

	return cmd
}

// server holds the state shared by the HTTP handlers and the batch loop.
type server struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *optimistic.Registry
	hub      *notify.Hub
	gatherer prometheus.Gatherer

	// work is the context confirmations run under. It is canceled only when
	// a drain times out.
	work context.Context

	mu      sync.Mutex
	closing bool
	batches sync.WaitGroup
}

func newServer(work context.Context, cfg *config.Config, logger *slog.Logger) (*server, error) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := notify.NewHub(logger)
	registry, err := newRegistry(cfg, logger, toast.NewNotifier(hub), promReg)
	if err != nil {
		return nil, err
	}

	return &server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		hub:      hub,
		gatherer: promReg,
		work:     work,
	}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Method(http.MethodGet, "/toasts", s.hub)
	r.Get("/actions", s.handleActions)
	r.Post("/simulate", s.handleSimulate)

	return r
}

// actionsResponse is the body of GET /actions.
type actionsResponse struct {
	Pending int                     `json:"pending"`
	Actions []optimistic.ActionInfo `json:"actions"`
}

func (s *server) handleActions(w http.ResponseWriter, r *http.Request) {
	resp := actionsResponse{Actions: s.registry.Actions()}
	if filter := r.URL.Query().Get("filter"); filter != "" {
		matched := resp.Actions[:0]
		for _, a := range resp.Actions {
			if strings.Contains(a.ID, filter) {
				matched = append(matched, a)
			}
		}
		resp.Actions = matched
	}
	resp.Pending = len(resp.Actions)
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if !s.begin() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.batches.Done()

	report, err := sim.Run(s.work, s.registry, s.cfg.Simulate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// loop runs a batch every interval until ctx is done. Batches run in the
// background so a slow batch never delays the next tick.
func (s *server) loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Serve.Interval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.begin() {
				return
			}
			go func() {
				defer s.batches.Done()
				report, err := sim.Run(s.work, s.registry, s.cfg.Simulate)
				if err != nil {
					s.logger.Error("simulation batch failed", "error", err)
					return
				}
				s.logger.Info("simulation batch settled",
					"confirmed", report.Confirmed,
					"rolled_back", report.RolledBack,
					"max_pending", report.MaxPending,
				)
				s.announce(report)
			}()
		}
	}
}

// announce summarizes a settled batch to connected clients.
func (s *server) announce(report sim.Report) {
	total := report.Confirmed + report.RolledBack
	if report.RolledBack > 0 {
		toast.Warning(s.hub, fmt.Sprintf("%d of %d changes rolled back", report.RolledBack, total))
		return
	}
	toast.Success(s.hub, fmt.Sprintf("%d changes confirmed", total))
}

// begin reserves a slot for one simulation batch. It reports false once
// shutdown has started.
func (s *server) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.batches.Add(1)
	return true
}

// beginShutdown stops new batches from starting.
func (s *server) beginShutdown() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
}

// drain stops new batches, then waits for running batches and outstanding
// actions until ctx is done. On timeout it cancels the remaining
// confirmations and reports how many were still pending.
func (s *server) drain(ctx context.Context, cancelWork context.CancelFunc) error {
	s.beginShutdown()

	batchesDone := make(chan struct{})
	go func() {
		s.batches.Wait()
		close(batchesDone)
	}()

	err := ctx.Err()
	if err == nil {
		select {
		case <-batchesDone:
			err = s.registry.Drain(ctx)
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err != nil {
		pending := s.registry.PendingCount()
		cancelWork()
		return errors.New("R001").
			WithDetailf("%d actions still pending at shutdown", pending).
			Wrap(err)
	}
	return nil
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	shutdownTracing, err := tracing.Setup(ctx, "optimist", cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	work, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	s, err := newServer(work, cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Serve.Addr)
	if err != nil {
		return errors.New("R003").Wrap(err)
	}

	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	printBanner(out)
	success(out, "Listening on http://%s", ln.Addr())
	info(out, "Batch of %d actions every %s", cfg.Simulate.Actions, cfg.Serve.Interval.Std())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	go s.loop(loopCtx)

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("R003").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	info(out, "Shutting down...")
	toast.Info(s.hub, "Server shutting down")
	stopLoop()
	s.beginShutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Serve.ShutdownTimeout.Std())
	defer cancel()

	// In-flight POST /simulate requests finish before the registry is drained.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	drainErr := s.drain(shutdownCtx, cancelWork)
	s.hub.Close()

	if drainErr != nil {
		return drainErr
	}
	success(out, "All actions settled")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
