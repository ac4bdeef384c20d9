package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/features/optimistic"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func update(label string, confirm func(context.Context) (int, error)) optimistic.Update[int, int] {
	v := 0
	return optimistic.Update[int, int]{
		Label:    label,
		Snapshot: func() int { return v },
		Apply:    func() int { v++; return v },
		Confirm:  confirm,
		Revert:   func(prev int) { v = prev },
	}
}

func TestPrometheusRecordsOutcomes(t *testing.T) {
	promReg := prometheus.NewRegistry()
	ic, err := Prometheus(WithRegistry(promReg), WithNamespace("test"))
	if err != nil {
		t.Fatalf("Prometheus() error = %v", err)
	}
	reg := optimistic.NewRegistry(optimistic.WithLogger(quietLogger()), optimistic.WithInterceptors(ic))

	gate := make(chan struct{})
	p, err := optimistic.Start(context.Background(), reg, update("like", func(context.Context) (int, error) {
		<-gate
		return 1, nil
	}))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_, _ = optimistic.Execute(context.Background(), reg, update("like", func(context.Context) (int, error) {
		return 0, errors.New("rate limit exceeded")
	}))
	_, _ = optimistic.Execute(context.Background(), reg, update("delete", func(context.Context) (int, error) {
		return 0, context.DeadlineExceeded
	}))

	pending, err := gatherGauge(promReg, "test_optimistic_pending_actions")
	if err != nil {
		t.Fatalf("gather error = %v", err)
	}
	if pending != 1 {
		t.Errorf("pending_actions = %v, want 1", pending)
	}

	close(gate)
	if _, err := p.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	tests := []struct {
		labels []string
		want   float64
	}{
		{[]string{"like", OutcomeConfirmed}, 1},
		{[]string{"like", OutcomeRolledBack}, 1},
		{[]string{"delete", OutcomeRolledBack}, 1},
		{[]string{"delete", OutcomeConfirmed}, 0},
	}
	mm := findMetrics(t, promReg)
	for _, tt := range tests {
		got := mm.confirmations(tt.labels[0], tt.labels[1])
		if got != tt.want {
			t.Errorf("confirmations_total%v = %v, want %v", tt.labels, got, tt.want)
		}
	}
	if got := mm.errorsOf("like", "rate_limit"); got != 1 {
		t.Errorf("confirmation_errors_total{like,rate_limit} = %v, want 1", got)
	}
	if got := mm.errorsOf("delete", "timeout"); got != 1 {
		t.Errorf("confirmation_errors_total{delete,timeout} = %v, want 1", got)
	}

	pending, _ = gatherGauge(promReg, "test_optimistic_pending_actions")
	if pending != 0 {
		t.Errorf("pending_actions after settle = %v, want 0", pending)
	}
}

func TestPrometheusReuseRegistry(t *testing.T) {
	promReg := prometheus.NewRegistry()
	if _, err := Prometheus(WithRegistry(promReg)); err != nil {
		t.Fatalf("first Prometheus() error = %v", err)
	}
	if _, err := Prometheus(WithRegistry(promReg)); err != nil {
		t.Errorf("second Prometheus() error = %v, want nil", err)
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{&optimistic.PanicError{Value: "x"}, "panic"},
		{errors.New("upstream Timeout"), "timeout"},
		{errors.New("item not found"), "not_found"},
		{errors.New("forbidden"), "forbidden"},
		{errors.New("version conflict"), "conflict"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := categorizeError(tt.err); got != tt.want {
			t.Errorf("categorizeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// metricSet reads counters back out of a registry.
type metricSet struct {
	t   *testing.T
	reg *prometheus.Registry
}

func findMetrics(t *testing.T, reg *prometheus.Registry) metricSet {
	return metricSet{t: t, reg: reg}
}

func (m metricSet) counter(name string, labels map[string]string) float64 {
	families, err := m.reg.Gather()
	if err != nil {
		m.t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			match := true
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if match {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func (m metricSet) confirmations(label, outcome string) float64 {
	return m.counter("test_optimistic_confirmations_total", map[string]string{"label": label, "outcome": outcome})
}

func (m metricSet) errorsOf(label, errorType string) float64 {
	return m.counter("test_optimistic_confirmation_errors_total", map[string]string{"label": label, "error_type": errorType})
}

func gatherGauge(reg *prometheus.Registry, name string) (float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return 0, err
	}
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetGauge().GetValue(), nil
		}
	}
	return 0, nil
}

func TestPrometheusLint(t *testing.T) {
	promReg := prometheus.NewRegistry()
	if _, err := Prometheus(WithRegistry(promReg)); err != nil {
		t.Fatalf("Prometheus() error = %v", err)
	}
	problems, err := testutil.GatherAndLint(promReg)
	if err != nil {
		t.Fatalf("GatherAndLint() error = %v", err)
	}
	for _, p := range problems {
		t.Errorf("lint %s: %s", p.Metric, p.Text)
	}
}
