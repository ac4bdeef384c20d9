package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/config"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/errors"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/features/optimistic"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/middleware"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌─┐┌┬┐┬┌┬┐┬┌─┐┌┬┐
  │ │├─┘ │ │││││└─┐ │
  └─┘┴   ┴ ┴┴ ┴┴└─┘ ┴
`

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	noColor    bool

	// json is set by commands that print machine-readable output; errors
	// are then printed as JSON too.
	json bool
}

func main() {
	flags := &globalFlags{}
	if err := newRootCmd(flags).Execute(); err != nil {
		errors.Print(os.Stderr, err, flags.errorStyle(os.Stderr), "X001")
		os.Exit(1)
	}
}

// errorStyle picks how a failed command reports its error on f.
func (g *globalFlags) errorStyle(f *os.File) errors.Style {
	switch {
	case g.json:
		return errors.StyleJSON
	case g.noColor, os.Getenv("NO_COLOR") != "", !isatty.IsTerminal(f.Fd()):
		return errors.StylePlain
	default:
		return errors.StyleTerminal
	}
}

func newRootCmd(flags *globalFlags) *cobra.Command {

	rootCmd := &cobra.Command{
		Use:   "optimist",
		Short: "Optimistic update coordinator",
		Long: `Optimist applies changes immediately, confirms them in the
background, and rolls back the ones that fail.

Commands:
  • init      write a default optimist.json
  • simulate  run a batch of optimistic actions against a fake backend
  • serve     run simulations continuously behind an HTTP API
  • explain   describe an error code`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to optimist.json (default ./optimist.json)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		initCmd(),
		simulateCmd(flags),
		serveCmd(flags),
		explainCmd(),
		versionCmd(),
	)

	return rootCmd
}

// loadConfig reads the config file named by --config, or ./optimist.json
// when it exists, and applies flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}

	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// newRegistry builds a Registry instrumented with Prometheus and
// OpenTelemetry.
func newRegistry(cfg *config.Config, logger *slog.Logger, notifier optimistic.Notifier, reg prometheus.Registerer) (*optimistic.Registry, error) {
	metricsOpts := []middleware.MetricsOption{middleware.WithRegistry(reg)}
	if cfg.Metrics.Namespace != "" {
		metricsOpts = append(metricsOpts, middleware.WithNamespace(cfg.Metrics.Namespace))
	}
	if cfg.Metrics.Subsystem != "" {
		metricsOpts = append(metricsOpts, middleware.WithSubsystem(cfg.Metrics.Subsystem))
	}
	metrics, err := middleware.Prometheus(metricsOpts...)
	if err != nil {
		return nil, errors.New("R002").Wrap(err)
	}

	tracing := middleware.OpenTelemetry(
		middleware.WithTracerName(cfg.Tracing.TracerName),
		middleware.WithTracerProvider(otel.GetTracerProvider()),
	)

	return optimistic.NewRegistry(
		optimistic.WithLogger(logger),
		optimistic.WithNotifier(notifier),
		optimistic.WithInterceptors(tracing, metrics),
	), nil
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
