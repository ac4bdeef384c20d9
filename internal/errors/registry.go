package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (C001-C099)
	// ============================================

	"C001": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or is not valid JSON.",
	},
	"C002": {
		Category: CategoryConfig,
		Message:  "Invalid action count",
		Detail:   "The simulation needs at least one action.",
	},
	"C003": {
		Category: CategoryConfig,
		Message:  "Invalid failure rate",
		Detail:   "The failure rate is a probability and must be between 0 and 1.",
	},
	"C004": {
		Category: CategoryConfig,
		Message:  "Invalid latency range",
		Detail:   "Latencies must be non-negative and minLatency must not exceed maxLatency.",
	},
	"C005": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
		Detail:   "The server address must be in host:port form.",
	},
	"C006": {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "An OPTIMIST_* environment variable could not be parsed.",
	},
	"C007": {
		Category: CategoryConfig,
		Message:  "Invalid key count",
		Detail:   "The simulation board needs at least one key.",
	},
	"C008": {
		Category: CategoryConfig,
		Message:  "Invalid sample ratio",
		Detail:   "tracing.sampleRatio must be between 0 and 1.",
	},
	"C009": {
		Category: CategoryConfig,
		Message:  "Configuration file already exists",
		Detail:   "optimist init does not overwrite an existing optimist.json.",
	},

	// ============================================
	// Runtime Errors (R001-R099)
	// ============================================

	"R001": {
		Category: CategoryRuntime,
		Message:  "Actions still pending at shutdown",
		Detail:   "The registry did not drain before the shutdown deadline. Their confirmations were still running.",
	},
	"R002": {
		Category: CategoryRuntime,
		Message:  "Metrics registration failed",
		Detail:   "The Prometheus collectors conflict with collectors already registered.",
	},
	"R003": {
		Category: CategoryRuntime,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
	},

	// ============================================
	// CLI Errors (X001-X099)
	// ============================================

	"X001": {
		Category: CategoryCLI,
		Message:  "Invalid command line",
		Detail:   "The command, its arguments or a flag value could not be parsed.",
	},
	"X002": {
		Category: CategoryCLI,
		Message:  "Unknown error code",
		Detail:   "The code is not one of the codes listed by optimist explain.",
	},
}

// Codes returns all registered error codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for an error code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
