// Package config provides configuration parsing for the optimist CLI.
//
// The configuration is stored in optimist.json. Every field can be
// overridden by an OPTIMIST_* environment variable; the file is optional.
//
// # Configuration File Structure
//
//	{
//	  "logLevel": "info",
//	  "simulate": {
//	    "actions": 50,
//	    "keys": 8,
//	    "failRate": 0.2,
//	    "minLatency": "20ms",
//	    "maxLatency": "250ms",
//	    "label": "sim",
//	    "seed": 42
//	  },
//	  "serve": {
//	    "addr": "localhost:9090",
//	    "interval": "5s",
//	    "shutdownTimeout": "10s"
//	  },
//	  "metrics": {
//	    "namespace": "dashboard"
//	  },
//	  "tracing": {
//	    "tracerName": "optimist",
//	    "endpoint": "http://localhost:4318"
//	  }
//	}
//
// # Environment Overrides
//
//	OPTIMIST_LOG_LEVEL=debug
//	OPTIMIST_SIMULATE_FAIL_RATE=0.5
//	OPTIMIST_SERVE_ADDR=:8080
package config
