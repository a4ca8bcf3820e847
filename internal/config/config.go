// Package config parses the connector's startup flags into a single Config
// value. Per the redesign away from a global configuration singleton, the
// result is constructed once in main and threaded explicitly to every
// component that needs it, rather than read back out of package-level state.
package config

import (
	"flag"
)

// Config holds the connector's startup options.
type Config struct {
	// JSON, when true, requests the capability descriptor be printed to
	// stdout and the process exit immediately without binding a listener
	// (§6).
	JSON bool
	// SocketPath is the external collaborator's unix socket used to reach
	// the per-client media core process. Referenced by interface only: this
	// connector never forks that process itself (§1 "Out of scope").
	SocketPath string
	// Listen is the address the connector's HTTP listener binds.
	Listen string
	// DebugLevel is a 0-3 verbosity knob carried over from the original
	// core's own `-d` flag, mapped onto zerolog levels by the caller.
	DebugLevel uint8
	// LogPretty selects human-readable console logging instead of JSON,
	// for interactive use.
	LogPretty bool
}

// Parse builds a Config from args (typically os.Args[1:]).
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("hssorigind", flag.ContinueOnError)

	cfg := Config{}
	fs.BoolVar(&cfg.JSON, "json", false, "print the capability descriptor and exit")
	fs.StringVar(&cfg.SocketPath, "socket-path", "", "unix socket path to the media core")
	fs.StringVar(&cfg.Listen, "listen", ":8080", "address the HTTP listener binds")
	debugLevel := fs.Uint("debug-level", 0, "verbosity (0-3)")
	fs.BoolVar(&cfg.LogPretty, "log-pretty", false, "human-readable console logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.DebugLevel = uint8(*debugLevel)
	return cfg, nil
}

// ZerologLevel maps the 0-3 debug verbosity onto a zerolog level name.
func (c Config) ZerologLevel() string {
	switch {
	case c.DebugLevel >= 3:
		return "trace"
	case c.DebugLevel == 2:
		return "debug"
	case c.DebugLevel == 1:
		return "info"
	default:
		return "warn"
	}
}
