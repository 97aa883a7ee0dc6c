package config

import (
	"flag"
	"io"
	"strings"
)

// parseFlags populates config from command-line flags.
//
//	-a string     HTTP bind address (e.g. ":8080")
//	-history-delay duration
//	-idle-timeout  duration
//	-dev-identity  "id:role[:name]"
//	-log-level     zap level
//	-ws-write-timeout duration
//	-ws-read-timeout  duration
//	-log-format    json | console
//	-env string    dotenv file, "" for none
func parseFlags(config *Config, args []string) error {
	fs := newFlagSet(config)
	return fs.Parse(args)
}

func newFlagSet(config *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("alliance-stats", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.DurationVar(&config.HistoryDelay, "history-delay", config.HistoryDelay, "latency of history lookups")
	fs.DurationVar(&config.SessionIdleTimeout, "idle-timeout", config.SessionIdleTimeout, "lifetime of a session without clients")
	fs.DurationVar(&config.WriteTimeout, "ws-write-timeout", config.WriteTimeout, "websocket write deadline")
	fs.DurationVar(&config.ReadTimeout, "ws-read-timeout", config.ReadTimeout, "websocket read deadline")
	fs.StringVar(&config.DevIdentity, "dev-identity", config.DevIdentity, "fallback identity id:role[:name] (development only)")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format: json or console")
	fs.StringVar(&config.EnvFile, "env", config.EnvFile, "dotenv file")
	return fs
}

// envFileFlag returns the value of -env/--env in args and whether the flag
// was given at all.
func envFileFlag(args []string) (string, bool) {
	for i, a := range args {
		name, val, hasVal := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "env" {
			continue
		}
		if hasVal {
			return val, true
		}
		if i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}
