// Package config handles configuration for the stats server: defaults, an
// optional .env file, ALLIANCE_* environment variables and command-line flags,
// applied in that order.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DoyleJ11/alliance-stats/internal/engine"
)

var ErrInvalidDevIdentity = errors.New("invalid dev identity")

// Config holds runtime settings.
//
// Fields:
//   - HTTPAddr: bind address of the HTTP server.
//   - HistoryDelay: latency added to every history lookup.
//   - SessionIdleTimeout: how long a session with no connected client survives.
//   - WriteTimeout / ReadTimeout: websocket write and read deadlines.
//   - DevIdentity: "id:role[:name]" used when a request carries no identity.
//     Empty disables the fallback. Never set it in production.
//   - LogLevel / LogFormat: zap level name and "json" or "console".
//   - EnvFile: dotenv file read before the environment, if it exists.
type Config struct {
	HTTPAddr           string
	HistoryDelay       time.Duration
	SessionIdleTimeout time.Duration
	WriteTimeout       time.Duration
	ReadTimeout        time.Duration
	DevIdentity        string
	LogLevel           string
	LogFormat          string
	EnvFile            string
}

func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.HistoryDelay = 500 * time.Millisecond
	c.SessionIdleTimeout = 10 * time.Minute
	c.WriteTimeout = 3 * time.Second
	c.ReadTimeout = 60 * time.Second
	c.DevIdentity = ""
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.EnvFile = ".env"
}

// LoadConfig builds a Config from defaults, then the dotenv file and the
// environment, then args (normally os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	// -env may point at another dotenv file, so flags are looked at first
	// for that one value only. An explicit empty -env skips the file.
	if f, ok := envFileFlag(args); ok {
		cfg.EnvFile = f
	}
	if err := loadEnvFile(cfg.EnvFile); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if _, err := cfg.DevUser(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DevUser returns the fallback identity, or nil when the fallback is off.
func (c *Config) DevUser() (*engine.User, error) {
	return ParseDevIdentity(c.DevIdentity)
}

// ParseDevIdentity parses "id:role[:name]". An empty string yields nil.
func ParseDevIdentity(s string) (*engine.User, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: %q, want id:role[:name]", ErrInvalidDevIdentity, s)
	}
	id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: id %q", ErrInvalidDevIdentity, parts[0])
	}
	role := strings.TrimSpace(parts[1])
	if role == "" {
		return nil, fmt.Errorf("%w: empty role", ErrInvalidDevIdentity)
	}
	u := &engine.User{ID: id, Role: role}
	if len(parts) == 3 {
		u.Name = strings.TrimSpace(parts[2])
	}
	return u, nil
}
