package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "ALLIANCE_"

// loadEnvFile copies the dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseEnv overlays ALLIANCE_* variables onto config.
//
//	ALLIANCE_HTTP_ADDR             bind address
//	ALLIANCE_HISTORY_DELAY         duration, e.g. "500ms"
//	ALLIANCE_SESSION_IDLE_TIMEOUT  duration
//	ALLIANCE_WS_WRITE_TIMEOUT      duration
//	ALLIANCE_WS_READ_TIMEOUT       duration
//	ALLIANCE_DEV_IDENTITY          "id:role[:name]"
//	ALLIANCE_LOG_LEVEL             zap level
//	ALLIANCE_LOG_FORMAT            json | console
func parseEnv(config *Config) error {
	strs := map[string]*string{
		"HTTP_ADDR":    &config.HTTPAddr,
		"DEV_IDENTITY": &config.DevIdentity,
		"LOG_LEVEL":    &config.LogLevel,
		"LOG_FORMAT":   &config.LogFormat,
	}
	for k, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + k); ok {
			*dst = v
		}
	}

	durs := map[string]*time.Duration{
		"HISTORY_DELAY":        &config.HistoryDelay,
		"SESSION_IDLE_TIMEOUT": &config.SessionIdleTimeout,
		"WS_WRITE_TIMEOUT":     &config.WriteTimeout,
		"WS_READ_TIMEOUT":      &config.ReadTimeout,
	}
	for k, dst := range durs {
		v, ok := os.LookupEnv(envPrefix + k)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, k, err)
		}
		*dst = d
	}
	return nil
}
