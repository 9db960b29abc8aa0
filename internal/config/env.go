package config

import (
	"os"
	"strconv"

	"snapfetch/internal/common"
)

// Environment variable names honored on top of the config file
const (
	EnvOutputDir     = "OUTPUT_DIR"
	EnvFetchInterval = "FETCH_INTERVAL"
)

// ApplyEnvOverrides overlays environment variables onto the loaded
// configuration. Environment values win over file values.
func ApplyEnvOverrides(cfg *GlobalConfig) error {
	if v := os.Getenv(EnvOutputDir); v != "" {
		cfg.FetcherConfig.OutputDir = v
	}

	if v := os.Getenv(EnvFetchInterval); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 1 {
			return common.NewValidationError(EnvFetchInterval, v, "must be a positive integer number of seconds")
		}
		cfg.FetcherConfig.IntervalSeconds = seconds
	}

	return nil
}
