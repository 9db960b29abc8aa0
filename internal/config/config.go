package config

import (
	"os"
	"path/filepath"

	"snapfetch/internal/common"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// GlobalConfig contains all configuration sections for the application
type GlobalConfig struct {
	LogConfig       LogConfig       `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	HTTPConfig      HTTPConfig      `json:"http_config,omitempty" yaml:"http_config,omitempty"`
	FetcherConfig   FetcherConfig   `json:"fetcher_config,omitempty" yaml:"fetcher_config,omitempty"`
	DiscoveryConfig DiscoveryConfig `json:"discovery_config,omitempty" yaml:"discovery_config,omitempty"`
	Sources         []SourceConfig  `json:"sources,omitempty" yaml:"sources,omitempty" validate:"dive"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogConfig:       NewDefaultLogConfig(),
		HTTPConfig:      NewDefaultHTTPConfig(),
		FetcherConfig:   NewDefaultFetcherConfig(),
		DiscoveryConfig: NewDefaultDiscoveryConfig(),
		Sources:         []SourceConfig{},
	}
}

// LoadGlobalConfig loads the configuration from a file, falling back to
// defaults when no path is given. YAML is preferred if the file extension is
// .yaml or .yml, otherwise the file is parsed as JSON.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	if providedPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(providedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.NewValidationError("config_file", providedPath, "config file does not exist")
		}
		return nil, common.WrapError(err, "failed to read config file")
	}

	if err := parseConfigContent(data, providedPath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	return cfg, nil
}

func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}
